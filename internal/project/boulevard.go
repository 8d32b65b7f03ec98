package project

import (
	"github.com/innovationwizard/orion/internal/normalize"
	"github.com/innovationwizard/orion/internal/sheet"
)

// Boulevard is the Boulevard 5 tower ledger. Its actuals sheet carries tax
// component columns, so the net price is derived by subtraction; its
// cancellation blocks have their own header rows but no calendar row.
func Boulevard() *Profile {
	return &Profile{
		Name:        "boulevard",
		DisplayName: "Boulevard 5",
		Actuals: ActualsSpec{
			Sheet:    "BOULEVARD 5",
			ColStart: 2,
			ColEnd:   84,
			Main: sheet.SectionLayout{
				Tag:       sheet.SectionMain,
				HeaderRow: 6,
				RowStart:  7,
				RowEnd:    304,
			},
			Subs: []sheet.SectionLayout{
				{
					Tag:         sheet.SectionCancelled,
					HeaderRow:   319,
					RowStart:    320,
					RowEnd:      351,
					ForceStatus: "Desistimiento",
				},
				{
					Tag:         sheet.SectionWatchlist,
					HeaderRow:   357,
					RowStart:    358,
					RowEnd:      366,
					ForceStatus: "Desistimiento",
				},
			},
			Patterns: boulevardPatterns,
		},
		Budget: BudgetSpec{
			Sheet:    "BOULEVARD PPTO",
			Layout:   sheet.BudgetLayout{HeaderRow: 1, RowStart: 2, RowEnd: 299},
			ColStart: 1,
			ColEnd:   62,
			Patterns: []sheet.FieldPattern{
				{Name: sheet.FieldUnit, Patterns: []string{"apto", "apto."}},
				{Name: sheet.FieldStatus, Patterns: []string{"estatus"}},
			},
		},
		Tax: TaxRule{},
		Tables: normalize.Tables{
			UnitStatus: map[string]string{
				"1.disponible":    normalize.UnitAvailable,
				"2.reserva":       normalize.UnitReserved,
				"2. reserva":      normalize.UnitReserved,
				"2,reserva":       normalize.UnitReserved,
				"4.plan de pagos": normalize.UnitSold,
				"desistimiento":   normalize.UnitCancelled,
			},
			SaleStatus: map[string]string{
				"2.reserva":       normalize.SaleActive,
				"2. reserva":      normalize.SaleActive,
				"2,reserva":       normalize.SaleActive,
				"4.plan de pagos": normalize.SaleActive,
				"desistimiento":   normalize.SaleCancelled,
			},
			Reps: map[string]string{
				"ronaldo":         "Ronaldo Ogaldez",
				"ronaldo ogaldez": "Ronaldo Ogaldez",
				"anahi cisneros":  "Anahí Cisneros",
				"anahí cisneros":  "Anahí Cisneros",
				"**":              "",
				"sin datos":       "",
			},
		},
		RepFallback: "unknown",
		SalesReps: map[string]string{
			"walk_in": "Puerta Abierta",
			"unknown": "Unknown / Directo",
			"05":      "Sales Rep 05",
			"06":      "Sales Rep 06",
			"35":      "Sales Rep 35",
			"GV1":     "Sales Rep GV1",
		},
	}
}

var boulevardPatterns = []sheet.FieldPattern{
	{Name: sheet.FieldUnit, Patterns: []string{"apto", "apto."}},
	{Name: sheet.FieldUnitType, Patterns: []string{"tipo", "tipo.", "modelo"}},
	{Name: sheet.FieldNotes, Patterns: []string{"notas"}},
	{Name: sheet.FieldRep, Patterns: []string{"vendedor"}},
	{Name: sheet.FieldClient, Patterns: []string{"cliente"}},
	{Name: sheet.FieldReservedOn, Patterns: []string{"fecha reserva", "fecha"}},
	{Name: sheet.FieldStatus, Patterns: []string{"estatus", "tipo de plan"}},
	{Name: sheet.FieldPrice, Patterns: []string{"precio de venta", "p. venta", "p.venta"}},
	{Name: sheet.FieldDownPayment, Patterns: []string{"enganche"}},
	{Name: sheet.FieldDownPaymentTotal, Patterns: []string{"total enganches y reservas"}},
	{Name: sheet.FieldFinancedBalance, Patterns: []string{"saldo a financiar por el banco"}},
	{Name: sheet.FieldAgreedInstallments, Patterns: []string{"cuotas pactadas"}},
	{Name: sheet.FieldAgreedReservation, Patterns: []string{"monto de reserva pactado"}},
	{Name: sheet.FieldAgreedInstallmentAmount, Patterns: []string{"monto de cuota pactada"}},
	{Name: sheet.FieldPaidInstallments, Patterns: []string{"cuotas pagadas"}},
	{Name: sheet.FieldSpecialCase, Patterns: []string{"caso especial / f&f", "caso especial"}},
	{Name: sheet.FieldRemarks, Patterns: []string{"observaciones"}},
	{Name: sheet.FieldVAT, Patterns: []string{"iva"}},
	{Name: sheet.FieldStampTax, Patterns: []string{"timbres"}},
}
