package project

import (
	"github.com/shopspring/decimal"

	"github.com/innovationwizard/orion/internal/normalize"
	"github.com/innovationwizard/orion/internal/sheet"
)

// santaElisaTaxDivisor converts a tax-inclusive price to net: VAT at 8.4%
// plus stamp tax at 0.9% of the net price.
var santaElisaTaxDivisor = decimal.RequireFromString("1.093")

// SantaElisa is the Santa Elisa ledger. Its actuals sheet has no tax
// component columns, so the net price comes from a fixed divisor; its
// cancellation and refund blocks reuse the main header row entirely, and its
// budget sheet labels months as abbreviated Spanish text.
func SantaElisa() *Profile {
	return &Profile{
		Name:        "santa_elisa",
		DisplayName: "Santa Elisa",
		Actuals: ActualsSpec{
			Sheet:    "SANTA ELISA",
			ColStart: 2,
			ColEnd:   62,
			Main: sheet.SectionLayout{
				Tag:       sheet.SectionMain,
				HeaderRow: 4,
				RowStart:  5,
				RowEnd:    79,
			},
			Subs: []sheet.SectionLayout{
				{
					Tag:         sheet.SectionCancelled,
					HeaderRow:   4,
					RowStart:    85,
					RowEnd:      100,
					ForceStatus: "Desistimiento",
				},
				{
					Tag:         sheet.SectionRefund,
					HeaderRow:   4,
					RowStart:    103,
					RowEnd:      106,
					ForceStatus: "Desistimiento",
				},
			},
			Patterns: santaElisaPatterns,
		},
		Budget: BudgetSpec{
			Sheet:    "SANTA ELISA PPTO",
			Layout:   sheet.BudgetLayout{HeaderRow: 4, RowStart: 5, RowEnd: 79, SpanishMonths: true},
			ColStart: 1,
			ColEnd:   38,
			Patterns: []sheet.FieldPattern{
				{Name: sheet.FieldUnit, Patterns: []string{"apto", "apto."}},
			},
		},
		Tax: TaxRule{Divisor: santaElisaTaxDivisor},
		Tables: normalize.Tables{
			UnitStatus: map[string]string{
				"1.disponible":    normalize.UnitAvailable,
				"2.reserva":       normalize.UnitReserved,
				"2. reserva":      normalize.UnitReserved,
				"2,reserva":       normalize.UnitReserved,
				"2.reservado":     normalize.UnitReserved,
				"2. reservado":    normalize.UnitReserved,
				"4.plan de pagos": normalize.UnitSold,
				"desistimiento":   normalize.UnitCancelled,
			},
			SaleStatus: map[string]string{
				"2.reserva":       normalize.SaleActive,
				"2. reserva":      normalize.SaleActive,
				"2,reserva":       normalize.SaleActive,
				"2.reservado":     normalize.SaleActive,
				"2. reservado":    normalize.SaleActive,
				"4.plan de pagos": normalize.SaleActive,
				"desistimiento":   normalize.SaleCancelled,
			},
			Reps: map[string]string{
				"noemi m.":        "Noemí Menendez",
				"noemí menendez":  "Noemí Menendez",
				"paula h.":        "Paula Hernández",
				"paula hernández": "Paula Hernández",
				"paula hernandez": "Paula Hernández",
				"andrea g.":       "Andrea Gonzalez",
				"andrea gonzalez": "Andrea Gonzalez",
				"antonio r":       "Antonio Rada",
				"antonio rada":    "Antonio Rada",
				"eder v.":         "Eder Veliz",
				"eder daniel v.":  "Eder Veliz",
				"eder veliz":      "Eder Veliz",
				"efren sanchez":   "Efren Sánchez",
				"efren sánchez":   "Efren Sánchez",
				"efren sanchéz":   "Efren Sánchez",
				"efrén sanchez":   "Efren Sánchez",
				// Abbreviations whose full names are unknown stay as-is.
				"ricardo o.":   "Ricardo O.",
				"francisco s.": "Francisco S.",
				"lilian g.":    "Lilian G.",
				// Placeholder markers meaning "no rep".
				"**":        "",
				"sin datos": "",
			},
		},
		RepFallback: "Unknown",
	}
}

var santaElisaPatterns = []sheet.FieldPattern{
	{Name: sheet.FieldUnit, Patterns: []string{"apto", "apto."}},
	{Name: sheet.FieldUnitType, Patterns: []string{"tipo", "tipo.", "modelo"}},
	{Name: sheet.FieldRep, Patterns: []string{"vendedor"}},
	{Name: sheet.FieldClient, Patterns: []string{"cliente"}},
	{Name: sheet.FieldReservedOn, Patterns: []string{"reservado", "fecha reserva", "fecha"}},
	{Name: sheet.FieldStatus, Patterns: []string{"estatus", "tipo de plan"}},
	{Name: sheet.FieldPrice, Patterns: []string{"precio de venta", "p. venta", "p.venta"}},
	{Name: sheet.FieldDownPayment, Patterns: []string{"enganche"}},
	{Name: sheet.FieldFinancedBalance, Patterns: []string{"monto a financiar por banco", "saldo a financiar por el banco"}},
	{Name: sheet.FieldAgreedInstallments, Patterns: []string{"cuotas pactadas"}},
	{Name: sheet.FieldPaidInstallments, Patterns: []string{"cuotas pagadas"}},
}
