package sheet

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNoUnitColumn = errors.New("unit column not found")

// Section tags which physical block of the sheet a record came from. The tag
// drives which fields are authoritative downstream: only main-section
// records describe the current state of a unit.
type Section string

const (
	SectionMain      Section = "main"
	SectionCancelled Section = "cancelled"
	SectionRefund    Section = "refund"
	SectionWatchlist Section = "watchlist"
)

// Cancelled reports whether records from this section always represent a
// terminated sale, regardless of their status text.
func (s Section) Cancelled() bool {
	return s == SectionCancelled || s == SectionRefund || s == SectionWatchlist
}

// Refund reports whether payments observed in this section are money going
// back to the client rather than coming in.
func (s Section) Refund() bool {
	return s == SectionRefund
}

// Logical field names resolvable by DiscoverHeaders. Profiles bind these to
// per-sheet header spellings.
const (
	FieldUnit                    = "unit"
	FieldUnitType                = "unit_type"
	FieldRep                     = "rep"
	FieldClient                  = "client"
	FieldReservedOn              = "reserved_on"
	FieldStatus                  = "status"
	FieldPrice                   = "price"
	FieldDownPayment             = "down_payment"
	FieldDownPaymentTotal        = "down_payment_total"
	FieldFinancedBalance         = "financed_balance"
	FieldAgreedInstallments      = "agreed_installments"
	FieldPaidInstallments        = "paid_installments"
	FieldAgreedReservation       = "agreed_reservation"
	FieldAgreedInstallmentAmount = "agreed_installment_amount"
	FieldSpecialCase             = "special_case"
	FieldRemarks                 = "remarks"
	FieldNotes                   = "notes"
	FieldVAT                     = "vat"
	FieldStampTax                = "stamp_tax"
)

// Payment is one observed (date, amount) tuple from a month column.
type Payment struct {
	Date   time.Time
	Amount decimal.Decimal
}

// RecordKey identifies one parsed record across every section of a workbook.
// Two records may share a unit key (one lifecycle episode each), so the
// record's own coordinates are the key, never the unit.
type RecordKey struct {
	Section Section
	Row     int
}

// UnitRecord is one row's worth of raw-but-typed data for one lifecycle
// episode of one physical unit. String fields are "" when absent; decimal
// fields are zero; dates are the zero time.
type UnitRecord struct {
	Row     int
	Section Section

	UnitKey       string
	UnitType      string
	RepRaw        string
	ClientName    string
	ReservedOn    time.Time
	RawStatus     string
	PriceWithTax  decimal.Decimal
	DownPayment   decimal.Decimal
	FinancedBal   decimal.Decimal
	AgreedInst    int
	PaidInst      int
	AgreedReserve decimal.Decimal
	AgreedInstAmt decimal.Decimal
	SpecialCase   string
	Remarks       string
	Notes         string
	VAT           decimal.Decimal
	StampTax      decimal.Decimal

	// Payments holds the month-column observations in ascending column-key
	// order. Unique per date within the record; not globally deduplicated.
	Payments []Payment
}

func (r *UnitRecord) Key() RecordKey {
	return RecordKey{Section: r.Section, Row: r.Row}
}

// SortedPayments returns the record's payments ordered by date, then amount.
// Callers index payment position (first = reservation), so the order is
// re-derived here rather than trusted from parse time.
func (r *UnitRecord) SortedPayments() []Payment {
	out := make([]Payment, len(r.Payments))
	copy(out, r.Payments)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Amount.Cmp(out[j].Amount) < 0
	})
	return out
}

// EarliestPayment returns the oldest payment date, if any payment exists.
func (r *UnitRecord) EarliestPayment() (time.Time, bool) {
	var earliest time.Time
	for _, p := range r.Payments {
		if earliest.IsZero() || p.Date.Before(earliest) {
			earliest = p.Date
		}
	}
	return earliest, !earliest.IsZero()
}

// InstallmentRecord is one expected-payment observation from the budget
// sheet. One budget row typically yields several, one per month column.
type InstallmentRecord struct {
	UnitKey string
	DueDate time.Time
	Amount  decimal.Decimal
}

// SectionLayout bounds one physical block of an actuals sheet.
type SectionLayout struct {
	Tag       Section
	HeaderRow int
	RowStart  int
	RowEnd    int
	// ForceStatus, when non-empty, overwrites the raw status of every
	// parsed record. Cancellation blocks carry stale status text from the
	// main grid, so their records are stamped with the cancellation status.
	ForceStatus string
}

// ParseSection walks one bounded block of an actuals sheet and produces one
// UnitRecord per populated row. Rows whose unit-key cell is blank are
// skipped; they are section padding, not an error.
//
// Sub-sections without their own calendar header row must pass the main
// section's month columns as monthsOverride; matching a mostly blank
// sub-header row would misdetect month alignment.
func ParseSection(grid CellGrid, layout SectionLayout, colStart, colEnd int, patterns []FieldPattern, monthsOverride map[string]int) ([]UnitRecord, HeaderMap, error) {
	hm := DiscoverHeaders(grid, layout.HeaderRow, colStart, colEnd, patterns, false)
	if monthsOverride != nil {
		hm.Months = monthsOverride
	}

	unitCol, ok := hm.Named[FieldUnit]
	if !ok {
		return nil, hm, fmt.Errorf("%w: section %s header row %d", ErrNoUnitColumn, layout.Tag, layout.HeaderRow)
	}
	monthKeys := sortedMonthKeys(hm.Months)

	var records []UnitRecord
	for row := layout.RowStart; row <= layout.RowEnd; row++ {
		key := cellKey(grid.Cell(row, unitCol))
		if key == "" {
			continue
		}

		rec := UnitRecord{
			Row:     row,
			Section: layout.Tag,
			UnitKey: key,
		}
		readNamedFields(grid, row, hm.Named, &rec)
		if layout.ForceStatus != "" {
			rec.RawStatus = layout.ForceStatus
		}

		for _, ym := range monthKeys {
			amount, ok := cellDecimal(grid.Cell(row, hm.Months[ym]))
			if !ok || amount.IsZero() {
				continue
			}
			due, err := MonthEnd(ym)
			if err != nil {
				continue
			}
			rec.Payments = append(rec.Payments, Payment{Date: due, Amount: amount})
		}

		records = append(records, rec)
	}

	return records, hm, nil
}

func readNamedFields(grid CellGrid, row int, named map[string]int, rec *UnitRecord) {
	get := func(name string) Cell {
		col, ok := named[name]
		if !ok {
			return Cell{}
		}
		return grid.Cell(row, col)
	}

	rec.UnitType = cellString(get(FieldUnitType))
	rec.RepRaw = cellString(get(FieldRep))
	rec.ClientName = cellString(get(FieldClient))
	rec.RawStatus = cellString(get(FieldStatus))
	rec.SpecialCase = cellString(get(FieldSpecialCase))
	rec.Remarks = cellString(get(FieldRemarks))
	rec.Notes = cellString(get(FieldNotes))

	if d, ok := cellDate(get(FieldReservedOn)); ok {
		rec.ReservedOn = d
	}
	if v, ok := cellDecimal(get(FieldPrice)); ok {
		rec.PriceWithTax = v
	}
	if v, ok := cellDecimal(get(FieldDownPayment)); ok {
		rec.DownPayment = v
	}
	if v, ok := cellDecimal(get(FieldFinancedBalance)); ok {
		rec.FinancedBal = v
	}
	if v, ok := cellDecimal(get(FieldAgreedReservation)); ok {
		rec.AgreedReserve = v
	}
	if v, ok := cellDecimal(get(FieldAgreedInstallmentAmount)); ok {
		rec.AgreedInstAmt = v
	}
	if v, ok := cellDecimal(get(FieldVAT)); ok {
		rec.VAT = v
	}
	if v, ok := cellDecimal(get(FieldStampTax)); ok {
		rec.StampTax = v
	}
	if v, ok := cellInt(get(FieldAgreedInstallments)); ok {
		rec.AgreedInst = v
	}
	if v, ok := cellInt(get(FieldPaidInstallments)); ok {
		rec.PaidInst = v
	}
}

// BudgetLayout bounds the expected-installment grid of a budget sheet.
type BudgetLayout struct {
	HeaderRow     int
	RowStart      int
	RowEnd        int
	SpanishMonths bool
}

// ParseBudget walks the budget grid and yields one InstallmentRecord per
// populated (row, month column) pair. Zero and blank amounts are not
// installments.
func ParseBudget(grid CellGrid, layout BudgetLayout, colStart, colEnd int, patterns []FieldPattern) ([]InstallmentRecord, HeaderMap, error) {
	hm := DiscoverHeaders(grid, layout.HeaderRow, colStart, colEnd, patterns, layout.SpanishMonths)

	unitCol, ok := hm.Named[FieldUnit]
	if !ok {
		return nil, hm, fmt.Errorf("%w: budget header row %d", ErrNoUnitColumn, layout.HeaderRow)
	}
	monthKeys := sortedMonthKeys(hm.Months)

	var records []InstallmentRecord
	for row := layout.RowStart; row <= layout.RowEnd; row++ {
		key := cellKey(grid.Cell(row, unitCol))
		if key == "" {
			continue
		}
		for _, ym := range monthKeys {
			amount, ok := cellDecimal(grid.Cell(row, hm.Months[ym]))
			if !ok || amount.IsZero() {
				continue
			}
			due, err := MonthEnd(ym)
			if err != nil {
				continue
			}
			records = append(records, InstallmentRecord{UnitKey: key, DueDate: due, Amount: amount})
		}
	}

	return records, hm, nil
}

func sortedMonthKeys(months map[string]int) []string {
	keys := make([]string, 0, len(months))
	for key := range months {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
