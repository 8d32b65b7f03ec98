package load

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/innovationwizard/orion/internal/db"
	"github.com/innovationwizard/orion/internal/normalize"
	"github.com/innovationwizard/orion/internal/project"
	"github.com/innovationwizard/orion/internal/sheet"
	"github.com/innovationwizard/orion/internal/store"
)

// ---------------------------------------------------------------------------
// Fake store
// ---------------------------------------------------------------------------

// fakeStore assigns predictable identifiers: unit-<number>, client-<name>,
// sale-<unitID> for active sales, csale-<n> for cancelled inserts.
type fakeStore struct {
	units     []store.UnitRow
	clients   []string
	reps      []store.RepRow
	active    []store.SaleRow
	inserted  []store.SaleRow
	payments  []store.PaymentRow
	expected  []store.InstallmentRow
	runs      []db.RunRecord
	cancelled map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{cancelled: make(map[string]string)}
}

func (f *fakeStore) UpsertProject(_ context.Context, name, _ string) (string, error) {
	return "proj-" + name, nil
}

func (f *fakeStore) UpsertUnits(_ context.Context, _ string, rows []store.UnitRow) (map[string]string, error) {
	f.units = append(f.units, rows...)
	ids := make(map[string]string, len(rows))
	for _, r := range rows {
		ids[r.UnitNumber] = "unit-" + r.UnitNumber
	}
	return ids, nil
}

func (f *fakeStore) UpsertClients(_ context.Context, names []string) (map[string]string, error) {
	f.clients = append(f.clients, names...)
	ids := make(map[string]string, len(names))
	for _, n := range names {
		ids[n] = "client-" + n
	}
	return ids, nil
}

func (f *fakeStore) UpsertSalesReps(_ context.Context, reps []store.RepRow) error {
	f.reps = append(f.reps, reps...)
	return nil
}

func (f *fakeStore) UpsertActiveSales(_ context.Context, _ string, rows []store.SaleRow) (map[string]string, error) {
	f.active = append(f.active, rows...)
	ids := make(map[string]string, len(rows))
	for _, r := range rows {
		ids[r.UnitID] = "sale-" + r.UnitID
	}
	return ids, nil
}

func (f *fakeStore) FindCancelledSale(_ context.Context, unitID, clientID string) (string, error) {
	return f.cancelled[unitID+"/"+clientID], nil
}

func (f *fakeStore) InsertSale(_ context.Context, _ string, row store.SaleRow) (string, error) {
	f.inserted = append(f.inserted, row)
	return fmt.Sprintf("csale-%d", len(f.inserted)), nil
}

func (f *fakeStore) InsertPayments(_ context.Context, rows []store.PaymentRow) (int, error) {
	f.payments = append(f.payments, rows...)
	return len(rows), nil
}

func (f *fakeStore) UpsertExpectedInstallments(_ context.Context, _ string, rows []store.InstallmentRow) (int, error) {
	f.expected = append(f.expected, rows...)
	return len(rows), nil
}

func (f *fakeStore) Counts(context.Context, string) (*store.Counts, error) {
	return &store.Counts{
		Units:   len(f.units),
		Clients: len(f.clients),
		Sales:   len(f.active) + len(f.inserted),
	}, nil
}

func (f *fakeStore) RecordRun(_ context.Context, rec db.RunRecord) error {
	f.runs = append(f.runs, rec)
	return nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testProfile() *project.Profile {
	return &project.Profile{
		Name:        "testproj",
		DisplayName: "Test Project",
		Actuals: project.ActualsSpec{
			Subs: []sheet.SectionLayout{
				{Tag: sheet.SectionCancelled},
				{Tag: sheet.SectionRefund},
			},
		},
		Tax: project.TaxRule{},
		Tables: normalize.Tables{
			UnitStatus: map[string]string{
				"0":             normalize.UnitAvailable,
				"1":             normalize.UnitReserved,
				"3":             normalize.UnitSold,
				"desistimiento": normalize.UnitCancelled,
			},
			SaleStatus: map[string]string{
				"1":             normalize.SaleActive,
				"3":             normalize.SaleActive,
				"desistimiento": normalize.SaleCancelled,
			},
			Reps: map[string]string{
				"ronaldo": "ronaldo",
				"**":      "",
			},
		},
		RepFallback: "unknown",
		SalesReps: map[string]string{
			"ronaldo": "Ronaldo Paz",
			"unknown": "Unassigned",
		},
	}
}

func record(row int, section sheet.Section, unit, client, status string) sheet.UnitRecord {
	return sheet.UnitRecord{
		Row:        row,
		Section:    section,
		UnitKey:    unit,
		ClientName: client,
		RawStatus:  status,
	}
}

func runLoader(t *testing.T, st *fakeStore, profile *project.Profile, records []sheet.UnitRecord, budget []sheet.InstallmentRecord) *Stats {
	t.Helper()
	stats, err := New(st, profile, quietLogger()).Run(context.Background(), records, budget)
	require.NoError(t, err)
	return stats
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRunWritesAllPhases(t *testing.T) {
	sold := record(7, sheet.SectionMain, "101", "Ana", "3")
	sold.RepRaw = "Ronaldo"
	sold.PriceWithTax = d("1000")
	sold.VAT = d("80")
	sold.StampTax = d("20")
	sold.DownPayment = d("100")
	sold.ReservedOn = day("2023-01-10")
	sold.Payments = []sheet.Payment{
		{Date: day("2023-02-28"), Amount: d("50")},
		{Date: day("2023-01-31"), Amount: d("100")},
	}

	empty := record(8, sheet.SectionMain, "102", "", "0")

	reserved := record(9, sheet.SectionMain, "103", "Carla", "1")
	reserved.PriceWithTax = d("500")
	reserved.DownPayment = d("50")
	reserved.ReservedOn = day("2023-03-01")

	historic := record(320, sheet.SectionCancelled, "101", "Bea", "Desistimiento")
	historic.ReservedOn = day("2021-05-01")
	historic.Payments = []sheet.Payment{
		{Date: day("2021-05-31"), Amount: d("200")},
		{Date: day("2021-06-30"), Amount: d("75")},
	}

	refund := record(103, sheet.SectionRefund, "103", "Carla", "Desistimiento")
	refund.ReservedOn = day("2022-08-01")
	refund.Payments = []sheet.Payment{{Date: day("2022-08-31"), Amount: d("500")}}

	ghost := record(350, sheet.SectionCancelled, "999", "Zoe", "Desistimiento")
	ghost.ReservedOn = day("2020-01-01")
	ghost.Payments = []sheet.Payment{{Date: day("2020-01-31"), Amount: d("10")}}

	budget := []sheet.InstallmentRecord{
		{UnitKey: "101", DueDate: day("2023-02-28"), Amount: d("150")},
		{UnitKey: "101", DueDate: day("2023-01-31"), Amount: d("150")},
	}

	st := newFakeStore()
	stats := runLoader(t, st, testProfile(), []sheet.UnitRecord{sold, empty, reserved, historic, refund, ghost}, budget)

	require.Equal(t, 3, stats.Units)
	require.Equal(t, 4, stats.Clients) // Ana, Carla, Bea, Zoe
	require.Equal(t, 2, stats.SalesReps)
	require.Equal(t, 2, stats.ActiveSales)
	require.Equal(t, 2, stats.CancelledInserted)
	require.Equal(t, 0, stats.CancelledExisting)
	require.Equal(t, 1, stats.SalesSkipped)     // unit 999 has no unit row
	require.Equal(t, 1, stats.PaymentsOrphaned) // its payments go nowhere
	require.Equal(t, 2, stats.Expected)

	// Units come from the main section only, with net price per tax rule.
	require.Len(t, st.units, 3)
	require.Equal(t, "101", st.units[0].UnitNumber)
	require.Equal(t, normalize.UnitSold, st.units[0].Status)
	require.True(t, st.units[0].PriceNet.Equal(d("900")), "net = gross - vat - stamp tax")
	require.Equal(t, normalize.UnitAvailable, st.units[1].Status)

	// Reps: "Ronaldo" folds to its canonical id, blanks fall back.
	require.Equal(t, []store.RepRow{
		{ID: "ronaldo", Name: "Ronaldo Paz"},
		{ID: "unknown", Name: "Unassigned"},
	}, st.reps)

	// Active sales carry rep, date and derived financed balance.
	require.Len(t, st.active, 2)
	require.Equal(t, "unit-101", st.active[0].UnitID)
	require.Equal(t, "client-Ana", st.active[0].ClientID)
	require.Equal(t, "ronaldo", st.active[0].SalesRepID)
	require.True(t, st.active[0].Financed.Equal(d("900")), "price minus down payment")
	require.Equal(t, "unknown", st.active[1].SalesRepID)

	// The refund episode lands as a cancelled sale despite no status mapping.
	require.Len(t, st.inserted, 2)
	require.Equal(t, normalize.SaleCancelled, st.inserted[0].Status)
	require.Equal(t, "Source: cancelled", st.inserted[0].Notes)
	require.Equal(t, normalize.SaleCancelled, st.inserted[1].Status)
	require.Equal(t, "Source: refund", st.inserted[1].Notes)
}

func TestRunPaymentClassification(t *testing.T) {
	active := record(7, sheet.SectionMain, "101", "Ana", "3")
	active.ReservedOn = day("2023-01-10")
	active.Payments = []sheet.Payment{
		{Date: day("2023-02-28"), Amount: d("50")},
		{Date: day("2023-01-31"), Amount: d("100")},
	}

	refund := record(103, sheet.SectionRefund, "101", "Ana", "Desistimiento")
	refund.ReservedOn = day("2022-08-01")
	refund.Payments = []sheet.Payment{
		{Date: day("2022-08-31"), Amount: d("500")},
		{Date: day("2022-09-30"), Amount: d("-120")},
	}

	st := newFakeStore()
	runLoader(t, st, testProfile(), []sheet.UnitRecord{active, refund}, nil)

	require.Len(t, st.payments, 4)

	// Chronologically first payment is the reservation, later ones are
	// down payments, and they attach to the record's own sale.
	require.Equal(t, "sale-unit-101", st.payments[0].SaleID)
	require.Equal(t, PaymentReservation, st.payments[0].Type)
	require.Equal(t, day("2023-01-31"), st.payments[0].Date)
	require.Equal(t, PaymentDownPayment, st.payments[1].Type)
	require.Equal(t, "ETL import from main", st.payments[0].Notes)

	// Refund payments are reimbursements with negated amounts, regardless
	// of the sign the workbook carried.
	require.Equal(t, "csale-1", st.payments[2].SaleID)
	require.Equal(t, PaymentReimbursement, st.payments[2].Type)
	require.True(t, st.payments[2].Amount.Equal(d("-500")))
	require.True(t, st.payments[3].Amount.Equal(d("-120")))
	require.Equal(t, "ETL import from refund", st.payments[2].Notes)
}

func TestRunReusesExistingCancelledSale(t *testing.T) {
	main := record(7, sheet.SectionMain, "101", "Ana", "3")
	main.ReservedOn = day("2023-01-10")

	historic := record(320, sheet.SectionCancelled, "101", "Bea", "Desistimiento")
	historic.ReservedOn = day("2021-05-01")
	historic.Payments = []sheet.Payment{{Date: day("2021-05-31"), Amount: d("200")}}

	st := newFakeStore()
	st.cancelled["unit-101/client-Bea"] = "sale-prior"
	stats := runLoader(t, st, testProfile(), []sheet.UnitRecord{main, historic}, nil)

	require.Equal(t, 0, stats.CancelledInserted)
	require.Equal(t, 1, stats.CancelledExisting)
	require.Empty(t, st.inserted)

	// Payments still attach to the pre-existing sale.
	require.Len(t, st.payments, 1)
	require.Equal(t, "sale-prior", st.payments[0].SaleID)
}

func TestRunSaleDateFallsBackToEarliestPayment(t *testing.T) {
	rec := record(7, sheet.SectionMain, "101", "Ana", "3")
	rec.Payments = []sheet.Payment{
		{Date: day("2023-03-31"), Amount: d("50")},
		{Date: day("2023-02-28"), Amount: d("80")},
	}

	st := newFakeStore()
	stats := runLoader(t, st, testProfile(), []sheet.UnitRecord{rec}, nil)

	require.Equal(t, 0, stats.SalesSkipped)
	require.Len(t, st.active, 1)
	require.Equal(t, day("2023-02-28"), st.active[0].SaleDate)
	require.Equal(t, "sale_date derived from earliest payment", st.active[0].Notes)
}

func TestRunSkipsSaleWithNoDerivableDate(t *testing.T) {
	rec := record(7, sheet.SectionMain, "101", "Ana", "3")

	st := newFakeStore()
	stats := runLoader(t, st, testProfile(), []sheet.UnitRecord{rec}, nil)

	require.Equal(t, 1, stats.SalesSkipped)
	require.Equal(t, 0, stats.ActiveSales)
	require.Empty(t, st.active)
}

func TestRunSkipsSaleWithoutClient(t *testing.T) {
	rec := record(7, sheet.SectionMain, "101", "", "3")
	rec.ReservedOn = day("2023-01-10")

	st := newFakeStore()
	stats := runLoader(t, st, testProfile(), []sheet.UnitRecord{rec}, nil)

	require.Equal(t, 1, stats.SalesSkipped)
	require.Empty(t, st.active)
	require.Len(t, st.units, 1) // the unit row itself is unaffected
}

func TestRunFinancedBalancePrefersExplicitColumn(t *testing.T) {
	explicit := record(7, sheet.SectionMain, "101", "Ana", "3")
	explicit.ReservedOn = day("2023-01-10")
	explicit.PriceWithTax = d("1000")
	explicit.DownPayment = d("100")
	explicit.FinancedBal = d("640")

	derived := record(8, sheet.SectionMain, "102", "Bea", "3")
	derived.ReservedOn = day("2023-01-11")
	derived.PriceWithTax = d("1000")
	derived.DownPayment = d("250")

	priceless := record(9, sheet.SectionMain, "103", "Carla", "3")
	priceless.ReservedOn = day("2023-01-12")

	st := newFakeStore()
	runLoader(t, st, testProfile(), []sheet.UnitRecord{explicit, derived, priceless}, nil)

	require.Len(t, st.active, 3)
	require.True(t, st.active[0].Financed.Equal(d("640")))
	require.True(t, st.active[1].Financed.Equal(d("750")))
	require.True(t, st.active[2].Financed.IsZero())
}

func TestRunNotesComposition(t *testing.T) {
	rec := record(320, sheet.SectionCancelled, "101", "Bea", "Desistimiento")
	rec.Notes = "ver contrato"
	rec.Payments = []sheet.Payment{{Date: day("2021-05-31"), Amount: d("200")}}

	main := record(7, sheet.SectionMain, "101", "Ana", "3")
	main.ReservedOn = day("2023-01-10")

	st := newFakeStore()
	runLoader(t, st, testProfile(), []sheet.UnitRecord{main, rec}, nil)

	require.Len(t, st.inserted, 1)
	require.Equal(t, "ver contrato; Source: cancelled; sale_date derived from earliest payment", st.inserted[0].Notes)
}

func TestRunSpecialCaseFields(t *testing.T) {
	rec := record(7, sheet.SectionMain, "101", "Ana", "3")
	rec.ReservedOn = day("2023-01-10")
	rec.SpecialCase = "permuta"
	rec.Remarks = "pendiente escritura"

	st := newFakeStore()
	runLoader(t, st, testProfile(), []sheet.UnitRecord{rec}, nil)

	require.Len(t, st.active, 1)
	require.True(t, st.active[0].SpecialCase)
	require.Equal(t, "permuta", st.active[0].SpecialCaseType)
	require.Equal(t, "pendiente escritura", st.active[0].Remarks)
}

func TestRunSkipsRepPhaseWithoutRoster(t *testing.T) {
	profile := testProfile()
	profile.SalesReps = nil
	profile.RepFallback = "Unknown"

	rec := record(7, sheet.SectionMain, "101", "Ana", "3")
	rec.ReservedOn = day("2023-01-10")

	st := newFakeStore()
	stats := runLoader(t, st, profile, []sheet.UnitRecord{rec}, nil)

	require.Equal(t, 0, stats.SalesReps)
	require.Empty(t, st.reps)
	// Sales still carry the fallback rep id as plain text.
	require.Equal(t, "Unknown", st.active[0].SalesRepID)
}

func TestRunNumbersExpectedInstallmentsPerUnit(t *testing.T) {
	budget := []sheet.InstallmentRecord{
		{UnitKey: "201", DueDate: day("2023-03-31"), Amount: d("100")},
		{UnitKey: "202", DueDate: day("2023-01-31"), Amount: d("90")},
		{UnitKey: "201", DueDate: day("2023-01-31"), Amount: d("100")},
		{UnitKey: "201", DueDate: day("2023-02-28"), Amount: d("100")},
		{UnitKey: "202", DueDate: day("2023-03-31"), Amount: d("90")},
	}

	st := newFakeStore()
	stats := runLoader(t, st, testProfile(), nil, budget)

	require.Equal(t, 5, stats.Expected)
	require.Len(t, st.expected, 5)

	byUnit := make(map[string][]store.InstallmentRow)
	for _, row := range st.expected {
		require.Equal(t, ScheduleBudget, row.ScheduleType)
		byUnit[row.UnitNumber] = append(byUnit[row.UnitNumber], row)
	}

	u201 := byUnit["201"]
	require.Len(t, u201, 3)
	for i, row := range u201 {
		require.Equal(t, i+1, row.Number, "installments numbered by due date order")
		if i > 0 {
			require.True(t, u201[i-1].DueDate.Before(row.DueDate))
		}
	}
	// Unit 202 skips February entirely; the numbering does not.
	u202 := byUnit["202"]
	require.Len(t, u202, 2)
	require.Equal(t, 1, u202[0].Number)
	require.Equal(t, 2, u202[1].Number)
}
