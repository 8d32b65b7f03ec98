// Package load turns one workbook's validated records into destination rows,
// writing them in dependency order. Each phase's writes are referenced by
// identifier in the next, so the sequence is fixed: project, units, clients,
// sales reps, sales, payments, expected installments.
package load

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/innovationwizard/orion/internal/normalize"
	"github.com/innovationwizard/orion/internal/project"
	"github.com/innovationwizard/orion/internal/sheet"
	"github.com/innovationwizard/orion/internal/store"
)

// Payment classification: the first chronological payment of a sale is the
// reservation, later ones are down payments, and refunded money is a
// reimbursement with its amount negated.
const (
	PaymentReservation   = "reservation"
	PaymentDownPayment   = "down_payment"
	PaymentReimbursement = "reimbursement"
)

// ScheduleBudget tags expected installments sourced from the budget sheet.
const ScheduleBudget = "budget"

// PreparedSale pairs a record's surrogate key with the sale row built from
// it, before the store has assigned the sale an identifier. Two records may
// share a unit key, so sales are tracked per record key, never per unit.
type PreparedSale struct {
	Key sheet.RecordKey
	Row store.SaleRow
}

// Stats counts what one run wrote. Skip counters cover records that could
// not produce a sale and payment batches orphaned by those records.
type Stats struct {
	Units             int
	Clients           int
	SalesReps         int
	ActiveSales       int
	CancelledInserted int
	CancelledExisting int
	SalesSkipped      int
	Payments          int
	PaymentsOrphaned  int
	Expected          int
}

// Loader writes one workbook's records through a Store. It is single-use:
// identifier maps captured in early phases feed the later ones.
type Loader struct {
	store   store.Store
	profile *project.Profile
	norm    *normalize.Normalizer
	log     *logrus.Logger

	projectID string
	unitIDs   map[string]string
	clientIDs map[string]string
	saleIDs   map[sheet.RecordKey]string
}

func New(st store.Store, profile *project.Profile, log *logrus.Logger) *Loader {
	return &Loader{
		store:     st,
		profile:   profile,
		norm:      normalize.New(profile.Tables),
		log:       log,
		unitIDs:   make(map[string]string),
		clientIDs: make(map[string]string),
		saleIDs:   make(map[sheet.RecordKey]string),
	}
}

// Run executes the full write sequence. Callers must have validated the
// records first; Run assumes fatal findings already aborted the run.
func (l *Loader) Run(ctx context.Context, records []sheet.UnitRecord, budget []sheet.InstallmentRecord) (*Stats, error) {
	stats := &Stats{}

	projectID, err := l.store.UpsertProject(ctx, l.profile.Name, l.profile.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("upsert project: %w", err)
	}
	l.projectID = projectID
	l.log.Infof("project %q: id %s", l.profile.Name, projectID)

	if err := l.upsertUnits(ctx, records, stats); err != nil {
		return nil, fmt.Errorf("upsert units: %w", err)
	}
	if err := l.upsertClients(ctx, records, stats); err != nil {
		return nil, fmt.Errorf("upsert clients: %w", err)
	}
	if l.profile.SalesReps != nil {
		if err := l.upsertSalesReps(ctx, records, stats); err != nil {
			return nil, fmt.Errorf("upsert sales reps: %w", err)
		}
	}
	if err := l.loadSales(ctx, records, stats); err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	if err := l.loadPayments(ctx, records, stats); err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	if err := l.loadExpected(ctx, budget, stats); err != nil {
		return nil, fmt.Errorf("load expected installments: %w", err)
	}

	l.verify(ctx)
	return stats, nil
}

// ---------------------------------------------------------------------------
// Units
// ---------------------------------------------------------------------------

// upsertUnits writes units from MAIN-section records only. The unit row is
// the current state of the physical asset; cancellation sections never
// mutate it, they only add cancelled sales.
func (l *Loader) upsertUnits(ctx context.Context, records []sheet.UnitRecord, stats *Stats) error {
	var rows []store.UnitRow
	for _, rec := range records {
		if rec.Section != sheet.SectionMain {
			continue
		}
		rows = append(rows, store.UnitRow{
			UnitNumber:  rec.UnitKey,
			PriceGross:  rec.PriceWithTax,
			PriceNet:    l.profile.Tax.NetPrice(rec.PriceWithTax, rec.VAT, rec.StampTax),
			DownPayment: rec.DownPayment,
			Status:      l.norm.UnitStatus(rec.RawStatus),
		})
	}

	ids, err := l.store.UpsertUnits(ctx, l.projectID, rows)
	if err != nil {
		return err
	}
	l.unitIDs = ids
	stats.Units = len(rows)
	l.log.Infof("upserted %d units, captured %d ids", len(rows), len(ids))
	return nil
}

// ---------------------------------------------------------------------------
// Clients and sales reps
// ---------------------------------------------------------------------------

// upsertClients writes every distinct client name from every section.
// Clients from cancelled episodes must exist as durable identities even
// after losing ownership of their unit.
func (l *Loader) upsertClients(ctx context.Context, records []sheet.UnitRecord, stats *Stats) error {
	seen := make(map[string]struct{})
	var names []string
	for _, rec := range records {
		if rec.ClientName == "" {
			continue
		}
		if _, ok := seen[rec.ClientName]; ok {
			continue
		}
		seen[rec.ClientName] = struct{}{}
		names = append(names, rec.ClientName)
	}

	ids, err := l.store.UpsertClients(ctx, names)
	if err != nil {
		return err
	}
	l.clientIDs = ids
	stats.Clients = len(names)
	l.log.Infof("upserted %d clients", len(names))
	return nil
}

func (l *Loader) upsertSalesReps(ctx context.Context, records []sheet.UnitRecord, stats *Stats) error {
	seen := make(map[string]struct{})
	var reps []store.RepRow
	for _, rec := range records {
		id := l.repID(rec.RepRaw)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		name, ok := l.profile.SalesReps[id]
		if !ok {
			name = id
		}
		reps = append(reps, store.RepRow{ID: id, Name: name})
	}

	if len(reps) == 0 {
		return nil
	}
	if err := l.store.UpsertSalesReps(ctx, reps); err != nil {
		return err
	}
	stats.SalesReps = len(reps)
	l.log.Infof("upserted %d sales reps", len(reps))
	return nil
}

func (l *Loader) repID(raw string) string {
	if id := l.norm.RepName(raw); id != "" {
		return id
	}
	return l.profile.RepFallback
}

// ---------------------------------------------------------------------------
// Sales
// ---------------------------------------------------------------------------

// loadSales writes one sale per sellable record. Active sales are upserted
// against the one-active-per-unit rule; cancelled sales use a read-before-
// write check per (unit, client) because a unit may be cancelled by
// different clients at different times. The check-then-insert pair is safe
// only because loads are single-writer.
func (l *Loader) loadSales(ctx context.Context, records []sheet.UnitRecord, stats *Stats) error {
	var active, cancelled []PreparedSale

	for _, rec := range records {
		if l.norm.SaleStatus(rec.RawStatus) == "" && !rec.Section.Refund() {
			continue
		}
		row, ok := l.buildSaleRow(rec, stats)
		if !ok {
			continue
		}
		prepared := PreparedSale{Key: rec.Key(), Row: row}
		if row.Status == normalize.SaleActive {
			active = append(active, prepared)
		} else {
			cancelled = append(cancelled, prepared)
		}
	}

	if len(active) > 0 {
		rows := make([]store.SaleRow, len(active))
		for i, ps := range active {
			rows[i] = ps.Row
		}
		byUnit, err := l.store.UpsertActiveSales(ctx, l.projectID, rows)
		if err != nil {
			return err
		}
		for _, ps := range active {
			if id, ok := byUnit[ps.Row.UnitID]; ok {
				l.saleIDs[ps.Key] = id
			}
		}
	}
	stats.ActiveSales = len(active)
	l.log.Infof("active sales upserted: %d", len(active))

	for _, ps := range cancelled {
		existing, err := l.store.FindCancelledSale(ctx, ps.Row.UnitID, ps.Row.ClientID)
		if err != nil {
			return err
		}
		if existing != "" {
			l.saleIDs[ps.Key] = existing
			stats.CancelledExisting++
			continue
		}
		id, err := l.store.InsertSale(ctx, l.projectID, ps.Row)
		if err != nil {
			return err
		}
		l.saleIDs[ps.Key] = id
		stats.CancelledInserted++
	}
	l.log.Infof("cancelled sales: %d inserted, %d already existed", stats.CancelledInserted, stats.CancelledExisting)
	return nil
}

// buildSaleRow resolves a record's prerequisites into a sale row. A missing
// unit, client, or derivable sale date skips this one record with a warning;
// it never aborts the batch.
func (l *Loader) buildSaleRow(rec sheet.UnitRecord, stats *Stats) (store.SaleRow, bool) {
	unitID, ok := l.unitIDs[rec.UnitKey]
	if !ok {
		l.log.Warnf("skipping sale for unit %s (%s): no unit row", rec.UnitKey, rec.Section)
		stats.SalesSkipped++
		return store.SaleRow{}, false
	}
	clientID := ""
	if rec.ClientName != "" {
		clientID = l.clientIDs[rec.ClientName]
	}
	if clientID == "" {
		l.log.Warnf("skipping sale for unit %s (%s): no client id for %q", rec.UnitKey, rec.Section, rec.ClientName)
		stats.SalesSkipped++
		return store.SaleRow{}, false
	}

	var notes []string
	if rec.Notes != "" {
		notes = append(notes, rec.Notes)
	}
	if rec.Section != sheet.SectionMain {
		notes = append(notes, "Source: "+string(rec.Section))
	}

	saleDate := rec.ReservedOn
	if saleDate.IsZero() {
		earliest, ok := rec.EarliestPayment()
		if !ok {
			l.log.Warnf("skipping sale for unit %s (%s): no reservation date and no payments", rec.UnitKey, rec.Section)
			stats.SalesSkipped++
			return store.SaleRow{}, false
		}
		saleDate = earliest
		notes = append(notes, "sale_date derived from earliest payment")
	}

	status := l.norm.SaleStatus(rec.RawStatus)
	if status == "" {
		status = normalize.SaleActive
	}
	if rec.Section.Refund() {
		status = normalize.SaleCancelled
	}

	financed := rec.FinancedBal
	if financed.IsZero() && !rec.PriceWithTax.IsZero() {
		financed = rec.PriceWithTax.Sub(rec.DownPayment).Round(2)
	}

	return store.SaleRow{
		UnitID:          unitID,
		ClientID:        clientID,
		SalesRepID:      l.repID(rec.RepRaw),
		SaleDate:        saleDate,
		PriceGross:      rec.PriceWithTax,
		PriceNet:        l.profile.Tax.NetPrice(rec.PriceWithTax, rec.VAT, rec.StampTax),
		DownPayment:     rec.DownPayment,
		Financed:        financed,
		Status:          status,
		SpecialCase:     rec.SpecialCase != "",
		SpecialCaseType: rec.SpecialCase,
		Remarks:         rec.Remarks,
		Notes:           strings.Join(notes, "; "),
	}, true
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

// loadPayments attaches each record's payments to that record's own sale.
// Payments bind to the sale, not the unit, so cancelled episodes keep their
// history independent of whoever owns the unit now.
func (l *Loader) loadPayments(ctx context.Context, records []sheet.UnitRecord, stats *Stats) error {
	var rows []store.PaymentRow

	for _, rec := range records {
		if len(rec.Payments) == 0 {
			continue
		}
		saleID, ok := l.saleIDs[rec.Key()]
		if !ok {
			stats.PaymentsOrphaned++
			l.log.Debugf("unit %s (%s): %d payments orphaned, no sale", rec.UnitKey, rec.Section, len(rec.Payments))
			continue
		}

		for idx, p := range rec.SortedPayments() {
			row := store.PaymentRow{
				SaleID: saleID,
				Date:   p.Date,
				Amount: p.Amount,
				Notes:  "ETL import from " + string(rec.Section),
			}
			switch {
			case rec.Section.Refund():
				row.Type = PaymentReimbursement
				row.Amount = p.Amount.Abs().Neg()
			case idx == 0:
				row.Type = PaymentReservation
			default:
				row.Type = PaymentDownPayment
			}
			rows = append(rows, row)
		}
	}

	inserted, err := l.store.InsertPayments(ctx, rows)
	if err != nil {
		return err
	}
	stats.Payments = inserted
	l.log.Infof("inserted %d payments (%d records orphaned, no sale)", inserted, stats.PaymentsOrphaned)
	return nil
}

// ---------------------------------------------------------------------------
// Expected installments
// ---------------------------------------------------------------------------

// loadExpected numbers each unit's expected installments 1..n by due date
// and upserts them; reruns update amounts in place.
func (l *Loader) loadExpected(ctx context.Context, budget []sheet.InstallmentRecord, stats *Stats) error {
	byUnit := make(map[string][]sheet.InstallmentRecord)
	var order []string
	for _, ins := range budget {
		if _, ok := byUnit[ins.UnitKey]; !ok {
			order = append(order, ins.UnitKey)
		}
		byUnit[ins.UnitKey] = append(byUnit[ins.UnitKey], ins)
	}

	var rows []store.InstallmentRow
	for _, unit := range order {
		group := byUnit[unit]
		sort.SliceStable(group, func(i, j int) bool { return group[i].DueDate.Before(group[j].DueDate) })
		for i, ins := range group {
			rows = append(rows, store.InstallmentRow{
				UnitNumber:   unit,
				DueDate:      ins.DueDate,
				Amount:       ins.Amount,
				Number:       i + 1,
				ScheduleType: ScheduleBudget,
			})
		}
	}

	written, err := l.store.UpsertExpectedInstallments(ctx, l.projectID, rows)
	if err != nil {
		return err
	}
	stats.Expected = written
	l.log.Infof("upserted %d expected installments", written)
	return nil
}

// ---------------------------------------------------------------------------
// Verification
// ---------------------------------------------------------------------------

// verify reads back row counts per destination table. Purely diagnostic: it
// never mutates state and never fails the run.
func (l *Loader) verify(ctx context.Context) {
	counts, err := l.store.Counts(ctx, l.projectID)
	if err != nil {
		l.log.Warnf("verification read-back failed: %v", err)
		return
	}
	l.log.Infof("verification: projects=%d units=%d clients=%d sales=%d payments=%d expected=%d sales_reps=%d",
		counts.Projects, counts.Units, counts.Clients, counts.Sales, counts.Payments, counts.Expected, counts.SalesReps)
}
