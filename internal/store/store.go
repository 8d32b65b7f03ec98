// Package store is the destination-table surface of the loader. The
// interface exists so the load phases can run against a fake in tests; the
// one real implementation writes to Postgres.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/innovationwizard/orion/internal/db"
)

// UnitRow is the durable state of one physical unit.
type UnitRow struct {
	UnitNumber  string
	PriceGross  decimal.Decimal
	PriceNet    decimal.Decimal
	DownPayment decimal.Decimal
	Status      string
}

// SaleRow is one lifecycle episode of a unit. UnitID and ClientID are
// store-assigned identifiers captured from earlier phases.
type SaleRow struct {
	UnitID          string
	ClientID        string
	SalesRepID      string
	SaleDate        time.Time
	PriceGross      decimal.Decimal
	PriceNet        decimal.Decimal
	DownPayment     decimal.Decimal
	Financed        decimal.Decimal
	Status          string
	SpecialCase     bool
	SpecialCaseType string
	Remarks         string
	Notes           string
}

type PaymentRow struct {
	SaleID string
	Date   time.Time
	Amount decimal.Decimal
	Type   string
	Notes  string
}

type InstallmentRow struct {
	UnitNumber   string
	DueDate      time.Time
	Amount       decimal.Decimal
	Number       int
	ScheduleType string
}

// RepRow is one sales_reps reference entry.
type RepRow struct {
	ID   string
	Name string
}

// Counts is the post-load verification read-back, scoped to one project
// except for the shared reference tables.
type Counts struct {
	Projects  int
	Units     int
	Clients   int
	Sales     int
	Payments  int
	Expected  int
	SalesReps int
}

// Store writes destination rows in the loader's dependency order. Upserts
// return store-assigned identifiers keyed by the natural key the next phase
// will look them up with.
type Store interface {
	UpsertProject(ctx context.Context, name, displayName string) (string, error)

	// UpsertUnits returns unit IDs keyed by unit number.
	UpsertUnits(ctx context.Context, projectID string, rows []UnitRow) (map[string]string, error)

	// UpsertClients returns client IDs keyed by full name.
	UpsertClients(ctx context.Context, names []string) (map[string]string, error)

	UpsertSalesReps(ctx context.Context, reps []RepRow) error

	// UpsertActiveSales returns sale IDs keyed by unit ID. At most one
	// active sale may exist per unit; reruns update it in place.
	UpsertActiveSales(ctx context.Context, projectID string, rows []SaleRow) (map[string]string, error)

	// FindCancelledSale returns the ID of an existing cancelled sale for
	// the (unit, client) pair, or "" when none exists.
	FindCancelledSale(ctx context.Context, unitID, clientID string) (string, error)

	InsertSale(ctx context.Context, projectID string, row SaleRow) (string, error)

	InsertPayments(ctx context.Context, rows []PaymentRow) (int, error)

	UpsertExpectedInstallments(ctx context.Context, projectID string, rows []InstallmentRow) (int, error)

	Counts(ctx context.Context, projectID string) (*Counts, error)

	RecordRun(ctx context.Context, rec db.RunRecord) error
}
