package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/innovationwizard/orion/internal/db"
)

// DefaultBatchSize bounds how many rows one multi-row statement carries.
const DefaultBatchSize = 500

// Postgres implements Store over database/sql with raw SQL. Multi-row
// writes are chunked so a large ledger never builds one enormous statement.
type Postgres struct {
	db        *sql.DB
	batchSize int
}

func NewPostgres(database *sql.DB, batchSize int) *Postgres {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Postgres{db: database, batchSize: batchSize}
}

func (p *Postgres) UpsertProject(ctx context.Context, name, displayName string) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO projects (name, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = NOW()
		 RETURNING id`,
		name, displayName,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert project %s: %w", name, err)
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Units and clients
// ---------------------------------------------------------------------------

func (p *Postgres) UpsertUnits(ctx context.Context, projectID string, rows []UnitRow) (map[string]string, error) {
	ids := make(map[string]string, len(rows))
	for _, batch := range chunk(rows, p.batchSize) {
		args := make([]any, 0, len(batch)*6)
		for _, row := range batch {
			args = append(args, projectID, row.UnitNumber, row.PriceGross, row.PriceNet, row.DownPayment, row.Status)
		}
		query := `INSERT INTO units (project_id, unit_number, price_with_tax, price_without_tax, down_payment_amount, status)
		 VALUES ` + valuesClause(len(batch), 6) + `
		 ON CONFLICT (project_id, unit_number) DO UPDATE SET
			price_with_tax = EXCLUDED.price_with_tax,
			price_without_tax = EXCLUDED.price_without_tax,
			down_payment_amount = EXCLUDED.down_payment_amount,
			status = EXCLUDED.status,
			updated_at = NOW()
		 RETURNING unit_number, id`

		if err := p.scanPairs(ctx, query, args, ids); err != nil {
			return nil, fmt.Errorf("upsert units: %w", err)
		}
	}
	return ids, nil
}

func (p *Postgres) UpsertClients(ctx context.Context, names []string) (map[string]string, error) {
	ids := make(map[string]string, len(names))
	for _, batch := range chunk(names, p.batchSize) {
		args := make([]any, 0, len(batch))
		for _, name := range batch {
			args = append(args, name)
		}
		// The no-op update makes RETURNING yield rows for existing
		// clients too; DO NOTHING would drop them from the result.
		query := `INSERT INTO clients (full_name)
		 VALUES ` + valuesClause(len(batch), 1) + `
		 ON CONFLICT (full_name) DO UPDATE SET updated_at = NOW()
		 RETURNING full_name, id`

		if err := p.scanPairs(ctx, query, args, ids); err != nil {
			return nil, fmt.Errorf("upsert clients: %w", err)
		}
	}
	return ids, nil
}

func (p *Postgres) UpsertSalesReps(ctx context.Context, reps []RepRow) error {
	for _, batch := range chunk(reps, p.batchSize) {
		args := make([]any, 0, len(batch)*2)
		for _, rep := range batch {
			args = append(args, rep.ID, rep.Name)
		}
		query := `INSERT INTO sales_reps (id, name)
		 VALUES ` + valuesClause(len(batch), 2) + `
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

		if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert sales reps: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Sales
// ---------------------------------------------------------------------------

const saleColumns = `project_id, unit_id, client_id, sales_rep_id, sale_date,
			price_with_tax, price_without_tax, down_payment_amount, financed_amount,
			status, special_case, special_case_type, remarks, notes`

func saleArgs(projectID string, row SaleRow) []any {
	return []any{
		projectID, row.UnitID, row.ClientID, row.SalesRepID, row.SaleDate,
		row.PriceGross, row.PriceNet, row.DownPayment, row.Financed,
		row.Status, row.SpecialCase, nullable(row.SpecialCaseType), nullable(row.Remarks), nullable(row.Notes),
	}
}

func (p *Postgres) UpsertActiveSales(ctx context.Context, projectID string, rows []SaleRow) (map[string]string, error) {
	ids := make(map[string]string, len(rows))
	for _, batch := range chunk(rows, p.batchSize) {
		args := make([]any, 0, len(batch)*14)
		for _, row := range batch {
			args = append(args, saleArgs(projectID, row)...)
		}
		// Conflict target is the partial unique index on active sales:
		// the unit, not a composite of all fields.
		query := `INSERT INTO sales (` + saleColumns + `)
		 VALUES ` + valuesClause(len(batch), 14) + `
		 ON CONFLICT (unit_id) WHERE status = 'active' DO UPDATE SET
			client_id = EXCLUDED.client_id,
			sales_rep_id = EXCLUDED.sales_rep_id,
			sale_date = EXCLUDED.sale_date,
			price_with_tax = EXCLUDED.price_with_tax,
			price_without_tax = EXCLUDED.price_without_tax,
			down_payment_amount = EXCLUDED.down_payment_amount,
			financed_amount = EXCLUDED.financed_amount,
			special_case = EXCLUDED.special_case,
			special_case_type = EXCLUDED.special_case_type,
			remarks = EXCLUDED.remarks,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		 RETURNING unit_id, id`

		if err := p.scanPairs(ctx, query, args, ids); err != nil {
			return nil, fmt.Errorf("upsert active sales: %w", err)
		}
	}
	return ids, nil
}

func (p *Postgres) FindCancelledSale(ctx context.Context, unitID, clientID string) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx,
		`SELECT id FROM sales
		 WHERE unit_id = $1 AND client_id = $2 AND status = 'cancelled'
		 LIMIT 1`,
		unitID, clientID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find cancelled sale: %w", err)
	}
	return id, nil
}

func (p *Postgres) InsertSale(ctx context.Context, projectID string, row SaleRow) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO sales (`+saleColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`,
		saleArgs(projectID, row)...,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert sale for unit %s: %w", row.UnitID, err)
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Payments and expected installments
// ---------------------------------------------------------------------------

func (p *Postgres) InsertPayments(ctx context.Context, rows []PaymentRow) (int, error) {
	inserted := 0
	for _, batch := range chunk(rows, p.batchSize) {
		args := make([]any, 0, len(batch)*5)
		for _, row := range batch {
			args = append(args, row.SaleID, row.Date, row.Amount, row.Type, nullable(row.Notes))
		}
		query := `INSERT INTO payments (sale_id, payment_date, amount, payment_type, notes)
		 VALUES ` + valuesClause(len(batch), 5)

		res, err := p.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("insert payments: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

func (p *Postgres) UpsertExpectedInstallments(ctx context.Context, projectID string, rows []InstallmentRow) (int, error) {
	written := 0
	for _, batch := range chunk(rows, p.batchSize) {
		args := make([]any, 0, len(batch)*6)
		for _, row := range batch {
			args = append(args, projectID, row.UnitNumber, row.DueDate, row.Amount, row.Number, row.ScheduleType)
		}
		query := `INSERT INTO expected_payments (project_id, unit_number, due_date, amount, installment_number, schedule_type)
		 VALUES ` + valuesClause(len(batch), 6) + `
		 ON CONFLICT (project_id, unit_number, due_date, schedule_type) DO UPDATE SET
			amount = EXCLUDED.amount,
			installment_number = EXCLUDED.installment_number,
			updated_at = NOW()`

		res, err := p.db.ExecContext(ctx, query, args...)
		if err != nil {
			return written, fmt.Errorf("upsert expected installments: %w", err)
		}
		n, _ := res.RowsAffected()
		written += int(n)
	}
	return written, nil
}

// ---------------------------------------------------------------------------
// Verification and run audit
// ---------------------------------------------------------------------------

func (p *Postgres) Counts(ctx context.Context, projectID string) (*Counts, error) {
	var c Counts
	err := p.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM projects WHERE id = $1),
			(SELECT COUNT(*) FROM units WHERE project_id = $1),
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM sales WHERE project_id = $1),
			(SELECT COUNT(*) FROM payments pay JOIN sales s ON s.id = pay.sale_id WHERE s.project_id = $1),
			(SELECT COUNT(*) FROM expected_payments WHERE project_id = $1),
			(SELECT COUNT(*) FROM sales_reps)
	`, projectID).Scan(&c.Projects, &c.Units, &c.Clients, &c.Sales, &c.Payments, &c.Expected, &c.SalesReps)
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	return &c, nil
}

func (p *Postgres) RecordRun(ctx context.Context, rec db.RunRecord) error {
	return db.AppendRunEvent(ctx, p.db, rec)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (p *Postgres) scanPairs(ctx context.Context, query string, args []any, into map[string]string) error {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, id string
		if err := rows.Scan(&key, &id); err != nil {
			return err
		}
		into[key] = id
	}
	return rows.Err()
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

// valuesClause renders "($1, $2), ($3, $4), ..." for a multi-row insert.
func valuesClause(rows, width int) string {
	var b strings.Builder
	arg := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// nullable maps empty text to NULL so optional columns stay NULL rather
// than collecting empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
