package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// RunStore is the slice of *sql.DB / *sql.Tx the run audit needs.
type RunStore interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RunRecord describes one completed load run. The payload carries the run's
// row counts and warning totals; its exact shape is up to the caller.
type RunRecord struct {
	RunID    string
	Project  string
	Workbook string
	Mode     string
	Payload  any
}

const runChainAdvisoryLockKey int64 = 7_215_114_093

// AppendRunEvent appends one run to the load_runs audit chain. Each row
// hashes its predecessor, so the chain detects tampering or lost rows;
// writers serialize on an advisory lock to keep the chain linear.
func AppendRunEvent(ctx context.Context, store RunStore, rec RunRecord) error {
	if db, ok := store.(*sql.DB); ok {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run audit tx: %w", err)
		}
		defer tx.Rollback()

		if err := appendRunEvent(ctx, tx, rec); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit run audit tx: %w", err)
		}
		return nil
	}
	return appendRunEvent(ctx, store, rec)
}

func appendRunEvent(ctx context.Context, store RunStore, rec RunRecord) error {
	if _, err := store.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, runChainAdvisoryLockKey); err != nil {
		return fmt.Errorf("acquire run chain lock: %w", err)
	}

	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("marshal run payload: %w", err)
	}
	payloadJSON, err = canonicalizeRunPayload(payloadJSON)
	if err != nil {
		return fmt.Errorf("canonicalize run payload: %w", err)
	}

	var prevHash []byte
	err = store.QueryRowContext(ctx, `SELECT event_hash FROM load_runs ORDER BY id DESC LIMIT 1`).Scan(&prevHash)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("load previous run hash: %w", err)
	}
	if err == sql.ErrNoRows {
		prevHash = nil
	}

	// Postgres stores timestamptz at microsecond precision by default.
	// Truncate pre-hash to keep hash input deterministic across write/read.
	createdAt := time.Now().UTC().Truncate(time.Microsecond)
	serialized := fmt.Sprintf(
		"%s|%s|%s|%s|%s|%s|%s",
		createdAt.Format(time.RFC3339Nano),
		rec.RunID,
		rec.Project,
		rec.Workbook,
		rec.Mode,
		string(payloadJSON),
		hex.EncodeToString(prevHash),
	)
	eventHash := sha256.Sum256([]byte(serialized))

	_, err = store.ExecContext(ctx, `
		INSERT INTO load_runs (
			run_id,
			project_name,
			workbook,
			mode,
			payload,
			created_at,
			prev_hash,
			event_hash
		) VALUES (
			$1::uuid,
			$2,
			$3,
			$4,
			$5::jsonb,
			$6,
			$7,
			$8
		)
	`, rec.RunID, rec.Project, rec.Workbook, rec.Mode, string(payloadJSON), createdAt, prevHash, eventHash[:])
	if err != nil {
		return fmt.Errorf("insert run event: %w", err)
	}

	return nil
}

func canonicalizeRunPayload(raw []byte) ([]byte, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}
