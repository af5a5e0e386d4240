package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-data/meridian/internal/ledger"
)

const uniqueViolation = "23505"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS ledger_events (
    run_id     TEXT NOT NULL,
    seq        BIGINT NOT NULL,
    event_type TEXT NOT NULL,
    actor      TEXT NOT NULL DEFAULT '',
    subject    TEXT NOT NULL DEFAULT '',
    payload    JSONB NOT NULL DEFAULT '{}',
    occurred_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS ledger_events_type_at_idx
    ON ledger_events (event_type, occurred_at);

CREATE TABLE IF NOT EXISTS license_sales_daily (
    day            DATE PRIMARY KEY,
    licenses_sold  BIGINT NOT NULL,
    volume         NUMERIC NOT NULL,
    platform_take  NUMERIC NOT NULL,
    refreshed_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PGWriter persists ledger events into the ledger_events table. Each
// process run writes under its own run id; sequence numbers restart at
// one with the in-memory log, so they are only unique per run.
type PGWriter struct {
	pool  *pgxpool.Pool
	runID string
}

// NewPGWriter returns a writer backed by the provided pool for the
// given run.
func NewPGWriter(pool *pgxpool.Pool, runID string) *PGWriter {
	return &PGWriter{pool: pool, runID: runID}
}

// EnsureSchema creates the archive tables when missing.
func (w *PGWriter) EnsureSchema(ctx context.Context) error {
	if w == nil || w.pool == nil {
		return errors.New("archive: writer not initialised")
	}
	_, err := w.pool.Exec(ctx, schemaDDL)
	return err
}

// WriteEvents inserts the batch in one round trip. Rows whose sequence
// number already exists are skipped, making replays after a checkpoint
// failure harmless.
func (w *PGWriter) WriteEvents(ctx context.Context, events []ledger.Event) error {
	if w == nil || w.pool == nil {
		return errors.New("archive: writer not initialised")
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("archive: marshal payload of seq %d: %w", ev.Seq, err)
		}
		batch.Queue(
			`INSERT INTO ledger_events (run_id, seq, event_type, actor, subject, payload, occurred_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			w.runID, int64(ev.Seq), string(ev.Type), ev.Actor, ev.Subject, payload, ev.At,
		)
	}
	results := w.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range events {
		if _, err := results.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				continue
			}
			return fmt.Errorf("archive: insert event: %w", err)
		}
	}
	return nil
}
