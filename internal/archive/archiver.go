// Package archive persists the ledger's append-only event log into
// Postgres so external indexers can consume it without holding the
// ledger process open, and builds daily sales rollups on top of it.
package archive

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridian-data/meridian/internal/ledger"
)

// Source yields committed events newer than a sequence number.
type Source interface {
	EventsSince(seq uint64, limit int) []ledger.Event
}

// EventWriter persists a batch of events. Writes must be idempotent:
// replaying an already-archived sequence number is not an error.
type EventWriter interface {
	WriteEvents(ctx context.Context, events []ledger.Event) error
}

// Checkpoint remembers the last archived sequence number across
// restarts.
type Checkpoint interface {
	Last(ctx context.Context) (uint64, error)
	Set(ctx context.Context, seq uint64) error
}

// Archiver drains the ledger event log into the writer on a fixed
// interval. It is best-effort by design: the ledger never blocks on
// archival, and a failed pass retries from the same checkpoint.
type Archiver struct {
	source     Source
	writer     EventWriter
	checkpoint Checkpoint
	logger     *slog.Logger
	interval   time.Duration
	batch      int
}

// NewArchiver wires an archiver. Batch sizes below 1 fall back to 256.
func NewArchiver(source Source, writer EventWriter, checkpoint Checkpoint, logger *slog.Logger, interval time.Duration, batch int) *Archiver {
	if batch < 1 {
		batch = 256
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Archiver{
		source:     source,
		writer:     writer,
		checkpoint: checkpoint,
		logger:     logger,
		interval:   interval,
		batch:      batch,
	}
}

// Run archives until ctx is cancelled. One final drain happens on the
// way out so a clean shutdown loses nothing.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), a.interval)
			defer cancel()
			if _, err := a.RunOnce(flushCtx); err != nil {
				a.logger.Warn("final archive drain failed", slog.Any("error", err))
			}
			return ctx.Err()
		case <-ticker.C:
			if n, err := a.RunOnce(ctx); err != nil {
				a.logger.Warn("archive pass failed", slog.Any("error", err))
			} else if n > 0 {
				a.logger.Debug("archived events", slog.Int("count", n))
			}
		}
	}
}

// RunOnce drains everything currently pending, batch by batch, and
// returns how many events were archived.
func (a *Archiver) RunOnce(ctx context.Context) (int, error) {
	seq, err := a.checkpoint.Last(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for {
		events := a.source.EventsSince(seq, a.batch)
		if len(events) == 0 {
			return total, nil
		}
		if err := a.writer.WriteEvents(ctx, events); err != nil {
			return total, err
		}
		seq = events[len(events)-1].Seq
		if err := a.checkpoint.Set(ctx, seq); err != nil {
			return total, err
		}
		total += len(events)
	}
}
