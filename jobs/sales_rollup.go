package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-data/meridian/internal/archive"
)

// SalesRollupHandler processes TaskSalesRollup tasks against the
// archived event log.
type SalesRollupHandler struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	printer *message.Printer
}

// NewSalesRollupHandler returns a handler writing rollups via pool.
func NewSalesRollupHandler(pool *pgxpool.Pool, logger *slog.Logger) *SalesRollupHandler {
	return &SalesRollupHandler{
		pool:    pool,
		logger:  logger,
		printer: message.NewPrinter(language.English),
	}
}

// ProcessTask aggregates the requested day. Malformed payloads are not
// retried; transient database errors are.
func (h *SalesRollupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload SalesRollupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	day, err := rollupDay(payload, time.Now())
	if err != nil {
		h.logger.Warn("sales rollup payload rejected", slog.String("day", payload.Day))
		return asynq.SkipRetry
	}
	sales, err := archive.RollupDaily(ctx, h.pool, day)
	if err != nil {
		return err
	}
	h.logger.Info("sales rollup refreshed",
		slog.String("day", sales.Day.Format(time.DateOnly)),
		slog.String("licenses", h.printer.Sprintf("%d", sales.LicensesSold)),
		slog.String("volume", sales.Volume),
		slog.String("platform_take", sales.PlatformTake),
	)
	return nil
}
