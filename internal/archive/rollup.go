package archive

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DailySales summarizes one day of license purchases from the archived
// event log.
type DailySales struct {
	Day          time.Time
	LicensesSold int64
	Volume       string
	PlatformTake string
}

// RollupDaily aggregates license.granted events for the given day into
// license_sales_daily and returns the computed row. Re-running a day
// overwrites its row, so the job is safe to repeat.
func RollupDaily(ctx context.Context, pool *pgxpool.Pool, day time.Time) (DailySales, error) {
	if pool == nil {
		return DailySales{}, errors.New("archive: pool not initialised")
	}
	day = day.UTC().Truncate(24 * time.Hour)
	const query = `
WITH sales AS (
    SELECT COUNT(*)                                              AS licenses_sold,
           COALESCE(SUM((payload->>'price')::NUMERIC), 0)        AS volume,
           COALESCE(SUM((payload->>'platform_cut')::NUMERIC), 0) AS platform_take
      FROM ledger_events
     WHERE event_type = 'license.granted'
       AND occurred_at >= $1
       AND occurred_at < $1 + INTERVAL '1 day'
)
INSERT INTO license_sales_daily (day, licenses_sold, volume, platform_take, refreshed_at)
SELECT $1::DATE, licenses_sold, volume, platform_take, NOW() FROM sales
ON CONFLICT (day) DO UPDATE
   SET licenses_sold = EXCLUDED.licenses_sold,
       volume        = EXCLUDED.volume,
       platform_take = EXCLUDED.platform_take,
       refreshed_at  = EXCLUDED.refreshed_at
RETURNING licenses_sold, volume::TEXT, platform_take::TEXT`

	var out DailySales
	out.Day = day
	err := pool.QueryRow(ctx, query, day).Scan(&out.LicensesSold, &out.Volume, &out.PlatformTake)
	if err != nil {
		return DailySales{}, err
	}
	return out, nil
}
