package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSalesRollup aggregates one day of archived license sales.
	TaskSalesRollup = "archive:sales_rollup"
)

// SalesRollupPayload names the day to aggregate, RFC3339 date only.
// An empty day means "yesterday" as of processing time.
type SalesRollupPayload struct {
	Day string `json:"day,omitempty"`
}

// NewSalesRollupTask constructs an Asynq task for the given day.
func NewSalesRollupTask(day time.Time) (*asynq.Task, error) {
	payload := SalesRollupPayload{}
	if !day.IsZero() {
		payload.Day = day.UTC().Format(time.DateOnly)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalesRollup, data), nil
}

// rollupDay resolves the payload to a concrete UTC day.
func rollupDay(payload SalesRollupPayload, now time.Time) (time.Time, error) {
	if payload.Day == "" {
		return now.UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour), nil
	}
	return time.Parse(time.DateOnly, payload.Day)
}
