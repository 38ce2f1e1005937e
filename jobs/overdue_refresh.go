package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// OverdueRefresher is the slice of the invoice service the sweep needs.
type OverdueRefresher interface {
	RefreshOverdueStatuses(ctx context.Context, asOf time.Time) (int, error)
}

// ReportCacheInvalidator drops cached report payloads after a sweep changed
// invoice statuses.
type ReportCacheInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// OverdueRefreshJob handles TaskTypeOverdueRefresh tasks.
type OverdueRefreshJob struct {
	invoices OverdueRefresher
	reports  ReportCacheInvalidator
	logger   *slog.Logger
}

func NewOverdueRefreshJob(invoices OverdueRefresher, reports ReportCacheInvalidator, logger *slog.Logger) *OverdueRefreshJob {
	return &OverdueRefreshJob{invoices: invoices, reports: reports, logger: logger}
}

// Handle runs the sweep. Malformed payloads are dropped rather than retried.
func (j *OverdueRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OverdueRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := payload.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	flipped, err := j.invoices.RefreshOverdueStatuses(ctx, asOf)
	if err != nil {
		j.logger.Error("overdue refresh failed", slog.Any("error", err))
		return err
	}
	if flipped > 0 && j.reports != nil {
		j.reports.InvalidateCache(ctx)
	}
	j.logger.Info("overdue refresh completed",
		slog.Int("flipped", flipped),
		slog.Time("as_of", asOf))
	return nil
}
