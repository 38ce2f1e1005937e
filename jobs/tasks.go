package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeOverdueRefresh flips unpaid invoices past their due date to
	// overdue. Scheduled nightly, safe to run on demand.
	TaskTypeOverdueRefresh = "invoices:refresh_overdue"
)

// OverdueRefreshPayload carries the reference time for the sweep. A zero AsOf
// means "now".
type OverdueRefreshPayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewOverdueRefreshTask constructs an Asynq task.
func NewOverdueRefreshTask(payload OverdueRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOverdueRefresh, data), nil
}
