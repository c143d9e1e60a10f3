package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeExpirySweep flags long-expired role assignments inactive.
	TaskTypeExpirySweep = "assignments:expiry_sweep"
)

// ExpirySweepPayload parameterises a sweep run. Grace is how far past
// valid_until an assignment must be before its row is flagged.
type ExpirySweepPayload struct {
	Grace time.Duration `json:"grace"`
}

// NewExpirySweepTask constructs an Asynq task.
func NewExpirySweepTask(payload ExpirySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeExpirySweep, data), nil
}
