package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskLeadCacheInvalidate = "leads.cache.invalidate"

type LeadCacheInvalidatePayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewLeadCacheInvalidateTask(payload LeadCacheInvalidatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadCacheInvalidate, data), nil
}

func ParseLeadCacheInvalidatePayload(task *asynq.Task) (LeadCacheInvalidatePayload, error) {
	var payload LeadCacheInvalidatePayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadCacheInvalidatePayload{}, err
	}
	return payload, nil
}
