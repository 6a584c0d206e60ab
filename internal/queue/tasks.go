package queue

import (
	"encoding/json"

	"github.com/gopay-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOriginNotify 回源通知任务
	TaskOriginNotify = constants.TaskOriginNotify
)

// OriginNotifyPayload 回源通知任务载荷
type OriginNotifyPayload struct {
	OrderID   string `json:"order_id"`
	NotifyURL string `json:"notify_url"`
}

// NewOriginNotifyTask 创建回源通知任务
func NewOriginNotifyTask(payload OriginNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOriginNotify, body), nil
}
