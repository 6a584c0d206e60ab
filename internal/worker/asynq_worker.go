package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gopay-next/internal/logger"
	"github.com/gopay-next/internal/provider"
	"github.com/gopay-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOriginNotify, c.handleOriginNotify)
}

func (c *Consumer) handleOriginNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_origin_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OriginNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_origin_notify_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.NotifyURL) == "" {
		logger.Debugw("worker_origin_notify_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.Forwarder == nil {
		logger.Warnw("worker_origin_notify_skip_forwarder_nil", "order_id", payload.OrderID)
		return nil
	}
	result, err := c.Forwarder.Forward(ctx, payload.NotifyURL)
	if err != nil {
		logger.Warnw("worker_origin_notify_forward_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	logger.Infow("worker_origin_notify_done", "order_id", payload.OrderID, "status", result.StatusCode)
	return nil
}
