package invoice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/khanhERP/laundry-pos/internal/events"
)

// TaskSubmit is the asynq task type for e-invoice submission.
const TaskSubmit = "invoice:submit"

// SubmitTaskPayload carries the order to invoice.
type SubmitTaskPayload struct {
	OrderID string `json:"orderId"`
}

// NewSubmitTask builds the asynq task for one order.
func NewSubmitTask(orderID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SubmitTaskPayload{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSubmit, payload, asynq.MaxRetry(10)), nil
}

// Scheduler enqueues invoice submissions when a payment settles. It plugs
// into the event bus as its DeliveryScheduler.
type Scheduler struct {
	Client *asynq.Client
}

// Schedule implements events.DeliveryScheduler.
func (s Scheduler) Schedule(ctx context.Context, event events.Event) error {
	if event.Topic != events.TopicPaymentSettled {
		return nil
	}
	if s.Client == nil {
		return nil
	}
	var payload struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("invoice: decode event payload: %w", err)
	}
	task, err := NewSubmitTask(payload.OrderID)
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("invoice: enqueue submission: %w", err)
	}
	return nil
}
