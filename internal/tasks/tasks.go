package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/unigest/unigest/internal/mailer"
)

// Task type constants
const (
	TypeSendNotification = "notification:send"
)

// NotificationQueue is the asynq queue mail tasks are enqueued on
const NotificationQueue = "default"

// NewSendNotificationTask creates a task delivering one notification.
// Delivery is attempted once; a failure is recorded by asynq and not retried.
func NewSendNotificationTask(n mailer.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSendNotification, payload, asynq.MaxRetry(0), asynq.Queue(NotificationQueue)), nil
}

// ParseNotification parses task payload from Asynq task
func ParseNotification(task *asynq.Task) (mailer.Notification, error) {
	var n mailer.Notification
	if err := json.Unmarshal(task.Payload(), &n); err != nil {
		return n, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return n, nil
}

// HandleSendNotification delivers the notification carried by t
func HandleSendNotification(ctx context.Context, t *asynq.Task, sender mailer.Sender, log zerolog.Logger) error {
	n, err := ParseNotification(t)
	if err != nil {
		// A malformed payload can never succeed
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if err := sender.Send(ctx, n); err != nil {
		log.Error().Err(err).Str("recipient", n.Recipient).Msg("Notification task failed")
		return err
	}
	return nil
}

// Enqueuer is the subset of *asynq.Client used by the API server
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
