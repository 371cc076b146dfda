package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names consumed by the containerized worker fleet.
const (
	TaskTypeTrailer       = "mediagen:trailer"
	TaskTypeClipExtractor = "mediagen:clip-extractor"
	TaskTypeVideoQc       = "mediagen:video-qc"
)

// TaskTypeFor maps a job kind to its asynq task type.
func TaskTypeFor(kind string) string {
	return "mediagen:" + kind
}

// QueueDispatcher enqueues TaskMessages on the Redis-backed task queue
// consumed by the containerized worker deployment. MaxRetry is zero:
// the orchestrator owns retry policy, and currently a dispatch failure
// is terminal for that start attempt.
type QueueDispatcher struct {
	client *asynq.Client
}

func NewQueueDispatcher(client *asynq.Client) *QueueDispatcher {
	return &QueueDispatcher{client: client}
}

func (d *QueueDispatcher) Execute(ctx context.Context, msg *TaskMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return &DispatchError{Backend: "queue", Err: fmt.Errorf("marshal task message: %w", err)}
	}

	task := asynq.NewTask(TaskTypeFor(msg.Kind), payload)
	_, err = d.client.EnqueueContext(ctx, task,
		asynq.Queue(msg.Kind),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return &DispatchError{Backend: "queue", Err: err}
	}
	return nil
}
