// Package dispatch hands a job off to out-of-process execution. The
// dispatcher only guarantees synchronous acceptance: it never waits for
// the task to finish and never retries on its own — a dispatch failure
// is surfaced to the caller, which marks the job failed.
package dispatch

import (
	"context"
	"fmt"
)

// TaskMessage is the kind-agnostic unit of work handed to a backend.
// The worker reports back exclusively through the callback URL, using
// the callback token for authentication.
type TaskMessage struct {
	Kind           string         `json:"kind"`
	ProjectID      string         `json:"projectId"`
	SourceURL      string         `json:"sourceUrl"`
	OutputPrefix   string         `json:"outputPrefix"`
	CallbackURL    string         `json:"callbackUrl"`
	CallbackToken  string         `json:"callbackToken"`
	WorkflowMode   string         `json:"workflowMode,omitempty"`
	GenerateVideos bool           `json:"generateVideos"`
	Params         map[string]any `json:"params,omitempty"`
}

// Workflow modes for the trailer pipeline.
const (
	WorkflowModeDraft    = "narrative_draft"
	WorkflowModeStandard = "standard"
)

// DispatchError wraps a backend hand-off failure.
type DispatchError struct {
	Backend string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch via %s failed: %v", e.Backend, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatcher accepts a TaskMessage for out-of-process execution.
type Dispatcher interface {
	Execute(ctx context.Context, msg *TaskMessage) error
}
