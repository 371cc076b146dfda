package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/reelworks/mediagen/internal/auth"
	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/store"
)

// ErrDraftNotReady is returned when a narrative operation requires the
// draft artifact and it does not exist yet.
var ErrDraftNotReady = errors.New("narrative draft not ready")

// StartOptions carry the per-start parameters a kind passes down to its
// worker through the TaskMessage.
type StartOptions struct {
	WorkflowMode   string
	GenerateVideos bool
	Params         map[string]any
	Stage          string
}

// KindHooks is the small per-kind surface the shared flow is
// parameterized with: how to build the outbound task and how to turn a
// completion event's details into stored artifacts.
type KindHooks interface {
	BuildTaskMessage(job *model.Job, opts StartOptions) (*dispatch.TaskMessage, error)
	ApplyCompletion(ctx context.Context, job *model.Job, details *model.EventDetails) (model.JobPatch, error)
}

// Flow is the kind-agnostic job state machine:
//
//	idle → processing → {completed | failed}
//
// Start is an idempotent no-op while processing; terminal states are
// never overwritten by later events; dispatch failures fail the job
// synchronously. All record mutations for one project are serialized by
// a per-project lock.
type Flow struct {
	kind             model.JobKind
	store            store.JobStore
	dispatcher       dispatch.Dispatcher
	hooks            KindHooks
	locks            keyedMutex
	secret           string
	callbackBaseURL  string
	idempotentCreate bool
}

// NewFlow wires a per-kind flow. When idempotentCreate is set, creating
// a project with an id that already exists returns the existing record
// instead of a conflict.
func NewFlow(kind model.JobKind, jobStore store.JobStore, dispatcher dispatch.Dispatcher, hooks KindHooks, secret, callbackBaseURL string, idempotentCreate bool) *Flow {
	return &Flow{
		kind:             kind,
		store:            jobStore,
		dispatcher:       dispatcher,
		hooks:            hooks,
		secret:           secret,
		callbackBaseURL:  strings.TrimRight(callbackBaseURL, "/"),
		idempotentCreate: idempotentCreate,
	}
}

func (f *Flow) Kind() model.JobKind { return f.kind }

func (f *Flow) lockProject(projectID string) func() {
	mu := f.locks.lock(string(f.kind) + "/" + projectID)
	return mu.Unlock
}

// CreateProject persists a new idle job record. The caller pre-fills the
// kind-specific fields; project ids are immutable once created.
func (f *Flow) CreateProject(ctx context.Context, job *model.Job) (*model.Job, error) {
	job.Kind = f.kind
	job.Status = model.StatusIdle
	job.CreatedAt = time.Now()

	err := f.store.Create(ctx, job)
	if err == nil {
		return f.store.Get(ctx, f.kind, job.ProjectID)
	}
	if errors.Is(err, store.ErrAlreadyExists) && f.idempotentCreate {
		return f.store.Get(ctx, f.kind, job.ProjectID)
	}
	return nil, err
}

// Start transitions the job to processing and hands it to the
// dispatcher. A second Start while the job is processing returns the
// current state without dispatching again. A dispatch failure marks the
// job failed and is returned synchronously — the only failure a caller
// sees without waiting for a webhook.
func (f *Flow) Start(ctx context.Context, projectID string, opts StartOptions) (*model.Job, error) {
	defer f.lockProject(projectID)()

	job, err := f.store.Get(ctx, f.kind, projectID)
	if err != nil {
		return nil, err
	}

	if job.Status == model.StatusProcessing {
		log.Printf("[%s] start for %s ignored: already processing", f.kind, projectID)
		return job, nil
	}

	stage := opts.Stage
	if stage == "" {
		stage = "initiated"
	}
	now := time.Now()
	job, err = f.store.Update(ctx, f.kind, projectID, model.JobPatch{
		Status:        model.StatusPtr(model.StatusProcessing),
		Progress:      model.IntPtr(0),
		ProgressStage: &stage,
		ClearError:    true,
		StartedAt:     &now,
	})
	if err != nil {
		return nil, err
	}

	msg, err := f.hooks.BuildTaskMessage(job, opts)
	if err != nil {
		return f.failStart(ctx, projectID, err)
	}
	if err := f.dispatcher.Execute(ctx, msg); err != nil {
		return f.failStart(ctx, projectID, err)
	}

	return job, nil
}

// failStart records a dispatch-step failure so the job never sits in
// processing with nothing running, then surfaces the error.
func (f *Flow) failStart(ctx context.Context, projectID string, cause error) (*model.Job, error) {
	msg := cause.Error()
	now := time.Now()
	job, updateErr := f.store.Update(ctx, f.kind, projectID, model.JobPatch{
		Status:      model.StatusPtr(model.StatusFailed),
		Error:       &msg,
		CompletedAt: &now,
	})
	if updateErr != nil {
		log.Printf("[%s] failed to record dispatch failure for %s: %v", f.kind, projectID, updateErr)
	}
	return job, cause
}

// NewTaskMessage builds the common part of an outbound task: locations,
// the per-job callback URL and the token that authenticates it. Kind
// hooks extend the result with their parameters.
func (f *Flow) NewTaskMessage(job *model.Job, opts StartOptions) (*dispatch.TaskMessage, error) {
	token, err := auth.MintCallbackToken(f.secret, string(f.kind), job.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("mint callback token: %w", err)
	}
	return &dispatch.TaskMessage{
		Kind:           string(f.kind),
		ProjectID:      job.ProjectID,
		SourceURL:      job.SourceURL,
		OutputPrefix:   fmt.Sprintf("%s/%s", f.kind.StoragePrefix(), job.ProjectID),
		CallbackURL:    fmt.Sprintf("%s/%s/progress/%s", f.callbackBaseURL, f.kind, job.ProjectID),
		CallbackToken:  token,
		WorkflowMode:   opts.WorkflowMode,
		GenerateVideos: opts.GenerateVideos,
		Params:         opts.Params,
	}, nil
}

// HandleProgress ingests one webhook event from the external worker.
// Delivery is at-least-once and unordered; the rules are:
//   - a terminal status, once written, is never overwritten
//   - duplicate completions append children exactly once
//   - events for unknown projects are logged and acknowledged, never
//     bounced back as errors the worker would retry forever
func (f *Flow) HandleProgress(ctx context.Context, projectID string, event *model.ProgressEvent) error {
	defer f.lockProject(projectID)()

	job, err := f.store.Get(ctx, f.kind, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[%s] progress for unknown project %s dropped", f.kind, projectID)
			return nil
		}
		return err
	}

	switch {
	case event.Status.IsCompletion():
		return f.applyCompletionEvent(ctx, job, event)
	case event.Status.IsFailure():
		return f.applyFailureEvent(ctx, job, event)
	default:
		return f.applyProgressEvent(ctx, job, event)
	}
}

func (f *Flow) applyProgressEvent(ctx context.Context, job *model.Job, event *model.ProgressEvent) error {
	if job.Status.IsTerminal() {
		log.Printf("[%s] stale progress for terminal job %s dropped", f.kind, job.ProjectID)
		return nil
	}

	patch := model.JobPatch{}
	if event.Progress != nil {
		p := *event.Progress
		if p < 0 || p > 100 {
			log.Printf("[%s] out-of-range progress %d for %s dropped", f.kind, p, job.ProjectID)
			return nil
		}
		patch.Progress = &p
	}
	if event.ProgressStage != "" {
		patch.ProgressStage = &event.ProgressStage
	}
	// A progress report before the start response landed still means the
	// worker is running.
	if job.Status == model.StatusIdle {
		now := time.Now()
		patch.Status = model.StatusPtr(model.StatusProcessing)
		patch.StartedAt = &now
	}

	_, err := f.store.Update(ctx, f.kind, job.ProjectID, patch)
	return err
}

func (f *Flow) applyCompletionEvent(ctx context.Context, job *model.Job, event *model.ProgressEvent) error {
	if job.Status.IsTerminal() {
		// Re-delivered completion: children are already appended, keep
		// the record untouched.
		log.Printf("[%s] duplicate completion for %s dropped", f.kind, job.ProjectID)
		return nil
	}

	patch, err := f.hooks.ApplyCompletion(ctx, job, event.Details)
	if err != nil {
		return fmt.Errorf("apply completion artifacts: %w", err)
	}

	now := time.Now()
	patch.Status = model.StatusPtr(model.StatusCompleted)
	patch.Progress = model.IntPtr(100)
	patch.CompletedAt = &now
	if patch.ProgressStage == nil {
		stage := event.ProgressStage
		if stage == "" {
			stage = "completed"
		}
		patch.ProgressStage = &stage
	}

	_, err = f.store.Update(ctx, f.kind, job.ProjectID, patch)
	return err
}

func (f *Flow) applyFailureEvent(ctx context.Context, job *model.Job, event *model.ProgressEvent) error {
	if job.Status.IsTerminal() {
		log.Printf("[%s] failure event for terminal job %s dropped", f.kind, job.ProjectID)
		return nil
	}

	msg := "Unknown error"
	if event.Details != nil && event.Details.Error != "" {
		msg = event.Details.Error
	} else if event.Message != "" {
		msg = event.Message
	}

	now := time.Now()
	_, err := f.store.Update(ctx, f.kind, job.ProjectID, model.JobPatch{
		Status:      model.StatusPtr(model.StatusFailed),
		Error:       &msg,
		CompletedAt: &now,
	})
	return err
}

// GetStatus is the polling read: a pure store lookup.
func (f *Flow) GetStatus(ctx context.Context, projectID string) (*model.StatusResponse, error) {
	job, err := f.store.Get(ctx, f.kind, projectID)
	if err != nil {
		return nil, err
	}
	return &model.StatusResponse{
		ProjectID:     job.ProjectID,
		Status:        job.Status,
		Progress:      job.Progress,
		ProgressStage: job.ProgressStage,
		Error:         job.Error,
	}, nil
}

// GetJob returns the full record including artifact children.
func (f *Flow) GetJob(ctx context.Context, projectID string) (*model.Job, error) {
	return f.store.Get(ctx, f.kind, projectID)
}

// List pages through this kind's jobs, newest first.
func (f *Flow) List(ctx context.Context, filter model.ListFilter, page, pageSize int) (*model.ListPage, error) {
	return f.store.List(ctx, f.kind, filter, page, pageSize)
}
