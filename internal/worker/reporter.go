package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/reelworks/mediagen/internal/model"
)

// Reporter posts progress events back to the orchestration API. The
// callback URL and bearer token come from the TaskMessage; the API
// tolerates duplicates, so delivery errs on the side of resending.
type Reporter struct {
	httpClient *http.Client
}

func NewReporter() *Reporter {
	return &Reporter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Post delivers one event to the callback URL.
func (r *Reporter) Post(ctx context.Context, callbackURL, token string, event *model.ProgressEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create progress request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post progress: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("progress webhook rejected (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// progress fires a plain progress event; failures are logged, not
// surfaced — a lost progress tick must not abort the pipeline.
func (r *Reporter) progress(ctx context.Context, callbackURL, token string, pct int, stage string) {
	event := &model.ProgressEvent{
		Status:        model.StatusProcessing,
		Progress:      &pct,
		ProgressStage: stage,
	}
	if err := r.Post(ctx, callbackURL, token, event); err != nil {
		log.Printf("[worker] progress report failed: %v", err)
	}
}

// fail reports a terminal failure.
func (r *Reporter) fail(ctx context.Context, callbackURL, token, msg string) {
	event := &model.ProgressEvent{
		Status:  model.StatusProcessingFailed,
		Message: msg,
		Details: &model.EventDetails{Error: msg},
	}
	if err := r.Post(ctx, callbackURL, token, event); err != nil {
		log.Printf("[worker] failure report failed: %v", err)
	}
}
