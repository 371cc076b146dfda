package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/reelworks/mediagen/internal/client"
	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/retry"
)

// MediaWorker executes dispatched tasks out of process. It talks to the
// orchestration API exclusively through the callback webhook carried in
// the TaskMessage. The media operations themselves are simulated when no
// real pipeline is configured, which keeps local development and tests
// self-contained.
type MediaWorker struct {
	storage  client.StorageClient
	keyart   client.KeyartGenerator
	reporter *Reporter
	retryCfg retry.Config
	stepWait time.Duration
}

func NewMediaWorker(storage client.StorageClient, keyart client.KeyartGenerator, retryCfg retry.Config) *MediaWorker {
	return &MediaWorker{
		storage:  storage,
		keyart:   keyart,
		reporter: NewReporter(),
		retryCfg: retryCfg,
		stepWait: 2 * time.Second,
	}
}

// ProcessTask handles a task from the queue backend.
func (w *MediaWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var msg dispatch.TaskMessage
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal task message: %w", err)
	}
	return w.Run(ctx, &msg)
}

// Run executes one TaskMessage. Also the entry point for the local
// subprocess backend, which feeds the message over stdin.
func (w *MediaWorker) Run(ctx context.Context, msg *dispatch.TaskMessage) error {
	log.Printf("[worker] starting %s task for project %s", msg.Kind, msg.ProjectID)

	var err error
	switch model.JobKind(msg.Kind) {
	case model.KindTrailer:
		if msg.WorkflowMode == dispatch.WorkflowModeDraft {
			err = w.runNarrativeDraft(ctx, msg)
		} else {
			err = w.runTrailer(ctx, msg)
		}
	case model.KindClipExtractor:
		err = w.runClipExtraction(ctx, msg)
	case model.KindVideoQc:
		err = w.runVideoQc(ctx, msg)
	default:
		err = fmt.Errorf("unknown task kind %q", msg.Kind)
	}

	if err != nil {
		w.reporter.fail(ctx, msg.CallbackURL, msg.CallbackToken, err.Error())
		return err
	}
	log.Printf("[worker] %s task for project %s done", msg.Kind, msg.ProjectID)
	return nil
}

func (w *MediaWorker) runNarrativeDraft(ctx context.Context, msg *dispatch.TaskMessage) error {
	steps := []struct {
		pct   int
		stage string
	}{
		{10, "analyzing_source"},
		{40, "detecting_key_scenes"},
		{75, "writing_narrative"},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.reporter.progress(ctx, msg.CallbackURL, msg.CallbackToken, step.pct, step.stage)
		time.Sleep(w.stepWait)
	}

	draft := map[string]any{
		"projectId":   msg.ProjectID,
		"style":       msg.Params["style"],
		"durationSec": msg.Params["durationSec"],
		"beats": []map[string]any{
			{"order": 1, "description": "Opening hook", "startSec": 0.0},
			{"order": 2, "description": "Conflict reveal", "startSec": 14.5},
			{"order": 3, "description": "Climactic montage", "startSec": 38.0},
		},
		"generatedAt": time.Now().Format(time.RFC3339),
	}
	body, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal narrative draft: %w", err)
	}

	key := msg.OutputPrefix + "/narratives/narrative_draft.json"
	if _, err := w.storage.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return fmt.Errorf("upload narrative draft: %w", err)
	}

	return w.reporter.Post(ctx, msg.CallbackURL, msg.CallbackToken, &model.ProgressEvent{
		Status: model.StatusProcessingDone,
		Details: &model.EventDetails{
			Phase:        model.NarrativePhaseDraft,
			NarrativeKey: key,
		},
	})
}

func (w *MediaWorker) runTrailer(ctx context.Context, msg *dispatch.TaskMessage) error {
	w.reporter.progress(ctx, msg.CallbackURL, msg.CallbackToken, 10, "assembling_timeline")
	time.Sleep(w.stepWait)
	w.reporter.progress(ctx, msg.CallbackURL, msg.CallbackToken, 40, "rendering_variants")

	ratios := aspectRatios(msg.Params)
	variants := make([]model.VariantArtifact, 0, len(ratios))
	for i, ratio := range ratios {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := fmt.Sprintf("%s/trailers/trailer_%s.mp4", msg.OutputPrefix, safeRatio(ratio))
		if _, err := w.storage.Upload(ctx, key, bytes.NewReader(placeholderMP4), "video/mp4"); err != nil {
			return fmt.Errorf("upload trailer variant: %w", err)
		}

		artifact := model.VariantArtifact{
			Style:       stringParam(msg.Params, "style"),
			AspectRatio: ratio,
			StorageKey:  key,
			DurationSec: float64(intParam(msg.Params, "durationSec", 60)),
		}
		artifact.CoverKey = w.renderCover(ctx, msg, ratio)
		variants = append(variants, artifact)

		pct := 40 + (i+1)*50/len(ratios)
		w.reporter.progress(ctx, msg.CallbackURL, msg.CallbackToken, pct, "rendering_variants")
		time.Sleep(w.stepWait)
	}

	return w.reporter.Post(ctx, msg.CallbackURL, msg.CallbackToken, &model.ProgressEvent{
		Status:  model.StatusProcessingDone,
		Details: &model.EventDetails{Variants: variants},
	})
}

// renderCover generates one cover image through the key-art provider,
// retried with backoff. A missing cover degrades the variant, it never
// fails the run.
func (w *MediaWorker) renderCover(ctx context.Context, msg *dispatch.TaskMessage, ratio string) string {
	if w.keyart == nil || !w.keyart.IsConfigured() {
		return ""
	}

	prompt := fmt.Sprintf("Key art for a %s trailer, aspect ratio %s", stringParam(msg.Params, "style"), ratio)
	result, err := retry.Do(ctx, "keyart.GenerateImage", w.retryCfg, func(ctx context.Context) (*client.GenerateImageResponse, error) {
		return w.keyart.GenerateImage(ctx, &client.GenerateImageRequest{
			Prompt:      prompt,
			AspectRatio: ratio,
			Style:       stringParam(msg.Params, "style"),
		})
	})
	if err != nil {
		log.Printf("[worker] cover generation for %s (%s) gave up: %v", msg.ProjectID, ratio, err)
		return ""
	}

	key := fmt.Sprintf("%s/trailers/cover_%s.png", msg.OutputPrefix, safeRatio(ratio))
	if _, err := w.storage.Upload(ctx, key, bytes.NewReader([]byte(result.ImageURL)), "image/png"); err != nil {
		log.Printf("[worker] cover upload for %s failed: %v", msg.ProjectID, err)
		return ""
	}
	return key
}

func (w *MediaWorker) runClipExtraction(ctx context.Context, msg *dispatch.TaskMessage) error {
	count := intParam(msg.Params, "clipCount", 5)
	minDur := intParam(msg.Params, "minDurationSec", 5)

	w.reporter.progress(ctx, msg.CallbackURL, msg.CallbackToken, 10, "scanning_source")
	time.Sleep(w.stepWait)

	clips := make([]model.ClipArtifact, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := fmt.Sprintf("%s/clips/clip_%03d.mp4", msg.OutputPrefix, i+1)
		if _, err := w.storage.Upload(ctx, key, bytes.NewReader(placeholderMP4), "video/mp4"); err != nil {
			return fmt.Errorf("upload clip: %w", err)
		}
		start := float64(i * 90)
		clips = append(clips, model.ClipArtifact{
			Title:      fmt.Sprintf("Highlight %d", i+1),
			StorageKey: key,
			StartSec:   start,
			EndSec:     start + float64(minDur),
		})

		pct := 10 + (i+1)*85/count
		w.reporter.progress(ctx, msg.CallbackURL, msg.CallbackToken, pct, "extracting_clips")
		time.Sleep(w.stepWait)
	}

	return w.reporter.Post(ctx, msg.CallbackURL, msg.CallbackToken, &model.ProgressEvent{
		Status:  model.StatusProcessingDone,
		Details: &model.EventDetails{Clips: clips},
	})
}

func (w *MediaWorker) runVideoQc(ctx context.Context, msg *dispatch.TaskMessage) error {
	checks := []struct {
		pct   int
		stage string
	}{
		{20, "probing_container"},
		{45, "checking_audio_levels"},
		{70, "scanning_black_frames"},
		{90, "compiling_report"},
	}
	for _, step := range checks {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.reporter.progress(ctx, msg.CallbackURL, msg.CallbackToken, step.pct, step.stage)
		time.Sleep(w.stepWait)
	}

	passed := true
	report := map[string]any{
		"qcRequestId": msg.Params["qcRequestId"],
		"rawMediaId":  msg.Params["rawMediaId"],
		"passed":      passed,
		"checkedAt":   time.Now().Format(time.RFC3339),
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal qc report: %w", err)
	}

	key := msg.OutputPrefix + "/reports/qc_report.json"
	if _, err := w.storage.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return fmt.Errorf("upload qc report: %w", err)
	}

	return w.reporter.Post(ctx, msg.CallbackURL, msg.CallbackToken, &model.ProgressEvent{
		Status: model.StatusProcessingDone,
		Details: &model.EventDetails{
			QcReportKey: key,
			QcPassed:    &passed,
		},
	})
}

// placeholderMP4 stands in for rendered media when the worker runs in
// simulation mode.
var placeholderMP4 = []byte("\x00\x00\x00\x18ftypmp42")

func aspectRatios(params map[string]any) []string {
	raw, ok := params["aspectRatios"]
	if !ok {
		return []string{"16:9"}
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{"16:9"}
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

func safeRatio(ratio string) string {
	out := make([]byte, 0, len(ratio))
	for i := 0; i < len(ratio); i++ {
		if ratio[i] == ':' {
			out = append(out, 'x')
			continue
		}
		out = append(out, ratio[i])
	}
	return string(out)
}
