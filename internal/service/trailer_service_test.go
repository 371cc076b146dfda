package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/reelworks/mediagen/internal/client"
	"github.com/reelworks/mediagen/internal/config"
	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Internal: config.InternalConfig{
			Secret:          "test-secret",
			CallbackBaseURL: "http://localhost:8000",
		},
		Trailer: config.TrailerConfig{
			DefaultDurationSec: 60,
			DefaultStyle:       "cinematic",
			AspectRatios:       []string{"16:9", "9:16"},
		},
		Clips: config.ClipsConfig{
			DefaultCount:   2,
			MinDurationSec: 5,
			MaxDurationSec: 60,
		},
	}
}

func newTrailerFixture(t *testing.T) (*TrailerService, *fakeDispatcher, *client.MemoryStorage) {
	t.Helper()
	d := &fakeDispatcher{}
	storage := client.NewMemoryStorage()
	svc := NewTrailerService(store.NewMemoryStore(), d, storage, testConfig())
	return svc, d, storage
}

func uploadDraft(t *testing.T, storage *client.MemoryStorage, projectID string) string {
	t.Helper()
	key := "ai-trailer/" + projectID + "/narratives/narrative_draft.json"
	draft := `{"beats":[{"order":1,"description":"Opening hook"}]}`
	if _, err := storage.Upload(context.Background(), key, bytes.NewReader([]byte(draft)), "application/json"); err != nil {
		t.Fatalf("upload draft failed: %v", err)
	}
	return key
}

func TestTrailerCreateIsIdempotent(t *testing.T) {
	svc, _, _ := newTrailerFixture(t)
	ctx := context.Background()

	req := &model.CreateProjectRequest{
		ProjectID: "p1",
		Title:     "Launch trailer",
		SourceURL: "https://example.com/movie.mp4",
	}
	first, err := svc.CreateProject(ctx, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	again, err := svc.CreateProject(ctx, req)
	if err != nil {
		t.Fatalf("repeat create failed: %v", err)
	}
	if again.ProjectID != first.ProjectID || !again.CreatedAt.Equal(first.CreatedAt) {
		t.Error("repeat create did not return the existing record")
	}
}

func TestTrailerCreateGeneratesID(t *testing.T) {
	svc, _, _ := newTrailerFixture(t)
	job, err := svc.CreateProject(context.Background(), &model.CreateProjectRequest{
		SourceURL: "https://example.com/movie.mp4",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if job.ProjectID == "" {
		t.Error("expected a generated project id")
	}
}

func TestDraftNarrativeDispatch(t *testing.T) {
	svc, d, _ := newTrailerFixture(t)
	ctx := context.Background()
	if _, err := svc.CreateProject(ctx, &model.CreateProjectRequest{ProjectID: "p1", SourceURL: "https://example.com/movie.mp4"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	job, err := svc.DraftNarrative(ctx, &model.DraftNarrativeRequest{ProjectID: "p1", Style: "noir"})
	if err != nil {
		t.Fatalf("draft failed: %v", err)
	}
	if job.Status != model.StatusProcessing {
		t.Errorf("status = %s, want processing", job.Status)
	}
	if job.ProgressStage != "drafting_narrative" {
		t.Errorf("stage = %q, want drafting_narrative", job.ProgressStage)
	}

	msg := d.messages[0]
	if msg.WorkflowMode != dispatch.WorkflowModeDraft {
		t.Errorf("workflowMode = %q, want draft", msg.WorkflowMode)
	}
	if msg.GenerateVideos {
		t.Error("draft run must not generate videos")
	}
	if msg.Params["style"] != "noir" {
		t.Errorf("style param = %v, want noir", msg.Params["style"])
	}
}

func TestApproveNarrativeBeforeDraft(t *testing.T) {
	svc, _, _ := newTrailerFixture(t)
	ctx := context.Background()
	if _, err := svc.CreateProject(ctx, &model.CreateProjectRequest{ProjectID: "p1", SourceURL: "https://example.com/movie.mp4"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := svc.ApproveNarrative(ctx, &model.ApproveNarrativeRequest{
		ProjectID: "p1",
		Narrative: map[string]any{"beats": []any{}},
	})
	if !errors.Is(err, ErrDraftNotReady) {
		t.Errorf("err = %v, want ErrDraftNotReady", err)
	}
}

func TestApproveNarrativeDispatchesStandardRun(t *testing.T) {
	svc, d, storage := newTrailerFixture(t)
	ctx := context.Background()
	if _, err := svc.CreateProject(ctx, &model.CreateProjectRequest{ProjectID: "p1", SourceURL: "https://example.com/movie.mp4"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	uploadDraft(t, storage, "p1")

	narrative := map[string]any{"beats": []any{map[string]any{"order": float64(1)}}}
	job, err := svc.ApproveNarrative(ctx, &model.ApproveNarrativeRequest{ProjectID: "p1", Narrative: narrative})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if job.Status != model.StatusProcessing {
		t.Errorf("status = %s, want processing", job.Status)
	}

	msg := d.messages[len(d.messages)-1]
	if msg.WorkflowMode != dispatch.WorkflowModeStandard {
		t.Errorf("workflowMode = %q, want standard", msg.WorkflowMode)
	}
	if !msg.GenerateVideos {
		t.Error("approved run must generate videos")
	}
	if msg.Params["approvedNarrative"] == nil {
		t.Error("approved narrative not passed to worker")
	}

	// The approved narrative is persisted on the record.
	stored, _ := svc.Flow().GetJob(ctx, "p1")
	var decoded map[string]any
	if err := json.Unmarshal(stored.Narrative, &decoded); err != nil {
		t.Fatalf("stored narrative unreadable: %v", err)
	}
	if decoded["beats"] == nil {
		t.Error("stored narrative missing beats")
	}
}

func TestNarrativeStatusLifecycle(t *testing.T) {
	svc, _, storage := newTrailerFixture(t)
	ctx := context.Background()
	if _, err := svc.CreateProject(ctx, &model.CreateProjectRequest{ProjectID: "p1", SourceURL: "https://example.com/movie.mp4"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Before the draft exists the job status shows through.
	status, err := svc.NarrativeStatus(ctx, "p1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Status != string(model.StatusIdle) {
		t.Errorf("status = %q, want idle", status.Status)
	}

	// The moment the draft artifact appears the phase reads ready,
	// regardless of any pending status write.
	uploadDraft(t, storage, "p1")
	status, err = svc.NarrativeStatus(ctx, "p1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Status != model.NarrativeStatusReady {
		t.Errorf("status = %q, want ready", status.Status)
	}
	if status.Phase != model.NarrativePhaseDraft {
		t.Errorf("phase = %q, want narrative_draft", status.Phase)
	}

	// Once variants exist the derived ready state no longer applies.
	if err := svc.Flow().store.AppendVariant(ctx, model.KindTrailer, "p1", model.Variant{VariantID: "v1"}); err != nil {
		t.Fatalf("append variant failed: %v", err)
	}
	status, err = svc.NarrativeStatus(ctx, "p1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Status == model.NarrativeStatusReady {
		t.Error("ready reported after videos were generated")
	}
}

func TestGetNarrativeRoundTrip(t *testing.T) {
	svc, _, storage := newTrailerFixture(t)
	ctx := context.Background()
	if _, err := svc.CreateProject(ctx, &model.CreateProjectRequest{ProjectID: "p1", SourceURL: "https://example.com/movie.mp4"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.GetNarrative(ctx, "p1"); !errors.Is(err, ErrDraftNotReady) {
		t.Errorf("err = %v, want ErrDraftNotReady", err)
	}

	uploadDraft(t, storage, "p1")
	body, err := svc.GetNarrative(ctx, "p1")
	if err != nil {
		t.Fatalf("get narrative failed: %v", err)
	}
	if !strings.Contains(string(body), "Opening hook") {
		t.Errorf("unexpected narrative body: %s", body)
	}
}

func TestTrailerCompletionResolvesVariantURLs(t *testing.T) {
	svc, _, _ := newTrailerFixture(t)
	ctx := context.Background()
	if _, err := svc.CreateProject(ctx, &model.CreateProjectRequest{ProjectID: "p1", SourceURL: "https://example.com/movie.mp4"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Generate(ctx, "p1"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	event := &model.ProgressEvent{
		Status: model.StatusProcessingDone,
		Details: &model.EventDetails{
			Variants: []model.VariantArtifact{
				{Style: "cinematic", AspectRatio: "16:9", StorageKey: "ai-trailer/p1/trailers/trailer_16x9.mp4", CoverKey: "ai-trailer/p1/trailers/cover_16x9.png", DurationSec: 60},
				{Style: "cinematic", AspectRatio: "9:16", StorageKey: "ai-trailer/p1/trailers/trailer_9x16.mp4", DurationSec: 60},
			},
		},
	}
	if err := svc.Flow().HandleProgress(ctx, "p1", event); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	job, _ := svc.Flow().GetJob(ctx, "p1")
	if job.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if len(job.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(job.Variants))
	}
	first := job.Variants[0]
	if first.VariantID == "" {
		t.Error("variant id not assigned")
	}
	if !strings.Contains(first.StreamURL, "signed=1") {
		t.Errorf("stream URL not signed: %q", first.StreamURL)
	}
	if !strings.Contains(first.CoverURL, "cover_16x9.png") {
		t.Errorf("cover URL = %q", first.CoverURL)
	}
	if job.Variants[1].CoverURL != "" {
		t.Errorf("variant without cover got URL %q", job.Variants[1].CoverURL)
	}

	// Re-delivered completion must not duplicate the variants.
	if err := svc.Flow().HandleProgress(ctx, "p1", event); err != nil {
		t.Fatalf("duplicate completion failed: %v", err)
	}
	job, _ = svc.Flow().GetJob(ctx, "p1")
	if len(job.Variants) != 2 {
		t.Errorf("variants after duplicate = %d, want 2", len(job.Variants))
	}
}

func TestDraftPhaseCompletionKeepsVariantsEmpty(t *testing.T) {
	svc, _, storage := newTrailerFixture(t)
	ctx := context.Background()
	if _, err := svc.CreateProject(ctx, &model.CreateProjectRequest{ProjectID: "p1", SourceURL: "https://example.com/movie.mp4"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.DraftNarrative(ctx, &model.DraftNarrativeRequest{ProjectID: "p1"}); err != nil {
		t.Fatalf("draft failed: %v", err)
	}
	key := uploadDraft(t, storage, "p1")

	event := &model.ProgressEvent{
		Status:  model.StatusProcessingDone,
		Details: &model.EventDetails{Phase: model.NarrativePhaseDraft, NarrativeKey: key},
	}
	if err := svc.Flow().HandleProgress(ctx, "p1", event); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	job, _ := svc.Flow().GetJob(ctx, "p1")
	if job.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if job.ProgressStage != "narrative_draft_ready" {
		t.Errorf("stage = %q, want narrative_draft_ready", job.ProgressStage)
	}
	if len(job.Variants) != 0 {
		t.Errorf("draft completion created %d variants", len(job.Variants))
	}
}
