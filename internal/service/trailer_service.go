package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/reelworks/mediagen/internal/client"
	"github.com/reelworks/mediagen/internal/config"
	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/store"
)

// signedURLTTL is how long resolved variant URLs stay fetchable. Variant
// URLs are resolved once, at completion ingestion.
const signedURLTTL = 7 * 24 * time.Hour

// TrailerService orchestrates the AI trailer pipeline, including the
// two-phase narrative workflow: a draft run produces a narrative
// artifact in object storage, a human approves it, and the approved
// narrative drives the video-generation run. "Ready for approval" is
// never stored — it is the observation that the draft artifact exists
// for a project with no variants yet.
type TrailerService struct {
	flow    *Flow
	storage client.StorageClient
	cfg     *config.TrailerConfig
}

func NewTrailerService(jobStore store.JobStore, dispatcher dispatch.Dispatcher, storage client.StorageClient, cfg *config.Config) *TrailerService {
	s := &TrailerService{
		storage: storage,
		cfg:     &cfg.Trailer,
	}
	s.flow = NewFlow(model.KindTrailer, jobStore, dispatcher, s, cfg.Internal.Secret, cfg.Internal.CallbackBaseURL, true)
	return s
}

func (s *TrailerService) Flow() *Flow { return s.flow }

// CreateProject registers a trailer project. Re-issuing create with the
// same project id returns the existing record.
func (s *TrailerService) CreateProject(ctx context.Context, req *model.CreateProjectRequest) (*model.Job, error) {
	projectID := req.ProjectID
	if projectID == "" {
		projectID = uuid.New().String()
	}
	return s.flow.CreateProject(ctx, &model.Job{
		ProjectID: projectID,
		Title:     req.Title,
		SourceURL: req.SourceURL,
	})
}

// Generate starts the full trailer run (narrative + videos in one pass).
func (s *TrailerService) Generate(ctx context.Context, projectID string) (*model.Job, error) {
	return s.flow.Start(ctx, projectID, StartOptions{
		WorkflowMode:   dispatch.WorkflowModeStandard,
		GenerateVideos: true,
		Params:         s.defaultParams(),
	})
}

// DraftNarrative starts the draft sub-phase: the worker writes the
// narrative artifact but does not generate videos.
func (s *TrailerService) DraftNarrative(ctx context.Context, req *model.DraftNarrativeRequest) (*model.Job, error) {
	params := s.defaultParams()
	if req.Style != "" {
		params["style"] = req.Style
	}
	if req.DurationSec > 0 {
		params["durationSec"] = req.DurationSec
	}
	if req.Tone != "" {
		params["tone"] = req.Tone
	}
	return s.flow.Start(ctx, req.ProjectID, StartOptions{
		WorkflowMode:   dispatch.WorkflowModeDraft,
		GenerateVideos: false,
		Params:         params,
		Stage:          "drafting_narrative",
	})
}

// ApproveNarrative attaches the approved narrative to the job record and
// re-dispatches the standard workflow. Valid only once the draft
// artifact exists.
func (s *TrailerService) ApproveNarrative(ctx context.Context, req *model.ApproveNarrativeRequest) (*model.Job, error) {
	ready, err := s.storage.Exists(ctx, s.draftKey(req.ProjectID))
	if err != nil {
		return nil, fmt.Errorf("check draft artifact: %w", err)
	}
	if !ready {
		return nil, ErrDraftNotReady
	}

	narrative, err := json.Marshal(req.Narrative)
	if err != nil {
		return nil, fmt.Errorf("marshal approved narrative: %w", err)
	}
	if _, err := s.flow.store.Update(ctx, model.KindTrailer, req.ProjectID, model.JobPatch{
		Narrative: narrative,
	}); err != nil {
		return nil, err
	}

	params := s.defaultParams()
	params["approvedNarrative"] = req.Narrative
	return s.flow.Start(ctx, req.ProjectID, StartOptions{
		WorkflowMode:   dispatch.WorkflowModeStandard,
		GenerateVideos: true,
		Params:         params,
		Stage:          "narrative_approved",
	})
}

// GetNarrative returns the draft artifact content.
func (s *TrailerService) GetNarrative(ctx context.Context, projectID string) ([]byte, error) {
	if _, err := s.flow.GetJob(ctx, projectID); err != nil {
		return nil, err
	}
	body, err := s.storage.Download(ctx, s.draftKey(projectID))
	if err != nil {
		return nil, ErrDraftNotReady
	}
	defer body.Close()

	var buf json.RawMessage
	if err := json.NewDecoder(body).Decode(&buf); err != nil {
		return nil, fmt.Errorf("decode draft narrative: %w", err)
	}
	return buf, nil
}

// NarrativeStatus reports the draft sub-phase. Artifact existence takes
// precedence over the job record: the draft is ready the moment the file
// appears, without any extra status write racing the upload.
func (s *TrailerService) NarrativeStatus(ctx context.Context, projectID string) (*model.NarrativeStatusResponse, error) {
	job, err := s.flow.GetJob(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ready, err := s.storage.Exists(ctx, s.draftKey(projectID))
	if err != nil {
		log.Printf("[trailer] draft existence check for %s failed: %v", projectID, err)
	}
	if ready && len(job.Variants) == 0 && !job.Status.IsFailure() {
		return &model.NarrativeStatusResponse{
			ProjectID: projectID,
			Status:    model.NarrativeStatusReady,
			Phase:     model.NarrativePhaseDraft,
		}, nil
	}

	return &model.NarrativeStatusResponse{
		ProjectID: projectID,
		Status:    string(job.Status),
		Progress:  job.Progress,
		Error:     job.Error,
	}, nil
}

func (s *TrailerService) draftKey(projectID string) string {
	return fmt.Sprintf("%s/%s/narratives/narrative_draft.json", model.KindTrailer.StoragePrefix(), projectID)
}

func (s *TrailerService) defaultParams() map[string]any {
	return map[string]any{
		"style":        s.cfg.DefaultStyle,
		"durationSec":  s.cfg.DefaultDurationSec,
		"aspectRatios": s.cfg.AspectRatios,
	}
}

// BuildTaskMessage implements KindHooks.
func (s *TrailerService) BuildTaskMessage(job *model.Job, opts StartOptions) (*dispatch.TaskMessage, error) {
	return s.flow.NewTaskMessage(job, opts)
}

// ApplyCompletion implements KindHooks. A draft-phase completion carries
// no variants; a standard completion's variant storage keys are resolved
// to signed streaming URLs exactly once, here.
func (s *TrailerService) ApplyCompletion(ctx context.Context, job *model.Job, details *model.EventDetails) (model.JobPatch, error) {
	patch := model.JobPatch{}
	if details == nil {
		return patch, nil
	}
	if details.Phase == model.NarrativePhaseDraft {
		stage := "narrative_draft_ready"
		patch.ProgressStage = &stage
		return patch, nil
	}

	for _, artifact := range details.Variants {
		streamURL, err := s.storage.GetSignedURL(ctx, artifact.StorageKey, signedURLTTL)
		if err != nil {
			return patch, fmt.Errorf("sign variant %s: %w", artifact.StorageKey, err)
		}
		variant := model.Variant{
			VariantID:   uuid.New().String(),
			Style:       artifact.Style,
			AspectRatio: artifact.AspectRatio,
			StorageKey:  artifact.StorageKey,
			StreamURL:   streamURL,
			DurationSec: artifact.DurationSec,
		}
		if artifact.CoverKey != "" {
			variant.CoverURL = s.storage.GetPublicURL(artifact.CoverKey)
		}
		if err := s.flow.store.AppendVariant(ctx, model.KindTrailer, job.ProjectID, variant); err != nil {
			return patch, err
		}
	}
	return patch, nil
}
