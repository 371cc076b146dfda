package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/reelworks/mediagen/internal/config"
	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/store"
)

// ClipExtractorService orchestrates highlight-clip extraction. Clip
// artifacts are served through the API's streaming proxy because the
// object store is not browser-addressable in this deployment.
type ClipExtractorService struct {
	flow    *Flow
	cfg     *config.ClipsConfig
	apiBase string
}

func NewClipExtractorService(jobStore store.JobStore, dispatcher dispatch.Dispatcher, cfg *config.Config) *ClipExtractorService {
	s := &ClipExtractorService{
		cfg:     &cfg.Clips,
		apiBase: strings.TrimRight(cfg.Internal.CallbackBaseURL, "/"),
	}
	s.flow = NewFlow(model.KindClipExtractor, jobStore, dispatcher, s, cfg.Internal.Secret, cfg.Internal.CallbackBaseURL, false)
	return s
}

func (s *ClipExtractorService) Flow() *Flow { return s.flow }

// CreateProject registers a clip-extraction project.
func (s *ClipExtractorService) CreateProject(ctx context.Context, req *model.CreateProjectRequest) (*model.Job, error) {
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

// StartExtraction dispatches the extraction run.
func (s *ClipExtractorService) StartExtraction(ctx context.Context, projectID string) (*model.Job, error) {
	return s.flow.Start(ctx, projectID, StartOptions{
		Params: map[string]any{
			"clipCount":      s.cfg.DefaultCount,
			"minDurationSec": s.cfg.MinDurationSec,
			"maxDurationSec": s.cfg.MaxDurationSec,
		},
	})
}

// StreamKey maps a proxy path back to the object-store key for one clip.
func (s *ClipExtractorService) StreamKey(projectID, fileName string) string {
	return fmt.Sprintf("%s/%s/clips/%s", model.KindClipExtractor.StoragePrefix(), projectID, fileName)
}

// BuildTaskMessage implements KindHooks.
func (s *ClipExtractorService) BuildTaskMessage(job *model.Job, opts StartOptions) (*dispatch.TaskMessage, error) {
	return s.flow.NewTaskMessage(job, opts)
}

// ApplyCompletion implements KindHooks: reported clip storage keys are
// resolved to proxy streaming URLs exactly once.
func (s *ClipExtractorService) ApplyCompletion(ctx context.Context, job *model.Job, details *model.EventDetails) (model.JobPatch, error) {
	patch := model.JobPatch{}
	if details == nil {
		return patch, nil
	}
	for _, artifact := range details.Clips {
		clip := model.Clip{
			ClipID:     uuid.New().String(),
			Title:      artifact.Title,
			StorageKey: artifact.StorageKey,
			StreamURL: fmt.Sprintf("%s/%s/stream/%s/%s",
				s.apiBase, model.KindClipExtractor, job.ProjectID, path.Base(artifact.StorageKey)),
			StartSec: artifact.StartSec,
			EndSec:   artifact.EndSec,
		}
		if err := s.flow.store.AppendClip(ctx, model.KindClipExtractor, job.ProjectID, clip); err != nil {
			return patch, err
		}
	}
	return patch, nil
}
