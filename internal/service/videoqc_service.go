package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/reelworks/mediagen/internal/client"
	"github.com/reelworks/mediagen/internal/config"
	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/store"
)

// VideoQcService orchestrates automated QC runs over raw uploaded media.
type VideoQcService struct {
	flow    *Flow
	storage client.StorageClient
}

func NewVideoQcService(jobStore store.JobStore, dispatcher dispatch.Dispatcher, storage client.StorageClient, cfg *config.Config) *VideoQcService {
	s := &VideoQcService{storage: storage}
	s.flow = NewFlow(model.KindVideoQc, jobStore, dispatcher, s, cfg.Internal.Secret, cfg.Internal.CallbackBaseURL, false)
	return s
}

func (s *VideoQcService) Flow() *Flow { return s.flow }

// CreateProject registers a QC project. Each record gets its own QC
// request id, which downstream systems use to correlate reports.
func (s *VideoQcService) CreateProject(ctx context.Context, req *model.CreateProjectRequest) (*model.Job, error) {
	projectID := req.ProjectID
	if projectID == "" {
		projectID = uuid.New().String()
	}
	return s.flow.CreateProject(ctx, &model.Job{
		ProjectID:   projectID,
		Title:       req.Title,
		SourceURL:   req.SourceURL,
		QcRequestID: uuid.New().String(),
		RawMediaID:  req.RawMediaID,
	})
}

// Initiate dispatches the QC run.
func (s *VideoQcService) Initiate(ctx context.Context, projectID string) (*model.Job, error) {
	job, err := s.flow.GetJob(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.flow.Start(ctx, projectID, StartOptions{
		Params: map[string]any{
			"qcRequestId": job.QcRequestID,
			"rawMediaId":  job.RawMediaID,
		},
	})
}

// BuildTaskMessage implements KindHooks.
func (s *VideoQcService) BuildTaskMessage(job *model.Job, opts StartOptions) (*dispatch.TaskMessage, error) {
	return s.flow.NewTaskMessage(job, opts)
}

// ApplyCompletion implements KindHooks: the QC report key is resolved to
// a fetchable URL on the record.
func (s *VideoQcService) ApplyCompletion(ctx context.Context, job *model.Job, details *model.EventDetails) (model.JobPatch, error) {
	patch := model.JobPatch{}
	if details == nil {
		return patch, nil
	}
	if details.QcReportKey != "" {
		url := s.storage.GetPublicURL(details.QcReportKey)
		patch.QcReportURL = &url
	}
	if details.QcPassed != nil {
		stage := "qc_passed"
		if !*details.QcPassed {
			stage = "qc_flagged"
		}
		patch.ProgressStage = &stage
	}
	return patch, nil
}
