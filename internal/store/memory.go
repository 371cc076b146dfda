package store

import (
	"context"
	"sort"
	"sync"

	"github.com/reelworks/mediagen/internal/model"
)

// MemoryStore is an in-process JobStore with the same merge-patch
// semantics as RedisStore. Used by tests and storage-less development.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.Job)}
}

func memKey(kind model.JobKind, projectID string) string {
	return string(kind) + "/" + projectID
}

func (s *MemoryStore) Create(ctx context.Context, job *model.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(job.Kind, job.ProjectID)
	if _, exists := s.jobs[key]; exists {
		return ErrAlreadyExists
	}
	cp := cloneJob(job)
	s.jobs[key] = cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, kind model.JobKind, projectID string) (*model.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[memKey(kind, projectID)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) Update(ctx context.Context, kind model.JobKind, projectID string, patch model.JobPatch) (*model.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[memKey(kind, projectID)]
	if !ok {
		return nil, ErrNotFound
	}

	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.ProgressStage != nil {
		job.ProgressStage = *patch.ProgressStage
	}
	if patch.Error != nil {
		v := *patch.Error
		job.Error = &v
	}
	if patch.ClearError {
		job.Error = nil
	}
	if patch.StartedAt != nil {
		t := *patch.StartedAt
		job.StartedAt = &t
	}
	if patch.CompletedAt != nil {
		t := *patch.CompletedAt
		job.CompletedAt = &t
	}
	if patch.Narrative != nil {
		job.Narrative = append([]byte(nil), patch.Narrative...)
	}
	if patch.QcRequestID != nil {
		job.QcRequestID = *patch.QcRequestID
	}
	if patch.RawMediaID != nil {
		job.RawMediaID = *patch.RawMediaID
	}
	if patch.QcReportURL != nil {
		job.QcReportURL = *patch.QcReportURL
	}

	return cloneJob(job), nil
}

func (s *MemoryStore) List(ctx context.Context, kind model.JobKind, filter model.ListFilter, page, pageSize int) (*model.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	// Snapshot summaries under the lock: the stored structs are mutated
	// in place by Update and must not be read unlocked.
	s.mu.RLock()
	var all []model.JobSummary
	for _, job := range s.jobs {
		if job.Kind != kind {
			continue
		}
		all = append(all, model.JobSummary{
			ProjectID: job.ProjectID,
			Title:     job.Title,
			Status:    job.Status,
			Progress:  job.Progress,
			CreatedAt: job.CreatedAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	skip := (page - 1) * pageSize
	want := pageSize + 1
	matched := 0
	items := make([]model.JobSummary, 0, pageSize)
	for _, summary := range all {
		if !matchesFilter(summary, filter) {
			continue
		}
		matched++
		if matched <= skip {
			continue
		}
		items = append(items, summary)
		if len(items) == want {
			break
		}
	}

	next := len(items) > pageSize
	if next {
		items = items[:pageSize]
	}
	return &model.ListPage{Items: items, Page: page, NextPageAvailable: next}, nil
}

func (s *MemoryStore) AppendClip(ctx context.Context, kind model.JobKind, projectID string, clip model.Clip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[memKey(kind, projectID)]
	if !ok {
		return ErrNotFound
	}
	job.Clips = append(job.Clips, clip)
	return nil
}

func (s *MemoryStore) AppendVariant(ctx context.Context, kind model.JobKind, projectID string, v model.Variant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[memKey(kind, projectID)]
	if !ok {
		return ErrNotFound
	}
	job.Variants = append(job.Variants, v)
	return nil
}

// cloneJob returns a defensive copy so callers cannot mutate stored state.
func cloneJob(job *model.Job) *model.Job {
	cp := *job
	if job.Error != nil {
		v := *job.Error
		cp.Error = &v
	}
	if job.StartedAt != nil {
		t := *job.StartedAt
		cp.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		cp.CompletedAt = &t
	}
	cp.Clips = append([]model.Clip(nil), job.Clips...)
	cp.Variants = append([]model.Variant(nil), job.Variants...)
	cp.Narrative = append([]byte(nil), job.Narrative...)
	return &cp
}
