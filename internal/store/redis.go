package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reelworks/mediagen/internal/model"
)

// RedisStore keeps each job as a Redis hash so that Update writes only
// the patched fields (HSET is last-write-wins per field, never a
// whole-record overwrite). Clips and variants live in side lists, and a
// per-kind sorted set scored by creation time backs List.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func jobKey(kind model.JobKind, projectID string) string {
	return fmt.Sprintf("mediagen:job:%s:%s", kind, projectID)
}

func childKey(kind model.JobKind, projectID, child string) string {
	return jobKey(kind, projectID) + ":" + child
}

func indexKey(kind model.JobKind) string {
	return fmt.Sprintf("mediagen:jobs:%s", kind)
}

func (s *RedisStore) Create(ctx context.Context, job *model.Job) error {
	key := jobKey(job.Kind, job.ProjectID)

	// HSETNX on the identity field claims the record exactly once.
	claimed, err := s.redis.HSetNX(ctx, key, "projectId", job.ProjectID).Result()
	if err != nil {
		return fmt.Errorf("claim job record: %w", err)
	}
	if !claimed {
		return ErrAlreadyExists
	}

	fields := map[string]interface{}{
		"kind":      string(job.Kind),
		"status":    string(job.Status),
		"progress":  job.Progress,
		"createdAt": job.CreatedAt.Format(time.RFC3339Nano),
	}
	if job.Title != "" {
		fields["title"] = job.Title
	}
	if job.SourceURL != "" {
		fields["sourceUrl"] = job.SourceURL
	}
	if job.QcRequestID != "" {
		fields["qcRequestId"] = job.QcRequestID
	}
	if job.RawMediaID != "" {
		fields["rawMediaId"] = job.RawMediaID
	}

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.ZAdd(ctx, indexKey(job.Kind), redis.Z{
		Score:  float64(job.CreatedAt.UnixMilli()),
		Member: job.ProjectID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write job record: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, kind model.JobKind, projectID string) (*model.Job, error) {
	fields, err := s.redis.HGetAll(ctx, jobKey(kind, projectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read job record: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	job, err := jobFromHash(kind, fields)
	if err != nil {
		return nil, err
	}

	if job.Clips, err = readClips(ctx, s.redis, kind, projectID); err != nil {
		return nil, err
	}
	if job.Variants, err = readVariants(ctx, s.redis, kind, projectID); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *RedisStore) Update(ctx context.Context, kind model.JobKind, projectID string, patch model.JobPatch) (*model.Job, error) {
	key := jobKey(kind, projectID)

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("check job record: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	fields := map[string]interface{}{}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if patch.Progress != nil {
		fields["progress"] = *patch.Progress
	}
	if patch.ProgressStage != nil {
		fields["progressStage"] = *patch.ProgressStage
	}
	if patch.Error != nil {
		fields["error"] = *patch.Error
	}
	if patch.StartedAt != nil {
		fields["startedAt"] = patch.StartedAt.Format(time.RFC3339Nano)
	}
	if patch.CompletedAt != nil {
		fields["completedAt"] = patch.CompletedAt.Format(time.RFC3339Nano)
	}
	if patch.Narrative != nil {
		fields["narrative"] = string(patch.Narrative)
	}
	if patch.QcRequestID != nil {
		fields["qcRequestId"] = *patch.QcRequestID
	}
	if patch.RawMediaID != nil {
		fields["rawMediaId"] = *patch.RawMediaID
	}
	if patch.QcReportURL != nil {
		fields["qcReportUrl"] = *patch.QcReportURL
	}

	pipe := s.redis.TxPipeline()
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
	}
	if patch.ClearError {
		pipe.HDel(ctx, key, "error")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("patch job record: %w", err)
	}

	return s.Get(ctx, kind, projectID)
}

func (s *RedisStore) List(ctx context.Context, kind model.JobKind, filter model.ListFilter, page, pageSize int) (*model.ListPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	// Newest first. With a filter we cannot offset into the index directly,
	// so walk it and count matches; fetch one row past the page to learn
	// whether a next page exists without a count query.
	ids, err := s.redis.ZRevRange(ctx, indexKey(kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read job index: %w", err)
	}

	skip := (page - 1) * pageSize
	want := pageSize + 1
	matched := 0
	items := make([]model.JobSummary, 0, pageSize)

	for _, id := range ids {
		fields, err := s.redis.HGetAll(ctx, jobKey(kind, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("read job record: %w", err)
		}
		if len(fields) == 0 {
			continue // index entry for an expired record
		}
		summary := summaryFromHash(id, fields)
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

func (s *RedisStore) AppendClip(ctx context.Context, kind model.JobKind, projectID string, clip model.Clip) error {
	data, err := json.Marshal(clip)
	if err != nil {
		return fmt.Errorf("marshal clip: %w", err)
	}
	return s.redis.RPush(ctx, childKey(kind, projectID, "clips"), data).Err()
}

func (s *RedisStore) AppendVariant(ctx context.Context, kind model.JobKind, projectID string, v model.Variant) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal variant: %w", err)
	}
	return s.redis.RPush(ctx, childKey(kind, projectID, "variants"), data).Err()
}

// Hash decoding helpers

func jobFromHash(kind model.JobKind, fields map[string]string) (*model.Job, error) {
	job := &model.Job{
		ProjectID:     fields["projectId"],
		Kind:          kind,
		Title:         fields["title"],
		Status:        model.JobStatus(fields["status"]),
		ProgressStage: fields["progressStage"],
		SourceURL:     fields["sourceUrl"],
		QcRequestID:   fields["qcRequestId"],
		RawMediaID:    fields["rawMediaId"],
		QcReportURL:   fields["qcReportUrl"],
	}
	if v, ok := fields["progress"]; ok {
		job.Progress, _ = strconv.Atoi(v)
	}
	if v, ok := fields["error"]; ok && v != "" {
		job.Error = &v
	}
	if v, ok := fields["narrative"]; ok && v != "" {
		job.Narrative = []byte(v)
	}
	var err error
	if job.CreatedAt, err = parseTime(fields["createdAt"]); err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ProjectID, err)
	}
	if v, ok := fields["startedAt"]; ok {
		t, err := parseTime(v)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.ProjectID, err)
		}
		job.StartedAt = &t
	}
	if v, ok := fields["completedAt"]; ok {
		t, err := parseTime(v)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.ProjectID, err)
		}
		job.CompletedAt = &t
	}
	return job, nil
}

func summaryFromHash(id string, fields map[string]string) model.JobSummary {
	progress, _ := strconv.Atoi(fields["progress"])
	createdAt, _ := parseTime(fields["createdAt"])
	return model.JobSummary{
		ProjectID: id,
		Title:     fields["title"],
		Status:    model.JobStatus(fields["status"]),
		Progress:  progress,
		CreatedAt: createdAt,
	}
}

func matchesFilter(s model.JobSummary, filter model.ListFilter) bool {
	if filter.Status != "" && s.Status != filter.Status {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(s.ProjectID), needle) &&
			!strings.Contains(strings.ToLower(s.Title), needle) {
			return false
		}
	}
	return true
}

func readClips(ctx context.Context, rdb *redis.Client, kind model.JobKind, projectID string) ([]model.Clip, error) {
	raw, err := rdb.LRange(ctx, childKey(kind, projectID, "clips"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read clips: %w", err)
	}
	var clips []model.Clip
	for _, item := range raw {
		var c model.Clip
		if err := json.Unmarshal([]byte(item), &c); err != nil {
			return nil, fmt.Errorf("unmarshal clip: %w", err)
		}
		clips = append(clips, c)
	}
	return clips, nil
}

func readVariants(ctx context.Context, rdb *redis.Client, kind model.JobKind, projectID string) ([]model.Variant, error) {
	raw, err := rdb.LRange(ctx, childKey(kind, projectID, "variants"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read variants: %w", err)
	}
	var variants []model.Variant
	for _, item := range raw {
		var v model.Variant
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, fmt.Errorf("unmarshal variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t, nil
}
