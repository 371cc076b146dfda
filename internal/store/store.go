package store

import (
	"context"
	"errors"

	"github.com/reelworks/mediagen/internal/model"
)

var (
	// ErrNotFound is returned when no job exists for the given kind and project id.
	ErrNotFound = errors.New("job not found")
	// ErrAlreadyExists is returned by Create when the project id is already taken
	// for that kind. Callers that want idempotent creation catch it and re-Get.
	ErrAlreadyExists = errors.New("job already exists")
)

// JobStore is durable storage for job records, addressed by kind and
// project id. Updates are field-level merge patches: unspecified fields
// are untouched, so concurrent writers to different fields never lose
// each other's writes. Child records (clips, variants) are append-only
// and are not deduplicated here; duplicate webhook delivery is filtered
// by the ingestion layer before it appends.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, kind model.JobKind, projectID string) (*model.Job, error)
	Update(ctx context.Context, kind model.JobKind, projectID string, patch model.JobPatch) (*model.Job, error)
	List(ctx context.Context, kind model.JobKind, filter model.ListFilter, page, pageSize int) (*model.ListPage, error)
	AppendClip(ctx context.Context, kind model.JobKind, projectID string, clip model.Clip) error
	AppendVariant(ctx context.Context, kind model.JobKind, projectID string, v model.Variant) error
}
