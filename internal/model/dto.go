package model

import "time"

// CreateProjectRequest is the body for POST /{kind}/project.
type CreateProjectRequest struct {
	ProjectID string `json:"projectId" validate:"omitempty,min=3,max=128"`
	Title     string `json:"title" validate:"omitempty,max=256"`
	SourceURL string `json:"sourceUrl" validate:"required,url"`
	// RawMediaID correlates a video-qc project with the upload it checks.
	RawMediaID string `json:"rawMediaId" validate:"omitempty,max=128"`
}

// CreateProjectResponse is returned by POST /{kind}/project.
type CreateProjectResponse struct {
	ProjectID string    `json:"projectId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// StartResponse is returned by the start endpoints
// (generate / extract / initiate).
type StartResponse struct {
	ProjectID string    `json:"projectId"`
	Status    JobStatus `json:"status"`
	Message   string    `json:"message,omitempty"`
}

// StatusResponse is the polling read. Clients poll while Status is
// non-terminal and stop the instant a terminal status is observed.
type StatusResponse struct {
	ProjectID     string    `json:"projectId"`
	Status        JobStatus `json:"status"`
	Progress      int       `json:"progress"`
	ProgressStage string    `json:"progressStage,omitempty"`
	Error         *string   `json:"error,omitempty"`
}

// JobSummary is one row of a project listing.
type JobSummary struct {
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title,omitempty"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListPage is a page of job summaries. NextPageAvailable is computed by
// fetching one row past the page size, not by a separate count.
type ListPage struct {
	Items             []JobSummary `json:"items"`
	Page              int          `json:"page"`
	NextPageAvailable bool         `json:"nextPageAvailable"`
}

// ListFilter narrows a listing.
type ListFilter struct {
	Search string
	Status JobStatus
}

// DraftNarrativeRequest is the body for POST /trailer/draft-narrative.
type DraftNarrativeRequest struct {
	ProjectID   string `json:"projectId" validate:"required"`
	Style       string `json:"style" validate:"omitempty,max=64"`
	DurationSec int    `json:"durationSec" validate:"omitempty,min=10,max=300"`
	Tone        string `json:"tone" validate:"omitempty,max=64"`
}

// ApproveNarrativeRequest is the body for POST /trailer/approve-narrative.
type ApproveNarrativeRequest struct {
	ProjectID string         `json:"projectId" validate:"required"`
	Narrative map[string]any `json:"narrative" validate:"required"`
}

// NarrativeStatusResponse reflects the trailer draft sub-phase. The
// "ready" status is derived from draft-artifact existence, never stored.
type NarrativeStatusResponse struct {
	ProjectID string  `json:"projectId"`
	Status    string  `json:"status"`
	Phase     string  `json:"phase,omitempty"`
	Progress  int     `json:"progress,omitempty"`
	Error     *string `json:"error,omitempty"`
}

// Narrative sub-phase labels.
const (
	NarrativePhaseDraft = "narrative_draft"

	NarrativeStatusReady = "ready"
)
