package model

import "time"

// JobKind identifies one of the media-generation pipelines.
type JobKind string

const (
	KindTrailer       JobKind = "trailer"
	KindClipExtractor JobKind = "clip-extractor"
	KindVideoQc       JobKind = "video-qc"
)

var ValidKinds = []JobKind{KindTrailer, KindClipExtractor, KindVideoQc}

// StoragePrefix returns the object-store prefix artifacts of this kind live under.
func (k JobKind) StoragePrefix() string {
	switch k {
	case KindTrailer:
		return "ai-trailer"
	case KindClipExtractor:
		return "clip-extractor"
	case KindVideoQc:
		return "video-qc"
	}
	return string(k)
}

// Valid reports whether k is one of the known kinds.
func (k JobKind) Valid() bool {
	for _, v := range ValidKinds {
		if k == v {
			return true
		}
	}
	return false
}

// JobStatus is the closed status vocabulary shared by all job kinds.
// Stored records normalize terminal states to completed/failed; the
// processing-* synonyms appear on inbound worker events and are accepted
// anywhere a status is parsed.
type JobStatus string

const (
	StatusIdle             JobStatus = "idle"
	StatusProcessing       JobStatus = "processing"
	StatusCompleted        JobStatus = "completed"
	StatusFailed           JobStatus = "failed"
	StatusProcessingDone   JobStatus = "processing-complete"
	StatusProcessingFailed JobStatus = "processing-failed"
)

// IsTerminal reports whether s is a state no automatic transition leaves.
// Polling clients stop the moment they observe a terminal status.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusProcessingDone, StatusProcessingFailed:
		return true
	}
	return false
}

// IsCompletion reports whether s signals successful completion.
func (s JobStatus) IsCompletion() bool {
	return s == StatusCompleted || s == StatusProcessingDone
}

// IsFailure reports whether s signals failure.
func (s JobStatus) IsFailure() bool {
	return s == StatusFailed || s == StatusProcessingFailed
}

// Job is one unit of asynchronous media-generation work, identified by
// its externally visible ProjectID. The common fields are shared across
// kinds; Clips, Variants, Narrative and the Qc fields are kind payloads.
type Job struct {
	ProjectID     string     `json:"projectId"`
	Kind          JobKind    `json:"kind"`
	Title         string     `json:"title,omitempty"`
	Status        JobStatus  `json:"status"`
	Progress      int        `json:"progress"`
	ProgressStage string     `json:"progressStage,omitempty"`
	Error         *string    `json:"error,omitempty"`
	SourceURL     string     `json:"sourceUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`

	// Kind-specific payloads.
	Clips     []Clip    `json:"clips,omitempty"`
	Variants  []Variant `json:"variants,omitempty"`
	Narrative []byte    `json:"narrative,omitempty"`

	QcRequestID string `json:"qcRequestId,omitempty"`
	RawMediaID  string `json:"rawMediaId,omitempty"`
	QcReportURL string `json:"qcReportUrl,omitempty"`
}

// Clip is a finished extracted clip. Appended once at completion, never
// mutated afterwards.
type Clip struct {
	ClipID     string  `json:"clipId"`
	Title      string  `json:"title,omitempty"`
	StorageKey string  `json:"storageKey"`
	StreamURL  string  `json:"streamUrl"`
	StartSec   float64 `json:"startSec"`
	EndSec     float64 `json:"endSec"`
}

// Variant is a finished generated trailer asset tied to a completed
// project. Appended once at completion, never mutated afterwards.
type Variant struct {
	VariantID   string  `json:"variantId"`
	Style       string  `json:"style,omitempty"`
	AspectRatio string  `json:"aspectRatio,omitempty"`
	StorageKey  string  `json:"storageKey"`
	StreamURL   string  `json:"streamUrl"`
	CoverURL    string  `json:"coverUrl,omitempty"`
	DurationSec float64 `json:"durationSec,omitempty"`
}

// JobPatch is a field-level merge patch. Nil fields are untouched by the
// store; concurrent patches to different fields never clobber each other.
type JobPatch struct {
	Status        *JobStatus
	Progress      *int
	ProgressStage *string
	Error         *string
	ClearError    bool
	StartedAt     *time.Time
	CompletedAt   *time.Time
	Narrative     []byte
	QcRequestID   *string
	RawMediaID    *string
	QcReportURL   *string
}

// StatusPtr is a convenience for building patches.
func StatusPtr(s JobStatus) *JobStatus { return &s }

// IntPtr is a convenience for building patches.
func IntPtr(i int) *int { return &i }

// StrPtr is a convenience for building patches.
func StrPtr(s string) *string { return &s }

// TimePtr is a convenience for building patches.
func TimePtr(t time.Time) *time.Time { return &t }
