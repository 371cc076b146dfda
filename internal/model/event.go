package model

// ProgressEvent is the body of the inbound progress webhook posted by the
// external worker. Delivery is at-least-once and may be out of order:
// duplicates and stale events must be tolerated by the receiver.
type ProgressEvent struct {
	Status        JobStatus     `json:"status" validate:"required"`
	Progress      *int          `json:"progress,omitempty"`
	ProgressStage string        `json:"progressStage,omitempty"`
	Message       string        `json:"message,omitempty"`
	Details       *EventDetails `json:"details,omitempty"`
}

// EventDetails carries the kind-specific artifact payload of a
// completion or failure event.
type EventDetails struct {
	Error string `json:"error,omitempty"`
	Phase string `json:"phase,omitempty"`

	Clips    []ClipArtifact    `json:"clips,omitempty"`
	Variants []VariantArtifact `json:"variants,omitempty"`

	NarrativeKey string `json:"narrativeKey,omitempty"`
	QcReportKey  string `json:"qcReportKey,omitempty"`
	QcPassed     *bool  `json:"qcPassed,omitempty"`
}

// ClipArtifact is a clip as reported by the worker: storage keys only,
// resolved to streaming URLs exactly once at ingestion.
type ClipArtifact struct {
	Title      string  `json:"title,omitempty"`
	StorageKey string  `json:"storageKey"`
	StartSec   float64 `json:"startSec"`
	EndSec     float64 `json:"endSec"`
}

// VariantArtifact is a trailer variant as reported by the worker.
type VariantArtifact struct {
	Style       string  `json:"style,omitempty"`
	AspectRatio string  `json:"aspectRatio,omitempty"`
	StorageKey  string  `json:"storageKey"`
	CoverKey    string  `json:"coverKey,omitempty"`
	DurationSec float64 `json:"durationSec,omitempty"`
}
