package domain

import "time"

// VideoReference is a video page URL plus the identifier resolved from it.
type VideoReference struct {
	URL string `json:"url"`
	ID  string `json:"video_id"`
}

// RunStatus is the raw status string reported by the transcript job service.
type RunStatus string

const (
	RunStatusReady     RunStatus = "READY"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusAborting  RunStatus = "ABORTING"
	RunStatusAborted   RunStatus = "ABORTED"
	RunStatusTimingOut RunStatus = "TIMING-OUT"
	RunStatusTimedOut  RunStatus = "TIMED-OUT"
)

// JobState is the client-side view of a job run.
type JobState int

const (
	JobPending JobState = iota
	JobSucceeded
	JobFailed
	JobTimedOut
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	case JobTimedOut:
		return "timed-out"
	default:
		return "unknown"
	}
}

// Terminal reports whether polling must stop once this state is observed.
func (s JobState) Terminal() bool {
	return s != JobPending
}

// State classifies a raw service status. Unknown and transitional
// statuses (ABORTING, TIMING-OUT) stay pending.
func (s RunStatus) State() JobState {
	switch s {
	case RunStatusSucceeded:
		return JobSucceeded
	case RunStatusFailed, RunStatusAborted:
		return JobFailed
	case RunStatusTimedOut:
		return JobTimedOut
	default:
		return JobPending
	}
}

// TranscriptRecord is the text extracted for one video.
type TranscriptRecord struct {
	Text    string `json:"-"`
	Title   string `json:"title,omitempty"`
	Channel string `json:"channel,omitempty"`
	Source  string `json:"source"` // "apify" or "ytdlp"
}

// FileState is the processing state of an uploaded artifact.
type FileState string

const (
	FileStateUnspecified FileState = "STATE_UNSPECIFIED"
	FileStateProcessing  FileState = "PROCESSING"
	FileStateActive      FileState = "ACTIVE"
	FileStateFailed      FileState = "FAILED"
)

// ArtifactReference points at an uploaded transcript inside the ingestion
// service. URI is what later questions reference.
type ArtifactReference struct {
	Name  string    `json:"name"`
	URI   string    `json:"uri"`
	State FileState `json:"state"`
}

// IndexResult holds the outcome of one index operation.
type IndexResult struct {
	OperationID string            `json:"operation_id"`
	Video       VideoReference    `json:"video"`
	Transcript  TranscriptRecord  `json:"transcript"`
	Artifact    ArtifactReference `json:"artifact"`
	CompletedAt time.Time         `json:"completed_at"`
}
