package pipeline

import "time"

// FileUpload is one file in an upload request. Data holds the raw
// upload bytes; nothing is read from disk inside the workflow.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadMetadata travels with the request and is attached unchanged to
// every design record the session creates.
type UploadMetadata struct {
	TemplateName string
	CanvasID     string
	SizeIDs      []string
	IsDigital    bool
}

// Request describes one bulk upload session.
type Request struct {
	// SessionID is optional; a UUID is assigned when empty.
	SessionID string
	OwnerID   string
	// ShopID scopes signature uniqueness to the shop when set;
	// otherwise the owner is the scope.
	ShopID   string
	Metadata UploadMetadata
	Files    []FileUpload
}

// Per-file outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
	// OutcomeSkipped marks files whose batch never started because the
	// session was cancelled first.
	OutcomeSkipped = "skipped"
)

// Session statuses. Every run ends in exactly one of the terminal
// three.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Processing modes reported on the result.
const (
	ModeBatch      = "batch"
	ModeSequential = "sequential"
)

// FileResult reports the outcome for a single file.
type FileResult struct {
	Filename    string
	Outcome     string
	DesignID    string // set when accepted
	DuplicateOf string // set when a session-local duplicate names its match
	Error       string // set when the outcome is error
}

// Result is the definite summary every run produces.
type Result struct {
	SessionID   string
	Status      string
	Mode        string
	CreatedIDs  []string
	Accepted    int
	Duplicates  int
	Failed      int
	Skipped     int
	FileResults []FileResult
	BundlePath  string
	Elapsed     time.Duration
}
