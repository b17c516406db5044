package jobs

// Status represents the lifecycle of a transcoding job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether the status is one of the known lifecycle values.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether no further transition is expected. A full poll
// refresh may still rewrite a terminal job with the server's record.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// FileInfo describes the source file attached to a job. Immutable once set.
type FileInfo struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Path      string `json:"path,omitempty"`
	S3Key     string `json:"s3_key,omitempty"`
}

// ProbeResult carries media inspection data, present once the server has
// probed the source file.
type ProbeResult struct {
	DurationSeconds float64 `json:"duration_seconds"`
	VideoCodec      string  `json:"video_codec"`
	AudioCodec      string  `json:"audio_codec"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameCount      int     `json:"frame_count"`
	FrameRate       float64 `json:"frame_rate"`
}

// TranscodeResult carries the outcome of processing. An empty Error means the
// transcode succeeded.
type TranscodeResult struct {
	OutputPath      string  `json:"output_path,omitempty"`
	OutputSizeBytes int64   `json:"output_size_bytes"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error"`
	OutputS3Key     string  `json:"output_s3_key"`
}

// Job is one transcoding task tracked from upload detection to its terminal
// outcome. ID is server-assigned and immutable for the job's lifetime.
type Job struct {
	ID                string           `json:"id"`
	Status            Status           `json:"status"`
	File              FileInfo         `json:"file"`
	CreatedAt         Timestamp        `json:"created_at"`
	StartedAt         *Timestamp       `json:"started_at,omitempty"`
	CompletedAt       *Timestamp       `json:"completed_at,omitempty"`
	Progress          float64          `json:"progress"`
	Probe             *ProbeResult     `json:"probe,omitempty"`
	Result            *TranscodeResult `json:"result,omitempty"`
	TelegramMessageID *int64           `json:"telegram_message_id,omitempty"`
}

// PendingApproval reports whether the job is waiting for a convert or skip
// decision.
func (j Job) PendingApproval() bool {
	return j.Status == StatusPending
}

// Terminal reports whether the job reached a terminal status.
func (j Job) Terminal() bool {
	return j.Status.Terminal()
}
