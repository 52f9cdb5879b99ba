package schemas

import "time"

// JobState represents the current state of a job
type JobState string

const (
	JobStatePending           JobState = "pending"
	JobStatePlanning          JobState = "planning"
	JobStateDownloadingInputs JobState = "downloading_inputs"
	JobStateProcessing        JobState = "processing"
	JobStateUploadingOutputs  JobState = "uploading_outputs"
	JobStateCompleted         JobState = "completed"
	JobStateFailed            JobState = "failed"
	JobStateCancelled         JobState = "cancelled"
)

// Terminal reports whether no further transitions happen from s.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed || s == JobStateCancelled
}

// JobStatus represents real-time job status
type JobStatus struct {
	JobID       string          `json:"job_id"`
	Status      JobState        `json:"status"`
	Progress    *Progress       `json:"progress,omitempty"`
	Error       *ErrorInfo      `json:"error,omitempty"`
	Plan        *ProcessingPlan `json:"plan,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	OutputFiles []OutputFile    `json:"output_files,omitempty"`
}

// Progress represents job progress information
type Progress struct {
	OverallPercent float64         `json:"overall_percent"`
	CurrentStep    string          `json:"current_step"`
	FFmpeg         *FFmpegProgress `json:"ffmpeg,omitempty"`
}

// FFmpegProgress is the latest progress report of the running ffmpeg.
type FFmpegProgress struct {
	Frame       int64         `json:"frame"`
	FPS         float64       `json:"fps"`
	CurrentTime time.Duration `json:"current_time"`
	TotalTime   time.Duration `json:"total_time,omitempty"`
	Speed       float64       `json:"speed"`
	Bitrate     string        `json:"bitrate,omitempty"`
	TotalSize   int64         `json:"total_size"`
	Done        bool          `json:"done"`
}

// OutputFile contains information about an output file
type OutputFile struct {
	OutputID    string `json:"output_id"`
	Destination string `json:"destination"`
	FileSize    int64  `json:"file_size"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	FFmpegStderr   string `json:"ffmpeg_stderr,omitempty"`
	FFmpegExitCode int    `json:"ffmpeg_exit_code,omitempty"`
	Retryable      bool   `json:"retryable"`
}
