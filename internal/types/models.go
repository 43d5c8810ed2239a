package types

import "io"

// Mode selects how an upload is turned into text.
type Mode string

const (
	ModeMedia    Mode = "media"
	ModeDocument Mode = "document"
)

const DefaultLanguage = "it"

// UploadRequest is one user-submitted file. File must be rewindable so a
// retried upload can resend it from the start.
type UploadRequest struct {
	File        io.ReadSeeker
	Size        int64
	FileName    string
	ContentType string
	Language    string
	Mode        Mode
}

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobError      JobStatus = "error"
)

// Terminal reports whether no further transitions happen after s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError
}

// Job is the provider-side view of a transcription as observed by polling.
type Job struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	Text   string    `json:"text,omitempty"`
	Error  string    `json:"error,omitempty"`
}

type TranscriptionResult struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription,omitempty"`
	FileName      string `json:"fileName,omitempty"`
	LanguageCode  string `json:"languageCode,omitempty"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"-"`
}
