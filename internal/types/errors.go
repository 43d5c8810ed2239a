package types

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the proxy boundary.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindFileTooLarge          Kind = "file_too_large"
	KindUnsupportedDocument   Kind = "unsupported_document"
	KindUploadRejected        Kind = "upload_rejected"
	KindJobCreationFailed     Kind = "job_creation_failed"
	KindPollingFailed         Kind = "polling_failed"
	KindPollingTimeout        Kind = "polling_timeout"
	KindProviderTranscription Kind = "provider_transcription"
	KindEmptyTranscription    Kind = "empty_transcription"
	KindCompletionProvider    Kind = "completion_provider"
	KindConfiguration         Kind = "configuration"
	KindInternal              Kind = "internal"
)

// Error is a classified failure. Message is safe to show to a caller;
// Err carries the detail that only goes to the logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error without an underlying cause.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the caller-safe message of err, or fallback when err
// is unclassified or internal.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Message != "" {
		return e.Message
	}
	return fallback
}
