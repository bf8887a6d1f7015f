package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the acquisition pipeline. Callers match with errors.Is.
var (
	// ErrUnresolvable means the URL could not be mapped to an identifier.
	// Not retryable, the caller must fix the input.
	ErrUnresolvable = errors.New("url unresolvable")

	// ErrExtractionFailed means every download strategy was exhausted.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrArtifactMissing means the tool reported success but no file was
	// found on disk. Treated by callers the same as ErrExtractionFailed.
	ErrArtifactMissing = errors.New("artifact missing after download")

	// ErrDurationExceeded means the downloaded media is longer than the
	// configured maximum. The artifact has already been deleted.
	ErrDurationExceeded = errors.New("media duration exceeds maximum")

	// ErrTranscodeFailed means ffmpeg exited non-zero during cut or
	// audio extraction. Never retried.
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrNotFound means the requested media record does not exist.
	ErrNotFound = errors.New("media item not found")
)

// PipelineError wraps a pipeline failure with the rendered command line
// that produced it, so operators can re-run the exact invocation.
type PipelineError struct {
	Kind    error  // one of the sentinel errors above
	Command string // shell-escaped command line, empty if no tool was involved
	Err     error  // underlying cause
}

func (e *PipelineError) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Command != "" {
		msg = fmt.Sprintf("%s (command: %s)", msg, e.Command)
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Kind
}

// NewPipelineError creates a PipelineError for the given kind.
func NewPipelineError(kind error, command string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Command: command, Err: err}
}

// FailingCommand extracts the rendered command line from an error chain,
// or returns an empty string if none was recorded.
func FailingCommand(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Command
	}
	return ""
}
