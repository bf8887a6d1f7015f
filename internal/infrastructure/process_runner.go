package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrorClass classifies a failed process exit
type ErrorClass int

const (
	// NotRetryable means the failure will not go away on an unmodified retry
	NotRetryable ErrorClass = iota
	// TransientFileLock means another process momentarily held a file;
	// an unmodified retry is likely to succeed
	TransientFileLock
)

// transientSignatures are substrings of tool error output that indicate a
// transient file-lock condition, across platforms. Substring heuristics
// are fragile, so this table is the single point of change.
var transientSignatures = []string{
	"being used by another process",
	"the process cannot access the file",
	"access is denied",
	"resource temporarily unavailable",
	"text file busy",
	"resource busy or locked",
}

// ClassifyProcessOutput classifies captured error output into an ErrorClass
func ClassifyProcessOutput(errorOutput string) ErrorClass {
	lower := strings.ToLower(errorOutput)
	for _, sig := range transientSignatures {
		if strings.Contains(lower, sig) {
			return TransientFileLock
		}
	}
	return NotRetryable
}

// ProcessError carries a failed command's exit code, captured error
// output, and the rendered command line for diagnosis
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("command failed (exit %d): %s: %s", e.ExitCode, e.Command, tail(e.Stderr, 500))
}

// ProcessRunner executes external commands with a bounded retry policy
// for transient file-lock failures
type ProcessRunner struct {
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

// NewProcessRunner creates a new process runner
func NewProcessRunner(maxAttempts int, retryDelay time.Duration, logger *zap.Logger) *ProcessRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ProcessRunner{
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// Run executes the command, retrying up to maxAttempts times when the
// failure classifies as a transient file lock. It returns captured
// stdout on success. Arguments are passed straight to the process, so
// shell metacharacters are never re-interpreted; the escaped command
// line exists only for logs and errors.
func (r *ProcessRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmdLine := ShellEscapeCommand(name, args...)

	var lastErr *ProcessError
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		r.logger.Info("Running command",
			zap.String("command", cmdLine),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.maxAttempts))

		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		if err == nil {
			r.logger.Info("Command succeeded",
				zap.String("binary", name),
				zap.Int("attempt", attempt))
			return stdout.String(), nil
		}

		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}

		lastErr = &ProcessError{
			Command:  cmdLine,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
		}

		class := ClassifyProcessOutput(stderr.String())
		r.logger.Warn("Command failed",
			zap.String("command", cmdLine),
			zap.Int("exit_code", exitCode),
			zap.Int("attempt", attempt),
			zap.Bool("transient", class == TransientFileLock),
			zap.String("stderr", tail(stderr.String(), 500)))

		if class != TransientFileLock || attempt == r.maxAttempts {
			return "", lastErr
		}

		select {
		case <-time.After(r.retryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", lastErr
}

// tail returns the last n bytes of s, trimmed of surrounding whitespace
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
