package infrastructure

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// partialExtensions are the in-progress download suffixes yt-dlp leaves
// behind when an attempt is interrupted
var partialExtensions = []string{".part", ".ytdl", ".temp", ".download"}

// Janitor removes orphaned partial-download fragments so stale files
// never interfere with a fresh attempt
type Janitor struct {
	logger *zap.Logger
}

// NewJanitor creates a new janitor
func NewJanitor(logger *zap.Logger) *Janitor {
	return &Janitor{logger: logger}
}

// CleanupPartials deletes every partial-download file in dir, optionally
// scoped to filenames containing identifier. Best-effort: individual
// deletion failures are logged and do not abort the sweep; a missing
// directory is a no-op.
func (j *Janitor) CleanupPartials(dir, identifier string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Warn("Failed to list directory for cleanup",
				zap.String("dir", dir), zap.Error(err))
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isPartialFile(name) {
			continue
		}
		if identifier != "" && !strings.Contains(name, identifier) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			j.logger.Warn("Failed to remove partial file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		j.logger.Info("Removed partial file", zap.String("path", path))
	}
}

// isPartialFile reports whether a filename is an in-progress download
// artifact. Fragment files look like video.mp4.part-Frag12.
func isPartialFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range partialExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return strings.Contains(lower, ".part-frag")
}
