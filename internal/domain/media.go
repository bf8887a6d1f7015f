package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// MediaStatus represents the current status of a media item
type MediaStatus string

const (
	StatusQueued     MediaStatus = "queued"
	StatusProcessing MediaStatus = "processing"
	StatusCompleted  MediaStatus = "completed"
	StatusFailed     MediaStatus = "failed"
)

// Container is an output container for cut clips
type Container string

const (
	ContainerMP4  Container = "mp4"
	ContainerMKV  Container = "mkv"
	ContainerWebM Container = "webm"
)

// MediaItem represents one acquired media artifact and its metadata
type MediaItem struct {
	ID              string      `json:"id" gorm:"primaryKey"`
	Identifier      string      `json:"identifier" gorm:"uniqueIndex;not null"`
	URL             string      `json:"url" gorm:"not null"`
	Status          MediaStatus `json:"status" gorm:"not null;index"`
	FilePath        string      `json:"file_path,omitempty"`
	DurationSeconds float64     `json:"duration_seconds,omitempty"`
	DownloadCount   int         `json:"download_count" gorm:"default:0"`
	ErrorMessage    string      `json:"error_message,omitempty"`
	FailingCommand  string      `json:"failing_command,omitempty" gorm:"type:text"`
	CreatedAt       time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
}

// NewMediaItem creates a new media item for an acquisition request
func NewMediaItem(identifier, url string) *MediaItem {
	return &MediaItem{
		ID:         uuid.New().String(),
		Identifier: identifier,
		URL:        url,
		Status:     StatusQueued,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// MarkProcessing marks the item as processing
func (m *MediaItem) MarkProcessing() {
	m.Status = StatusProcessing
	m.UpdatedAt = time.Now()
}

// MarkCompleted records the on-disk artifact and measured duration
func (m *MediaItem) MarkCompleted(filePath string, durationSeconds float64) {
	m.Status = StatusCompleted
	m.FilePath = filePath
	m.DurationSeconds = durationSeconds
	m.ErrorMessage = ""
	m.FailingCommand = ""
	now := time.Now()
	m.CompletedAt = &now
	m.UpdatedAt = now
}

// MarkFailed marks the item as failed, retaining the failing command
// line when the error chain carries one
func (m *MediaItem) MarkFailed(err error) {
	m.Status = StatusFailed
	m.ErrorMessage = err.Error()
	m.FailingCommand = FailingCommand(err)
	m.UpdatedAt = time.Now()
}

// RecordHit increments the access counter for an already-present artifact
func (m *MediaItem) RecordHit() {
	m.DownloadCount++
	m.UpdatedAt = time.Now()
}

// IsTerminal checks if the item is in a terminal state
func (m *MediaItem) IsTerminal() bool {
	return m.Status == StatusCompleted || m.Status == StatusFailed
}

// DownloadResult is what the orchestrator returns after a verified
// download. The caller owns it; the orchestrator holds no reference.
type DownloadResult struct {
	Identifier      string
	FilePath        string
	DurationSeconds float64
	AlreadyPresent  bool
}

// MediaStats represents aggregate counts per status
type MediaStats struct {
	Total      int64 `json:"total"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}

// timePattern accepts HH:MM:SS or MM:SS timestamps
var timePattern = regexp.MustCompile(`^(?:\d{1,2}:)?[0-5]?\d:[0-5]\d$`)

// ValidateTimestamp checks a cut boundary in HH:MM:SS or MM:SS form
func ValidateTimestamp(ts string) error {
	if !timePattern.MatchString(ts) {
		return fmt.Errorf("invalid timestamp %q: want HH:MM:SS or MM:SS", ts)
	}
	return nil
}

// ValidateContainer checks that the container is one of the supported three
func ValidateContainer(c Container) error {
	switch c {
	case ContainerMP4, ContainerMKV, ContainerWebM:
		return nil
	}
	return fmt.Errorf("unsupported container %q: want mp4, mkv or webm", c)
}
