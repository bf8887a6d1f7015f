package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/media-grab-go/internal/domain"
	"github.com/yourusername/media-grab-go/internal/infrastructure"
)

// Downloader runs the acquisition pipeline for one URL
type Downloader interface {
	Download(ctx context.Context, url, outputDir string) (*domain.DownloadResult, error)
}

// PostProcessor cuts time ranges and extracts audio from artifacts
type PostProcessor interface {
	Cut(ctx context.Context, inputPath, outputDir, start, end string, container domain.Container) (string, error)
	ExtractAudio(ctx context.Context, inputPath, outputDir, start, end string) (string, error)
}

// AcquisitionService ties the pipeline together: resolve, download,
// persist. Each request runs sequentially on its own goroutine; the only
// coordination is a per-identifier lock so two racing requests for the
// same URL serialize on the same output directory.
type AcquisitionService struct {
	repo       domain.MediaRepository
	downloader Downloader
	post       PostProcessor
	notifier   *infrastructure.NotificationService
	storage    domain.StorageConfig
	logger     *zap.Logger

	mu    sync.Mutex
	locks map[string]*identifierLock
}

// identifierLock serializes requests for one identifier; refs counts the
// holders and waiters so the entry can be dropped when uncontended
type identifierLock struct {
	mu   sync.Mutex
	refs int
}

// NewAcquisitionService creates a new acquisition service
func NewAcquisitionService(
	repo domain.MediaRepository,
	downloader Downloader,
	post PostProcessor,
	notifier *infrastructure.NotificationService,
	storage domain.StorageConfig,
	logger *zap.Logger,
) *AcquisitionService {
	return &AcquisitionService{
		repo:       repo,
		downloader: downloader,
		post:       post,
		notifier:   notifier,
		storage:    storage,
		logger:     logger,
		locks:      make(map[string]*identifierLock),
	}
}

// Acquire downloads the media behind url and persists its record. When a
// completed record with an on-disk artifact already exists the extraction
// tool is not invoked again: the access counter is incremented and the
// existing item returned with alreadyPresent true.
func (s *AcquisitionService) Acquire(ctx context.Context, url string) (item *domain.MediaItem, alreadyPresent bool, err error) {
	identifier, err := domain.ResolveIdentifier(url)
	if err != nil {
		return nil, false, err
	}

	unlock := s.lockIdentifier(identifier)
	defer unlock()

	item, err = s.repo.FindByIdentifier(identifier)
	switch {
	case err == nil:
		if item.Status == domain.StatusCompleted && fileExists(item.FilePath) {
			item.RecordHit()
			if uerr := s.repo.Update(item); uerr != nil {
				s.logger.Error("Failed to record access hit", zap.Error(uerr))
			}
			s.logger.Info("Media already acquired, returning existing artifact",
				zap.String("identifier", identifier),
				zap.String("path", item.FilePath),
				zap.Int("download_count", item.DownloadCount))
			return item, true, nil
		}
		// stale or failed record, run the pipeline again
	case errors.Is(err, domain.ErrNotFound):
		item = domain.NewMediaItem(identifier, url)
		if cerr := s.repo.Create(item); cerr != nil {
			return nil, false, fmt.Errorf("failed to create media record: %w", cerr)
		}
	default:
		return nil, false, err
	}

	s.logger.Info("Acquiring media",
		zap.String("identifier", identifier),
		zap.String("url", url))

	item.MarkProcessing()
	if uerr := s.repo.Update(item); uerr != nil {
		return nil, false, fmt.Errorf("failed to update media record: %w", uerr)
	}

	result, err := s.downloader.Download(ctx, url, s.storage.MediaDir(identifier))
	if err != nil {
		item.MarkFailed(err)
		if uerr := s.repo.Update(item); uerr != nil {
			s.logger.Error("Failed to persist failure", zap.Error(uerr))
		}
		s.notifier.NotifyAcquireFailed(url, err)
		return nil, false, err
	}

	item.MarkCompleted(result.FilePath, result.DurationSeconds)
	if result.AlreadyPresent {
		item.RecordHit()
	}
	if uerr := s.repo.Update(item); uerr != nil {
		return nil, false, fmt.Errorf("failed to persist result: %w", uerr)
	}

	s.logger.Info("Media acquired",
		zap.String("identifier", identifier),
		zap.String("path", result.FilePath),
		zap.Float64("duration_seconds", result.DurationSeconds))

	s.notifier.NotifyAcquired(identifier, url)
	return item, result.AlreadyPresent, nil
}

// Clip cuts a time range from an acquired item's artifact. The clip is
// written alongside the original in the identifier's directory.
func (s *AcquisitionService) Clip(ctx context.Context, id, start, end string, container domain.Container) (string, error) {
	item, err := s.findCompleted(id)
	if err != nil {
		return "", err
	}
	return s.post.Cut(ctx, item.FilePath, s.storage.MediaDir(item.Identifier), start, end, container)
}

// ExtractAudio extracts an audio track from an acquired item's artifact,
// optionally limited to a time range
func (s *AcquisitionService) ExtractAudio(ctx context.Context, id, start, end string) (string, error) {
	item, err := s.findCompleted(id)
	if err != nil {
		return "", err
	}
	return s.post.ExtractAudio(ctx, item.FilePath, s.storage.MediaDir(item.Identifier), start, end)
}

// Get returns a media item by record ID or identifier
func (s *AcquisitionService) Get(id string) (*domain.MediaItem, error) {
	item, err := s.repo.FindByID(id)
	if errors.Is(err, domain.ErrNotFound) {
		return s.repo.FindByIdentifier(id)
	}
	return item, err
}

// List returns media items matching the given column filters
func (s *AcquisitionService) List(filters map[string]interface{}) ([]*domain.MediaItem, error) {
	return s.repo.FindAll(filters)
}

// Stats returns aggregate acquisition statistics
func (s *AcquisitionService) Stats() (*domain.MediaStats, error) {
	return s.repo.GetStats()
}

// findCompleted looks up an item by ID or identifier and verifies its
// artifact is present on disk
func (s *AcquisitionService) findCompleted(id string) (*domain.MediaItem, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("media item %s is not completed (status %s)", id, item.Status)
	}
	if !fileExists(item.FilePath) {
		return nil, domain.NewPipelineError(domain.ErrArtifactMissing, "",
			fmt.Errorf("artifact %s no longer on disk", item.FilePath))
	}
	return item, nil
}

// lockIdentifier acquires the per-identifier lock and returns its
// release. The map entry is removed when the last holder releases, so
// the map only holds identifiers with in-flight requests.
func (s *AcquisitionService) lockIdentifier(identifier string) func() {
	s.mu.Lock()
	lock, ok := s.locks[identifier]
	if !ok {
		lock = &identifierLock{}
		s.locks[identifier] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, identifier)
		}
		s.mu.Unlock()
	}
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
