package infrastructure

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/media-grab-go/internal/domain"
)

// SQLiteMediaRepository implements MediaRepository using SQLite
type SQLiteMediaRepository struct {
	db *gorm.DB
}

// NewSQLiteMediaRepository creates a new SQLite repository
func NewSQLiteMediaRepository(dbPath string) (*SQLiteMediaRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.MediaItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteMediaRepository{db: db}, nil
}

// Create creates a new media item
func (r *SQLiteMediaRepository) Create(item *domain.MediaItem) error {
	return r.db.Create(item).Error
}

// Update updates an existing media item
func (r *SQLiteMediaRepository) Update(item *domain.MediaItem) error {
	return r.db.Save(item).Error
}

// Delete deletes a media item by ID
func (r *SQLiteMediaRepository) Delete(id string) error {
	return r.db.Delete(&domain.MediaItem{}, "id = ?", id).Error
}

// FindByID finds a media item by record ID
func (r *SQLiteMediaRepository) FindByID(id string) (*domain.MediaItem, error) {
	var item domain.MediaItem
	err := r.db.First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIdentifier finds a media item by its resolved identifier
func (r *SQLiteMediaRepository) FindByIdentifier(identifier string) (*domain.MediaItem, error) {
	var item domain.MediaItem
	err := r.db.First(&item, "identifier = ?", identifier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByStatus finds media items by status
func (r *SQLiteMediaRepository) FindByStatus(status domain.MediaStatus) ([]*domain.MediaItem, error) {
	var items []*domain.MediaItem
	err := r.db.Where("status = ?", status).Find(&items).Error
	return items, err
}

// FindAll finds all media items with optional column filters
func (r *SQLiteMediaRepository) FindAll(filters map[string]interface{}) ([]*domain.MediaItem, error) {
	var items []*domain.MediaItem
	query := r.db

	for key, value := range filters {
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("created_at DESC").Find(&items).Error
	return items, err
}

// Count returns the total number of media items
func (r *SQLiteMediaRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.MediaItem{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of media items by status
func (r *SQLiteMediaRepository) CountByStatus(status domain.MediaStatus) (int64, error) {
	var count int64
	err := r.db.Model(&domain.MediaItem{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// GetStats returns aggregate statistics
func (r *SQLiteMediaRepository) GetStats() (*domain.MediaStats, error) {
	stats := &domain.MediaStats{}

	if err := r.db.Model(&domain.MediaItem{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.MediaStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.MediaItem{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusQueued:
			stats.Queued = sc.Count
		case domain.StatusProcessing:
			stats.Processing = sc.Count
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteMediaRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
