package domain

// MediaRepository defines the interface for media item persistence
type MediaRepository interface {
	// Create creates a new media item
	Create(item *MediaItem) error

	// Update updates an existing media item
	Update(item *MediaItem) error

	// Delete deletes a media item by ID
	Delete(id string) error

	// FindByID finds a media item by record ID
	FindByID(id string) (*MediaItem, error)

	// FindByIdentifier finds a media item by its resolved identifier
	FindByIdentifier(identifier string) (*MediaItem, error)

	// FindByStatus finds media items by status
	FindByStatus(status MediaStatus) ([]*MediaItem, error)

	// FindAll finds all media items with optional column filters
	FindAll(filters map[string]interface{}) ([]*MediaItem, error)

	// Count returns the total number of media items
	Count() (int64, error)

	// CountByStatus returns the number of media items by status
	CountByStatus(status MediaStatus) (int64, error)

	// GetStats returns aggregate statistics
	GetStats() (*MediaStats, error)
}
