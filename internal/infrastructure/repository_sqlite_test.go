package infrastructure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/media-grab-go/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteMediaRepository {
	t.Helper()
	repo, err := NewSQLiteMediaRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteMediaRepository_CreateAndFind(t *testing.T) {
	repo := newTestRepo(t)

	item := domain.NewMediaItem("dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, repo.Create(item))

	byID, err := repo.FindByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Identifier, byID.Identifier)
	assert.Equal(t, domain.StatusQueued, byID.Status)

	byIdent, err := repo.FindByIdentifier("dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, item.ID, byIdent.ID)
}

func TestSQLiteMediaRepository_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindByID("no-such-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindByIdentifier("no-such-identifier")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteMediaRepository_IdentifierUnique(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Create(domain.NewMediaItem("tiktok_123", "https://vm.tiktok.com/123/")))
	err := repo.Create(domain.NewMediaItem("tiktok_123", "https://vm.tiktok.com/123/"))
	assert.Error(t, err, "identifier column carries a unique index")
}

func TestSQLiteMediaRepository_UpdateLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	item := domain.NewMediaItem("abc123", "https://example.com/v/abc123")
	require.NoError(t, repo.Create(item))

	item.MarkProcessing()
	require.NoError(t, repo.Update(item))

	item.MarkCompleted("/media/abc123/abc123.mp4", 212.5)
	item.RecordHit()
	require.NoError(t, repo.Update(item))

	got, err := repo.FindByIdentifier("abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "/media/abc123/abc123.mp4", got.FilePath)
	assert.Equal(t, 212.5, got.DurationSeconds)
	assert.Equal(t, 1, got.DownloadCount)
	assert.NotNil(t, got.CompletedAt)
}

func TestSQLiteMediaRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)

	item := domain.NewMediaItem("abc123", "https://example.com/v/abc123")
	require.NoError(t, repo.Create(item))
	require.NoError(t, repo.Delete(item.ID))

	_, err := repo.FindByID(item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteMediaRepository_FindByStatusAndFilters(t *testing.T) {
	repo := newTestRepo(t)

	a := domain.NewMediaItem("aaa", "https://example.com/a")
	b := domain.NewMediaItem("bbb", "https://example.com/b")
	b.MarkCompleted("/media/bbb/bbb.mp4", 10)
	c := domain.NewMediaItem("ccc", "https://example.com/c")
	c.MarkFailed(domain.ErrExtractionFailed)

	for _, item := range []*domain.MediaItem{a, b, c} {
		require.NoError(t, repo.Create(item))
	}

	completed, err := repo.FindByStatus(domain.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "bbb", completed[0].Identifier)

	all, err := repo.FindAll(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	failed, err := repo.FindAll(map[string]interface{}{"status": domain.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "ccc", failed[0].Identifier)
}

func TestSQLiteMediaRepository_Stats(t *testing.T) {
	repo := newTestRepo(t)

	a := domain.NewMediaItem("aaa", "https://example.com/a")
	b := domain.NewMediaItem("bbb", "https://example.com/b")
	b.MarkCompleted("/media/bbb/bbb.mp4", 10)
	c := domain.NewMediaItem("ccc", "https://example.com/c")
	c.MarkCompleted("/media/ccc/ccc.mp4", 20)
	d := domain.NewMediaItem("ddd", "https://example.com/d")
	d.MarkFailed(domain.ErrDurationExceeded)

	for _, item := range []*domain.MediaItem{a, b, c, d} {
		require.NoError(t, repo.Create(item))
	}

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Queued)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(0), stats.Processing)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	queued, err := repo.CountByStatus(domain.StatusQueued)
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)
}
