package repository

import (
	"context"
	"testing"
	"time"

	"lufeed/internal/cache"
	"lufeed/internal/database"
	"lufeed/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB returns a migrated in-memory SQLite database with caching disabled.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cache.SetClient(nil)

	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	cache.SetClient(nil)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func seedPost(t *testing.T, db *gorm.DB, id string, at time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:        id,
		Title:     "Title " + id,
		Category:  models.CategoryNotices,
		Caption:   "Caption " + id,
		ImageURL:  models.DefaultPostImage,
		AuthorID:  "author-1",
		CreatedAt: at,
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), post))
	return post
}
