package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"lufeed/internal/cache"
	"lufeed/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_ListPostsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	seedPost(t, db, "p1", baseTime)
	seedPost(t, db, "p2", baseTime.Add(time.Hour))

	posts, err := repo.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[0].ID)
	assert.Equal(t, "p1", posts[1].ID)
}

func TestPostRepository_CreateSharedIncrementsOriginal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	original := seedPost(t, db, "p1", baseTime)
	shared := models.NewSharedPost(original.Snapshot(), models.GuestSharer, "", baseTime.Add(time.Minute))
	require.NoError(t, repo.CreateShared(ctx, shared))

	got, err := repo.GetShared(ctx, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.OriginalPost.ID)
	assert.Equal(t, original.Title, got.OriginalPost.Title)
	assert.Equal(t, models.DefaultShareCaption, got.Caption)
	assert.Equal(t, models.GuestSharer.ID, got.SharedByID)

	post, err := repo.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, post.ShareCount)
}

func TestPostRepository_GetPostNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)

	_, err := repo.GetPost(context.Background(), "missing")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPostRepository_IncrementCounterFloorsAtZero(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	seedPost(t, db, "p1", baseTime)
	require.NoError(t, repo.IncrementCounter(ctx, models.KindPost, "p1", LikesCount, -3))

	post, err := repo.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, post.LikesCount)

	assert.Error(t, repo.IncrementCounter(ctx, models.KindPost, "p1", "title", 1))
	err = repo.IncrementCounter(ctx, models.KindPost, "missing", LikesCount, 1)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPostRepository_ListByAuthor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	seedPost(t, db, "p1", baseTime)
	other := &models.Post{ID: "p2", Title: "t", Caption: "c", Category: models.CategoryFAQs, AuthorID: "author-2", CreatedAt: baseTime}
	require.NoError(t, repo.Create(ctx, other))

	posts, err := repo.ListByAuthor(ctx, "author-2")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p2", posts[0].ID)
}

func TestPostRepository_ListPostsStoreFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "posts"`).WillReturnError(errors.New("connection refused"))

	posts, err := repo.ListPosts(context.Background())
	assert.Error(t, err)
	assert.Nil(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListPostsCachedUntilWrite(t *testing.T) {
	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	repo := NewPostRepository(db)
	ctx := context.Background()

	seedPost(t, db, "p1", baseTime)
	posts, err := repo.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.True(t, mr.Exists(cache.PostsKey))

	// A write that bypasses the repository is not seen until the entry is dropped.
	require.NoError(t, db.Create(&models.Post{ID: "p2", Title: "t", Caption: "c", Category: models.CategoryNotices, AuthorID: "a", CreatedAt: baseTime}).Error)
	posts, err = repo.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	seedPost(t, db, "p3", baseTime.Add(time.Hour))
	assert.False(t, mr.Exists(cache.PostsKey))
	posts, err = repo.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}
