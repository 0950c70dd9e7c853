// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"lufeed/internal/cache"
	"lufeed/internal/models"
	"lufeed/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post and shared post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	CreateShared(ctx context.Context, shared *models.SharedPost) error
	ListPosts(ctx context.Context) ([]*models.Post, error)
	ListShared(ctx context.Context) ([]*models.SharedPost, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	GetShared(ctx context.Context, id string) (*models.SharedPost, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error)
	IncrementCounter(ctx context.Context, kind models.ItemKind, id, field string, delta int) error
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"id": post.ID, "category": post.Category})
	cache.InvalidatePosts(ctx)
	return nil
}

// CreateShared inserts the shared post and bumps the original's share counter
// in one transaction.
func (r *postRepository) CreateShared(ctx context.Context, shared *models.SharedPost) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(shared).Error; err != nil {
			return err
		}
		err := incrementCounter(tx, models.KindPost, shared.OriginalPost.ID, ShareCount, 1)
		if isNotFound(err) {
			// The original is gone; the snapshot still stands on its own.
			return nil
		}
		return err
	})
	if err != nil {
		r.log.LogError(ctx, err, "create_shared")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"id": shared.ID, "original_id": shared.OriginalPost.ID})
	cache.InvalidatePosts(ctx)
	cache.InvalidateShared(ctx)
	return nil
}

func (r *postRepository) ListPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := cache.CacheAside(ctx, cache.PostsKey, &posts, cache.FeedTTL, func() error {
		return r.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListShared(ctx context.Context) ([]*models.SharedPost, error) {
	var shared []*models.SharedPost
	err := cache.CacheAside(ctx, cache.SharedPostsKey, &shared, cache.FeedTTL, func() error {
		return r.db.WithContext(ctx).Order("created_at DESC").Find(&shared).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "list_shared")
		return nil, err
	}
	return shared, nil
}

func (r *postRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetShared(ctx context.Context, id string) (*models.SharedPost, error) {
	var shared models.SharedPost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shared).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, err
	}
	return &shared, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) IncrementCounter(ctx context.Context, kind models.ItemKind, id, field string, delta int) error {
	if err := IncrementCounter(ctx, r.db, kind, id, field, delta); err != nil {
		return err
	}
	r.log.LogUpdate(ctx, map[string]any{"id": id, "field": field, "delta": delta})
	invalidateKind(ctx, kind)
	return nil
}

func invalidateKind(ctx context.Context, kind models.ItemKind) {
	if kind == models.KindShared {
		cache.InvalidateShared(ctx)
		return
	}
	cache.InvalidatePosts(ctx)
}
