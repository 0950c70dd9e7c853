package repository

import (
	"context"

	"lufeed/internal/cache"
	"lufeed/internal/models"
	"lufeed/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	CreateWithCounter(ctx context.Context, kind models.ItemKind, comment *models.Comment) error
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

// ListByPost returns the comments of postID, oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := cache.CacheAside(ctx, cache.CommentsKey(postID), &comments, cache.FeedTTL, func() error {
		return r.db.WithContext(ctx).
			Where("post_id = ?", postID).
			Order("created_at ASC").
			Find(&comments).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "list_by_post")
		return nil, err
	}
	return comments, nil
}

// CreateWithCounter inserts the comment and increments the owning item's
// comment counter in one transaction. Nothing is written if the item is missing.
func (r *commentRepository) CreateWithCounter(ctx context.Context, kind models.ItemKind, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return incrementCounter(tx, kind, comment.PostID, CommentsCount, 1)
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"id": comment.ID, "post_id": comment.PostID})
	cache.InvalidateComments(ctx, comment.PostID)
	return nil
}
