package repository

import (
	"context"
	"time"

	"lufeed/internal/models"
	"lufeed/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository defines like operations.
type LikeRepository interface {
	Toggle(ctx context.Context, kind models.ItemKind, postID, userID string, at time.Time) (liked bool, count int, err error)
	CountActive(ctx context.Context, postID, userID string) (int64, error)
}

type likeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewLikeRepository creates a new LikeRepository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db, log: observability.NewRepoLogger("likes")}
}

func liveLike(tx *gorm.DB, postID, userID string) *gorm.DB {
	return tx.Model(&models.Like{}).Where("post_id = ? AND user_id = ? AND deleted = ?", postID, userID, false)
}

// Toggle flips the user's like on the item in one transaction and returns the
// resulting state and like counter. A live like is soft-deleted and the counter
// decremented (never below zero); otherwise a new like is inserted and the
// counter incremented. If a concurrent toggle already inserted the live like,
// the result is liked without a second increment.
func (r *likeRepository) Toggle(ctx context.Context, kind models.ItemKind, postID, userID string, at time.Time) (bool, int, error) {
	var (
		liked bool
		count int
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := liveLike(tx, postID, userID).Update("deleted", true)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			liked = false
			if err := incrementCounter(tx, kind, postID, LikesCount, -1); err != nil {
				return err
			}
		} else {
			liked = true
			inserted, err := insertLike(tx, postID, userID, at)
			if err != nil {
				return err
			}
			delta := 0
			if inserted {
				delta = 1
			}
			// Also verifies the item exists so a like on a missing post rolls back.
			if err := incrementCounter(tx, kind, postID, LikesCount, delta); err != nil {
				return err
			}
		}

		var err error
		count, err = readCounter(tx, kind, postID, LikesCount)
		return err
	})
	if err != nil {
		r.log.LogError(ctx, err, "toggle")
		return false, 0, err
	}

	r.log.LogUpdate(ctx, map[string]any{"post_id": postID, "liked": liked, "count": count})
	invalidateKind(ctx, kind)
	return liked, count, nil
}

// insertLike reports whether a new live like row was written.
func insertLike(tx *gorm.DB, postID, userID string, at time.Time) (bool, error) {
	like := models.Like{
		ID:        models.NewLikeID(postID, userID, at),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: at,
	}

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var live int64
	if err := liveLike(tx, postID, userID).Count(&live).Error; err != nil {
		return false, err
	}
	if live > 0 {
		return false, nil
	}

	// The ID collided with a soft-deleted like from the same millisecond.
	like.ID = like.ID + "_" + uuid.NewString()[:8]
	if err := tx.Create(&like).Error; err != nil {
		return false, err
	}
	return true, nil
}

// CountActive returns the number of live likes by userID on postID (0 or 1).
func (r *likeRepository) CountActive(ctx context.Context, postID, userID string) (int64, error) {
	var n int64
	err := liveLike(r.db.WithContext(ctx), postID, userID).Count(&n).Error
	return n, err
}
