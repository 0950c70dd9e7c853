package repository

import (
	"context"
	"errors"
	"fmt"

	"lufeed/internal/models"

	"gorm.io/gorm"
)

// Counter columns shared by posts and shared_posts.
const (
	LikesCount    = "likes_count"
	CommentsCount = "comments_count"
	ShareCount    = "share_count"
)

var counterColumns = map[string]bool{
	LikesCount:    true,
	CommentsCount: true,
	ShareCount:    true,
}

func tableFor(kind models.ItemKind) (string, error) {
	switch kind {
	case models.KindPost:
		return "posts", nil
	case models.KindShared:
		return "shared_posts", nil
	default:
		return "", fmt.Errorf("unknown item kind %q", kind)
	}
}

// incrementCounter adds delta to field of the item, flooring the result at zero.
// It returns a not-found error when the item does not exist.
func incrementCounter(tx *gorm.DB, kind models.ItemKind, id, field string, delta int) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	if !counterColumns[field] {
		return fmt.Errorf("unknown counter %q", field)
	}

	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", field), delta, delta)
	res := tx.Table(table).Where("id = ?", id).UpdateColumn(field, expr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func readCounter(tx *gorm.DB, kind models.ItemKind, id, field string) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	if !counterColumns[field] {
		return 0, fmt.Errorf("unknown counter %q", field)
	}

	var values []int
	if err := tx.Table(table).Where("id = ?", id).Pluck(field, &values).Error; err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, models.NewNotFoundError("Post", id)
	}
	return values[0], nil
}

// IncrementCounter adjusts a counter on a post or shared post outside any other write.
func IncrementCounter(ctx context.Context, db *gorm.DB, kind models.ItemKind, id, field string, delta int) error {
	return incrementCounter(db.WithContext(ctx), kind, id, field, delta)
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
