package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// randomSuffix returns n lowercase hex characters (n <= 32).
func randomSuffix(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// NewPostID builds a post identifier from its author and creation time.
func NewPostID(authorID string, at time.Time) string {
	return fmt.Sprintf("post_%s_%d_%s", authorID, at.UnixMilli(), randomSuffix(6))
}

// NewSharedPostID builds a shared-post identifier derived from the original post.
func NewSharedPostID(originalID string, at time.Time) string {
	return fmt.Sprintf("shared_%s_%d_%s", originalID, at.UnixMilli(), randomSuffix(5))
}

// NewCommentID builds a comment identifier keyed by its parent post.
func NewCommentID(postID string, at time.Time) string {
	return fmt.Sprintf("comment_%s_%d_%s", postID, at.UnixMilli(), randomSuffix(9))
}

// NewLikeID builds a like identifier for a (post, user) pair.
func NewLikeID(postID, userID string, at time.Time) string {
	return fmt.Sprintf("like_%s_%s_%d", postID, userID, at.UnixMilli())
}
