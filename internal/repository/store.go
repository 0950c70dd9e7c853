package repository

import (
	"context"
	"time"

	"lufeed/internal/models"

	"gorm.io/gorm"
)

// FeedStore composes the post, comment, and like repositories into the
// document store the feed aggregator works against.
type FeedStore struct {
	Posts    PostRepository
	Comments CommentRepository
	Likes    LikeRepository
}

// NewFeedStore builds a FeedStore over db.
func NewFeedStore(db *gorm.DB) *FeedStore {
	return &FeedStore{
		Posts:    NewPostRepository(db),
		Comments: NewCommentRepository(db),
		Likes:    NewLikeRepository(db),
	}
}

func (s *FeedStore) ListPosts(ctx context.Context) ([]*models.Post, error) {
	return s.Posts.ListPosts(ctx)
}

func (s *FeedStore) ListSharedPosts(ctx context.Context) ([]*models.SharedPost, error) {
	return s.Posts.ListShared(ctx)
}

func (s *FeedStore) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	return s.Comments.ListByPost(ctx, postID)
}

func (s *FeedStore) ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	return s.Posts.ListByAuthor(ctx, authorID)
}

func (s *FeedStore) CreatePost(ctx context.Context, post *models.Post) error {
	return s.Posts.Create(ctx, post)
}

func (s *FeedStore) CreateSharedPost(ctx context.Context, shared *models.SharedPost) error {
	return s.Posts.CreateShared(ctx, shared)
}

func (s *FeedStore) AddComment(ctx context.Context, kind models.ItemKind, comment *models.Comment) error {
	return s.Comments.CreateWithCounter(ctx, kind, comment)
}

func (s *FeedStore) ToggleLike(ctx context.Context, kind models.ItemKind, postID, userID string, at time.Time) (bool, int, error) {
	return s.Likes.Toggle(ctx, kind, postID, userID, at)
}

// FindItem looks id up among posts first, then shared posts.
func (s *FeedStore) FindItem(ctx context.Context, id string) (models.FeedItem, error) {
	post, err := s.Posts.GetPost(ctx, id)
	if err == nil {
		return models.PostItem(post), nil
	}
	if !isNotFound(err) {
		return models.FeedItem{}, err
	}

	shared, err := s.Posts.GetShared(ctx, id)
	if err != nil {
		return models.FeedItem{}, err
	}
	return models.SharedItem(shared), nil
}
