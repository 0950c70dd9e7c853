package feed

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"lufeed/internal/models"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory Store with failure injection.
type memStore struct {
	mu       sync.Mutex
	posts    []*models.Post
	shared   []*models.SharedPost
	comments []models.Comment
	likes    []models.Like

	calls  atomic.Int64
	writes atomic.Int64

	listPostsErr    error
	listCommentsErr error
	writeErr        error
	// block makes reads wait for ctx cancellation.
	block bool
	// beforeListShared runs once at the start of the next ListSharedPosts.
	beforeListShared func()
}

func newMemStore() *memStore {
	return &memStore{}
}

func (s *memStore) wait(ctx context.Context) error {
	s.calls.Add(1)
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *memStore) addPost(id string, at time.Time) *models.Post {
	p := &models.Post{
		ID:        id,
		Title:     "Title " + id,
		Category:  models.CategoryNotices,
		Caption:   "Caption " + id,
		ImageURL:  "https://img.example/" + id,
		AuthorID:  "author",
		CreatedAt: at,
	}
	s.posts = append(s.posts, p)
	return p.Clone()
}

func (s *memStore) addShared(original *models.Post, at time.Time) *models.SharedPost {
	sp := models.NewSharedPost(original.Snapshot(), models.GuestSharer, "", at)
	s.shared = append(s.shared, sp)
	return sp.Clone()
}

func (s *memStore) ListPosts(ctx context.Context) ([]*models.Post, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listPostsErr != nil {
		return nil, s.listPostsErr
	}
	out := make([]*models.Post, len(s.posts))
	for i, p := range s.posts {
		out[i] = p.Clone()
	}
	return out, nil
}

func (s *memStore) ListSharedPosts(ctx context.Context) ([]*models.SharedPost, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if hook := s.beforeListShared; hook != nil {
		s.beforeListShared = nil
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.SharedPost, len(s.shared))
	for i, sp := range s.shared {
		out[i] = sp.Clone()
	}
	return out, nil
}

func (s *memStore) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listCommentsErr != nil {
		return nil, s.listCommentsErr
	}
	var out []models.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Post
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *memStore) write() error {
	s.calls.Add(1)
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes.Add(1)
	return nil
}

func (s *memStore) CreatePost(_ context.Context, post *models.Post) error {
	if err := s.write(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, post.Clone())
	return nil
}

func (s *memStore) CreateSharedPost(_ context.Context, shared *models.SharedPost) error {
	if err := s.write(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared = append(s.shared, shared.Clone())
	for _, p := range s.posts {
		if p.ID == shared.OriginalPost.ID {
			p.ShareCount++
		}
	}
	return nil
}

func (s *memStore) AddComment(_ context.Context, kind models.ItemKind, comment *models.Comment) error {
	if err := s.write(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, *comment)
	if kind == models.KindShared {
		for _, sp := range s.shared {
			if sp.ID == comment.PostID {
				sp.CommentsCount++
			}
		}
		return nil
	}
	for _, p := range s.posts {
		if p.ID == comment.PostID {
			p.CommentsCount++
		}
	}
	return nil
}

func (s *memStore) ToggleLike(_ context.Context, kind models.ItemKind, postID, userID string, at time.Time) (bool, int, error) {
	if err := s.write(); err != nil {
		return false, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	counter := s.counter(kind, postID)
	if counter == nil {
		return false, 0, models.NewNotFoundError("Post", postID)
	}
	for i := range s.likes {
		l := &s.likes[i]
		if l.PostID == postID && l.UserID == userID && !l.Deleted {
			l.Deleted = true
			*counter = max(*counter-1, 0)
			return false, *counter, nil
		}
	}
	s.likes = append(s.likes, models.Like{ID: models.NewLikeID(postID, userID, at), PostID: postID, UserID: userID, CreatedAt: at})
	*counter++
	return true, *counter, nil
}

func (s *memStore) counter(kind models.ItemKind, id string) *int {
	if kind == models.KindShared {
		for _, sp := range s.shared {
			if sp.ID == id {
				return &sp.LikesCount
			}
		}
		return nil
	}
	for _, p := range s.posts {
		if p.ID == id {
			return &p.LikesCount
		}
	}
	return nil
}

func (s *memStore) liveLikes(postID, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.likes {
		if l.PostID == postID && l.UserID == userID && !l.Deleted {
			n++
		}
	}
	return n
}

func (s *memStore) sharedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shared)
}

func (s *memStore) FindItem(ctx context.Context, id string) (models.FeedItem, error) {
	if err := s.wait(ctx); err != nil {
		return models.FeedItem{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			return models.PostItem(p.Clone()), nil
		}
	}
	for _, sp := range s.shared {
		if sp.ID == id {
			return models.SharedItem(sp.Clone()), nil
		}
	}
	return models.FeedItem{}, models.NewNotFoundError("Post", id)
}
