// Package feed assembles and maintains the ordered campus feed.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lufeed/internal/featureflags"
	"lufeed/internal/models"
	"lufeed/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Store is the document store the aggregator reads from and writes to.
type Store interface {
	ListPosts(ctx context.Context) ([]*models.Post, error)
	ListSharedPosts(ctx context.Context) ([]*models.SharedPost, error)
	// ListComments returns the comments of postID, oldest first.
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	ListPostsByAuthor(ctx context.Context, authorID string) ([]*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	// CreateSharedPost persists the share and bumps the original's share counter.
	CreateSharedPost(ctx context.Context, shared *models.SharedPost) error
	// AddComment persists the comment and bumps the item's comment counter atomically.
	AddComment(ctx context.Context, kind models.ItemKind, comment *models.Comment) error
	// ToggleLike flips the user's like atomically and returns the new state and counter.
	ToggleLike(ctx context.Context, kind models.ItemKind, postID, userID string, at time.Time) (liked bool, count int, err error)
	FindItem(ctx context.Context, id string) (models.FeedItem, error)
}

// Options tune an Aggregator.
type Options struct {
	// Timeout bounds every store round trip of one operation. Zero means no limit.
	Timeout time.Duration
	// Flags gates the parallel comment fetch during Load.
	Flags *featureflags.Manager
	// FetchConcurrency caps parallel comment fetches. Defaults to 8.
	FetchConcurrency int
	// Now is the clock. Defaults to time.Now in UTC.
	Now func() time.Time
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	PostID     string `json:"post_id"`
	Liked      bool   `json:"liked"`
	LikesCount int    `json:"likes_count"`
}

// CreatePostInput holds the fields of a new post.
type CreatePostInput struct {
	Title    string
	Content  string
	Category string
	ImageURL string
}

// Aggregator holds the ordered feed in memory and applies user mutations to
// both the store and the in-memory list. It is safe for concurrent use.
type Aggregator struct {
	store Store
	opts  Options

	mu    sync.Mutex
	items []models.FeedItem
	// generation changes on every replacement or mutation of items; a Load
	// that started before a change does not overwrite it.
	generation uint64
}

// New creates an Aggregator over store.
func New(store Store, opts Options) *Aggregator {
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 8
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Aggregator{store: store, opts: opts}
}

func (a *Aggregator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.Timeout > 0 {
		return context.WithTimeout(ctx, a.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// storeFailure logs err and converts it to the user-facing store error.
// Not-found errors pass through unchanged.
func storeFailure(ctx context.Context, op, action string, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
		return err
	}
	observability.Logger.ErrorContext(ctx, "feed store operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return models.NewStoreError(action, err)
}

func finish(span *observability.Span, op string, err error) {
	observability.ObserveFeedOperation(op, err)
	span.End(err)
}

// Load fetches every post and shared post with their comments, orders them,
// and replaces the in-memory feed. On failure the previous feed is kept.
func (a *Aggregator) Load(ctx context.Context) (items []models.FeedItem, err error) {
	span, ctx := observability.NewSpan(ctx, "feed.Load")
	defer func() { finish(span, "load", err) }()

	start := time.Now()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	a.mu.Lock()
	gen := a.generation
	a.mu.Unlock()

	items, err = a.fetchAll(ctx)
	if err != nil {
		return nil, storeFailure(ctx, "load", "load posts", err)
	}
	Sort(items)

	a.mu.Lock()
	if gen == a.generation {
		a.items = items
		a.generation++
		observability.FeedItems.Set(float64(len(items)))
	}
	a.mu.Unlock()

	observability.FeedLoadLatency.Observe(time.Since(start).Seconds())
	span.AddAttributes(attribute.Int("feed.items", len(items)))

	return cloneItems(items), nil
}

func (a *Aggregator) fetchAll(ctx context.Context) ([]models.FeedItem, error) {
	posts, err := a.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	shared, err := a.store.ListSharedPosts(ctx)
	if err != nil {
		return nil, err
	}

	// Shared posts carry their own comment thread once someone comments on them.
	ids := make([]string, 0, len(posts)+len(shared))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	for _, s := range shared {
		ids = append(ids, s.ID)
	}
	comments, err := a.fetchComments(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.FeedItem, 0, len(ids))
	for i, p := range posts {
		p.Comments = comments[i]
		items = append(items, models.PostItem(p))
	}
	for i, s := range shared {
		s.Comments = comments[len(posts)+i]
		items = append(items, models.SharedItem(s))
	}
	return items, nil
}

// fetchComments returns the comments of ids[i] at index i.
func (a *Aggregator) fetchComments(ctx context.Context, ids []string) ([][]models.Comment, error) {
	out := make([][]models.Comment, len(ids))
	fetch := func(ctx context.Context, i int) error {
		comments, err := a.store.ListComments(ctx, ids[i])
		if err != nil {
			return err
		}
		if comments == nil {
			comments = []models.Comment{}
		}
		out[i] = comments
		return nil
	}

	if !a.opts.Flags.Global(featureflags.ParallelCommentFetch) {
		for i := range ids {
			if err := fetch(ctx, i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.FetchConcurrency)
	for i := range ids {
		g.Go(func() error { return fetch(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// resolve finds the item with id in memory, falling back to the store.
func (a *Aggregator) resolve(ctx context.Context, id string) (models.FeedItem, error) {
	a.mu.Lock()
	if i := a.indexOf(id); i >= 0 {
		item := a.items[i].Clone()
		a.mu.Unlock()
		return item, nil
	}
	a.mu.Unlock()

	return a.store.FindItem(ctx, id)
}

// indexOf must be called with mu held.
func (a *Aggregator) indexOf(id string) int {
	for i, item := range a.items {
		if item.ID() == id {
			return i
		}
	}
	return -1
}

// ToggleLike likes the post for the session user, or removes their like.
func (a *Aggregator) ToggleLike(ctx context.Context, session *models.Session, postID string) (res LikeResult, err error) {
	span, ctx := observability.NewSpan(ctx, "feed.ToggleLike", attribute.String("post.id", postID))
	defer func() { finish(span, "toggle_like", err) }()

	if session == nil {
		return LikeResult{}, models.NewUnauthorizedError("Please log in to like posts")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	item, err := a.resolve(ctx, postID)
	if err != nil {
		return LikeResult{}, storeFailure(ctx, "toggle_like", "update like", err)
	}

	liked, count, err := a.store.ToggleLike(ctx, item.Kind(), postID, session.UID, a.opts.Now())
	if err != nil {
		return LikeResult{}, storeFailure(ctx, "toggle_like", "update like", err)
	}

	a.mu.Lock()
	if i := a.indexOf(postID); i >= 0 {
		a.items[i].SetLikesCount(count)
		Sort(a.items)
		a.generation++
	}
	a.mu.Unlock()

	return LikeResult{PostID: postID, Liked: liked, LikesCount: count}, nil
}

// Share re-posts sourceID as the session user, or as the guest user when
// session is nil. Sharing a shared post shares its original.
func (a *Aggregator) Share(ctx context.Context, session *models.Session, sourceID, caption string) (shared *models.SharedPost, err error) {
	span, ctx := observability.NewSpan(ctx, "feed.Share", attribute.String("post.id", sourceID))
	defer func() { finish(span, "share", err) }()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	source, err := a.resolve(ctx, sourceID)
	if err != nil {
		return nil, storeFailure(ctx, "share", "share post", err)
	}

	var snapshot models.PostSnapshot
	if source.IsShared() {
		snapshot = source.Shared.OriginalPost
	} else {
		snapshot = source.Post.Snapshot()
	}
	if isBlank(snapshot.Title) || isBlank(snapshot.ImageURL) || isBlank(snapshot.Caption) {
		return nil, models.NewValidationError("Cannot share this post. Missing required fields.")
	}

	shared = models.NewSharedPost(snapshot, session.Sharer(), strings.TrimSpace(caption), a.opts.Now())
	if err := a.store.CreateSharedPost(ctx, shared); err != nil {
		return nil, storeFailure(ctx, "share", "share post", err)
	}

	a.mu.Lock()
	if i := a.indexOf(snapshot.ID); i >= 0 && !a.items[i].IsShared() {
		a.items[i].Post.ShareCount++
	}
	a.items = append(a.items, models.SharedItem(shared.Clone()))
	Sort(a.items)
	a.generation++
	size := len(a.items)
	a.mu.Unlock()

	observability.FeedItems.Set(float64(size))
	return shared, nil
}

// AddComment stores a comment on postID and appends it to the in-memory item.
// The feed order is unchanged.
func (a *Aggregator) AddComment(ctx context.Context, session *models.Session, postID, text string) (comment *models.Comment, err error) {
	span, ctx := observability.NewSpan(ctx, "feed.AddComment", attribute.String("post.id", postID))
	defer func() { finish(span, "add_comment", err) }()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}
	if session == nil {
		return nil, models.NewUnauthorizedError("Please log in to comment")
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	item, err := a.resolve(ctx, postID)
	if err != nil {
		return nil, storeFailure(ctx, "add_comment", "add comment", err)
	}

	now := a.opts.Now()
	comment = &models.Comment{
		ID:         models.NewCommentID(postID, now),
		PostID:     postID,
		AuthorID:   session.UID,
		AuthorName: session.Name(),
		Text:       text,
		CreatedAt:  now,
	}
	if err := a.store.AddComment(ctx, item.Kind(), comment); err != nil {
		return nil, storeFailure(ctx, "add_comment", "add comment", err)
	}

	a.mu.Lock()
	if i := a.indexOf(postID); i >= 0 {
		a.items[i].AppendComment(*comment)
		a.generation++
	}
	a.mu.Unlock()

	return comment, nil
}

// CreatePost publishes a new post by the session user.
func (a *Aggregator) CreatePost(ctx context.Context, session *models.Session, in CreatePostInput) (post *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "feed.CreatePost")
	defer func() { finish(span, "create_post", err) }()

	if session == nil {
		return nil, models.NewUnauthorizedError("Please log in to create a post")
	}

	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, models.NewValidationError("Please fill in all required fields")
	}
	category, err := models.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		imageURL = models.DefaultPostImage
	}
	authorName := session.Name()
	if authorName == "" {
		authorName = models.DefaultAuthorName
	}
	avatar := session.PhotoURL
	if avatar == "" {
		avatar = models.DefaultAuthorAvatar
	}

	now := a.opts.Now()
	post = &models.Post{
		ID:           models.NewPostID(session.UID, now),
		Title:        title,
		Category:     category,
		Caption:      content,
		ImageURL:     imageURL,
		AuthorID:     session.UID,
		AuthorName:   authorName,
		AuthorAvatar: avatar,
		CreatedAt:    now,
		Comments:     []models.Comment{},
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.store.CreatePost(ctx, post); err != nil {
		return nil, storeFailure(ctx, "create_post", "create post", err)
	}

	a.mu.Lock()
	a.items = append(a.items, models.PostItem(post.Clone()))
	Sort(a.items)
	a.generation++
	size := len(a.items)
	a.mu.Unlock()

	observability.FeedItems.Set(float64(size))
	return post, nil
}

// Items returns a copy of the current ordered feed.
func (a *Aggregator) Items() []models.FeedItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneItems(a.items)
}

// Filter returns a copy of the current feed restricted to category.
// An empty category returns everything.
func (a *Aggregator) Filter(category models.Category) []models.FeedItem {
	a.mu.Lock()
	defer a.mu.Unlock()

	if category == "" {
		return cloneItems(a.items)
	}
	out := make([]models.FeedItem, 0, len(a.items))
	for _, item := range a.items {
		if item.Category() == category {
			out = append(out, item.Clone())
		}
	}
	return out
}

// UserPosts lists the posts authored by uid, newest first.
func (a *Aggregator) UserPosts(ctx context.Context, uid string) (posts []*models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "feed.UserPosts")
	defer func() { finish(span, "user_posts", err) }()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	posts, err = a.store.ListPostsByAuthor(ctx, uid)
	if err != nil {
		return nil, storeFailure(ctx, "user_posts", "load your posts", err)
	}
	for _, p := range posts {
		if p.Comments == nil {
			p.Comments = []models.Comment{}
		}
	}
	return posts, nil
}

func cloneItems(items []models.FeedItem) []models.FeedItem {
	out := make([]models.FeedItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
