package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"lufeed/internal/featureflags"
	"lufeed/internal/models"
	"lufeed/internal/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ada = &models.Session{UID: "u-ada", DisplayName: "Ada", Email: "ada@campus.edu"}

func newTestAggregator(store Store, opts Options) *Aggregator {
	if opts.Now == nil {
		opts.Now = func() time.Time { return t0.Add(40 * time.Second) }
	}
	return New(store, opts)
}

// scenarioStore holds P1 at t=10, P2 at t=20 and S1 sharing P1 at t=30.
func scenarioStore() *memStore {
	s := newMemStore()
	p1 := s.addPost("P1", t0.Add(10*time.Second))
	s.addPost("P2", t0.Add(20*time.Second))
	s.addShared(p1, t0.Add(30*time.Second))
	s.shared[0].ID = "S1"
	return s
}

func findItem(t *testing.T, items []models.FeedItem, id string) models.FeedItem {
	t.Helper()
	for _, item := range items {
		if item.ID() == id {
			return item
		}
	}
	t.Fatalf("item %s not in feed", id)
	return models.FeedItem{}
}

func TestAggregator_EndToEndScenario(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	items, err := agg.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "P2", "P1"}, ids(items))

	res, err := agg.ToggleLike(ctx, ada, "P2")
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.LikesCount)

	items = agg.Items()
	assert.Equal(t, []string{"S1", "P2", "P1"}, ids(items))
	assert.Equal(t, 1, findItem(t, items, "P2").LikesCount())

	shared, err := agg.Share(ctx, ada, "P2", "")
	require.NoError(t, err)
	assert.Equal(t, "P2", shared.OriginalPost.ID)
	assert.Equal(t, models.DefaultShareCaption, shared.Caption)
	assert.Equal(t, "Ada", shared.SharedByName)

	items = agg.Items()
	assert.Equal(t, []string{shared.ID, "S1", "P2", "P1"}, ids(items))
	assert.Equal(t, 1, findItem(t, items, "P2").Post.ShareCount)
}

func TestAggregator_LoadAttachesComments(t *testing.T) {
	store := scenarioStore()
	store.comments = []models.Comment{
		{ID: "c2", PostID: "P1", Text: "second", CreatedAt: t0.Add(2 * time.Minute)},
		{ID: "c1", PostID: "P1", Text: "first", CreatedAt: t0.Add(time.Minute)},
		{ID: "c3", PostID: "S1", Text: "on share", CreatedAt: t0},
	}
	agg := newTestAggregator(store, Options{})

	items, err := agg.Load(context.Background())
	require.NoError(t, err)

	p1 := findItem(t, items, "P1")
	require.Len(t, p1.Comments(), 2)
	assert.Equal(t, "first", p1.Comments()[0].Text)
	assert.Equal(t, "second", p1.Comments()[1].Text)

	assert.NotNil(t, findItem(t, items, "P2").Comments())
	assert.Empty(t, findItem(t, items, "P2").Comments())

	s1 := findItem(t, items, "S1")
	require.Len(t, s1.Comments(), 1)
	assert.Equal(t, "on share", s1.Comments()[0].Text)
}

func TestAggregator_SharedPostCommentsSurviveReload(t *testing.T) {
	for _, parallel := range []string{"off", "on"} {
		t.Run("parallel="+parallel, func(t *testing.T) {
			store := scenarioStore()
			agg := newTestAggregator(store, Options{
				Flags: featureflags.NewManager(featureflags.ParallelCommentFetch + "=" + parallel),
			})
			ctx := context.Background()

			_, err := agg.Load(ctx)
			require.NoError(t, err)

			for _, text := range []string{"nice", "see you there"} {
				_, err := agg.AddComment(ctx, ada, "S1", text)
				require.NoError(t, err)
			}
			s1 := findItem(t, agg.Items(), "S1")
			assert.Len(t, s1.Comments(), 2)
			assert.Equal(t, 2, s1.CommentsCount())

			items, err := agg.Load(ctx)
			require.NoError(t, err)
			s1 = findItem(t, items, "S1")
			require.Len(t, s1.Comments(), 2)
			assert.Equal(t, s1.CommentsCount(), len(s1.Comments()))
			assert.Equal(t, "nice", s1.Comments()[0].Text)

			// The original keeps its own thread.
			assert.Empty(t, findItem(t, items, "P1").Comments())
		})
	}
}

func TestAggregator_StaleLoadLeavesSizeGauge(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	_, err := agg.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(3), testutil.ToFloat64(observability.FeedItems))

	// A post created while the load is in flight supersedes its result.
	store.beforeListShared = func() {
		_, err := agg.CreatePost(ctx, ada, CreatePostInput{Title: "Gig", Content: "Tonight"})
		require.NoError(t, err)
	}
	items, err := agg.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	assert.Len(t, agg.Items(), 4)
	assert.Equal(t, float64(4), testutil.ToFloat64(observability.FeedItems))
}

func TestAggregator_ParallelCommentFetch(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("P%02d", i)
		store.addPost(id, t0.Add(time.Duration(i)*time.Second))
		store.comments = append(store.comments, models.Comment{ID: "c-" + id, PostID: id, Text: id, CreatedAt: t0})
	}
	agg := newTestAggregator(store, Options{
		Flags:            featureflags.NewManager(featureflags.ParallelCommentFetch + "=on"),
		FetchConcurrency: 4,
	})

	items, err := agg.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 40)

	for _, item := range items {
		require.Len(t, item.Comments(), 1)
		assert.Equal(t, item.ID(), item.Comments()[0].Text)
	}
	assert.Equal(t, "P39", items[0].ID())
}

func TestAggregator_LoadFailureKeepsPreviousFeed(t *testing.T) {
	for _, parallel := range []string{"off", "on"} {
		t.Run("parallel="+parallel, func(t *testing.T) {
			store := scenarioStore()
			agg := newTestAggregator(store, Options{
				Flags: featureflags.NewManager(featureflags.ParallelCommentFetch + "=" + parallel),
			})
			ctx := context.Background()

			_, err := agg.Load(ctx)
			require.NoError(t, err)

			store.listCommentsErr = errStoreDown
			items, err := agg.Load(ctx)
			assert.Nil(t, items)
			assert.Equal(t, models.CodeStore, models.ErrorCode(err))
			assert.ErrorIs(t, err, errStoreDown)

			assert.Equal(t, []string{"S1", "P2", "P1"}, ids(agg.Items()))
		})
	}
}

func TestAggregator_LoadFailureBeforeFirstLoad(t *testing.T) {
	store := scenarioStore()
	store.listPostsErr = errStoreDown
	agg := newTestAggregator(store, Options{})

	_, err := agg.Load(context.Background())
	assert.Equal(t, "Failed to load posts. Please try again later.", err.(*models.AppError).Message)
	assert.Empty(t, agg.Items())
}

func TestAggregator_TimeoutSurfacesAsStoreError(t *testing.T) {
	store := scenarioStore()
	store.block = true
	agg := newTestAggregator(store, Options{Timeout: 20 * time.Millisecond})

	_, err := agg.Load(context.Background())
	assert.Equal(t, models.CodeStore, models.ErrorCode(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAggregator_ToggleLikeRequiresSession(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})

	_, err := agg.ToggleLike(context.Background(), nil, "P1")
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	assert.Zero(t, store.calls.Load())
}

func TestAggregator_ToggleLikeTwiceRestoresCount(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	_, err := agg.Load(ctx)
	require.NoError(t, err)

	res, err := agg.ToggleLike(ctx, ada, "P1")
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, store.liveLikes("P1", ada.UID))

	res, err = agg.ToggleLike(ctx, ada, "P1")
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.LikesCount)
	assert.Equal(t, 0, store.liveLikes("P1", ada.UID))
	assert.Equal(t, 0, findItem(t, agg.Items(), "P1").LikesCount())
}

func TestAggregator_ToggleLikeOnSharedPost(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	_, err := agg.Load(ctx)
	require.NoError(t, err)

	res, err := agg.ToggleLike(ctx, ada, "S1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.LikesCount)
	assert.Equal(t, 1, findItem(t, agg.Items(), "S1").LikesCount())
	assert.Equal(t, 0, findItem(t, agg.Items(), "P1").LikesCount())
}

func TestAggregator_ToggleLikeUnknownPost(t *testing.T) {
	agg := newTestAggregator(scenarioStore(), Options{})

	_, err := agg.ToggleLike(context.Background(), ada, "nope")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestAggregator_AddCommentRejectsBlankText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		store := scenarioStore()
		agg := newTestAggregator(store, Options{})

		_, err := agg.AddComment(context.Background(), ada, "P1", text)
		assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		assert.Zero(t, store.calls.Load())
	}
}

func TestAggregator_AddCommentRequiresSession(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})

	_, err := agg.AddComment(context.Background(), nil, "P1", "hello")
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	assert.Zero(t, store.calls.Load())
}

func TestAggregator_CommentCounterConsistency(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	_, err := agg.Load(ctx)
	require.NoError(t, err)
	before := ids(agg.Items())

	const n = 5
	for i := 0; i < n; i++ {
		c, err := agg.AddComment(ctx, ada, "P2", fmt.Sprintf("  comment %d ", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("comment %d", i), c.Text)
		assert.Equal(t, "Ada", c.AuthorName)
	}

	p2 := findItem(t, agg.Items(), "P2")
	assert.Len(t, p2.Comments(), n)
	assert.Equal(t, n, p2.CommentsCount())
	assert.Equal(t, before, ids(agg.Items()))

	// The canonical collection agrees after a reload.
	items, err := agg.Load(ctx)
	require.NoError(t, err)
	p2 = findItem(t, items, "P2")
	assert.Len(t, p2.Comments(), n)
	assert.Equal(t, n, p2.CommentsCount())
}

func TestAggregator_AddCommentStoreFailureLeavesFeed(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	_, err := agg.Load(ctx)
	require.NoError(t, err)

	store.writeErr = errStoreDown
	_, err = agg.AddComment(ctx, ada, "P1", "hello")
	assert.Equal(t, models.CodeStore, models.ErrorCode(err))

	p1 := findItem(t, agg.Items(), "P1")
	assert.Empty(t, p1.Comments())
	assert.Zero(t, p1.CommentsCount())
}

func TestAggregator_ShareRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *models.Post)
	}{
		{"missing image", func(p *models.Post) { p.ImageURL = "" }},
		{"missing title", func(p *models.Post) { p.Title = " " }},
		{"missing caption", func(p *models.Post) { p.Caption = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := scenarioStore()
			tt.mutate(store.posts[1])
			agg := newTestAggregator(store, Options{})
			ctx := context.Background()

			_, err := agg.Load(ctx)
			require.NoError(t, err)

			_, err = agg.Share(ctx, ada, "P2", "")
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
			assert.Equal(t, 1, store.sharedCount())
			assert.Zero(t, store.writes.Load())
			assert.Len(t, agg.Items(), 3)
		})
	}
}

func TestAggregator_ShareOfSharedPostSharesOriginal(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	_, err := agg.Load(ctx)
	require.NoError(t, err)

	shared, err := agg.Share(ctx, ada, "S1", "again!")
	require.NoError(t, err)
	assert.Equal(t, "P1", shared.OriginalPost.ID)
	assert.Equal(t, "again!", shared.Caption)
	assert.Contains(t, shared.ID, "shared_P1_")
}

func TestAggregator_ShareAsGuest(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})

	// Not loaded: the source is resolved from the store.
	shared, err := agg.Share(context.Background(), nil, "P2", "")
	require.NoError(t, err)
	assert.Equal(t, models.GuestSharer.ID, shared.SharedByID)
	assert.Equal(t, models.GuestSharer.Name, shared.SharedByName)
	assert.Equal(t, 2, store.sharedCount())
}

func TestAggregator_CreatePost(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	_, err := agg.Load(ctx)
	require.NoError(t, err)

	post, err := agg.CreatePost(ctx, ada, CreatePostInput{Title: " Lost keys ", Content: "Blue lanyard", Category: "lost & found"})
	require.NoError(t, err)
	assert.Equal(t, "Lost keys", post.Title)
	assert.Equal(t, models.CategoryLostAndFound, post.Category)
	assert.Equal(t, models.DefaultPostImage, post.ImageURL)
	assert.Equal(t, models.DefaultAuthorAvatar, post.AuthorAvatar)
	assert.Equal(t, "Ada", post.AuthorName)
	assert.Contains(t, post.ID, "post_u-ada_")

	// Newest post, but still behind the shared tier.
	assert.Equal(t, []string{"S1", post.ID, "P2", "P1"}, ids(agg.Items()))
}

func TestAggregator_CreatePostValidation(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	_, err := agg.CreatePost(ctx, nil, CreatePostInput{Title: "t", Content: "c"})
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	_, err = agg.CreatePost(ctx, ada, CreatePostInput{Title: "t", Content: "  "})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	_, err = agg.CreatePost(ctx, ada, CreatePostInput{Title: "t", Content: "c", Category: "Sports"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	assert.Zero(t, store.writes.Load())

	post, err := agg.CreatePost(ctx, ada, CreatePostInput{Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategory, post.Category)
}

func TestAggregator_FilterAndItemsAreCopies(t *testing.T) {
	store := scenarioStore()
	store.posts[1].Category = models.CategoryFAQs
	agg := newTestAggregator(store, Options{})

	_, err := agg.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "P1"}, ids(agg.Filter(models.CategoryNotices)))
	assert.Equal(t, []string{"P2"}, ids(agg.Filter(models.CategoryFAQs)))
	assert.Len(t, agg.Filter(""), 3)

	items := agg.Items()
	items[0].SetLikesCount(99)
	assert.Zero(t, agg.Items()[0].LikesCount())
}

func TestAggregator_UserPosts(t *testing.T) {
	store := scenarioStore()
	store.posts[0].AuthorID = ada.UID
	agg := newTestAggregator(store, Options{})

	posts, err := agg.UserPosts(context.Background(), ada.UID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "P1", posts[0].ID)
	assert.NotNil(t, posts[0].Comments)
}

func TestAggregator_ConcurrentMutations(t *testing.T) {
	store := scenarioStore()
	agg := newTestAggregator(store, Options{})
	ctx := context.Background()

	_, err := agg.Load(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			session := &models.Session{UID: fmt.Sprintf("u%d", i)}
			_, _ = agg.ToggleLike(ctx, session, "P1")
			_, _ = agg.AddComment(ctx, session, "P2", "hi")
			_, _ = agg.Load(ctx)
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	items, err := agg.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, findItem(t, items, "P1").LikesCount())
	assert.Equal(t, 10, findItem(t, items, "P2").CommentsCount())
}
