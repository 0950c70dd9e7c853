package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostsKey           = "feed:posts"
	SharedPostsKey     = "feed:shared"
	CommentsKeyPrefix  = "comments:%s"
	RevokedTokenPrefix = "blacklist:%s"
)

// FeedTTL bounds how long feed lists and comments stay cached. Zero disables caching.
var FeedTTL = 30 * time.Second

func CommentsKey(postID string) string {
	return fmt.Sprintf(CommentsKeyPrefix, postID)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenPrefix, jti)
}

// Invalidate deletes keys. It is a no-op without Redis.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidatePosts(ctx context.Context) {
	Invalidate(ctx, PostsKey)
}

func InvalidateShared(ctx context.Context) {
	Invalidate(ctx, SharedPostsKey)
}

// InvalidateComments drops postID's cached comments and the lists carrying its counter.
func InvalidateComments(ctx context.Context, postID string) {
	Invalidate(ctx, CommentsKey(postID), PostsKey, SharedPostsKey)
}
