package models

import (
	"encoding/json"
	"time"
)

// ItemKind tells which collection a feed item lives in.
type ItemKind string

const (
	KindPost   ItemKind = "post"
	KindShared ItemKind = "shared"
)

// FeedItem is either an original post or a shared post. Exactly one of
// Post and Shared is set.
type FeedItem struct {
	Post   *Post
	Shared *SharedPost
}

// PostItem wraps p as a feed item.
func PostItem(p *Post) FeedItem { return FeedItem{Post: p} }

// SharedItem wraps s as a feed item.
func SharedItem(s *SharedPost) FeedItem { return FeedItem{Shared: s} }

// Kind reports the collection the item belongs to.
func (f FeedItem) Kind() ItemKind {
	if f.Shared != nil {
		return KindShared
	}
	return KindPost
}

// IsShared reports whether the item is a shared post.
func (f FeedItem) IsShared() bool { return f.Shared != nil }

func (f FeedItem) ID() string {
	if f.Shared != nil {
		return f.Shared.ID
	}
	return f.Post.ID
}

// CreatedAt is the ordering timestamp: share time for shared posts.
func (f FeedItem) CreatedAt() time.Time {
	if f.Shared != nil {
		return f.Shared.CreatedAt
	}
	return f.Post.CreatedAt
}

func (f FeedItem) Category() Category {
	if f.Shared != nil {
		return f.Shared.Category
	}
	return f.Post.Category
}

func (f FeedItem) LikesCount() int {
	if f.Shared != nil {
		return f.Shared.LikesCount
	}
	return f.Post.LikesCount
}

// SetLikesCount overwrites the like counter, floored at zero.
func (f FeedItem) SetLikesCount(n int) {
	if n < 0 {
		n = 0
	}
	if f.Shared != nil {
		f.Shared.LikesCount = n
		return
	}
	f.Post.LikesCount = n
}

func (f FeedItem) CommentsCount() int {
	if f.Shared != nil {
		return f.Shared.CommentsCount
	}
	return f.Post.CommentsCount
}

func (f FeedItem) Comments() []Comment {
	if f.Shared != nil {
		return f.Shared.Comments
	}
	return f.Post.Comments
}

// AppendComment adds c to the embedded comments and bumps the counter.
func (f FeedItem) AppendComment(c Comment) {
	if f.Shared != nil {
		f.Shared.Comments = append(f.Shared.Comments, c)
		f.Shared.CommentsCount++
		return
	}
	f.Post.Comments = append(f.Post.Comments, c)
	f.Post.CommentsCount++
}

// SetCreatedAtLabel records the rendered relative age.
func (f FeedItem) SetCreatedAtLabel(label string) {
	if f.Shared != nil {
		f.Shared.CreatedAtLabel = label
		return
	}
	f.Post.CreatedAtLabel = label
}

// Clone deep-copies the active member.
func (f FeedItem) Clone() FeedItem {
	if f.Shared != nil {
		return FeedItem{Shared: f.Shared.Clone()}
	}
	return FeedItem{Post: f.Post.Clone()}
}

// MarshalJSON flattens the active member and adds is_shared.
func (f FeedItem) MarshalJSON() ([]byte, error) {
	if f.Shared != nil {
		return json.Marshal(struct {
			*SharedPost
			IsShared bool `json:"is_shared"`
		}{f.Shared, true})
	}
	return json.Marshal(struct {
		*Post
		IsShared bool `json:"is_shared"`
	}{f.Post, false})
}
