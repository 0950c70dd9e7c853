package models

import (
	"slices"
	"time"
)

// Defaults applied when an author or image is missing.
const (
	DefaultPostImage    = "https://images.unsplash.com/photo-1606761568499-6d2451b23c66?ixlib=rb-1.2.1&auto=format&fit=crop&w=1050&q=80"
	DefaultAuthorName   = "Anonymous User"
	DefaultAuthorAvatar = "https://randomuser.me/api/portraits/men/32.jpg"
)

// Post is an original post in the campus feed.
type Post struct {
	ID            string    `gorm:"primaryKey;size:191" json:"id"`
	Title         string    `gorm:"not null" json:"title"`
	Category      Category  `gorm:"not null;index" json:"category"`
	Caption       string    `gorm:"type:text;not null" json:"caption"`
	ImageURL      string    `json:"image_url"`
	AuthorID      string    `gorm:"not null;index" json:"author_id"`
	AuthorName    string    `json:"author_name"`
	AuthorAvatar  string    `json:"author_profile_image"`
	LikesCount    int       `gorm:"not null" json:"likes_count"`
	CommentsCount int       `gorm:"not null" json:"comments_count"`
	ShareCount    int       `gorm:"not null" json:"share_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	// Comments is the denormalized comment list, oldest first. Not persisted.
	Comments []Comment `gorm:"-" json:"comments"`
	// CreatedAtLabel is the relative age rendered for responses.
	CreatedAtLabel string `gorm:"-" json:"created_at_label,omitempty"`
}

// PostSnapshot is the immutable copy of a post's public fields taken when it is shared.
type PostSnapshot struct {
	ID           string    `gorm:"size:191;index" json:"id"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_profile_image"`
	Title        string    `json:"title"`
	Caption      string    `gorm:"type:text" json:"caption"`
	ImageURL     string    `json:"image_url"`
	Category     Category  `json:"category"`
	CreatedAt    time.Time `json:"created_at"`
}

// SharedPost wraps a snapshot of an original post re-posted by another user.
type SharedPost struct {
	ID             string    `gorm:"primaryKey;size:191" json:"id"`
	Title          string    `gorm:"not null" json:"title"`
	Caption        string    `gorm:"type:text;not null" json:"caption"`
	ImageURL       string    `json:"image_url"`
	Category       Category  `gorm:"not null;index" json:"category"`
	SharedByID     string    `gorm:"not null;index" json:"shared_by_id"`
	SharedByName   string    `json:"shared_by_name"`
	SharedByAvatar string    `json:"shared_profile_image"`
	LikesCount     int       `gorm:"not null" json:"likes_count"`
	CommentsCount  int       `gorm:"not null" json:"comments_count"`
	ShareCount     int       `gorm:"not null" json:"share_count"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	// OriginalPost never changes after the share is created.
	OriginalPost   PostSnapshot `gorm:"embedded;embeddedPrefix:original_" json:"original_post"`
	Comments       []Comment    `gorm:"-" json:"comments"`
	CreatedAtLabel string       `gorm:"-" json:"created_at_label,omitempty"`
}

// SharedAt is the time the share was created.
func (s *SharedPost) SharedAt() time.Time {
	return s.CreatedAt
}

// Snapshot captures the public fields of p.
func (p *Post) Snapshot() PostSnapshot {
	return PostSnapshot{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		AuthorName:   p.AuthorName,
		AuthorAvatar: p.AuthorAvatar,
		Title:        p.Title,
		Caption:      p.Caption,
		ImageURL:     p.ImageURL,
		Category:     p.Category,
		CreatedAt:    p.CreatedAt,
	}
}

// Clone returns a copy of p that shares no slices with it.
func (p *Post) Clone() *Post {
	c := *p
	c.Comments = slices.Clone(p.Comments)
	return &c
}

// Clone returns a copy of s that shares no slices with it.
func (s *SharedPost) Clone() *SharedPost {
	c := *s
	c.Comments = slices.Clone(s.Comments)
	return &c
}

// Sharer identifies who re-posts a post.
type Sharer struct {
	ID     string
	Name   string
	Avatar string
}

// Guest sharer identity used when nobody is signed in.
var GuestSharer = Sharer{
	ID:     "guest-user",
	Name:   "Guest User",
	Avatar: "https://randomuser.me/api/portraits/lego/1.jpg",
}

// DefaultShareCaption is the caption of a share that does not set its own.
const DefaultShareCaption = "Shared this post with you!"

// NewSharedPost builds a share of original by sharer at the given time.
func NewSharedPost(original PostSnapshot, sharer Sharer, caption string, at time.Time) *SharedPost {
	if caption == "" {
		caption = DefaultShareCaption
	}
	return &SharedPost{
		ID:             NewSharedPostID(original.ID, at),
		Title:          original.Title,
		Caption:        caption,
		ImageURL:       original.ImageURL,
		Category:       original.Category,
		SharedByID:     sharer.ID,
		SharedByName:   sharer.Name,
		SharedByAvatar: sharer.Avatar,
		CreatedAt:      at,
		OriginalPost:   original,
		Comments:       []Comment{},
	}
}
