package models

import "time"

// Like represents a user's like on a post.
// Likes are never removed; unliking sets Deleted. At most one live
// (Deleted = false) like exists per (PostID, UserID), enforced by a
// partial unique index.
type Like struct {
	ID        string    `gorm:"primaryKey;size:191" json:"id"`
	PostID    string    `gorm:"not null;size:191;index" json:"post_id"`
	UserID    string    `gorm:"not null;size:191;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Deleted   bool      `gorm:"not null" json:"deleted"`
}
