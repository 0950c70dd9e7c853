package models

import "time"

// Comment is a comment on a post or shared post.
type Comment struct {
	ID         string    `gorm:"primaryKey;size:191" json:"id"`
	PostID     string    `gorm:"not null;size:191;index:idx_comments_post_created,priority:1" json:"post_id"`
	AuthorID   string    `gorm:"not null" json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
}
