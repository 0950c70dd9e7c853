package models

import (
	"strings"
	"time"
)

// DefaultUserPhoto is shown for users without a profile photo.
const DefaultUserPhoto = "https://randomuser.me/api/portraits/lego/1.jpg"

// User is an account held by the identity provider.
type User struct {
	UID          string    `gorm:"primaryKey;size:191" json:"uid"`
	DisplayName  string    `gorm:"not null" json:"display_name"`
	Email        string    `gorm:"uniqueIndex;not null;size:191" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	PhotoURL     string    `json:"photo_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is the signed-in user as seen by feed operations.
// A nil *Session means nobody is signed in.
type Session struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photo_url"`
}

// Session returns the session view of u.
func (u *User) Session() *Session {
	return &Session{
		UID:         u.UID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		PhotoURL:    u.PhotoURL,
	}
}

// Name is the display name, falling back to the local part of the email.
func (s *Session) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if local, _, ok := strings.Cut(s.Email, "@"); ok && local != "" {
		return local
	}
	return s.Email
}

// Sharer returns the identity recorded on shares made in this session.
// A nil session shares as the guest user.
func (s *Session) Sharer() Sharer {
	if s == nil {
		return GuestSharer
	}
	avatar := s.PhotoURL
	if avatar == "" {
		avatar = GuestSharer.Avatar
	}
	return Sharer{ID: s.UID, Name: s.Name(), Avatar: avatar}
}
