// Package models contains data structures for the application's domain models.
package models

import "strings"

// Category is the fixed set of feed sections a post can belong to.
type Category string

const (
	CategoryNotices          Category = "Notices"
	CategoryClubActivities   Category = "Club Activities"
	CategoryLostAndFound     Category = "Lost & Found"
	CategoryTeachersOpinions Category = "Teachers Opinions"
	CategoryFAQs             Category = "FAQs"
)

// DefaultCategory is used when a post is created without one.
const DefaultCategory = CategoryNotices

// CategoryInfo describes a category for the category browser.
type CategoryInfo struct {
	ID          int      `json:"id"`
	Name        Category `json:"name"`
	Description string   `json:"description"`
}

var categoryCatalog = []CategoryInfo{
	{ID: 1, Name: CategoryNotices, Description: "Important announcements and notices from the university"},
	{ID: 2, Name: CategoryClubActivities, Description: "Events, meetings and activities from university clubs"},
	{ID: 3, Name: CategoryLostAndFound, Description: "Lost or found items within the campus"},
	{ID: 4, Name: CategoryTeachersOpinions, Description: "Thoughts, advice and experiences shared by faculty"},
	{ID: 5, Name: CategoryFAQs, Description: "Common questions and answers about university life"},
}

// Categories returns the category catalog in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryCatalog))
	copy(out, categoryCatalog)
	return out
}

// ParseCategory resolves a category name case-insensitively.
// An empty name yields DefaultCategory.
func ParseCategory(name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultCategory, nil
	}
	for _, c := range categoryCatalog {
		if strings.EqualFold(string(c.Name), name) {
			return c.Name, nil
		}
	}
	return "", NewValidationError("Unknown category: " + name)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, info := range categoryCatalog {
		if info.Name == c {
			return true
		}
	}
	return false
}
