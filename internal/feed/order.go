package feed

import (
	"slices"

	"lufeed/internal/models"
)

// Compare orders feed items: shared posts first, then newest first within a tier.
func Compare(a, b models.FeedItem) int {
	if a.IsShared() != b.IsShared() {
		if a.IsShared() {
			return -1
		}
		return 1
	}
	return b.CreatedAt().Compare(a.CreatedAt())
}

// Less reports whether a sorts before b.
func Less(a, b models.FeedItem) bool {
	return Compare(a, b) < 0
}

// Sort orders items in place. Items that compare equal keep their relative order.
func Sort(items []models.FeedItem) {
	slices.SortStableFunc(items, Compare)
}
