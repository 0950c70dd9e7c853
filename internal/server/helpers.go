package server

import (
	"time"

	"lufeed/internal/feed"
	"lufeed/internal/middleware"
	"lufeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondError writes err with the status its AppError code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

func invalidBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

// sessionFrom returns the session attached by AuthRequired or OptionalAuth,
// or nil for an anonymous request.
func sessionFrom(c *fiber.Ctx) *models.Session {
	session, _ := c.Locals(middleware.LocalSession).(*models.Session)
	return session
}

// labelItems renders the relative age of every item as of now.
func labelItems(items []models.FeedItem, now time.Time) []models.FeedItem {
	for _, item := range items {
		ts := item.CreatedAt()
		item.SetCreatedAtLabel(feed.FormatRelative(&ts, now))
	}
	return items
}

func labelPosts(posts []*models.Post, now time.Time) []*models.Post {
	for _, p := range posts {
		p.CreatedAtLabel = feed.FormatRelative(&p.CreatedAt, now)
	}
	return posts
}

// parseCategoryQuery reads ?category=. An empty value means all categories.
func parseCategoryQuery(c *fiber.Ctx) (models.Category, error) {
	raw := c.Query("category")
	if raw == "" {
		return "", nil
	}
	return models.ParseCategory(raw)
}
