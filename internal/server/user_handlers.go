package server

import (
	"lufeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	session := sessionFrom(c)
	user, err := s.auth.User(c.UserContext(), session.UID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update profile
// @Description Change the display name and/or photo URL of the current user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{display_name=string,photo_url=string} true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		DisplayName string `json:"display_name"`
		PhotoURL    string `json:"photo_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := s.auth.UpdateProfile(c.UserContext(), sessionFrom(c).UID, req.DisplayName, req.PhotoURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetMyPosts handles GET /api/users/me/posts
// @Summary Posts by the current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /users/me/posts [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.feed.UserPosts(c.UserContext(), sessionFrom(c).UID)
	if err != nil {
		return respondError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.JSON(labelPosts(posts, s.now()))
}
