package server

import (
	"lufeed/internal/feed"
	"lufeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/feed
// @Summary Load the feed
// @Description Reload posts, comments and shared posts from the store and return the ordered feed
// @Tags feed
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {array} models.FeedItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	category, err := parseCategoryQuery(c)
	if err != nil {
		return respondError(c, err)
	}

	items, err := s.feed.Load(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if category != "" {
		filtered := items[:0]
		for _, item := range items {
			if item.Category() == category {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	return c.JSON(labelItems(items, s.now()))
}

// GetCachedFeed handles GET /api/feed/cached
// @Summary Current feed
// @Description Return the in-memory feed without reloading it
// @Tags feed
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {array} models.FeedItem
// @Failure 400 {object} models.ErrorResponse
// @Router /feed/cached [get]
func (s *Server) GetCachedFeed(c *fiber.Ctx) error {
	category, err := parseCategoryQuery(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(labelItems(s.feed.Filter(category), s.now()))
}

// GetCategories handles GET /api/categories
// @Summary List categories
// @Tags feed
// @Produce json
// @Success 200 {array} models.CategoryInfo
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	return c.JSON(models.Categories())
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,content=string,category=string,image_url=string} true "New post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Category string `json:"category"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	post, err := s.feed.CreatePost(c.UserContext(), sessionFrom(c), feed.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return respondError(c, err)
	}

	post.CreatedAtLabel = feed.FormatRelative(&post.CreatedAt, s.now())
	return c.Status(fiber.StatusCreated).JSON(post)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Description Likes the post, or removes the caller's like if one exists
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post or shared post ID"
// @Success 200 {object} feed.LikeResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	res, err := s.feed.ToggleLike(c.UserContext(), sessionFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// SharePost handles POST /api/posts/:id/share
// @Summary Share a post
// @Description Shares the post, or the original of a shared post. Anonymous callers share as the guest user.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post or shared post ID"
// @Param request body object{caption=string} false "Share caption"
// @Success 201 {object} models.SharedPost
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /posts/{id}/share [post]
func (s *Server) SharePost(c *fiber.Ctx) error {
	var req struct {
		Caption string `json:"caption"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
	}

	shared, err := s.feed.Share(c.UserContext(), sessionFrom(c), c.Params("id"), req.Caption)
	if err != nil {
		return respondError(c, err)
	}

	shared.CreatedAtLabel = feed.FormatRelative(&shared.CreatedAt, s.now())
	return c.Status(fiber.StatusCreated).JSON(shared)
}

// AddComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post or shared post ID"
// @Param request body object{text=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	comment, err := s.feed.AddComment(c.UserContext(), sessionFrom(c), c.Params("id"), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flags
// @Tags flags
// @Produce json
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	var uid string
	if session := sessionFrom(c); session != nil {
		uid = session.UID
	}

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(uid),
	})
}
