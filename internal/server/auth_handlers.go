package server

import (
	"lufeed/internal/auth"
	"lufeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account and sign it in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.SignUpInput true "Signup request"
// @Success 201 {object} auth.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req auth.SignUpInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	res, err := s.auth.SignUp(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login request"
// @Success 200 {object} auth.AuthResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	res, err := s.auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Logout handles POST /api/auth/logout
// @Summary User logout
// @Description Revoke the current session token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}

	if err := s.auth.SignOut(c.UserContext(), token); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}
