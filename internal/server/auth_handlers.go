package server

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"garagebook/internal/cache"
	"garagebook/internal/middleware"
	"garagebook/internal/models"
	"garagebook/internal/service"
	"garagebook/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// RegisterRequest is the register form as posted by clients.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FullName        string `json:"fullName"`
	Bio             string `json:"bio"`
	Avatar          string `json:"avatar"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest carries the credentials for Login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthRequired verifies the bearer token and stores the caller in locals.
// Browsers cannot set headers on websocket upgrades, so /api/ws also accepts ?token=.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := middleware.BearerToken(c.Get("Authorization"))
		if tokenString == "" && strings.HasPrefix(c.Path(), "/api/ws") {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := middleware.ParseToken(s.config.JWTSecret, tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		if s.revoked(c.UserContext(), claims.JTI) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		c.Locals("userID", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("jti", claims.JTI)
		c.Locals("tokenExp", claims.ExpiresAt)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))
		return c.Next()
	}
}

// Register creates a member and signs them in.
// @Summary Register a new member
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} AuthResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	if err := validation.ValidateRegistration(validation.Registration{
		Username:        req.Username,
		Email:           req.Email,
		FullName:        req.FullName,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}); err != nil {
		return respondError(c, err)
	}

	user, err := s.directory.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, User: user})
}

// Login exchanges email and password for a token.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	user, err := s.directory.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(AuthResponse{Token: token, User: user})
}

// Logout revokes the caller's token until it would have expired anyway.
// Without Redis tokens cannot be revoked and logout is client-side only.
func (s *Server) Logout(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	exp, _ := c.Locals("tokenExp").(time.Time)

	if s.redis != nil && jti != "" {
		ttl := time.Until(exp)
		if ttl <= 0 {
			ttl = time.Minute
		}
		if err := s.redis.Set(c.UserContext(), cache.RevokedTokenKey(jti), "1", ttl).Err(); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token",
				slog.String("error", err.Error()))
			return respondError(c, models.NewInternalError(errors.New("could not revoke token")))
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (s *Server) issueToken(user *models.User) (string, error) {
	token, _, err := middleware.GenerateToken(s.config.JWTSecret, user.ID, user.Username, s.now())
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}
