package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "kasku/internal/errors"
	"kasku/internal/middleware"
	"kasku/internal/models"
	"kasku/internal/services"
	"kasku/internal/session"
)

// TokenIssuer signs and revokes session tokens.
type TokenIssuer interface {
	Issue(id session.Identity) (string, time.Time, error)
	Revoke(ctx context.Context, token string) error
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService services.UserServicer
	tokens      TokenIssuer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userService services.UserServicer, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Name     string `json:"name" binding:"max=100"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

func identityOf(user *models.User) session.Identity {
	return session.Identity{UserID: user.ID, Email: user.Email, Name: user.Name, Image: user.Image}
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, expiresAt, err := h.tokens.Issue(identityOf(user))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	c.JSON(status, AuthResponse{Token: token, ExpiresAt: expiresAt, User: *user})
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register with email and password. Pending invites for the email are linked.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} AuthResponse "User registered and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and get a token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Logout revokes the presented token.
// @Summary     Logout
// @Description Revoke the current bearer token until it expires
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} DeletedResponse "Logged out"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.TokenKey)
	if token == "" {
		respondWithError(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.tokens.Revoke(c.Request.Context(), token); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DeletedResponse{Success: true})
}

// Me returns the user's profile
// @Summary     Current user
// @Description Get the authenticated user's profile
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]models.User "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	id, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), id.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
