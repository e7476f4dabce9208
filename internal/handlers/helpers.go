package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "kasku/internal/errors"
	"kasku/internal/middleware"
	"kasku/internal/services"
	"kasku/internal/session"
	"kasku/internal/uuid"
)

// getIdentity returns the authenticated identity from the Gin context.
// Returns ErrUnauthorized if not present.
func getIdentity(c *gin.Context) (*session.Identity, error) {
	id := middleware.GetIdentity(c)
	if id == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return id, nil
}

// getAccountContext returns the context resolved by the account access
// middleware. A route mounted without that middleware is a wiring bug.
func getAccountContext(c *gin.Context) (*services.AccountContext, error) {
	ac := middleware.GetAccountContext(c)
	if ac == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return ac, nil
}

// pathID returns a path parameter that must be a UUID.
func pathID(c *gin.Context, param string) (string, error) {
	id := c.Param(param)
	if !uuid.IsValid(id) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// optionalID checks an optional reference id from a request. Nil and empty
// values pass; anything else must be a UUID.
func optionalID(field string, id *string) error {
	if id == nil || *id == "" || uuid.IsValid(*id) {
		return nil
	}
	return apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+field)
}

// bindError turns a binding failure into an INVALID_INPUT error.
func bindError(err error) error {
	return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
}

// parseTime accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

// queryInt parses an optional integer query parameter; absent yields 0.
func queryInt(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid "+name)
	}
	return n, nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error" example:"Wallet not found"`
	Code  string `json:"code" example:"WALLET_NOT_FOUND"`
}

// DeletedResponse is returned by delete endpoints.
type DeletedResponse struct {
	Success bool `json:"success" example:"true"`
}
