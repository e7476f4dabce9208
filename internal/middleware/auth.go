package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "kasku/internal/errors"
	"kasku/internal/services"
	"kasku/internal/session"
)

// Context keys shared with the handlers.
const (
	IdentityKey       = "identity"
	TokenKey          = "token"
	AccountContextKey = "accountContext"
)

// Authenticate resolves the bearer token, when one is present and valid, and
// stores the identity on the context. It never aborts: account routes must
// report an unknown account before a missing session, so the decision is
// left to RequireAuth and AccountAccess.
func Authenticate(resolver session.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := session.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		id, err := resolver.Resolve(c.Request.Context(), token)
		if err == nil && id != nil {
			c.Set(IdentityKey, id)
			c.Set(TokenKey, token)
		}
		c.Next()
	}
}

// RequireAuth aborts with 401 unless Authenticate stored an identity.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c) == nil {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// AccountAccess resolves the :account path segment into an AccountContext
// for the caller. With requireOwner set, members who are not the owner are
// rejected.
func AccountAccess(access services.AccessServicer, requireOwner bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, err := access.ResolveAccountContext(c.Request.Context(), GetIdentity(c), c.Param("account"), requireOwner)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(AccountContextKey, ac)
		c.Next()
	}
}

// GetIdentity returns the identity stored by Authenticate, or nil.
func GetIdentity(c *gin.Context) *session.Identity {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*session.Identity)
	return id
}

// GetAccountContext returns the context stored by AccountAccess, or nil.
func GetAccountContext(c *gin.Context) *services.AccountContext {
	v, ok := c.Get(AccountContextKey)
	if !ok {
		return nil
	}
	ac, _ := v.(*services.AccountContext)
	return ac
}
