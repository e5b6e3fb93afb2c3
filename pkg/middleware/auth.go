package middleware

import (
	"context"
	"strings"

	"github.com/docchat/backend/internal/models"
	"github.com/docchat/backend/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// Context keys set by Auth.
const (
	ContextUserKey  = "user"
	ContextTokenKey = "token"
)

// Resolver maps a raw bearer token to the user it was issued for.
type Resolver interface {
	ResolveCurrentUser(ctx context.Context, raw string) (*models.User, error)
}

// Auth returns a Gin middleware that requires a valid Bearer token and stores the
// resolved user under ContextUserKey.
func Auth(res Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			RespondError(c, apperr.New(apperr.CodeUnauthorized, apperr.MsgInvalidCredentials))
			return
		}
		u, err := res.ResolveCurrentUser(c.Request.Context(), token)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.Set(ContextUserKey, u)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" value.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CurrentUser returns the user stored by Auth, or nil outside an authenticated route.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// CurrentToken returns the raw bearer token accepted by Auth.
func CurrentToken(c *gin.Context) string {
	return c.GetString(ContextTokenKey)
}
