package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// Context keys set by the auth middleware
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
	ClaimsKey   = "claims"
)

// ErrMissingAuthHeader means the request carries no credentials
var ErrMissingAuthHeader = errors.New("missing authorization header")

var errBadAuthHeader = errors.New("invalid authorization header format")

// AuthMiddleware rejects requests without a valid token
func AuthMiddleware(validator service.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		if !authenticate(c, validator, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent and lets anonymous
// requests through. A token that is sent but invalid is still rejected.
func OptionalAuth(validator service.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if errors.Is(err, ErrMissingAuthHeader) {
			c.Next()
			return
		}
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		if !authenticate(c, validator, token) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, validator service.TokenValidator, token string) bool {
	claims, err := validator.ValidateToken(c.Request.Context(), token)
	if err != nil {
		if service.KindOf(err) == service.KindUnauthorized {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
		} else {
			Logger(c).WithError(err).Error("token validation failed")
			abortWithError(c, http.StatusInternalServerError, "internal", "internal server error")
		}
		return false
	}

	c.Set(UserIDKey, claims.UserID)
	c.Set(UsernameKey, claims.Username)
	c.Set(ClaimsKey, claims)
	return true
}

// extractToken accepts both "Token <t>" and "Bearer <t>"
func extractToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !(strings.EqualFold(parts[0], "Bearer") || strings.EqualFold(parts[0], "Token")) {
		return "", errBadAuthHeader
	}
	return parts[1], nil
}

// UserID returns the authenticated user, if any
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Viewer returns the authenticated user or nil for anonymous requests
func Viewer(c *gin.Context) *uuid.UUID {
	if id, ok := UserID(c); ok {
		return &id
	}
	return nil
}

func Claims(c *gin.Context) (*types.TokenClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*types.TokenClaims)
	return claims, ok
}
