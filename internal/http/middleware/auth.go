// Package middleware – JWT authentication.
//
// This file provides the bearer-token authentication and role authorization
// middleware:
//
//   - Auth() parses and validates the Authorization header, storing the
//     authenticated user id and role in the Gin context for downstream
//     handlers.
//   - RequireAdmin() gates admin-only routes; it must be placed after Auth().
//
// Failures are written as the same JSON error envelope the handlers package
// produces (request_id/code/message), duplicated here to avoid an import
// cycle between middleware and handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/itemgate/go-itemgate-backend/internal/auth"
	"github.com/itemgate/go-itemgate-backend/internal/domain"
)

const (
	// authUserIDKey is the Gin context key holding the authenticated user id.
	authUserIDKey = "authUserID"
	// authRoleKey is the Gin context key holding the authenticated role.
	authRoleKey = "authRole"
)

// Auth validates the "Authorization: Bearer <token>" header against the
// token manager and stores the authenticated identity in the Gin context.
// Requests without a valid token are rejected with 401.
func Auth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			authFail(c, "missing authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			authFail(c, "authorization header must be a bearer token")
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			authFail(c, "invalid or expired token")
			return
		}

		c.Set(authUserIDKey, claims.UserID)
		c.Set(authRoleKey, claims.Role)
		c.Next()
	}
}

// RequireAdmin rejects requests whose authenticated role is not admin.
// Place after Auth().
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if RoleFrom(c) != domain.RoleAdmin {
			rid, _ := c.Get(requestIDKey)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": asString(rid),
				"code":       "forbidden",
				"message":    "admin role required",
			})
			return
		}
		c.Next()
	}
}

// UserIDFrom returns the authenticated user id stored by Auth(), or 0 when
// the request is unauthenticated.
func UserIDFrom(c *gin.Context) uint {
	if v, ok := c.Get(authUserIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// RoleFrom returns the authenticated role stored by Auth(), or "" when the
// request is unauthenticated.
func RoleFrom(c *gin.Context) string {
	if v, ok := c.Get(authRoleKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// authFail aborts with a 401 JSON envelope carrying the request id.
func authFail(c *gin.Context, msg string) {
	rid, _ := c.Get(requestIDKey)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": asString(rid),
		"code":       "unauthorized",
		"message":    msg,
	})
}
