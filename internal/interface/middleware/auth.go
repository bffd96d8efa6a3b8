package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/m0hi1/voyageiq/internal/domain/entity"
	"github.com/m0hi1/voyageiq/pkg/helpers"
	"github.com/m0hi1/voyageiq/pkg/response"
)

const (
	CtxUserIDKey   = "userID"
	CtxUserRoleKey = "userRole"
)

// Identity is the authenticated {id, role} pair attached to the request
// context for downstream handlers.
type Identity struct {
	ID   string
	Role entity.Role
}

// IdentityFrom reads the identity set by Auth. ok is false before Auth ran.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	id := c.GetString(CtxUserIDKey)
	if id == "" {
		return Identity{}, false
	}
	role, _ := c.Get(CtxUserRoleKey)
	r, _ := role.(entity.Role)
	return Identity{ID: id, Role: r}, true
}

// extractToken looks in the session cookie first, then the Authorization
// bearer header. Cookie precedence is deliberate: browser flows own the
// cookie, and a stale header from an SPA must not shadow it.
func extractToken(c *gin.Context) string {
	if tok, err := c.Cookie(helpers.AccessTokenCookie); err == nil && tok != "" {
		return tok
	}
	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// Auth verifies the session token and attaches {id, role} to the context.
// Missing token and expired token are 401; a malformed token or a bad
// signature is 403; a missing signing secret is a 500 and never blamed on
// the caller.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.AbortError(c, http.StatusUnauthorized, "you are not logged in", nil)
			return
		}
		claims, err := jwt.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, helpers.ErrNoSecret):
				response.AbortError(c, http.StatusInternalServerError, "service misconfigured", nil)
			case errors.Is(err, helpers.ErrTokenExpired):
				response.AbortError(c, http.StatusUnauthorized, "session expired, please log in again", nil)
			default:
				response.AbortError(c, http.StatusForbidden, "invalid access token", nil)
			}
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxUserRoleKey, claims.Role)
		c.Next()
	}
}

// RequireAdmin allows only the admin role. Must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := IdentityFrom(c)
		if !ok || ident.Role != entity.RoleAdmin {
			response.AbortError(c, http.StatusForbidden, "admin access required", nil)
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin allows the owning identity or any admin for routes
// whose URL parameter names the resource owner. Must run after Auth.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := IdentityFrom(c)
		if !ok || !AllowSelfOrAdmin(ident, c.Param(param)) {
			response.AbortError(c, http.StatusForbidden, "you do not have access to this resource", nil)
			return
		}
		c.Next()
	}
}

// AllowSelfOrAdmin is the pure ownership policy: the owner or an admin.
func AllowSelfOrAdmin(ident Identity, resourceOwnerID string) bool {
	return ident.ID == resourceOwnerID || ident.Role == entity.RoleAdmin
}
