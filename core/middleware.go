package core

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextUserKey = "auth_user"

// RequestIDMiddleware tags every request with a short random id for log
// correlation. An inbound X-Request-ID is trusted and echoed back.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = randomHex(8)
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		for i := range b {
			b[i] = byte(i + 1)
		}
	}
	return hex.EncodeToString(b)
}

// OriginRefererMiddleware validates Origin/Referer against the allowed list
// and sets CORS headers. Requests without an Origin header (same-origin
// navigation, curl) are allowed through.
func OriginRefererMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			return true
		}
		if len(allowed) == 0 {
			return false
		}
		origin = strings.ToLower(origin)
		_, ok := allowed[origin]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		referer := c.GetHeader("Referer")
		if origin == "" && referer != "" {
			if u, err := url.Parse(referer); err == nil {
				origin = u.Scheme + "://" + u.Host
			}
		}

		// Preflight handling
		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin) {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
}

// AuthMiddleware verifies the bearer token on every request and binds the
// resolved user to the gin context. Verification is stateless; nothing is
// cached between requests.
func AuthMiddleware(tokens *TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := tokens.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if IsAuthRejection(err) {
				respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing bearer token")
			} else {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "authentication backend unavailable")
			}
			c.Abort()
			return
		}
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// AdminOnly ensures the authenticated user has the admin role. Must run
// after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || user.Role != "admin" {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "admin privileges required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the identity bound to the request by AuthMiddleware.
func CurrentUser(c *gin.Context) (User, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return User{}, false
	}
	user, ok := v.(User)
	return user, ok
}
