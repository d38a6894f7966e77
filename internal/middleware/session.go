package middleware

import (
	"errors"
	"strings"
	"time"

	"librestock/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionCookieName is the cookie the auth service sets on sign-in.
const SessionCookieName = "session_token"

const identityContextKey = "identity"

// Identity is the authenticated caller, resolved from the auth service's
// session table.
type Identity struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionLoader resolves the caller identity from the session token and
// stores it in the request context. It never aborts: whether an identity is
// required is the authorization gate's decision, not this middleware's.
func SessionLoader(users repository.UserRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.Next()
			return
		}

		session, err := users.FindSessionByToken(c.Request.Context(), token, time.Now())
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Warn("session lookup failed", zap.Error(err))
			}
			c.Next()
			return
		}

		c.Set(identityContextKey, Identity{
			UserID:    session.UserID,
			SessionID: session.ID,
			IssuedAt:  session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
		})
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by SessionLoader, if any.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityContextKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// SetIdentity injects an identity directly, bypassing session lookup. Tests
// use it to simulate an authenticated caller.
func SetIdentity(c *gin.Context, identity Identity) {
	c.Set(identityContextKey, identity)
}

// sessionToken reads the token from the session cookie, falling back to a
// bearer Authorization header for non-browser clients.
func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookieName); err == nil && token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
