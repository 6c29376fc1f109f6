package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookieName is the cookie carrying the guest session ID
	SessionCookieName = "shop_session"
	// SessionHeaderName lets API clients pass the session ID explicitly
	SessionHeaderName = "X-Session-ID"
	// UserHeaderName carries the authenticated user ID, set by the
	// auth proxy in front of this service
	UserHeaderName = "X-User-ID"

	// SessionIDKey is the gin context key for the session ID
	SessionIDKey = "session_id"
	// UserIDKey is the gin context key for the user ID
	UserIDKey = "user_id"

	sessionCookieMaxAge = 7 * 24 * 60 * 60 // seconds, matches cart TTL
)

// Session resolves the caller's identity for cart ownership. Every
// request gets a session ID (header, cookie, or freshly minted), and
// requests from signed-in shoppers additionally carry a user ID.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionHeaderName)
		if sessionID == "" {
			if cookie, err := c.Cookie(SessionCookieName); err == nil {
				sessionID = cookie
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			c.SetCookie(SessionCookieName, sessionID, sessionCookieMaxAge, "/", "", false, true)
		}
		c.Set(SessionIDKey, sessionID)

		if userID := c.GetHeader(UserHeaderName); userID != "" {
			if parsed, err := uuid.Parse(userID); err == nil {
				c.Set(UserIDKey, parsed)
			}
		}

		c.Next()
	}
}

// GetSessionID returns the session ID resolved for this request.
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

// GetUserID returns the authenticated user ID, or uuid.Nil and false
// for guests.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
