package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signaware-client/internal/shared/server/respond"
)

const userIDKey = "userId"

// Principal reports the signed-in user of the local session, if any.
type Principal func() (userID string, ok bool)

// SessionGuard rejects requests while no user is signed in and stores the
// user id in context for logging and rate limiting.
func SessionGuard(current Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		userID, ok := current()
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthenticated", "Please sign in to continue", nil)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by SessionGuard.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}
