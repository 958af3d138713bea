package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHeader identifies an anonymous client session.
const SessionHeader = "X-Session-Id"

const sessionContextKey = "mtm_session_id"

const maxSessionIDLength = 64

// Session stores the client's session id in the context, generating one when
// the header is missing or unreasonably long.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" || len(id) > maxSessionIDLength {
			id = uuid.NewString()
		}
		c.Set(sessionContextKey, id)
		c.Next()
	}
}

// SessionID returns the id stored by Session, or a fresh one.
func SessionID(c *gin.Context) string {
	if id := c.GetString(sessionContextKey); id != "" {
		return id
	}
	return uuid.NewString()
}
