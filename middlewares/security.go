package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// The API serves JSON, uploaded images and the staff websocket feed.
const contentSecurityPolicy = "default-src 'none'; img-src 'self' data:; connect-src 'self' ws: wss:; frame-ancestors 'none'"

// SecurityHeaders sets the headers shared by every route. Uploaded images may
// be cached, responses to token-bearing requests may not.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", contentSecurityPolicy)

		switch {
		case strings.HasPrefix(c.Request.URL.Path, "/uploads/"):
			h.Set("Cache-Control", "public, max-age=86400")
		case c.GetHeader("Authorization") != "" || c.Query("token") != "":
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}
