// Package auth implements the x-api-key check for the pricing and
// catalog HTTP boundary ("Auth: x-api-key header validated against a
// configured set; missing or invalid -> 401").
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const headerName = "x-api-key"

// APIKeyMiddleware validates the x-api-key header against the configured
// set of valid keys. If keys is empty, authentication is disabled. Both
// a missing key and an invalid one return 401 (see DESIGN.md for the
// reasoning).
func APIKeyMiddleware(keys []string) gin.HandlerFunc {
	valid := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			valid[k] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		if len(valid) == 0 {
			c.Next()
			return
		}

		provided := c.GetHeader(headerName)
		if provided == "" || !matchesAny(valid, provided) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "UNAUTHORIZED",
			})
			return
		}

		c.Next()
	}
}

func matchesAny(valid map[string]struct{}, provided string) bool {
	for k := range valid {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(k)) == 1 {
			return true
		}
	}
	return false
}
