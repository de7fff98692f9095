package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// IngestAuthRequired authenticates telemetry ingestion with a static
// bearer key. When no key is configured the check is disabled, which is
// the expected mode for local development.
func (s *Server) IngestAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.IngestAPIKey == "" {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(s.cfg.IngestAPIKey)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// IngestRateLimited bounds telemetry writes per storage location so one
// chatty sensor bank cannot starve the rest.
func (s *Server) IngestRateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !s.ingestLimit.Allow(key) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
