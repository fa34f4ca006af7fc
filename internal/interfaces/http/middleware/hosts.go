package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
)

// AllowedHosts rejects requests whose Host header matches none of the patterns.
// "*" matches any host and ".example.com" matches example.com and every subdomain.
func AllowedHosts(patterns []string) gin.HandlerFunc {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			normalized = append(normalized, p)
		}
	}

	return func(c *gin.Context) {
		host := requestHost(c.Request.Host)
		if !hostAllowed(host, normalized) {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDisallowedHost, "Invalid HTTP_HOST header: "+host, GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// requestHost strips the port and a trailing dot from a Host header
func requestHost(hostport string) string {
	host := strings.ToLower(hostport)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	return strings.TrimSuffix(host, ".")
}

func hostAllowed(host string, patterns []string) bool {
	if host == "" {
		return false
	}
	for _, p := range patterns {
		switch {
		case p == "*":
			return true
		case strings.HasPrefix(p, "."):
			if host == p[1:] || strings.HasSuffix(host, p) {
				return true
			}
		case host == p:
			return true
		}
	}
	return false
}
