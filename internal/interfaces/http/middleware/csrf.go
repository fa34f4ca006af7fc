package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/interfaces/http/dto"
)

// TrustedOrigins protects cookie-authenticated unsafe requests against
// cross-site submission. The Origin header, or the Referer when no Origin is
// sent, must name the request host or one of the trusted origins. Requests
// authenticated by an Authorization header are not checked: browsers never
// attach those on their own.
func TrustedOrigins(origins []string) gin.HandlerFunc {
	trusted := trustedSet(origins)

	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) || GetAuthSource(c) != AuthSourceCookie {
			c.Next()
			return
		}

		source := c.GetHeader("Origin")
		if source == "" || source == "null" {
			source = c.GetHeader("Referer")
		}
		if !originAllowed(source, c.Request, trusted) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeCSRFFailed, "CSRF verification failed: origin not trusted", GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// OriginTrusted reports whether a browser origin names the request host or a
// trusted origin. The socket endpoint uses it for its handshake.
func OriginTrusted(origins []string) func(origin *url.URL, r *http.Request) bool {
	trusted := trustedSet(origins)
	return func(origin *url.URL, r *http.Request) bool {
		return origin != nil && originAllowed(origin.String(), r, trusted)
	}
}

func trustedSet(origins []string) map[string]bool {
	trusted := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/"); o != "" {
			trusted[o] = true
		}
	}
	return trusted
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func originAllowed(raw string, r *http.Request, trusted map[string]bool) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	origin := strings.ToLower(u.Scheme + "://" + u.Host)
	if trusted[origin] {
		return true
	}
	return strings.EqualFold(u.Host, r.Host)
}
