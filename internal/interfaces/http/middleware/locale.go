package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/infrastructure/i18n"
	"golang.org/x/text/language"
)

// LocaleKey is the gin context key of the negotiated language tag
const LocaleKey = "locale"

// Locale negotiates the response language from the lang query parameter,
// the lang cookie and Accept-Language, in that order.
func Locale() gin.HandlerFunc {
	return func(c *gin.Context) {
		explicit := c.Query(i18n.CookieName)
		if explicit == "" {
			explicit, _ = c.Cookie(i18n.CookieName)
		}
		tag := i18n.Negotiate(explicit, c.GetHeader("Accept-Language"))
		c.Set(LocaleKey, tag)
		c.Header("Content-Language", i18n.Code(tag))
		c.Next()
	}
}

// GetLocale returns the negotiated language, Dutch when Locale did not run
func GetLocale(c *gin.Context) language.Tag {
	if v, ok := c.Get(LocaleKey); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return i18n.Dutch
}
