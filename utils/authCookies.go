package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// SetAuthCookies stores both tokens as HTTP-only cookies.
func SetAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	writeAuthCookie(c, AccessTokenCookie, accessToken, int(AccessTokenExpiry.Seconds()))
	writeAuthCookie(c, RefreshTokenCookie, refreshToken, int(RefreshTokenExpiry.Seconds()))
}

func ClearAuthCookies(c *gin.Context) {
	writeAuthCookie(c, AccessTokenCookie, "", -1)
	writeAuthCookie(c, RefreshTokenCookie, "", -1)
}

// TokenFromRequest reads a token from the query string first, then from the
// cookie of the same name.
func TokenFromRequest(c *gin.Context, name string) string {
	if token := c.Query(name); token != "" {
		return token
	}
	if cookie, err := c.Cookie(name); err == nil {
		return cookie
	}
	return ""
}

func writeAuthCookie(c *gin.Context, name, value string, maxAge int) {
	// Plain http is only allowed while running in debug mode.
	secure := gin.Mode() != gin.DebugMode
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}
