package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AccessTokenCookie is the session cookie name. The same token is also
// returned in the response body for bearer-style clients.
const AccessTokenCookie = "accessToken"

// CookieManager writes the session cookie. Production uses Secure with
// SameSite=None (the SPA is served cross-origin); everything else uses Lax
// so local HTTP development works.
type CookieManager struct {
	Domain     string
	Production bool
}

func NewCookieManager(domain string, production bool) *CookieManager {
	return &CookieManager{Domain: domain, Production: production}
}

func (m *CookieManager) sameSite() http.SameSite {
	if m.Production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetSession stores the token in an HttpOnly cookie whose Max-Age matches
// the token expiry.
func (m *CookieManager) SetSession(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(m.sameSite())
	c.SetCookie(AccessTokenCookie, token, maxAgeFrom(exp), "/", m.Domain, m.Production, true)
}

// Clear past-dates the cookie with an empty value.
func (m *CookieManager) Clear(c *gin.Context) {
	c.SetSameSite(m.sameSite())
	c.SetCookie(AccessTokenCookie, "", -1, "/", m.Domain, m.Production, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
