package auth

import (
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/gofiber/fiber/v2"
)

// CookieManager sets and clears the session cookie. Outside development the
// cookie is Secure and SameSite=None so a separately hosted front end can
// send it; in development it is SameSite=Lax over plain HTTP.
type CookieManager struct {
	ttl         time.Duration
	development bool
}

// NewCookieManager returns a manager whose cookies live for ttl, expressed
// as Max-Age.
func NewCookieManager(ttl time.Duration, development bool) *CookieManager {
	return &CookieManager{ttl: ttl, development: development}
}

func (m *CookieManager) base() *fiber.Cookie {
	c := &fiber.Cookie{
		Name:     common.SessionCookieName,
		Path:     "/",
		HTTPOnly: true,
		Secure:   !m.development,
		SameSite: fiber.CookieSameSiteNoneMode,
	}
	if m.development {
		c.SameSite = fiber.CookieSameSiteLaxMode
	}
	return c
}

// Attach sets the session cookie to token.
func (m *CookieManager) Attach(c *fiber.Ctx, token string) {
	cookie := m.base()
	cookie.Value = token
	cookie.MaxAge = int(m.ttl.Seconds())
	c.Cookie(cookie)
}

// Clear overwrites the session cookie with an empty, already expired one.
func (m *CookieManager) Clear(c *fiber.Ctx) {
	cookie := m.base()
	cookie.Value = ""
	cookie.Expires = time.Unix(0, 0)
	cookie.MaxAge = -1
	c.Cookie(cookie)
}

// Token returns the session token carried by the request, if any.
func (m *CookieManager) Token(c *fiber.Ctx) string {
	return c.Cookies(common.SessionCookieName)
}
