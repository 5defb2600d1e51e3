package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const sessionKey = "session_id"

// Session returns an Echo middleware that attaches a session ID to every
// request. The ID comes from the named cookie; a new UUID is issued (and the
// cookie set) when the cookie is absent or malformed.
func Session(cookieName string, maxAge time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(cookieName); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					c.Set(sessionKey, ck.Value)
					return next(c)
				}
			}

			id := uuid.NewString()
			c.SetCookie(&http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(maxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(sessionKey, id)
			return next(c)
		}
	}
}

// SessionID returns the session ID attached by Session, or "".
func SessionID(c echo.Context) string {
	id, _ := c.Get(sessionKey).(string)
	return id
}
