package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const SessionIDKey = "session_id"

type SessionMiddleware struct {
	cookieKey string
	maxAge    time.Duration
}

func NewSessionMiddleware(cookieKey string, daysToExpire int) *SessionMiddleware {
	return &SessionMiddleware{
		cookieKey: cookieKey,
		maxAge:    time.Duration(daysToExpire) * 24 * time.Hour,
	}
}

// Handle makes sure every request carries an anonymous session id. A
// new id is issued as an HttpOnly, SameSite=Strict cookie when the
// request has none.
func (m *SessionMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(m.cookieKey)
		if err != nil || sessionID == "" {
			sessionID = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     m.cookieKey,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(m.maxAge.Seconds()),
				Expires:  time.Now().Add(m.maxAge),
				HttpOnly: true,
				Secure:   c.Request.TLS != nil,
				SameSite: http.SameSiteStrictMode,
			})
			GetLoggerFromContext(c).Debug("Issued new session cookie", nil)
		}

		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}

// GetSessionID extracts the session id set by SessionMiddleware
func GetSessionID(c *gin.Context) (string, bool) {
	sessionID, exists := c.Get(SessionIDKey)
	if !exists {
		return "", false
	}
	s, ok := sessionID.(string)
	return s, ok && s != ""
}
