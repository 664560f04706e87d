package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	SessionName = "fishly-session"
	SessionKey  = "session_id"

	contextKey = "browsing_session_id"
)

// NewSessionStore returns the cookie store that carries the browsing-session id.
func NewSessionStore(secretKey string, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// BrowsingSession makes sure every request carries a browsing-session id; one
// cart belongs to each id.
func BrowsingSession(store sessions.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.Get(c.Request, SessionName)
		if err != nil {
			// tampered or rotated-secret cookie: start over
			logger.Debug("discarding unreadable session cookie", zap.Error(err))
			session = sessions.NewSession(store, SessionName)
			session.Options = cookieOptions(store)
		}

		id, ok := session.Values[SessionKey].(string)
		if !ok || id == "" {
			id = uuid.NewString()
			session.Values[SessionKey] = id
			session.IsNew = true
			if err := session.Save(c.Request, c.Writer); err != nil {
				logger.Error("save session cookie", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session_unavailable"})
				return
			}
		}

		c.Set(contextKey, id)
		c.Next()
	}
}

// BrowsingSessionID returns the id set by BrowsingSession.
func BrowsingSessionID(c *gin.Context) string {
	return c.GetString(contextKey)
}

func cookieOptions(store sessions.Store) *sessions.Options {
	if cs, ok := store.(*sessions.CookieStore); ok && cs.Options != nil {
		opts := *cs.Options
		return &opts
	}
	return &sessions.Options{Path: "/", HttpOnly: true}
}
