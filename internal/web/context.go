package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/csvconvert/internal/core"
)

// SessionCookie names the cookie that binds a browser to its session.
const SessionCookie = "csvconvert_session"

type sessionKey struct{}

// withSession resolves the caller's session from its cookie, creating one
// (and setting the cookie) when the cookie is missing or the session has
// expired.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		sess, created := s.store.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID(),
				Path:     "/",
				MaxAge:   int(s.cfg.Session.TTL.Seconds()),
				HttpOnly: true,
				Secure:   s.cfg.Session.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := core.ContextWithSessionID(r.Context(), sess.ID())
		ctx = context.WithValue(ctx, sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session attached by withSession.
func sessionFrom(ctx context.Context) (*core.Session, error) {
	if sess, ok := ctx.Value(sessionKey{}).(*core.Session); ok {
		return sess, nil
	}
	return nil, core.ErrSessionNotFound
}
