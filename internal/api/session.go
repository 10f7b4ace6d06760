package api

import (
	"context"
	"net/http"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/interview"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "interviewsim_session"
)

type sessionKey struct{}

// withSession resolves the caller's session from the X-Session-ID header or
// the session cookie, creating one when neither names a live session. The
// session id is echoed back in both.
func withSession(sessions *interview.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(sessionHeader)
			if id == "" {
				if c, err := r.Cookie(sessionCookie); err == nil {
					id = c.Value
				}
			}
			s, _ := sessions.GetOrCreate(id)

			w.Header().Set(sessionHeader, s.ID())
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    s.ID(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
		})
	}
}

func sessionFrom(ctx context.Context) *interview.Session {
	s, _ := ctx.Value(sessionKey{}).(*interview.Session)
	return s
}
