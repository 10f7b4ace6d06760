package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

const apiKeyHeader = "X-API-Key"

// BearerAuth guards the interview API with a shared token, sent either as
// "Authorization: Bearer <token>" or in the X-API-Key header. CORS
// preflight requests pass through so browsers can discover the headers.
func BearerAuth(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := requestToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				slog.Debug("rejected request without valid token", "path", r.URL.Path, "token_present", ok)
				w.Header().Set("WWW-Authenticate", `Bearer realm="interviewsim"`)
				httpError(w, http.StatusUnauthorized, "invalid or missing API token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) (string, bool) {
	if scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(tok), true
	}
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key, true
	}
	return "", false
}
