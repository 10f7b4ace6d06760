// Package api exposes the interview service over HTTP and MCP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/IbrahimNaglah/Chatbot-Interview-Simulation/internal/interview"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	defaultMaxUpload   = 32 << 20
)

// Deps holds what the HTTP handlers need.
type Deps struct {
	Service  *interview.Service
	Sessions *interview.Sessions
	// Token enables bearer authentication on /api routes when non-empty.
	Token string
	// MaxUploadBytes caps the multipart body of /api/upload_pdf.
	MaxUploadBytes int64
}

// NewHandler returns the HTTP handler for the interview API.
func NewHandler(deps Deps) http.Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUpload
	}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(allowAllOrigins)

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Get("/info", handleInfo)
		r.Get("/sources", handleSources(deps))

		r.Group(func(r chi.Router) {
			r.Use(withSession(deps.Sessions))
			r.Get("/session", handleGetSession)
			r.Delete("/session", handleDeleteSession(deps))
			r.Post("/upload_pdf", handleUploadPDF(deps))
			r.Post("/select_source", handleSelectSource(deps))
			r.Get("/generate_question", handleGenerateQuestion(deps))
			r.Post("/submit_answer", handleSubmitAnswer(deps))
			r.Post("/ask", handleAsk(deps))
		})
	})

	return r
}

// allowAllOrigins permits cross-origin requests from any origin with any
// method and header.
func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		origin := r.Header.Get("Origin")
		if origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Access-Control-Expose-Headers", sessionHeader)

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			} else {
				h.Set("Access-Control-Allow-Headers", "*")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
