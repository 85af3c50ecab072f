// Package api exposes the ingestion operations over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the handlers' collaborators. Search is optional; the route is not
// mounted when it is nil.
type Deps struct {
	Jobs     Jobs
	Articles Articles
	Search   Searcher
	DB       Pinger
}

type server struct {
	deps   Deps
	logger *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewRouter(deps Deps, logger *slog.Logger) http.Handler {
	s := &server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/articles", s.handleListArticles)
		r.Get("/articles/{id}", s.handleGetArticle)
		if deps.Search != nil {
			r.Get("/search", s.handleSearch)
		}
	})

	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
