package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"news_ingest/internal/domain"
	"news_ingest/internal/search"
)

const (
	healthTimeout = 2 * time.Second
	searchTimeout = 5 * time.Second
)

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.deps.DB.PingContext(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleScrape(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.Trigger(r.Context())
	switch {
	case errors.Is(err, domain.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.logger.Error("trigger run", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeLookupError(w, "job", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.deps.Articles.List(r.Context(), filter)
	switch {
	case errors.Is(err, domain.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("list articles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}

	article, err := s.deps.Articles.Get(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, "article", err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()

	q := r.URL.Query()
	params := search.Params{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
	}

	var err error
	if params.Size, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	if params.From, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset: "+err.Error())
		return
	}

	result, err := s.deps.Search.Search(ctx, params)
	if err != nil {
		s.logger.Error("search articles", "error", err)
		writeError(w, http.StatusBadGateway, "search unavailable")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) writeLookupError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	s.logger.Error("get "+what, "error", err)
	writeError(w, http.StatusInternalServerError, "failed to get "+what)
}

// parseFilter rejects malformed numbers; range checks belong to the service.
func parseFilter(r *http.Request) (domain.ArticleFilter, error) {
	q := r.URL.Query()
	filter := domain.ArticleFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Country:  strings.TrimSpace(q.Get("country")),
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		return filter, fmt.Errorf("limit: %w", err)
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		return filter, fmt.Errorf("offset: %w", err)
	}
	if raw := strings.TrimSpace(q.Get("min_quality")); raw != "" {
		if filter.MinQuality, err = strconv.ParseFloat(raw, 64); err != nil {
			return filter, fmt.Errorf("min_quality: %q is not a number", raw)
		}
	}
	return filter, nil
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	return v, nil
}
