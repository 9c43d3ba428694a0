// Package server exposes the aggregate store over a small read-only JSON
// API. Browse frontends consume it; nothing here mutates data.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"compilatio/internal/config"
	"compilatio/internal/logging"
	"compilatio/internal/store"
)

// listCacheControl is sent on list responses; the aggregate changes at
// import cadence, not request cadence.
const listCacheControl = "public, max-age=300"

// Server serves the read-only API over one TCP listener.
type Server struct {
	bind   string
	store  *store.Store
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New builds the API server around an opened store. The bind address comes
// from the api section of the configuration.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Server {
	s := &Server{
		bind:   strings.TrimSpace(cfg.API.Bind),
		store:  st,
		logger: logging.NewComponentLogger(logger, "api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/repositories", s.handleRepositories)
	mux.HandleFunc("/api/repositories/", s.handleRepository)
	mux.HandleFunc("/api/manuscripts", s.handleManuscripts)
	mux.HandleFunc("/api/manuscripts/", s.handleManuscript)
	mux.HandleFunc("/api/featured", s.handleFeatured)

	s.server = &http.Server{
		Handler:           s.route(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start binds the listener and begins serving. Binding happens
// synchronously so callers see address errors; serving continues until
// Stop or context cancellation.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address, empty before Start. Tests bind to port
// zero and read the assigned port from here.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// route wraps the mux with the permissive read-only CORS policy and
// per-request debug logging.
func (s *Server) route(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)
		started := time.Now()
		mux.ServeHTTP(w, r)
		s.logger.Debug("request served",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(started)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleRepositories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	repos, err := s.store.ListRepositories(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Cache-Control", listCacheControl)
	s.writeJSON(w, http.StatusOK, repositoryListResponse{Repositories: fromRepositories(repos)})
}

func (s *Server) handleRepository(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/repositories/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "repository not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid repository id")
		return
	}
	repo, err := s.store.GetRepository(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if repo == nil {
		s.writeError(w, http.StatusNotFound, "repository not found")
		return
	}
	collections, err := s.store.ListCollections(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, repositoryDetailResponse{
		Repository:  fromRepository(repo),
		Collections: fromCollections(collections),
	})
}

func (s *Server) handleManuscripts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	filter, ok := s.parseFilter(w, r)
	if !ok {
		return
	}
	page, err := s.store.ListManuscripts(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Cache-Control", listCacheControl)
	s.writeJSON(w, http.StatusOK, manuscriptListResponse{
		Total:       page.Total,
		Limit:       page.Limit,
		Offset:      page.Offset,
		Manuscripts: fromManuscripts(page.Manuscripts),
	})
}

// parseFilter reads the manuscript list query parameters. A malformed
// numeric parameter reports 400 and returns ok false; range clamping is
// the store's job.
func (s *Server) parseFilter(w http.ResponseWriter, r *http.Request) (store.Filter, bool) {
	var filter store.Filter
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("repository_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid repository_id")
			return store.Filter{}, false
		}
		filter.RepositoryID = id
	}
	filter.Collection = strings.TrimSpace(query.Get("collection"))
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return store.Filter{}, false
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid offset")
			return store.Filter{}, false
		}
		filter.Offset = offset
	}
	return filter, true
}

func (s *Server) handleManuscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/manuscripts/")
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "manuscript not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid manuscript id")
		return
	}
	m, err := s.store.GetManuscript(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		s.writeError(w, http.StatusNotFound, "manuscript not found")
		return
	}
	s.writeJSON(w, http.StatusOK, manuscriptResponse{Manuscript: fromManuscript(m)})
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m, err := s.store.FeaturedManuscript(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		s.writeError(w, http.StatusNotFound, "no manuscript with a thumbnail yet")
		return
	}
	s.writeJSON(w, http.StatusOK, manuscriptResponse{Manuscript: fromManuscript(m)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
