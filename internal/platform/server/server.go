// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package server exposes any platform implementation over REST, so remote
// orchestrators can drive sweeps through the same contract the in-process
// one uses. Authentication is a signed bearer token, requests are rate
// limited per client IP, and every payload is JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/platform"
)

// Config configures the HTTP facade.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// TokenSecret verifies bearer token signatures (HMAC-SHA256). Empty
	// disables authentication; only do that in tests.
	TokenSecret string

	// RateLimit is the allowed requests per client IP per minute.
	// Defaults to 300.
	RateLimit int

	// RequestTimeout bounds each request. Defaults to 60s.
	RequestTimeout time.Duration
}

// Server is the REST facade over a platform.
type Server struct {
	cfg      Config
	platform platform.Platform
	log      zerolog.Logger
}

var _ suture.Service = (*Server)(nil)

// New creates the facade.
func New(cfg Config, p platform.Platform) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 300
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	return &Server{
		cfg:      cfg,
		platform: p,
		log:      logging.With().Str("component", "platform.server").Logger(),
	}
}

// Router builds the chi router with all platform routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
		if s.cfg.TokenSecret != "" {
			r.Use(s.requireBearer)
		}

		r.Post("/workspaces/resolve", s.handleResolveWorkspace)
		r.Post("/workspaces/{workspaceID}/pools", s.handleEnsurePool)
		r.Post("/runs", s.handleSubmitRun)
		r.Get("/runs/{runID}", s.handleRunStatus)
		r.Get("/runs/{runID}/metrics", s.handleRunMetrics)
		r.Get("/runs/{runID}/artifact", s.handleArtifact)
		r.Post("/runs/{runID}/cancel", s.handleCancelRun)
		r.Get("/sweeps/{sweepID}/runs", s.handleListRuns)
		r.Post("/sweeps/{sweepID}/cancel", s.handleCancelSweep)
	})

	return r
}

// Serve runs the HTTP server under supervision until the context is
// canceled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.log.Info().Str("addr", s.cfg.Addr).Msg("platform API listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// requireBearer rejects requests without a valid HMAC-signed bearer token.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			s.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		_, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(s.cfg.TokenSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid token: %w", err))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleResolveWorkspace(w http.ResponseWriter, r *http.Request) {
	var spec platform.WorkspaceSpec
	if !s.decode(w, r, &spec) {
		return
	}
	ws, err := s.platform.ResolveWorkspace(r.Context(), spec)
	if err != nil {
		s.writePlatformError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleEnsurePool(w http.ResponseWriter, r *http.Request) {
	var spec platform.PoolSpec
	if !s.decode(w, r, &spec) {
		return
	}
	pool, err := s.platform.EnsureComputePool(r.Context(), chi.URLParam(r, "workspaceID"), spec)
	if err != nil {
		s.writePlatformError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pool)
}

func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var spec platform.RunSpec
	if !s.decode(w, r, &spec) {
		return
	}
	info, err := s.platform.SubmitRun(r.Context(), spec)
	if err != nil {
		s.writePlatformError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.platform.RunStatus(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writePlatformError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRunMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.platform.RunMetrics(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writePlatformError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	data, err := s.platform.DownloadArtifact(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writePlatformError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	if err := s.platform.CancelRun(r.Context(), chi.URLParam(r, "runID")); err != nil {
		s.writePlatformError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.platform.ListRuns(r.Context(), chi.URLParam(r, "sweepID"))
	if err != nil {
		s.writePlatformError(w, err)
		return
	}
	if runs == nil {
		runs = []*platform.RunInfo{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleCancelSweep(w http.ResponseWriter, r *http.Request) {
	if err := s.platform.CancelSweep(r.Context(), chi.URLParam(r, "sweepID")); err != nil {
		s.writePlatformError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// errorBody is the JSON error envelope. The message carries the platform's
// diagnostic verbatim so clients can surface it unchanged.
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return false
	}
	return true
}

func (s *Server) writePlatformError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, platform.ErrWorkspaceNotFound),
		errors.Is(err, platform.ErrPoolNotFound),
		errors.Is(err, platform.ErrRunNotFound),
		errors.Is(err, platform.ErrNoArtifact):
		status = http.StatusNotFound
	}
	s.writeError(w, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Err(err).Int("status", status).Msg("request failed")
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Err(err).Msg("failed to encode response")
	}
}
