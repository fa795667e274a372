// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

// Package client implements the platform contract over HTTP against the
// REST facade. Calls go through a circuit breaker so a failing platform
// trips fast instead of piling up timeouts, and status polling is rate
// limited client-side. Remote error diagnostics are surfaced verbatim
// inside wrapped errors.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/hypersweep/internal/logging"
	"github.com/tomtom215/hypersweep/internal/metrics"
	"github.com/tomtom215/hypersweep/internal/platform"
)

// ErrBreakerOpen indicates the circuit breaker rejected the call without
// reaching the platform.
var ErrBreakerOpen = errors.New("platform circuit breaker open")

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the facade endpoint, e.g. "http://localhost:8080".
	BaseURL string

	// TokenSecret signs the bearer tokens presented to the facade.
	TokenSecret string

	// RequestTimeout bounds individual calls. Defaults to 30s.
	RequestTimeout time.Duration

	// PollRate limits read-side calls (status, metrics, listing) per
	// second. Defaults to 10.
	PollRate float64

	// BreakerMaxFailures is the consecutive failure count that opens the
	// breaker. Defaults to 5.
	BreakerMaxFailures uint32

	// BreakerCooldown is how long the breaker stays open. Defaults to 15s.
	BreakerCooldown time.Duration
}

// Client implements platform.Platform over HTTP.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	limiter *rate.Limiter
	log     zerolog.Logger
}

var _ platform.Platform = (*Client)(nil)

// New creates a client for the given facade.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("platform client requires a base URL")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.PollRate <= 0 {
		cfg.PollRate = 10
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 15 * time.Second
	}

	log := logging.With().Str("component", "platform.client").Logger()

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "platform-api",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("platform breaker state changed")
			metrics.BreakerState.Set(breakerStateValue(to))
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(cfg.PollRate), 1),
		log:     log,
	}, nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// bearerToken mints a short-lived HS256 token from the shared secret.
func (c *Client) bearerToken() (string, error) {
	if c.cfg.TokenSecret == "" {
		return "", nil
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "hypersweep-orchestrator",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	})
	return token.SignedString([]byte(c.cfg.TokenSecret))
}

// do executes one API call through the breaker and decodes the response
// into out (skipped when out is nil).
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", operation, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, err := c.bearerToken(); err != nil {
		return fmt.Errorf("sign bearer token: %w", err)
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		// 5xx counts as a breaker failure; 4xx is the caller's problem.
		if resp.StatusCode >= http.StatusInternalServerError {
			defer resp.Body.Close()
			return nil, remoteError(operation, resp)
		}
		return resp, nil
	})
	metrics.RecordPlatformCall(operation, time.Since(start), err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %s", ErrBreakerOpen, operation)
		}
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.mapError(operation, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return nil
}

// remoteError extracts the facade's diagnostic, verbatim.
func remoteError(operation string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s: platform returned %d: %s", operation, resp.StatusCode, body.Error)
	}
	return fmt.Errorf("%s: platform returned %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(data)))
}

// mapError converts 4xx responses back into the contract's sentinel errors
// where possible, keeping the remote diagnostic attached.
func (c *Client) mapError(operation string, resp *http.Response) error {
	err := remoteError(operation, resp)
	if resp.StatusCode != http.StatusNotFound {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, platform.ErrWorkspaceNotFound.Error()):
		return fmt.Errorf("%w: %v", platform.ErrWorkspaceNotFound, err)
	case strings.Contains(msg, platform.ErrPoolNotFound.Error()):
		return fmt.Errorf("%w: %v", platform.ErrPoolNotFound, err)
	case strings.Contains(msg, platform.ErrNoArtifact.Error()):
		return fmt.Errorf("%w: %v", platform.ErrNoArtifact, err)
	case strings.Contains(msg, platform.ErrRunNotFound.Error()):
		return fmt.Errorf("%w: %v", platform.ErrRunNotFound, err)
	default:
		return err
	}
}

// waitPoll applies the read-side rate limit.
func (c *Client) waitPoll(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("poll limiter: %w", err)
	}
	return nil
}

// ResolveWorkspace implements platform.Platform.
func (c *Client) ResolveWorkspace(ctx context.Context, spec platform.WorkspaceSpec) (*platform.Workspace, error) {
	var ws platform.Workspace
	if err := c.do(ctx, "resolve_workspace", http.MethodPost, "/api/v1/workspaces/resolve", spec, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// EnsureComputePool implements platform.Platform.
func (c *Client) EnsureComputePool(ctx context.Context, workspaceID string, spec platform.PoolSpec) (*platform.ComputePool, error) {
	var pool platform.ComputePool
	path := "/api/v1/workspaces/" + workspaceID + "/pools"
	if err := c.do(ctx, "ensure_compute_pool", http.MethodPost, path, spec, &pool); err != nil {
		return nil, err
	}
	return &pool, nil
}

// SubmitRun implements platform.Platform.
func (c *Client) SubmitRun(ctx context.Context, spec platform.RunSpec) (*platform.RunInfo, error) {
	var info platform.RunInfo
	if err := c.do(ctx, "submit_run", http.MethodPost, "/api/v1/runs", spec, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RunStatus implements platform.Platform.
func (c *Client) RunStatus(ctx context.Context, runID string) (*platform.RunInfo, error) {
	if err := c.waitPoll(ctx); err != nil {
		return nil, err
	}
	var info platform.RunInfo
	if err := c.do(ctx, "run_status", http.MethodGet, "/api/v1/runs/"+runID, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListRuns implements platform.Platform.
func (c *Client) ListRuns(ctx context.Context, sweepID string) ([]*platform.RunInfo, error) {
	if err := c.waitPoll(ctx); err != nil {
		return nil, err
	}
	var runs []*platform.RunInfo
	path := "/api/v1/sweeps/" + sweepID + "/runs"
	if err := c.do(ctx, "list_runs", http.MethodGet, path, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// RunMetrics implements platform.Platform.
func (c *Client) RunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	if err := c.waitPoll(ctx); err != nil {
		return nil, err
	}
	var m map[string]float64
	if err := c.do(ctx, "run_metrics", http.MethodGet, "/api/v1/runs/"+runID+"/metrics", nil, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DownloadArtifact implements platform.Platform.
func (c *Client) DownloadArtifact(ctx context.Context, runID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/v1/runs/"+runID+"/artifact", nil)
	if err != nil {
		return nil, fmt.Errorf("build download_artifact request: %w", err)
	}
	if token, err := c.bearerToken(); err != nil {
		return nil, fmt.Errorf("sign bearer token: %w", err)
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	metrics.RecordPlatformCall("download_artifact", time.Since(start), err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: download_artifact", ErrBreakerOpen)
		}
		return nil, fmt.Errorf("download_artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, c.mapError("download_artifact", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact body: %w", err)
	}
	return data, nil
}

// CancelRun implements platform.Platform.
func (c *Client) CancelRun(ctx context.Context, runID string) error {
	return c.do(ctx, "cancel_run", http.MethodPost, "/api/v1/runs/"+runID+"/cancel", nil, nil)
}

// CancelSweep implements platform.Platform.
func (c *Client) CancelSweep(ctx context.Context, sweepID string) error {
	return c.do(ctx, "cancel_sweep", http.MethodPost, "/api/v1/sweeps/"+sweepID+"/cancel", nil, nil)
}
