// Hypersweep - Hyperparameter Sweep Orchestration for Recommender Systems
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hypersweep

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/hypersweep/internal/platform"
)

// stubPlatform returns canned values for facade tests.
type stubPlatform struct {
	run *platform.RunInfo
}

var _ platform.Platform = (*stubPlatform)(nil)

func (s *stubPlatform) ResolveWorkspace(_ context.Context, spec platform.WorkspaceSpec) (*platform.Workspace, error) {
	if spec.Name == "missing" {
		return nil, platform.ErrWorkspaceNotFound
	}
	return &platform.Workspace{ID: "ws-1", Spec: spec}, nil
}

func (s *stubPlatform) EnsureComputePool(_ context.Context, workspaceID string, spec platform.PoolSpec) (*platform.ComputePool, error) {
	return &platform.ComputePool{ID: "pool-1", WorkspaceID: workspaceID, Spec: spec, Reused: true}, nil
}

func (s *stubPlatform) SubmitRun(_ context.Context, spec platform.RunSpec) (*platform.RunInfo, error) {
	return &platform.RunInfo{ID: "run-1", SweepID: spec.SweepID, Index: spec.Index, State: platform.RunQueued}, nil
}

func (s *stubPlatform) RunStatus(_ context.Context, runID string) (*platform.RunInfo, error) {
	if s.run == nil || s.run.ID != runID {
		return nil, platform.ErrRunNotFound
	}
	return s.run.Clone(), nil
}

func (s *stubPlatform) ListRuns(_ context.Context, _ string) ([]*platform.RunInfo, error) {
	if s.run == nil {
		return nil, nil
	}
	return []*platform.RunInfo{s.run.Clone()}, nil
}

func (s *stubPlatform) RunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	info, err := s.RunStatus(ctx, runID)
	if err != nil {
		return nil, err
	}
	return info.Metrics, nil
}

func (s *stubPlatform) DownloadArtifact(_ context.Context, _ string) ([]byte, error) {
	return []byte("artifact-bytes"), nil
}

func (s *stubPlatform) CancelRun(_ context.Context, _ string) error { return nil }

func (s *stubPlatform) CancelSweep(_ context.Context, _ string) error { return nil }

func newTestServer(t *testing.T, secret string) (*httptest.Server, *stubPlatform) {
	t.Helper()
	stub := &stubPlatform{
		run: &platform.RunInfo{
			ID:      "run-1",
			SweepID: "s1",
			State:   platform.RunCompleted,
			Metrics: map[string]float64{"rmse": 0.9},
		},
	}
	srv := httptest.NewServer(New(Config{TokenSecret: secret}, stub).Router())
	t.Cleanup(srv.Close)
	return srv, stub
}

func signToken(t *testing.T, secret string, expiry time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestBearerAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", time.Minute), http.StatusUnauthorized},
		{"expired token", "Bearer " + signToken(t, "secret", -time.Minute), http.StatusUnauthorized},
		{"valid token", "Bearer " + signToken(t, "secret", time.Minute), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/runs/run-1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRunStatusRoundTrip(t *testing.T) {
	srv, stub := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/v1/runs/run-1")
	if err != nil {
		t.Fatalf("GET run error = %v", err)
	}
	defer resp.Body.Close()

	var info platform.RunInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if info.ID != stub.run.ID || info.State != platform.RunCompleted {
		t.Errorf("got run %+v", info)
	}
	if info.Metrics["rmse"] != 0.9 {
		t.Errorf("metrics = %v", info.Metrics)
	}
}

func TestNotFoundMapsTo404WithDiagnostic(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/v1/runs/ghost")
	if err != nil {
		t.Fatalf("GET run error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(body.Error, "run not found") {
		t.Errorf("error body %q does not carry the diagnostic", body.Error)
	}
}

func TestSubmitRunRejectsBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("POST run error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitRunCreated(t *testing.T) {
	srv, _ := newTestServer(t, "")

	spec := platform.RunSpec{SweepID: "s1", Index: 4}
	data, _ := json.Marshal(spec)
	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("POST run error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var info platform.RunInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if info.Index != 4 || info.State != platform.RunQueued {
		t.Errorf("got run %+v", info)
	}
}

func TestListRunsEmptyIsJSONArray(t *testing.T) {
	srv := httptest.NewServer(New(Config{}, &stubPlatform{}).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sweeps/s9/runs")
	if err != nil {
		t.Fatalf("GET runs error = %v", err)
	}
	defer resp.Body.Close()

	var runs []*platform.RunInfo
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("empty list did not decode as array: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}
}
