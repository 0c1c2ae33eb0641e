// Copyright (C) 2025 the deskhand authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"deskhand/internal/errors"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Command:      "sleep",
		Args:         []string{"30"},
		ProbeTimeout: time.Second,
		PollInterval: 10 * time.Millisecond,
		PollAttempts: 20,
	}
}

func newSupervisor(t *testing.T, cfg Config) *Supervisor {
	t.Helper()
	s := NewSupervisor(cfg, zerolog.Nop())
	t.Cleanup(s.Shutdown)
	return s
}

func TestHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected probe path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	ctx := context.Background()
	if !newSupervisor(t, testConfig(healthy.URL)).HealthCheck(ctx) {
		t.Fatal("expected healthy endpoint to probe true")
	}
	if newSupervisor(t, testConfig(unhealthy.URL)).HealthCheck(ctx) {
		t.Fatal("non-success status must probe false")
	}

	down := newSupervisor(t, testConfig("http://127.0.0.1:1"))
	if down.HealthCheck(ctx) {
		t.Fatal("transport failure must probe false, not error")
	}
}

func TestEnsureRunningIdempotentWhenHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	// A spawn attempt would fail loudly with this command.
	cfg.Command = "/nonexistent-agent-binary"
	s := newSupervisor(t, cfg)

	start := time.Now()
	if err := s.EnsureRunning(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("healthy fast path took %s", elapsed)
	}
	if s.State() != StateRunning {
		t.Fatalf("expected running state, got %v", s.State())
	}
}

func TestEnsureRunningSpawnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Command = filepath.Join(t.TempDir(), "missing-agent")
	s := newSupervisor(t, cfg)

	err := s.EnsureRunning(context.Background())
	if err == nil {
		t.Fatal("expected spawn error")
	}
	if !errors.HasCode(err, errors.CodeAgentSpawn) {
		t.Fatalf("expected spawn code, got %v", err)
	}
	if s.State() != StateFailed {
		t.Fatalf("expected failed state, got %v", s.State())
	}
}

func TestEnsureRunningTimesOutWithinWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.PollInterval = 5 * time.Millisecond
	cfg.PollAttempts = 4
	s := newSupervisor(t, cfg)

	start := time.Now()
	err := s.EnsureRunning(context.Background())
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.HasCode(err, errors.CodeAgentTimeout) {
		t.Fatalf("expected timeout code, got %v", err)
	}
	// Bounded wait: the full window plus probe latency, not indefinite.
	if elapsed > 3*time.Second {
		t.Fatalf("timeout took %s, window was %s", elapsed, 4*cfg.PollInterval)
	}
	if s.State() != StateFailed {
		t.Fatalf("expected failed state, got %v", s.State())
	}
}

func TestEnsureRunningSucceedsWhenAgentComesUp(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Unhealthy for the first probes, then ready.
		if probes.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newSupervisor(t, testConfig(srv.URL))
	if err := s.EnsureRunning(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("expected running state, got %v", s.State())
	}
}

func TestEnsureRunningRespawnsAfterAgentDies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	marker := filepath.Join(t.TempDir(), "spawned")
	cfg := testConfig(srv.URL)
	cfg.Command = "sh"
	cfg.Args = []string{"-c", "echo spawned >> " + marker + "; sleep 30"}
	cfg.PollInterval = 5 * time.Millisecond
	cfg.PollAttempts = 4
	s := newSupervisor(t, cfg)

	if err := s.EnsureRunning(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("expected running state, got %v", s.State())
	}

	// The agent dies out from under the supervisor.
	srv.Close()

	// The recorded Running state must not be trusted: the failed probe
	// triggers a fresh spawn, which here never becomes healthy.
	err := s.EnsureRunning(context.Background())
	if err == nil {
		t.Fatal("unreachable agent must not report success")
	}
	if !errors.HasCode(err, errors.CodeAgentTimeout) {
		t.Fatalf("expected timeout code, got %v", err)
	}
	if _, statErr := os.Stat(marker); statErr != nil {
		t.Fatalf("dead agent was never respawned: %v", statErr)
	}
	if s.State() != StateFailed {
		t.Fatalf("expected failed state, got %v", s.State())
	}
}

func TestEnsureRunningSingleFlight(t *testing.T) {
	ready := time.Now().Add(100 * time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if time.Now().Before(ready) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	marker := filepath.Join(t.TempDir(), "spawned")
	cfg := testConfig(srv.URL)
	cfg.Command = "sh"
	cfg.Args = []string{"-c", "echo spawned >> " + marker + "; sleep 30"}
	s := newSupervisor(t, cfg)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			errs[slot] = s.EnsureRunning(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d failed: %v", i, err)
		}
	}

	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("agent was never spawned: %v", err)
	}
	if spawns := strings.Count(string(data), "spawned"); spawns != 1 {
		t.Fatalf("expected exactly one spawn, got %d", spawns)
	}
}

func TestShutdownResetsState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newSupervisor(t, testConfig(srv.URL))
	if err := s.EnsureRunning(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Shutdown()
	if s.State() != StateNotRunning {
		t.Fatalf("expected not running after shutdown, got %v", s.State())
	}
	// Shutdown is idempotent.
	s.Shutdown()
}

func TestStateString(t *testing.T) {
	if StateStarting.String() != "starting" || StateFailed.String() != "failed" {
		t.Fatalf("unexpected state names: %s, %s", StateStarting, StateFailed)
	}
}
