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

package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"deskhand/internal/agent"
	"deskhand/internal/config"
	"deskhand/internal/errors"
	"deskhand/internal/intent"
	"deskhand/internal/risk"
	"deskhand/internal/security"
)

type testAgent struct {
	srv      *httptest.Server
	executes atomic.Int32
}

func newTestAgent(t *testing.T) *testAgent {
	t.Helper()
	a := &testAgent{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/execute", func(w http.ResponseWriter, r *http.Request) {
		a.executes.Add(1)
		json.NewEncoder(w).Encode(agent.OperationRecord{ID: "op-1", Status: "completed"})
	})
	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

func newTestDispatcher(t *testing.T, a *testAgent, allowed []string, confirm ConfirmFunc) *Dispatcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.AllowedDirectories = allowed
	store := config.NewStore(cfg, filepath.Join(t.TempDir(), "config.json"), zerolog.Nop())

	sup := agent.NewSupervisor(agent.Config{
		BaseURL:      a.srv.URL,
		Command:      "sleep",
		Args:         []string{"30"},
		PollInterval: 10 * time.Millisecond,
		PollAttempts: 5,
	}, zerolog.Nop())
	t.Cleanup(sup.Shutdown)

	return &Dispatcher{
		Store:      store,
		Validator:  security.NewValidator(zerolog.Nop()),
		Supervisor: sup,
		Client:     agent.NewClient(a.srv.URL, 5*time.Second, zerolog.Nop()),
		Processor:  intent.NewProcessor("", "", "", zerolog.Nop()),
		Limits:     security.DefaultLimits(),
		Confirm:    confirm,
		Log:        zerolog.Nop(),
	}
}

func allowAll(intent.Intent, risk.Assessment) (bool, error) { return true, nil }

func makeDownloads(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	downloads := filepath.Join(base, "Downloads")
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		t.Fatalf("failed to create downloads: %v", err)
	}
	if err := os.WriteFile(filepath.Join(downloads, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	return downloads
}

func TestRunReadOnlyCommandNeedsNoConfirmation(t *testing.T) {
	a := newTestAgent(t)
	downloads := makeDownloads(t)
	confirmCalled := false
	d := newTestDispatcher(t, a, []string{downloads}, func(intent.Intent, risk.Assessment) (bool, error) {
		confirmCalled = true
		return true, nil
	})

	record, err := d.Run(context.Background(), "show me the downloads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != "op-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if confirmCalled {
		t.Fatal("read-only commands must not prompt for confirmation")
	}
	if a.executes.Load() != 1 {
		t.Fatalf("expected one execute, got %d", a.executes.Load())
	}
}

func TestRunDestructiveCommandIsConfirmed(t *testing.T) {
	a := newTestAgent(t)
	downloads := makeDownloads(t)
	var seen risk.Assessment
	d := newTestDispatcher(t, a, []string{downloads}, func(_ intent.Intent, as risk.Assessment) (bool, error) {
		seen = as
		return true, nil
	})

	if _, err := d.Run(context.Background(), "delete my downloads folder"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.Level != risk.Critical {
		t.Fatalf("directory delete should assess critical, got %v", seen.Level)
	}
	if a.executes.Load() != 1 {
		t.Fatalf("expected one execute, got %d", a.executes.Load())
	}
}

func TestRunDeclinedConfirmationCancels(t *testing.T) {
	a := newTestAgent(t)
	downloads := makeDownloads(t)
	d := newTestDispatcher(t, a, []string{downloads}, func(intent.Intent, risk.Assessment) (bool, error) {
		return false, nil
	})

	_, err := d.Run(context.Background(), "delete my downloads folder")
	if !errors.HasCode(err, errors.CodeCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if a.executes.Load() != 0 {
		t.Fatal("declined operation must not reach the agent")
	}
}

func TestRunDeniesPathOutsideAllowlist(t *testing.T) {
	a := newTestAgent(t)
	downloads := makeDownloads(t)
	outside := t.TempDir()
	d := newTestDispatcher(t, a, []string{downloads}, allowAll)

	_, err := d.Run(context.Background(), "delete everything in "+outside)
	if !errors.HasCode(err, errors.CodePermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if a.executes.Load() != 0 {
		t.Fatal("denied operation must not reach the agent")
	}
}

func TestRunRefusesSystemCriticalDelete(t *testing.T) {
	a := newTestAgent(t)
	// Allow everything under / so only the system-critical guard can
	// refuse; the validator itself would admit the path.
	d := newTestDispatcher(t, a, []string{"/"}, allowAll)

	_, err := d.Run(context.Background(), "delete /")
	if !errors.HasCode(err, errors.CodePermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if a.executes.Load() != 0 {
		t.Fatal("system-critical delete must not reach the agent")
	}
}

func TestRunMutatingCommandWithoutTargetFails(t *testing.T) {
	a := newTestAgent(t)
	downloads := makeDownloads(t)
	d := newTestDispatcher(t, a, []string{downloads}, allowAll)

	_, err := d.Run(context.Background(), "delete the flurble")
	if !errors.HasCode(err, errors.CodeIntent) {
		t.Fatalf("expected intent error, got %v", err)
	}
	if a.executes.Load() != 0 {
		t.Fatal("unresolvable target must not reach the agent")
	}
}

func TestResolveFolderName(t *testing.T) {
	allowed := []string{"/home/user/Downloads", "/home/user/Documents"}
	if got, ok := resolveFolderName("downloads", allowed); !ok || got != "/home/user/Downloads" {
		t.Fatalf("unexpected resolution: %q %v", got, ok)
	}
	if got, ok := resolveFolderName("/data/explicit", allowed); !ok || got != "/data/explicit" {
		t.Fatalf("explicit path must pass through: %q %v", got, ok)
	}
	if _, ok := resolveFolderName("attic", allowed); ok {
		t.Fatal("unknown folder name must not resolve")
	}
}
