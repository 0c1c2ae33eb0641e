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

// Package agent supervises the lifecycle of the local worker process and
// speaks its localhost HTTP API. The supervisor guarantees that at most
// one start attempt is in flight at a time; readiness is always decided
// by the health endpoint, never by the spawn itself.
package agent

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"deskhand/internal/errors"
)

// State is the supervisor's process-wide state machine value.
type State int

const (
	StateNotRunning State = iota
	StateStarting
	StateRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotRunning:
		return "not running"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config describes how the worker agent is reached and spawned.
type Config struct {
	// BaseURL is the agent's local endpoint, e.g. http://localhost:8765.
	BaseURL string
	// Command and Args spawn the agent process; Dir is its working
	// directory (the bundled agent resources).
	Command string
	Args    []string
	Dir     string
	// ProbeTimeout bounds a single health probe.
	ProbeTimeout time.Duration
	// PollInterval and PollAttempts bound the startup wait:
	// PollAttempts probes, one every PollInterval.
	PollInterval time.Duration
	PollAttempts int
}

func (c Config) withDefaults() Config {
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 2 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = 30
	}
	return c
}

// Supervisor owns the exactly-once-starting state machine for the worker
// agent. One instance exists per application; it is injected into every
// caller rather than held as a process global.
type Supervisor struct {
	cfg   Config
	log   zerolog.Logger
	httpc *http.Client

	mu       sync.Mutex
	cond     *sync.Cond
	state    State
	startErr error
	proc     *exec.Cmd
}

// NewSupervisor constructs a supervisor in the NotRunning state.
func NewSupervisor(cfg Config, logger zerolog.Logger) *Supervisor {
	cfg = cfg.withDefaults()
	s := &Supervisor{
		cfg:   cfg,
		log:   logger.With().Str("component", "agent").Logger(),
		httpc: &http.Client{Timeout: cfg.ProbeTimeout},
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// State returns a snapshot of the current state machine value.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HealthCheck performs a single bounded probe of the agent's health
// endpoint. Any transport error or non-success status means not ready;
// readiness is a boolean, never an error.
func (s *Supervisor) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// EnsureRunning makes sure the agent is reachable, starting it if
// necessary. When the agent already answers its health endpoint this
// returns immediately; that is the common case on every dispatch and
// costs one probe. Readiness is decided by that probe on every call,
// never by remembered state, so an agent that died since the last call
// is respawned. Concurrent callers while a start is in flight wait for
// the in-flight outcome instead of spawning a duplicate process.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	if s.HealthCheck(ctx) {
		s.mu.Lock()
		s.state = StateRunning
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	waited := false
	for s.state == StateStarting {
		// Another caller owns the in-flight attempt; share its outcome.
		waited = true
		s.cond.Wait()
	}
	if waited {
		// The attempt we waited on just finished; its outcome is fresh.
		if s.state == StateRunning {
			s.mu.Unlock()
			return nil
		}
		if s.state == StateFailed {
			err := s.startErr
			s.mu.Unlock()
			return err
		}
	}
	// A caller that did not wait got here because its own probe just
	// failed: whatever the recorded state says, the agent is gone and
	// must be respawned. Running is never trusted across calls.
	s.state = StateStarting
	s.startErr = nil
	s.mu.Unlock()

	err := s.start(ctx)

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.startErr = err
	} else {
		s.state = StateRunning
	}
	s.cond.Broadcast()
	s.mu.Unlock()
	return err
}

// start spawns the agent and polls its health endpoint until it answers
// or the attempt budget runs out. Called without the state lock held so
// other callers can observe Starting while we sleep between probes.
func (s *Supervisor) start(ctx context.Context) error {
	s.log.Info().Str("command", s.cfg.Command).Str("dir", s.cfg.Dir).Msg("starting agent")

	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Dir = s.cfg.Dir
	if err := cmd.Start(); err != nil {
		s.log.Error().Err(err).Msg("agent spawn failed")
		return errors.Wrap(errors.CodeAgentSpawn, "failed to start agent", err)
	}
	// Reap the child so a crashed agent does not linger as a zombie.
	go func() { _ = cmd.Wait() }()

	s.mu.Lock()
	s.proc = cmd
	s.mu.Unlock()

	for attempt := 0; attempt < s.cfg.PollAttempts; attempt++ {
		time.Sleep(s.cfg.PollInterval)
		if s.HealthCheck(ctx) {
			s.log.Info().Int("attempts", attempt+1).Msg("agent started")
			return nil
		}
	}

	window := time.Duration(s.cfg.PollAttempts) * s.cfg.PollInterval
	s.log.Error().Dur("window", window).Msg("agent failed to start in time")
	return errors.New(errors.CodeAgentTimeout,
		fmt.Sprintf("agent failed to start within %s", window))
}

// Shutdown terminates a supervised agent process, if one was spawned,
// and resets the state machine. The application exit path owns calling
// this; dispatch paths never do.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	proc := s.proc
	s.proc = nil
	s.state = StateNotRunning
	s.mu.Unlock()

	if proc == nil || proc.Process == nil {
		return
	}
	if err := proc.Process.Kill(); err != nil {
		s.log.Debug().Err(err).Msg("agent already gone at shutdown")
		return
	}
	s.log.Info().Int("pid", proc.Process.Pid).Msg("agent stopped")
}
