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

// Stubagent is a development stand-in for the worker agent. It answers
// the agent HTTP API with canned records so the main binary can be
// exercised without the real worker installed. It executes nothing.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"deskhand/internal/agent"
	"deskhand/internal/intent"
)

var addr = flag.String("addr", "localhost:8765", "Listen address")

type stubAgent struct {
	log zerolog.Logger

	mu      sync.Mutex
	nextID  int
	records []agent.OperationRecord
}

func main() {
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	s := &stubAgent{log: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/execute", s.handleExecute)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/undo/", s.handleUndo)

	logger.Info().Str("addr", *addr).Msg("stub agent listening")
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func (s *stubAgent) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *stubAgent) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	in := intent.ParseKeywords(req.Command)

	s.mu.Lock()
	s.nextID++
	record := agent.OperationRecord{
		ID:            fmt.Sprintf("op-%d", s.nextID),
		Command:       req.Command,
		OperationType: in.Action,
		Timestamp:     time.Now().Unix(),
		Status:        "completed (dry run)",
		CanUndo:       !in.Operation.ReadOnly(),
	}
	s.records = append(s.records, record)
	s.mu.Unlock()

	s.log.Info().Str("id", record.ID).Str("command", req.Command).Msg("pretend execute")
	json.NewEncoder(w).Encode(record)
}

func (s *stubAgent) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	fmt.Sscanf(r.URL.Query().Get("limit"), "%d", &limit)

	s.mu.Lock()
	// Newest first.
	out := make([]agent.OperationRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	s.mu.Unlock()

	json.NewEncoder(w).Encode(out)
}

func (s *stubAgent) handleUndo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/undo/")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.records {
		if rec.ID != id {
			continue
		}
		if !rec.CanUndo {
			http.Error(w, "operation cannot be undone", http.StatusConflict)
			return
		}
		s.records[i].Status = "undone"
		s.records[i].CanUndo = false
		s.log.Info().Str("id", id).Msg("pretend undo")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Error(w, "unknown operation id", http.StatusNotFound)
}
