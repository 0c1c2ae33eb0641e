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

package main

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"deskhand/internal/config"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.AllowedDirectories = []string{t.TempDir()}
	return newApp(cfg, filepath.Join(t.TempDir(), "config.json"), zerolog.Nop())
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		input string
		name  string
		arg   string
	}{
		{"/quit", "quit", ""},
		{"/allow ~/Projects", "allow", "~/Projects"},
		{"/ALLOW /data", "allow", "/data"},
		{"  /undo op-42  ", "undo", "op-42"},
		{"/peek /home/user/Downloads", "peek", "/home/user/Downloads"},
	}
	for _, tc := range cases {
		name, arg := splitCommand(tc.input)
		if name != tc.name || arg != tc.arg {
			t.Errorf("splitCommand(%q) = %q, %q; want %q, %q",
				tc.input, name, arg, tc.name, tc.arg)
		}
	}
}

func TestHandleCommandQuit(t *testing.T) {
	a := newTestApp(t)
	if !handleCommand("/quit", a) {
		t.Fatal("/quit should signal exit")
	}
	if !handleCommand("/exit", a) {
		t.Fatal("/exit should signal exit")
	}
}

func TestHandleCommandNonTerminal(t *testing.T) {
	a := newTestApp(t)
	for _, input := range []string{"/help", "/dirs", "/nonsense"} {
		if handleCommand(input, a) {
			t.Errorf("%s should not signal exit", input)
		}
	}
}

func TestHandleCommandAllowPersists(t *testing.T) {
	a := newTestApp(t)
	dir := t.TempDir()
	handleCommand("/allow "+dir, a)

	found := false
	for _, existing := range a.store.Directories() {
		if existing == dir {
			found = true
		}
	}
	if !found {
		t.Fatalf("allowlist missing %s: %v", dir, a.store.Directories())
	}
}

func TestCommandCompleterCoversAllCommands(t *testing.T) {
	completer := getCommandCompleter()
	if got, want := len(completer.GetChildren()), len(getAvailableCommands()); got != want {
		t.Fatalf("completer has %d entries, want %d", got, want)
	}
}
