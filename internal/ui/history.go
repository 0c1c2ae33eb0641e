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

// Package ui holds the interactive pieces of the command prompt.
package ui

import (
	"bufio"
	"os"
)

// maxHistoryEntries caps in-memory history so a long-lived session
// does not grow without bound.
const maxHistoryEntries = 1000

// History manages command navigation (prev/next) with an internal cursor.
type History struct {
	entries []string
	index   int
}

// LoadHistoryFromFile reads history entries from a readline history file.
// A missing or unreadable file yields an empty history.
func LoadHistoryFromFile(filepath string) []string {
	history := make([]string, 0)

	file, err := os.Open(filepath)
	if err != nil {
		return history
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			history = append(history, line)
		}
	}

	return history
}

// NewHistory initializes a History with existing entries.
func NewHistory(entries []string) *History {
	return &History{
		entries: entries,
		index:   -1,
	}
}

// Add appends an entry and resets navigation. Empty entries and
// immediate repeats are dropped.
func (h *History) Add(entry string) {
	if entry == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == entry {
		h.index = -1
		return
	}
	h.entries = append(h.entries, entry)
	if len(h.entries) > maxHistoryEntries {
		h.entries = h.entries[len(h.entries)-maxHistoryEntries:]
	}
	h.index = -1
}

// Prev moves backward through history. Returns entry and true if available.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.index == -1 {
		h.index = len(h.entries) - 1
	} else if h.index > 0 {
		h.index--
	}
	return h.entries[h.index], true
}

// Next moves forward through history. Returns entry (or empty when
// cleared) and true if movement occurred.
func (h *History) Next() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.index == -1 {
		return "", false
	}
	if h.index < len(h.entries)-1 {
		h.index++
		return h.entries[h.index], true
	}
	h.index = -1
	return "", true
}

// Entries returns a copy of history entries.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
