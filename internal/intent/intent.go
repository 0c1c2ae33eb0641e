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

// Package intent turns free-form user commands into structured intents.
// Extraction runs a deterministic keyword pass first and optionally
// refines it through an LLM; either way the operation name is parsed
// into its typed variant here, at the boundary, so downstream risk
// classification never handles raw strings.
package intent

import (
	"strings"

	"deskhand/internal/risk"
)

// Intent is the structured form of one user command.
type Intent struct {
	Operation    risk.Operation
	Action       string
	Target       string
	Destination  string
	Strategy     string
	Recursive    bool
	Confidence   float64
	OriginalText string
}

// actionKeywords maps canonical actions to trigger phrases. Order
// matters: earlier actions win when phrases overlap.
var actionKeywords = []struct {
	action  string
	phrases []string
}{
	{"organize", []string{"organize", "sort", "arrange", "clean up", "tidy"}},
	{"delete", []string{"delete", "remove", "trash", "get rid of"}},
	{"move", []string{"move", "transfer", "relocate", "put"}},
	{"copy", []string{"copy", "duplicate", "clone"}},
	{"search", []string{"find", "search", "look for", "locate"}},
	{"create", []string{"create", "make", "new"}},
	{"rename", []string{"rename", "change name"}},
	{"scan", []string{"show", "list", "what's in", "see"}},
}

var strategyKeywords = []struct {
	strategy string
	phrases  []string
}{
	{"by_file_type", []string{"by type", "by file type", "by extension"}},
	{"by_date", []string{"by date", "by time", "by age", "chronologically"}},
	{"by_size", []string{"by size", "by file size"}},
}

var knownFolders = []string{"downloads", "desktop", "documents", "pictures", "music", "folder"}

// ParseKeywords extracts an intent from text using keyword matching
// only. It is deterministic and needs no network; the LLM path falls
// back to it on any failure.
func ParseKeywords(text string) Intent {
	lowered := strings.ToLower(strings.TrimSpace(text))

	action := extractAction(lowered)
	target := extractFolder(lowered)
	destination := extractDestination(lowered)
	strategy := extractStrategy(lowered)
	recursive := strings.Contains(lowered, "recursive") ||
		strings.Contains(lowered, "including subfolders") ||
		strings.Contains(lowered, "and subfolders")

	confidence := 0.3
	if action != "unknown" {
		confidence = 0.8
		if target != "" {
			confidence = 1.0
		}
	}

	return Intent{
		Operation:    risk.ParseOperation(action),
		Action:       action,
		Target:       target,
		Destination:  destination,
		Strategy:     strategy,
		Recursive:    recursive,
		Confidence:   confidence,
		OriginalText: text,
	}
}

func extractAction(text string) string {
	for _, entry := range actionKeywords {
		for _, phrase := range entry.phrases {
			if strings.Contains(text, phrase) {
				return entry.action
			}
		}
	}
	if strings.Contains(text, "?") || strings.HasPrefix(text, "what") {
		return "scan"
	}
	return "unknown"
}

func extractFolder(text string) string {
	// Explicit paths beat spoken folder names.
	for _, field := range strings.Fields(text) {
		token := strings.Trim(field, `.,!?"'`)
		if strings.HasPrefix(token, "/") || strings.HasPrefix(token, "~") {
			return token
		}
	}
	for _, folder := range knownFolders {
		if strings.Contains(text, folder) {
			return folder
		}
	}
	return ""
}

func extractDestination(text string) string {
	idx := strings.LastIndex(text, " to ")
	if idx == -1 {
		return ""
	}
	rest := strings.TrimSpace(text[idx+len(" to "):])
	if rest == "" {
		return ""
	}
	// Destination runs to the end of the sentence.
	if cut := strings.IndexAny(rest, ".!?,"); cut != -1 {
		rest = rest[:cut]
	}
	return strings.TrimSpace(rest)
}

func extractStrategy(text string) string {
	for _, entry := range strategyKeywords {
		for _, phrase := range entry.phrases {
			if strings.Contains(text, phrase) {
				return entry.strategy
			}
		}
	}
	return ""
}
