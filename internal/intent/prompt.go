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

package intent

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
)

//go:embed prompts/*.txt
var promptFiles embed.FS

var errNoToolCall = errors.New("model returned no tool call")

// SystemPrompt assembles the embedded prompt files in name order.
func SystemPrompt() (string, error) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return "", fmt.Errorf("failed to read embedded prompt files: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no prompt files found in embedded set")
	}
	sort.Strings(names)

	var builder strings.Builder
	for _, name := range names {
		data, err := promptFiles.ReadFile("prompts/" + name)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file %q: %w", name, err)
		}
		builder.Write(data)
		if !strings.HasSuffix(builder.String(), "\n") {
			builder.WriteString("\n")
		}
	}
	return builder.String(), nil
}
