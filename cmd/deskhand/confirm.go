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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"deskhand/internal/dispatch"
	"deskhand/internal/intent"
	"deskhand/internal/risk"
)

type confirmDecision int

const (
	confirmUnknown confirmDecision = iota
	confirmYes
	confirmNo
)

// newConfirmer returns the interactive confirmation gate used by the
// dispatcher for risky operations.
func newConfirmer() dispatch.ConfirmFunc {
	return promptConfirmation
}

func promptConfirmation(in intent.Intent, as risk.Assessment) (bool, error) {
	input := os.Stdin
	output := io.Writer(os.Stdout)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
			input = tty
			output = tty
			defer tty.Close()
		} else {
			return false, fmt.Errorf("no TTY available for confirmation")
		}
	}
	return confirmWithReader(in, as, bufio.NewReader(input), output)
}

// confirmWithReader runs the confirmation dialog against explicit
// streams. Critical operations must be answered with a full "yes"; a
// single keypress is not enough to wipe a directory.
func confirmWithReader(in intent.Intent, as risk.Assessment, reader *bufio.Reader, output io.Writer) (bool, error) {
	fmt.Fprintf(output, "\n⚠ %s risk: %s\n", as.Level, in.OriginalText)
	for _, factor := range as.Factors {
		fmt.Fprintf(output, "  - %s\n", factor)
	}
	if as.RequiresBackup {
		fmt.Fprintln(output, "  A backup will be taken before this operation.")
	}

	for {
		if as.Level >= risk.Critical {
			fmt.Fprint(output, "Type 'yes' to proceed: ")
		} else {
			fmt.Fprint(output, "Proceed? (yes/No): ")
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false, err
		}
		decision := parseConfirmInput(line, as.Level >= risk.Critical)
		switch decision {
		case confirmYes:
			return true, nil
		case confirmNo:
			return false, nil
		default:
			fmt.Fprintln(output, "Please enter yes or no.")
		}
	}
}

// parseConfirmInput maps user input onto a decision. An empty answer
// declines: the risky path always needs an explicit yes. In strict mode
// only the full word "yes" confirms.
func parseConfirmInput(input string, strict bool) confirmDecision {
	normalized := strings.TrimSpace(strings.ToLower(input))
	if normalized == "" {
		return confirmNo
	}
	if strict {
		if normalized == "yes" {
			return confirmYes
		}
		if isPrefixToken(normalized, "no") {
			return confirmNo
		}
		return confirmUnknown
	}
	switch {
	case isPrefixToken(normalized, "yes"):
		return confirmYes
	case isPrefixToken(normalized, "no"):
		return confirmNo
	default:
		return confirmUnknown
	}
}

func isPrefixToken(input, target string) bool {
	if input == "" || len(input) > len(target) {
		return false
	}
	return strings.HasPrefix(target, input)
}
