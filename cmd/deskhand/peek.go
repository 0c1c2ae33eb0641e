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
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/u-root/u-root/pkg/core"
	corels "github.com/u-root/u-root/pkg/core/ls"

	"deskhand/internal/paths"
)

// peekDir lists an allowed directory without involving the agent. The
// path goes through the same validator as dispatched commands; /peek is
// not a side door around the allowlist.
func peekDir(a *app, arg string) {
	if arg == "" {
		fmt.Println("Usage: /peek <dir>")
		return
	}

	dir := paths.ExpandHome(arg)
	if !a.dispatcher.Validator.ValidatePath(dir, a.store.Directories()) {
		fmt.Printf("✗ access to %s is not allowed (see /dirs)\n", arg)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	output, err := runCoreCommand(ctx, corels.New(), []string{"-l", dir})
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return
	}
	if strings.TrimSpace(output) == "" {
		fmt.Println("Directory is empty")
		return
	}
	fmt.Print(output)
}

func runCoreCommand(ctx context.Context, cmd core.Command, args []string) (string, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.SetIO(strings.NewReader(""), &stdout, &stderr)

	if err := cmd.RunContext(ctx, args...); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg != "" {
			return "", fmt.Errorf("%v: %s", err, errMsg)
		}
		return "", err
	}

	return stdout.String(), nil
}
