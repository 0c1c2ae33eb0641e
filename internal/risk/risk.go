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

// Package risk classifies the blast radius of requested file operations.
// The classification is advisory: confirmation gating is owned by the
// caller, this package only computes levels.
package risk

import "strings"

// Operation is a closed enumeration of file operation kinds. Free-form
// operation names are converted exactly once, at the system boundary,
// through ParseOperation.
type Operation int

const (
	OpUnknown Operation = iota
	OpRead
	OpList
	OpSearch
	OpMove
	OpRename
	OpCopy
	OpCreate
	OpOrganize
	OpDelete
	OpRemove
)

var operationNames = map[Operation]string{
	OpUnknown:  "unknown",
	OpRead:     "read",
	OpList:     "list",
	OpSearch:   "search",
	OpMove:     "move",
	OpRename:   "rename",
	OpCopy:     "copy",
	OpCreate:   "create",
	OpOrganize: "organize",
	OpDelete:   "delete",
	OpRemove:   "remove",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "unknown"
}

// ParseOperation maps an operation name to its typed variant,
// case-insensitively. Names with no variant map to OpUnknown; callers
// never get an error because unknown operations are still classifiable
// (they default toward caution).
func ParseOperation(name string) Operation {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "read":
		return OpRead
	case "list", "scan":
		return OpList
	case "search", "find":
		return OpSearch
	case "move":
		return OpMove
	case "rename":
		return OpRename
	case "copy":
		return OpCopy
	case "create":
		return OpCreate
	case "organize", "sort":
		return OpOrganize
	case "delete":
		return OpDelete
	case "remove":
		return OpRemove
	default:
		return OpUnknown
	}
}

// Destructive reports whether the operation permanently removes data.
func (o Operation) Destructive() bool {
	return o == OpDelete || o == OpRemove
}

// ReadOnly reports whether the operation cannot modify the filesystem.
func (o Operation) ReadOnly() bool {
	return o == OpRead || o == OpList || o == OpSearch
}

// Level is an ordered risk classification of an operation.
type Level int

const (
	Low Level = iota
	Medium
	High
	Critical
)

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Classify computes the risk level of an operation from its kind, the
// number of files touched, and whether a directory is involved.
//
// Read-only operations are always Low. Reorganizing operations (move,
// rename, copy and friends) are Medium, escalating to High above ten
// files. Destructive operations are Critical when a directory or more
// than five files are involved, High for a handful, Medium for a single
// file. Unknown operations classify as Medium rather than silently low.
func Classify(op Operation, fileCount int, isDirectory bool) Level {
	switch {
	case op.ReadOnly():
		return Low
	case op == OpMove || op == OpRename || op == OpCopy || op == OpCreate || op == OpOrganize:
		if fileCount > 10 {
			return High
		}
		return Medium
	case op.Destructive():
		switch {
		case isDirectory || fileCount > 5:
			return Critical
		case fileCount > 1:
			return High
		default:
			return Medium
		}
	default:
		return Medium
	}
}
