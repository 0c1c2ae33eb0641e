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

package risk

import "fmt"

// File count thresholds contributing to the risk score.
const (
	lowFileCount    = 10
	mediumFileCount = 50
	highFileCount   = 200
)

// Total size thresholds contributing to the risk score.
const (
	lowSizeBytes    = 10 << 20
	mediumSizeBytes = 100 << 20
	highSizeBytes   = 500 << 20
)

// Assessment is a scored risk evaluation of a requested operation.
// The Level is derived from the score, never stored elsewhere.
type Assessment struct {
	Level                Level
	Score                int
	Factors              []string
	RequiresConfirmation bool
	RequiresBackup       bool
}

// Assess scores an operation from 0 to 100 and maps the score onto a
// risk level. Unlike Classify it weighs total size and recursion in
// addition to kind and file count, and reports whether the caller
// should gate the operation behind confirmation or a backup.
func Assess(op Operation, fileCount int, totalBytes int64, isDirectory, recursive bool) Assessment {
	score := baseOperationScore(op, isDirectory)
	factors := []string{fmt.Sprintf("operation type: %s", op)}

	switch {
	case fileCount > highFileCount:
		score += 40
		factors = append(factors, fmt.Sprintf("high file count (%d files)", fileCount))
	case fileCount > mediumFileCount:
		score += 25
		factors = append(factors, fmt.Sprintf("medium file count (%d files)", fileCount))
	case fileCount > lowFileCount:
		score += 10
		factors = append(factors, fmt.Sprintf("low file count (%d files)", fileCount))
	}

	sizeMB := float64(totalBytes) / (1 << 20)
	switch {
	case totalBytes > highSizeBytes:
		score += 30
		factors = append(factors, fmt.Sprintf("large total size (%.1fMB)", sizeMB))
	case totalBytes > mediumSizeBytes:
		score += 20
		factors = append(factors, fmt.Sprintf("medium total size (%.1fMB)", sizeMB))
	case totalBytes > lowSizeBytes:
		score += 10
		factors = append(factors, fmt.Sprintf("small total size (%.1fMB)", sizeMB))
	}

	if recursive {
		score += 15
		factors = append(factors, "recursive operation")
	}

	if score > 100 {
		score = 100
	}

	level := scoreToLevel(score)
	// The table-driven classification is the floor: a scored assessment
	// never reports an operation as less risky than Classify would.
	if tabled := Classify(op, fileCount, isDirectory); tabled > level {
		level = tabled
	}
	// Reading mutates nothing; volume alone never raises its level, so
	// read-only operations stay Low and are never gated.
	if op.ReadOnly() {
		level = Low
	}

	return Assessment{
		Level:                level,
		Score:                score,
		Factors:              factors,
		RequiresConfirmation: level > Low,
		RequiresBackup:       op.Destructive() && level >= High,
	}
}

func baseOperationScore(op Operation, isDirectory bool) int {
	switch {
	case op.ReadOnly():
		return 0
	case op.Destructive():
		if isDirectory {
			return 60
		}
		return 50
	case op == OpMove || op == OpRename:
		return 20
	case op == OpOrganize:
		return 15
	case op == OpCopy || op == OpCreate:
		return 5
	default:
		return 25
	}
}

func scoreToLevel(score int) Level {
	switch {
	case score >= 75:
		return Critical
	case score >= 50:
		return High
	case score >= 25:
		return Medium
	default:
		return Low
	}
}
