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

package security

import (
	"fmt"

	"deskhand/internal/errors"
)

// Limits bounds the size of batch operations forwarded to the agent.
type Limits struct {
	MaxBatchFiles     int
	MaxBatchBytes     int64
	MaxRecursionDepth int
}

// DefaultLimits returns the batch limits applied when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxBatchFiles:     1000,
		MaxBatchBytes:     1 << 30,
		MaxRecursionDepth: 10,
	}
}

// CheckBatch validates a batch against the limits. A zero limit disables
// that particular bound.
func (l Limits) CheckBatch(fileCount int, totalBytes int64) error {
	if l.MaxBatchFiles > 0 && fileCount > l.MaxBatchFiles {
		return errors.New(errors.CodePermission,
			fmt.Sprintf("batch size %d exceeds limit of %d files", fileCount, l.MaxBatchFiles))
	}
	if l.MaxBatchBytes > 0 && totalBytes > l.MaxBatchBytes {
		return errors.New(errors.CodePermission,
			fmt.Sprintf("total size %dMB exceeds limit of %dMB",
				totalBytes>>20, l.MaxBatchBytes>>20))
	}
	return nil
}

// CheckDepth validates a recursive operation's depth against the limits.
func (l Limits) CheckDepth(depth int) error {
	if l.MaxRecursionDepth > 0 && depth > l.MaxRecursionDepth {
		return errors.New(errors.CodePermission,
			fmt.Sprintf("recursion depth %d exceeds limit of %d", depth, l.MaxRecursionDepth))
	}
	return nil
}
