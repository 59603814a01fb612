// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2024 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package manager

import (
	"time"

	"golang.org/x/sys/unix"
)

// DualTimestamp records one point in time on both the wall clock and
// the monotonic clock. Comparisons always use the monotonic part, the
// wall clock value is for presentation only.
type DualTimestamp struct {
	Realtime  time.Time
	Monotonic time.Duration
}

// IsZero reports whether the timestamp was never taken.
func (t DualTimestamp) IsZero() bool {
	return t.Monotonic == 0 && t.Realtime.IsZero()
}

func dualTimestampNow() DualTimestamp {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		// the monotonic clock cannot realistically fail, but keep
		// ordering sane if it ever does
		return DualTimestamp{Realtime: time.Now()}
	}
	return DualTimestamp{
		Realtime:  time.Now(),
		Monotonic: time.Duration(ts.Nano()),
	}
}

var timeNow = dualTimestampNow
