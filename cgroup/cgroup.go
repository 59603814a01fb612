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

// Package cgroup answers the two questions elogind has about the
// control group hierarchy: whether the unified (v2) layout is in use,
// and which session a given cgroup path belongs to. The hierarchy
// itself is mounted and populated by others.
package cgroup

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/markhindley/elogind/dirs"
)

// IsUnified reports whether the unified (v2) cgroup hierarchy is
// mounted at the cgroup root.
func IsUnified() (bool, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dirs.CgroupDir, &st); err != nil {
		return false, fmt.Errorf("cannot statfs %s: %v", dirs.CgroupDir, err)
	}
	return st.Type == unix.CGROUP2_SUPER_MAGIC, nil
}

const (
	sessionUnitPrefix = "session-"
	sessionUnitSuffix = ".scope"
)

// SessionFromPath extracts the session identifier from a cgroup path
// containing a session scope unit, e.g.
// "/user.slice/user-1000.slice/session-c2.scope" yields "c2".
func SessionFromPath(path string) (string, error) {
	for _, comp := range strings.Split(path, "/") {
		if !strings.HasPrefix(comp, sessionUnitPrefix) || !strings.HasSuffix(comp, sessionUnitSuffix) {
			continue
		}
		id := comp[len(sessionUnitPrefix) : len(comp)-len(sessionUnitSuffix)]
		if id == "" {
			continue
		}
		return id, nil
	}
	return "", fmt.Errorf("cgroup path %q contains no session scope", path)
}
