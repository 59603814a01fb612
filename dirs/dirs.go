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

// Package dirs holds the well-known directories and files elogind
// works with. All of them are derived from a single root directory
// that tests may relocate with SetRootDir.
package dirs

import (
	"path/filepath"
)

var (
	// GlobalRootDir is the root directory for all the other
	// directories in this package.
	GlobalRootDir string

	// RunDir is the runtime state directory of the daemon.
	RunDir string

	// CgroupsAgentSocket is the datagram socket the cgroups release
	// agent sends cgroup-empty notifications to.
	CgroupsAgentSocket string

	// ElogindSocket is the unix socket of the REST control API.
	ElogindSocket string

	// PidFile is written by the daemonized process and removed on
	// clean exit.
	PidFile string

	// ConfFile is the daemon configuration file.
	ConfFile string

	// SysfsDir is where sysfs is mounted.
	SysfsDir string

	// DrmClassDir holds the DRM connector devices used for display
	// counting.
	DrmClassDir string

	// CgroupDir is the root of the control group filesystem.
	CgroupDir string
)

// SetRootDir allows settings a new global root directory, this is useful
// for testing.
func SetRootDir(rootdir string) {
	if rootdir == "" {
		rootdir = "/"
	}
	GlobalRootDir = rootdir

	RunDir = filepath.Join(rootdir, "/run/elogind")
	CgroupsAgentSocket = filepath.Join(RunDir, "cgroups-agent")
	ElogindSocket = filepath.Join(RunDir, "elogind.socket")
	PidFile = filepath.Join(rootdir, "/run/elogind.pid")
	ConfFile = filepath.Join(rootdir, "/etc/elogind/logind.conf")
	SysfsDir = filepath.Join(rootdir, "/sys")
	DrmClassDir = filepath.Join(SysfsDir, "class/drm")
	CgroupDir = filepath.Join(rootdir, "/sys/fs/cgroup")
}

func init() {
	SetRootDir("/")
}
