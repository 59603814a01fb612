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

// Package daemonize detaches the daemon from its controlling terminal
// with a double re-exec of the own binary, and maintains the PID file
// of the detached process.
//
// The classic double fork is not available to a Go program, so each
// detachment step re-executes /proc/self/exe with a stage marker in
// the environment. Descriptors do not leak across the steps: the
// spawned stages only inherit /dev/null for their standard streams
// and everything else is close-on-exec.
package daemonize

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/markhindley/elogind/dirs"
	"github.com/markhindley/elogind/logger"
	"github.com/markhindley/elogind/osutil"
)

const stageEnv = "ELOGIND_DAEMONIZE_STAGE"

var selfExe = "/proc/self/exe"

func spawnStage(stage string) (int, *exec.Cmd, error) {
	cmd := exec.Command(selfExe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), stageEnv+"="+stage)
	if err := cmd.Start(); err != nil {
		return 0, nil, err
	}
	return cmd.Process.Pid, cmd, nil
}

// Daemonize runs one step of the double detachment sequence,
// depending on which process it finds itself in.
//
// In the original process and in the intermediate control child it
// returns the pid of the spawned child; the caller must exit
// immediately. In the grandchild, the long-running daemon, it returns
// 0 after writing the PID file (best effort; a failure there is
// logged, not fatal).
func Daemonize() (pid int, err error) {
	stage := os.Getenv(stageEnv)
	switch stage {
	case "":
		pid, cmd, err := spawnStage("1")
		if err != nil {
			return 0, fmt.Errorf("cannot fork: %v", err)
		}
		// wait for the control child to terminate, so the
		// decoupling is guaranteed to have succeeded
		if err := cmd.Wait(); err != nil {
			return 0, fmt.Errorf("elogind control child failed: %v", err)
		}
		return pid, nil

	case "1":
		// the control child has to lead a new session before the
		// true daemon is created
		if _, err := unix.Setsid(); err != nil {
			return 0, fmt.Errorf("cannot create new session: %v", err)
		}
		unix.Umask(0022)

		pid, _, err := spawnStage("2")
		if err != nil {
			return 0, fmt.Errorf("cannot double fork: %v", err)
		}
		// exit immediately, the grandchild is on its own now
		return pid, nil

	case "2":
		os.Unsetenv(stageEnv)
		unix.Umask(0022)

		if err := WritePidFile(os.Getpid()); err != nil {
			logger.Noticef("cannot write PID file %s: %v", dirs.PidFile, err)
		}
		return 0, nil
	}

	return 0, fmt.Errorf("internal error: unknown daemonize stage %q", stage)
}

// WritePidFile durably records pid in the daemon's PID file,
// verifying the content on a write failure.
func WritePidFile(pid int) error {
	data := []byte(strconv.Itoa(pid) + "\n")
	return osutil.WriteFileVerified(dirs.PidFile, data, 0644)
}

// RemovePidFile removes the PID file if it currently exists, so that
// a clean exit never leaves a stale one behind. Failures are logged;
// external restart tooling has to tolerate a stale file after an
// unclean kill anyway.
func RemovePidFile() {
	if !osutil.FileExists(dirs.PidFile) {
		return
	}
	if err := os.Remove(dirs.PidFile); err != nil {
		logger.Noticef("cannot remove PID file %s: %v", dirs.PidFile, err)
	}
}
