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
	"bytes"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/markhindley/elogind/cgroup"
	"github.com/markhindley/elogind/dirs"
	"github.com/markhindley/elogind/logger"
)

const cgroupsAgentRcvbufSize = 8 * 1024 * 1024

// SetupCgroupsAgent creates the datagram socket the cgroups release
// agent reports empty cgroups on, and registers it on the event loop.
// It is idempotent and a no-op for per-user instances, in test mode,
// and on the unified cgroup hierarchy, which notifies through a
// different path entirely.
//
// The agent binary is very short-living and would need a fresh bus
// connection per invocation; a connectionless AF_UNIX/SOCK_DGRAM
// socket has no backlog to overflow, so no message is ever lost to a
// connection queue.
func (m *Manager) SetupCgroupsAgent() error {
	if m.testRun {
		return nil
	}
	if !m.isSystem {
		return nil
	}

	unified, err := cgroup.IsUnified()
	if err != nil {
		return fmt.Errorf("cannot determine whether unified cgroup hierarchy is used: %v", err)
	}
	if unified {
		return nil
	}

	if m.cgroupsAgentFd < 0 {
		fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, 0)
		if err != nil {
			return fmt.Errorf("cannot allocate cgroups agent socket: %v", err)
		}

		incRcvbuf(fd, cgroupsAgentRcvbufSize)

		if err := os.MkdirAll(dirs.RunDir, 0755); err != nil {
			unix.Close(fd)
			return err
		}
		os.Remove(dirs.CgroupsAgentSocket)

		// only allow root to connect to this socket
		oldmask := unix.Umask(0077)
		err = unix.Bind(fd, &unix.SockaddrUnix{Name: dirs.CgroupsAgentSocket})
		unix.Umask(oldmask)
		if err != nil {
			unix.Close(fd)
			return fmt.Errorf("cannot bind %s: %v", dirs.CgroupsAgentSocket, err)
		}

		m.cgroupsAgentFd = fd
	}

	if m.cgroupsAgentSource == nil {
		// process cgroup notifications late, so that a cgroup running
		// empty is always just the last safety net after more specific
		// exit notifications have been handled for the same cycle
		source, err := m.loop.AddRead(m.cgroupsAgentFd, PriorityCgroupsAgent, func() {
			m.state.Lock()
			defer m.state.Unlock()
			m.dispatchCgroupsAgent(m.cgroupsAgentFd)
		})
		if err != nil {
			return fmt.Errorf("cannot watch cgroups agent socket: %v", err)
		}
		m.cgroupsAgentSource = source
	}

	return nil
}

// incRcvbuf enlarges the receive buffer of fd to at least size bytes.
// Privileged callers may exceed rmem_max through SO_RCVBUFFORCE.
func incRcvbuf(fd, size int) {
	if n, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF); err == nil && n >= size*2 {
		return
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUFFORCE, size); err == nil {
		return
	}
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, size)
}

// dispatchCgroupsAgent reads and validates one agent datagram,
// forwarding the carried cgroup path into the registry. Malformed
// messages are logged and dropped, never fatal.
func (m *Manager) dispatchCgroupsAgent(fd int) {
	buf := make([]byte, unix.PathMax+1)

	n, _, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return
		}
		logger.Noticef("cannot read cgroups agent message: %v", err)
		return
	}
	if n == 0 {
		logger.Noticef("got zero-length cgroups agent message, ignoring")
		return
	}
	if n >= len(buf) {
		logger.Noticef("got overly long cgroups agent message, ignoring")
		return
	}
	if bytes.IndexByte(buf[:n], 0) >= 0 {
		logger.Noticef("got cgroups agent message with embedded NUL byte, ignoring")
		return
	}

	m.notifyCgroupEmpty(string(buf[:n]))
}

// NotifyCgroupEmpty maps a cgroup path reported empty to the session
// running in it, if any, and marks that session released.
func (m *Manager) NotifyCgroupEmpty(cgroupPath string) {
	logger.Debugf("got cgroup empty notification for: %s", cgroupPath)

	id, err := cgroup.SessionFromPath(cgroupPath)
	if err != nil {
		logger.Debugf("cgroup %s does not belong to a session: %v", cgroupPath, err)
		return
	}

	s := m.sessions[id]
	if s == nil {
		return
	}

	s.notifyCgroupEmpty()
}

// notifyCgroupEmpty is replaceable in tests to observe forwarding.
var notifyCgroupEmptyHook func(m *Manager, path string)

func (m *Manager) notifyCgroupEmpty(path string) {
	if notifyCgroupEmptyHook != nil {
		notifyCgroupEmptyHook(m, path)
		return
	}
	m.NotifyCgroupEmpty(path)
}

// CloseCgroupsAgent tears the notification channel down. The bound
// socket path stays behind; the runtime directory cleanup owns it.
func (m *Manager) CloseCgroupsAgent() {
	if m.cgroupsAgentSource != nil {
		if err := m.loop.Remove(m.cgroupsAgentSource); err != nil {
			logger.Debugf("cannot deregister cgroups agent source: %v", err)
		}
		m.cgroupsAgentSource = nil
	}
	if m.cgroupsAgentFd >= 0 {
		unix.Close(m.cgroupsAgentFd)
		m.cgroupsAgentFd = -1
	}
}
