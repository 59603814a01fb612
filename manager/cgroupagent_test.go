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

package manager_test

import (
	"strings"

	"golang.org/x/sys/unix"
	. "gopkg.in/check.v1"

	"github.com/markhindley/elogind/logger"
	"github.com/markhindley/elogind/manager"
	"github.com/markhindley/elogind/testutil"
)

type agentSuite struct {
	baseManagerSuite

	local, remote int

	paths []string
}

var _ = Suite(&agentSuite{})

func (s *agentSuite) SetUpTest(c *C) {
	s.baseManagerSuite.SetUpTest(c)

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, 0)
	c.Assert(err, IsNil)
	s.local, s.remote = fds[0], fds[1]
	s.AddCleanup(func() {
		unix.Close(s.local)
		unix.Close(s.remote)
	})

	s.paths = nil
	s.AddCleanup(manager.MockNotifyCgroupEmptyHook(func(m *manager.Manager, path string) {
		s.paths = append(s.paths, path)
	}))
}

func (s *agentSuite) send(c *C, msg []byte) {
	_, err := unix.Write(s.remote, msg)
	c.Assert(err, IsNil)
}

func (s *agentSuite) TestDispatchForwardsPath(c *C) {
	s.send(c, []byte("/elogind.slice/session-c2.scope"))
	s.m.DispatchCgroupsAgent(s.local)
	c.Check(s.paths, DeepEquals, []string{"/elogind.slice/session-c2.scope"})
}

func (s *agentSuite) TestDispatchNoPendingMessage(c *C) {
	logbuf, restore := logger.MockLogger()
	defer restore()

	// the socket is non-blocking, reading without a datagram queued
	// is silently a no-op
	s.m.DispatchCgroupsAgent(s.local)
	c.Check(s.paths, HasLen, 0)
	c.Check(logbuf.String(), Equals, "")
}

func (s *agentSuite) TestDispatchZeroLength(c *C) {
	logbuf, restore := logger.MockLogger()
	defer restore()

	s.send(c, []byte{})
	s.m.DispatchCgroupsAgent(s.local)
	c.Check(s.paths, HasLen, 0)
	c.Check(logbuf.String(), testutil.Contains, "got zero-length cgroups agent message, ignoring")
}

func (s *agentSuite) TestDispatchOverlyLong(c *C) {
	logbuf, restore := logger.MockLogger()
	defer restore()

	s.send(c, []byte(strings.Repeat("x", unix.PathMax+1)))
	s.m.DispatchCgroupsAgent(s.local)
	c.Check(s.paths, HasLen, 0)
	c.Check(logbuf.String(), testutil.Contains, "got overly long cgroups agent message, ignoring")
}

func (s *agentSuite) TestDispatchLongestValidMessage(c *C) {
	msg := strings.Repeat("x", unix.PathMax)
	s.send(c, []byte(msg))
	s.m.DispatchCgroupsAgent(s.local)
	c.Check(s.paths, DeepEquals, []string{msg})
}

func (s *agentSuite) TestDispatchEmbeddedNul(c *C) {
	logbuf, restore := logger.MockLogger()
	defer restore()

	s.send(c, []byte("/elogind.slice\x00/session-c2.scope"))
	s.m.DispatchCgroupsAgent(s.local)
	c.Check(s.paths, HasLen, 0)
	c.Check(logbuf.String(), testutil.Contains, "got cgroups agent message with embedded NUL byte, ignoring")
}

func (s *agentSuite) TestDispatchOneDatagramPerCall(c *C) {
	s.send(c, []byte("/a/session-c1.scope"))
	s.send(c, []byte("/a/session-c2.scope"))

	s.m.DispatchCgroupsAgent(s.local)
	c.Check(s.paths, HasLen, 1)
	s.m.DispatchCgroupsAgent(s.local)
	c.Check(s.paths, DeepEquals, []string{"/a/session-c1.scope", "/a/session-c2.scope"})
}
