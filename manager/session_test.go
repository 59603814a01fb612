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
	"os"
	"path/filepath"
	"time"

	. "gopkg.in/check.v1"

	"github.com/markhindley/elogind/dirs"
	"github.com/markhindley/elogind/manager"
)

type sessionSuite struct {
	baseManagerSuite
}

var _ = Suite(&sessionSuite{})

func (s *sessionSuite) TestSetIdleHintMovesTimestampOnChangeOnly(c *C) {
	now := mono(100)
	restore := manager.MockTimeNow(func() manager.DualTimestamp { return now })
	defer restore()

	sess, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)

	sess.SetIdleHint(true)
	idle, since, err := sess.GetIdleHint()
	c.Assert(err, IsNil)
	c.Check(idle, Equals, true)
	c.Check(since, Equals, mono(100))

	// same value again does not move the timestamp
	now = mono(200)
	sess.SetIdleHint(true)
	_, since, err = sess.GetIdleHint()
	c.Assert(err, IsNil)
	c.Check(since, Equals, mono(100))

	sess.SetIdleHint(false)
	idle, since, err = sess.GetIdleHint()
	c.Assert(err, IsNil)
	c.Check(idle, Equals, false)
	c.Check(since, Equals, mono(200))
}

func (s *sessionSuite) TestGetIdleHintFromTTYAtime(c *C) {
	tty := filepath.Join(dirs.GlobalRootDir, "dev/pts/3")
	c.Assert(os.MkdirAll(filepath.Dir(tty), 0755), IsNil)
	c.Assert(os.WriteFile(tty, nil, 0600), IsNil)

	sess, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)
	sess.SetTTY(tty)

	// freshly touched, not idle
	idle, _, err := sess.GetIdleHint()
	c.Assert(err, IsNil)
	c.Check(idle, Equals, false)

	// untouched for an hour, idle
	old := time.Now().Add(-time.Hour)
	c.Assert(os.Chtimes(tty, old, old), IsNil)
	idle, since, err := sess.GetIdleHint()
	c.Assert(err, IsNil)
	c.Check(idle, Equals, true)
	c.Check(since.Realtime.Unix(), Equals, old.Unix())
}

func (s *sessionSuite) TestGetIdleHintTTYStatFailure(c *C) {
	sess, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)
	sess.SetTTY(filepath.Join(dirs.GlobalRootDir, "dev/tty1"))

	_, _, err = sess.GetIdleHint()
	c.Assert(err, ErrorMatches, `cannot stat .*/dev/tty1: .*`)
}

func (s *sessionSuite) TestExplicitIdleHintBeatsTTY(c *C) {
	restore := manager.MockTimeNow(func() manager.DualTimestamp { return mono(50) })
	defer restore()

	sess, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)
	// the tty path does not even exist; with an explicit hint it is
	// never consulted
	sess.SetTTY(filepath.Join(dirs.GlobalRootDir, "dev/tty1"))
	sess.SetIdleHint(true)

	idle, since, err := sess.GetIdleHint()
	c.Assert(err, IsNil)
	c.Check(idle, Equals, true)
	c.Check(since, Equals, mono(50))
}

func (s *sessionSuite) TestTakeControlReplacesController(c *C) {
	sess, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)

	sess.TakeControl(":1.1")
	c.Check(sess.Controller(), Equals, ":1.1")
	c.Check(s.m.IsWatchingBusName(":1.1"), Equals, true)

	sess.TakeControl(":1.2")
	c.Check(sess.Controller(), Equals, ":1.2")
	c.Check(s.m.IsWatchingBusName(":1.2"), Equals, true)
	c.Check(s.m.IsWatchingBusName(":1.1"), Equals, false)

	c.Check(sess.IsController(":1.2"), Equals, true)
	c.Check(sess.IsController(""), Equals, false)
}

func (s *sessionSuite) TestTakeControlEmptyNameIgnored(c *C) {
	sess, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)

	sess.TakeControl("")
	c.Check(sess.Controller(), Equals, "")
	c.Check(s.m.IsWatchingBusName(""), Equals, false)

	// an empty name does not displace a real controller either
	sess.TakeControl(":1.1")
	sess.TakeControl("")
	c.Check(sess.Controller(), Equals, ":1.1")
	c.Check(s.m.IsWatchingBusName(":1.1"), Equals, true)
}

func (s *sessionSuite) TestFreeReleasesControllerWatch(c *C) {
	sess, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)
	sess.TakeControl(":1.1")

	s.m.NotifyCgroupEmpty("/elogind.slice/session-c1.scope")
	s.m.GC()

	c.Check(s.m.Session("c1"), IsNil)
	c.Check(s.m.IsWatchingBusName(":1.1"), Equals, false)
}

func (s *sessionSuite) TestAttachToSeatMakesActive(c *C) {
	seat, err := s.m.AddSeat("seat1")
	c.Assert(err, IsNil)

	s1, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)
	s1.AttachToSeat(seat)
	c.Check(seat.ActiveSession(), Equals, s1)

	s2, err := s.m.AddSession("c2")
	c.Assert(err, IsNil)
	s2.AttachToSeat(seat)
	c.Check(seat.ActiveSession(), Equals, s2)

	// collecting the active session clears the seat's active pointer
	s.m.NotifyCgroupEmpty("/elogind.slice/session-c2.scope")
	s.m.GC()
	c.Check(seat.ActiveSession(), IsNil)
	c.Check(s.m.Seat("seat1"), NotNil)
}
