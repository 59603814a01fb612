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
	. "gopkg.in/check.v1"

	"github.com/markhindley/elogind/manager"
)

type snapshotSuite struct {
	baseManagerSuite
}

var _ = Suite(&snapshotSuite{})

func (s *snapshotSuite) TestSeats(c *C) {
	c.Assert(s.m.Startup(), IsNil)
	err := s.m.ProcessSeatDevice(&manager.DeviceEvent{
		Action:     "add",
		Syspath:    "/sys/devices/pci0/card1",
		Properties: map[string]string{"ID_SEAT": "seat1"},
		Tags:       []string{"master-of-seat"},
	})
	c.Assert(err, IsNil)

	sess, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)
	sess.AttachToSeat(s.m.Seat("seat1"))

	seats := s.m.Seats()
	c.Assert(seats, HasLen, 2)
	c.Check(seats[0].ID, Equals, "seat0")
	c.Check(seats[0].HasMasterDevice, Equals, false)
	c.Check(seats[1].ID, Equals, "seat1")
	c.Check(seats[1].HasMasterDevice, Equals, true)
	c.Check(seats[1].ActiveSession, Equals, "c1")
	c.Check(seats[1].Sessions, DeepEquals, []string{"c1"})
}

func (s *snapshotSuite) TestSessionsAndUsers(c *C) {
	u, err := s.m.AddUser(1000, 1000, "alice")
	c.Assert(err, IsNil)
	sess, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)
	sess.SetUser(u)
	manager.MockSessionIdle(sess, true, mono(50))

	sessions := s.m.Sessions()
	c.Assert(sessions, HasLen, 1)
	c.Check(sessions[0].ID, Equals, "c1")
	c.Check(sessions[0].UID, Equals, uint32(1000))
	c.Check(sessions[0].User, Equals, "alice")
	c.Check(sessions[0].IdleHint, Equals, true)
	c.Assert(sessions[0].IdleSince, NotNil)
	c.Check(*sessions[0].IdleSince, Equals, mono(50).Realtime)

	users := s.m.Users()
	c.Assert(users, HasLen, 1)
	c.Check(users[0].Name, Equals, "alice")
	c.Check(users[0].Sessions, DeepEquals, []string{"c1"})
}

func (s *snapshotSuite) TestInhibitorsSkipUnstarted(c *C) {
	restore := manager.MockTimeNow(func() manager.DualTimestamp { return mono(10) })
	defer restore()

	i, err := s.m.AddInhibitor("1")
	c.Assert(err, IsNil)
	i.Setup(manager.InhibitSleep|manager.InhibitShutdown, manager.InhibitDelay, "updater", "applying changes", 1000, 42)
	i.Start()

	pending, err := s.m.AddInhibitor("2")
	c.Assert(err, IsNil)
	pending.Setup(manager.InhibitIdle, manager.InhibitBlock, "x", "y", 0, 1)

	infos := s.m.Inhibitors()
	c.Assert(infos, HasLen, 1)
	c.Check(infos[0].ID, Equals, "1")
	c.Check(infos[0].What, Equals, "shutdown:sleep")
	c.Check(infos[0].Mode, Equals, "delay")
	c.Check(infos[0].Who, Equals, "updater")
	c.Assert(infos[0].Since, NotNil)
	c.Check(*infos[0].Since, Equals, mono(10).Realtime)
}

func (s *snapshotSuite) TestSystem(c *C) {
	c.Assert(s.m.Startup(), IsNil)
	_, err := s.m.AddSession("c1")
	c.Assert(err, IsNil)

	info := s.m.System()
	c.Check(info.Seats, Equals, 1)
	c.Check(info.Sessions, Equals, 1)
	c.Check(info.Users, Equals, 0)
	c.Check(info.IdleHint, Equals, false)
	c.Check(info.Docked, Equals, false)
	c.Check(info.Displays, Equals, 0)
}
