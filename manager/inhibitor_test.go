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

type inhibitorSuite struct {
	baseManagerSuite

	now manager.DualTimestamp
}

var _ = Suite(&inhibitorSuite{})

func (s *inhibitorSuite) SetUpTest(c *C) {
	s.baseManagerSuite.SetUpTest(c)

	s.now = mono(10)
	s.AddCleanup(manager.MockTimeNow(func() manager.DualTimestamp { return s.now }))
}

func (s *inhibitorSuite) addStarted(c *C, id string, what manager.InhibitWhat, mode manager.InhibitMode, at manager.DualTimestamp) *manager.Inhibitor {
	i, err := s.m.AddInhibitor(id)
	c.Assert(err, IsNil)
	i.Setup(what, mode, "who-"+id, "why-"+id, 1000, 42)
	s.now = at
	i.Start()
	return i
}

func (s *inhibitorSuite) TestIsInhibitedMatchesWhatAndMode(c *C) {
	s.addStarted(c, "1", manager.InhibitSleep, manager.InhibitBlock, mono(10))

	inhibited, since := s.m.IsInhibited(manager.InhibitSleep, manager.InhibitBlock)
	c.Check(inhibited, Equals, true)
	c.Check(since, Equals, mono(10))

	// a delay lock does not block
	inhibited, _ = s.m.IsInhibited(manager.InhibitSleep, manager.InhibitDelay)
	c.Check(inhibited, Equals, false)

	// different action
	inhibited, _ = s.m.IsInhibited(manager.InhibitShutdown, manager.InhibitBlock)
	c.Check(inhibited, Equals, false)

	// mask overlap is enough
	inhibited, _ = s.m.IsInhibited(manager.InhibitSleep|manager.InhibitShutdown, manager.InhibitBlock)
	c.Check(inhibited, Equals, true)
}

func (s *inhibitorSuite) TestIsInhibitedEarliestWins(c *C) {
	s.addStarted(c, "1", manager.InhibitSleep, manager.InhibitBlock, mono(30))
	s.addStarted(c, "2", manager.InhibitSleep, manager.InhibitBlock, mono(20))
	s.addStarted(c, "3", manager.InhibitSleep, manager.InhibitBlock, mono(40))

	inhibited, since := s.m.IsInhibited(manager.InhibitSleep, manager.InhibitBlock)
	c.Check(inhibited, Equals, true)
	c.Check(since, Equals, mono(20))
}

func (s *inhibitorSuite) TestNotStartedDoesNotInhibit(c *C) {
	i, err := s.m.AddInhibitor("1")
	c.Assert(err, IsNil)
	i.Setup(manager.InhibitSleep, manager.InhibitBlock, "updater", "busy", 0, 1)

	inhibited, _ := s.m.IsInhibited(manager.InhibitSleep, manager.InhibitBlock)
	c.Check(inhibited, Equals, false)
}

func (s *inhibitorSuite) TestStopReleases(c *C) {
	i := s.addStarted(c, "1", manager.InhibitSleep, manager.InhibitBlock, mono(10))
	i.Stop()

	inhibited, _ := s.m.IsInhibited(manager.InhibitSleep, manager.InhibitBlock)
	c.Check(inhibited, Equals, false)

	// the id can be taken again afterwards
	again, err := s.m.AddInhibitor("1")
	c.Assert(err, IsNil)
	c.Check(again, Not(Equals), i)
}

func (s *inhibitorSuite) TestStartTwiceKeepsOriginalTimestamp(c *C) {
	i := s.addStarted(c, "1", manager.InhibitSleep, manager.InhibitBlock, mono(10))
	s.now = mono(99)
	i.Start()

	_, since := s.m.IsInhibited(manager.InhibitSleep, manager.InhibitBlock)
	c.Check(since, Equals, mono(10))
}

func (s *inhibitorSuite) TestInhibitModeString(c *C) {
	c.Check(manager.InhibitBlock.String(), Equals, "block")
	c.Check(manager.InhibitDelay.String(), Equals, "delay")

	mm, err := manager.ParseInhibitMode("delay")
	c.Assert(err, IsNil)
	c.Check(mm, Equals, manager.InhibitDelay)

	_, err = manager.ParseInhibitMode("sometimes")
	c.Assert(err, ErrorMatches, `cannot parse inhibit mode "sometimes"`)
}
