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
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/markhindley/elogind/logger"
)

// sessionIdleThreshold is how long a session's tty may stay untouched
// before the session counts as idle, when no explicit idle hint was
// given.
const sessionIdleThreshold = 30 * time.Minute

// Session is one logical login session.
type Session struct {
	m  *Manager
	id string

	user *User
	seat *Seat

	ttyPath string

	idleHint  bool
	idleSince DualTimestamp

	// controller is the bus client currently allowed to manage
	// sleep/idle for this session; if set it always appears in the
	// manager's bus name watch set
	controller string

	released  bool
	inGCQueue bool
}

func newSession(m *Manager, id string) *Session {
	s := &Session{
		m:  m,
		id: id,
	}
	m.sessions[id] = s
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// User returns the owning user, or nil while unassigned.
func (s *Session) User() *User {
	return s.user
}

// SetUser assigns the owning user. A session belongs to exactly one
// user for its whole life.
func (s *Session) SetUser(u *User) {
	if s.user == u {
		return
	}
	if s.user != nil {
		delete(s.user.sessions, s.id)
	}
	s.user = u
	if u != nil {
		u.sessions[s.id] = s
	}
}

// AttachToSeat makes the session live on the given seat and makes it
// that seat's active session.
func (s *Session) AttachToSeat(seat *Seat) {
	if s.seat == seat {
		return
	}
	if s.seat != nil {
		delete(s.seat.sessions, s.id)
	}
	s.seat = seat
	if seat != nil {
		seat.sessions[s.id] = s
		seat.active = s
	}
}

// Seat returns the seat the session lives on, or nil.
func (s *Session) Seat() *Seat {
	return s.seat
}

// SetTTY records the controlling terminal of the session, used as the
// idle fallback signal.
func (s *Session) SetTTY(path string) {
	s.ttyPath = path
}

// SetIdleHint records the session's idle hint and the moment it
// changed. Setting the same value again does not move the timestamp.
func (s *Session) SetIdleHint(idle bool) {
	if s.idleHint == idle {
		return
	}

	s.idleHint = idle
	s.idleSince = timeNow()
	logger.Debugf("session %s idle hint now %v", s.id, idle)
}

// GetIdleHint returns the session's idle hint and the time of its
// last change. Without an explicit hint the controlling terminal's
// access time decides; a failure to read it is propagated.
func (s *Session) GetIdleHint() (bool, DualTimestamp, error) {
	// an explicit positive hint wins
	if s.idleHint {
		return true, s.idleSince, nil
	}

	if s.ttyPath != "" {
		var st unix.Stat_t
		if err := unix.Stat(s.ttyPath, &st); err != nil {
			return false, DualTimestamp{}, fmt.Errorf("cannot stat %s: %v", s.ttyPath, err)
		}
		atime := time.Unix(st.Atim.Unix())
		sinceAtime := time.Since(atime)

		n := timeNow()
		ts := DualTimestamp{Realtime: atime, Monotonic: n.Monotonic - sinceAtime}
		return sinceAtime > sessionIdleThreshold, ts, nil
	}

	return false, s.idleSince, nil
}

// Controller returns the bus name currently controlling this session,
// or "".
func (s *Session) Controller() string {
	return s.controller
}

// IsController reports whether name is the session's controller.
func (s *Session) IsController(name string) bool {
	return name != "" && s.controller == name
}

// TakeControl installs name as the session's controller and watches
// it. An existing controller is replaced; an empty name is ignored.
func (s *Session) TakeControl(name string) {
	if name == "" || s.IsController(name) {
		return
	}

	old := s.controller
	s.m.WatchBusName(name)
	s.controller = name

	if old != "" {
		s.m.DropBusName(old)
	}
}

// DropControl gives up the session's controller, if any, releasing
// the watch on its name.
func (s *Session) DropControl() {
	if s.controller == "" {
		return
	}

	old := s.controller
	s.controller = ""
	s.m.DropBusName(old)
}

// notifyCgroupEmpty marks the session released after its resource
// control group ran empty, queueing it for collection.
func (s *Session) notifyCgroupEmpty() {
	logger.Debugf("session %s ran out of processes", s.id)
	s.released = true
	s.m.addSessionToGCQueue(s)
}

func (s *Session) checkGC() bool {
	return !s.released
}

func (s *Session) free() {
	logger.Noticef("removed session %s", s.id)

	s.DropControl()

	if s.seat != nil {
		delete(s.seat.sessions, s.id)
		if s.seat.active == s {
			s.seat.active = nil
		}
		s.m.addSeatToGCQueue(s.seat)
		s.seat = nil
	}

	if s.user != nil {
		delete(s.user.sessions, s.id)
		s.m.addUserToGCQueue(s.user)
		s.user = nil
	}

	delete(s.m.sessions, s.id)
}
