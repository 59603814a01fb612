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
	"github.com/markhindley/elogind/logger"
)

// Seat is a logical console: a set of devices usable by one session
// at a time. Seats own nothing; the devices and sessions they group
// are owned by the Manager and refer to the seat non-exclusively.
type Seat struct {
	m  *Manager
	id string

	devices  map[string]*Device
	sessions map[string]*Session
	active   *Session

	// seat0 is pinned for the life of the manager and never garbage
	// collected
	pinned    bool
	started   bool
	inGCQueue bool
}

func newSeat(m *Manager, id string) *Seat {
	s := &Seat{
		m:        m,
		id:       id,
		devices:  make(map[string]*Device),
		sessions: make(map[string]*Session),
	}
	m.seats[id] = s
	return s
}

// ID returns the seat identifier.
func (s *Seat) ID() string {
	return s.id
}

// ActiveSession returns the session currently in the foreground on
// this seat, if any.
func (s *Seat) ActiveSession() *Session {
	return s.active
}

// Start brings the seat into service. Starting an already started
// seat is a no-op.
func (s *Seat) Start() {
	if s.started {
		return
	}

	logger.Noticef("new seat %s", s.id)
	s.started = true
}

func (s *Seat) stop() {
	if !s.started {
		return
	}

	logger.Noticef("removed seat %s", s.id)
	s.started = false
}

// HasMasterDevice reports whether at least one attached device alone
// justifies this seat's existence.
func (s *Seat) HasMasterDevice() bool {
	for _, d := range s.devices {
		if d.master {
			return true
		}
	}
	return false
}

// checkGC reports whether the seat is still referenced and must be
// kept.
func (s *Seat) checkGC() bool {
	if s.pinned {
		return true
	}
	if len(s.devices) > 0 {
		return true
	}
	if len(s.sessions) > 0 {
		return true
	}
	return false
}

func (s *Seat) free() {
	for _, d := range s.devices {
		d.seat = nil
	}
	delete(s.m.seats, s.id)
}
