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

// Package manager implements the seat, device, session, user,
// inhibitor and button registry at the heart of elogind, together
// with the event loop that serializes all mutations of it.
package manager

import (
	"fmt"
	"sync"

	"github.com/markhindley/elogind/logger"
	"github.com/markhindley/elogind/osutil"
)

// Options carries the construction parameters of a Manager.
type Options struct {
	// IsSystem is true when this is the system-wide instance, as
	// opposed to a per-user one. Only the system instance listens
	// for cgroup release agent notifications.
	IsSystem bool
	// TestRun disables all interaction with the running system
	// (sockets, input devices), for tests.
	TestRun bool
}

// Manager owns all seats, devices, sessions, users, inhibitors and
// buttons known to the daemon. All entity collections are exclusively
// owned by the Manager; entities refer to each other with non-owning
// references only.
//
// All mutation happens on the event loop via Submit or one of the
// registered event sources; the state lock only guards the read-only
// snapshots handed out to the REST API.
type Manager struct {
	isSystem bool
	testRun  bool

	state sync.Mutex

	devices    map[string]*Device
	seats      map[string]*Seat
	sessions   map[string]*Session
	users      map[uint32]*User
	inhibitors map[string]*Inhibitor
	buttons    map[string]*Button

	busNames map[string]bool

	seatGCQueue    []*Seat
	sessionGCQueue []*Session
	userGCQueue    []*User

	cgroupsAgentFd     int
	cgroupsAgentSource *eventSource

	loop *EventLoop

	conf Config

	buttonAction func(InhibitWhat)
}

// New constructs the process-wide Manager. The configuration file is
// read if present; a malformed one is logged and ignored.
func New(opts *Options) (*Manager, error) {
	if opts == nil {
		opts = &Options{}
	}

	loop, err := NewEventLoop()
	if err != nil {
		return nil, fmt.Errorf("cannot create event loop: %v", err)
	}

	m := &Manager{
		isSystem:       opts.IsSystem,
		testRun:        opts.TestRun,
		devices:        make(map[string]*Device),
		seats:          make(map[string]*Seat),
		sessions:       make(map[string]*Session),
		users:          make(map[uint32]*User),
		inhibitors:     make(map[string]*Inhibitor),
		buttons:        make(map[string]*Button),
		busNames:       make(map[string]bool),
		cgroupsAgentFd: -1,
		loop:           loop,
		conf:           defaultConfig(),
	}
	loop.SetPostDispatch(func() {
		m.state.Lock()
		defer m.state.Unlock()
		m.gc()
	})

	if err := m.conf.load(); err != nil {
		logger.Noticef("cannot read configuration: %v", err)
	}

	return m, nil
}

// Startup brings up the parts of the manager that talk to the running
// system: the fallback seat and the cgroups agent channel.
func (m *Manager) Startup() error {
	seat, err := m.AddSeat("seat0")
	if err != nil {
		return err
	}
	seat.pinned = true

	if err := m.SetupCgroupsAgent(); err != nil {
		return err
	}

	return nil
}

// Run dispatches events until Stop is called.
func (m *Manager) Run() error {
	return m.loop.Run()
}

// Submit schedules f to run on the event loop, serialized with all
// other registry mutation.
func (m *Manager) Submit(f func()) {
	m.loop.Call(func() {
		m.state.Lock()
		defer m.state.Unlock()
		f()
	})
}

// Stop shuts down the event loop and releases the manager's sockets
// and devices.
func (m *Manager) Stop() error {
	err := m.loop.Stop()

	m.state.Lock()
	defer m.state.Unlock()

	m.CloseCgroupsAgent()
	for _, b := range m.buttons {
		b.closeDevice()
	}
	return err
}

// SetButtonAction installs the handler invoked when an uninhibited
// power event needs acting on.
func (m *Manager) SetButtonAction(f func(InhibitWhat)) {
	m.buttonAction = f
}

// KillUserProcesses returns whether processes of departing users are
// to be killed, before applying the per-user include/exclude lists.
func (m *Manager) KillUserProcesses() bool {
	return m.conf.KillUserProcesses
}

func (m *Manager) addSeatToGCQueue(s *Seat) {
	if s == nil || s.inGCQueue {
		return
	}
	s.inGCQueue = true
	m.seatGCQueue = append(m.seatGCQueue, s)
}

func (m *Manager) addSessionToGCQueue(s *Session) {
	if s == nil || s.inGCQueue {
		return
	}
	s.inGCQueue = true
	m.sessionGCQueue = append(m.sessionGCQueue, s)
}

func (m *Manager) addUserToGCQueue(u *User) {
	if u == nil || u.inGCQueue {
		return
	}
	u.inGCQueue = true
	m.userGCQueue = append(m.userGCQueue, u)
}

// gc drains the garbage collection queues. Queued entities that have
// picked up new references since queueing are kept; multiple removals
// in one event burst collapse into this single pass.
func (m *Manager) gc() {
	for len(m.sessionGCQueue) > 0 {
		s := m.sessionGCQueue[0]
		m.sessionGCQueue = m.sessionGCQueue[1:]
		s.inGCQueue = false
		if !s.checkGC() {
			s.free()
		}
	}

	for len(m.userGCQueue) > 0 {
		u := m.userGCQueue[0]
		m.userGCQueue = m.userGCQueue[1:]
		u.inGCQueue = false
		if !u.checkGC() {
			u.free()
		}
	}

	for len(m.seatGCQueue) > 0 {
		s := m.seatGCQueue[0]
		m.seatGCQueue = m.seatGCQueue[1:]
		s.inGCQueue = false
		if !s.checkGC() {
			s.stop()
			s.free()
		}
	}
}

const seatNameMax = 255

// seatNameIsValid implements the seat naming rules: a seat name
// starts with "seat" and continues with letters, digits, "-" or "_".
func seatNameIsValid(name string) bool {
	if len(name) == 0 || len(name) > seatNameMax {
		return false
	}
	if len(name) < len("seat") || name[:4] != "seat" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

var osutilLookupUser = osutil.LookupUser
var osutilLookupUID = osutil.LookupUID
