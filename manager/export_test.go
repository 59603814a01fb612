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

type EventSource = eventSource

var (
	SeatNameIsValid = seatNameIsValid
	ParseConfBool   = parseConfBool
)

func MockTimeNow(f func() DualTimestamp) (restore func()) {
	old := timeNow
	timeNow = f
	return func() {
		timeNow = old
	}
}

func MockNotifyCgroupEmptyHook(f func(m *Manager, path string)) (restore func()) {
	old := notifyCgroupEmptyHook
	notifyCgroupEmptyHook = f
	return func() {
		notifyCgroupEmptyHook = old
	}
}

// MockSessionIdle sets a session's stored idle hint directly, with a
// caller-chosen timestamp.
func MockSessionIdle(s *Session, idle bool, ts DualTimestamp) {
	s.idleHint = idle
	s.idleSince = ts
}

func (m *Manager) DispatchCgroupsAgent(fd int) {
	m.dispatchCgroupsAgent(fd)
}

func (m *Manager) GC() {
	m.gc()
}

func (m *Manager) Device(sysfs string) *Device {
	return m.devices[sysfs]
}

func (m *Manager) Seat(id string) *Seat {
	return m.seats[id]
}

func (m *Manager) Session(id string) *Session {
	return m.sessions[id]
}

func (m *Manager) User(uid uint32) *User {
	return m.users[uid]
}

func (m *Manager) Button(name string) *Button {
	return m.buttons[name]
}

func (m *Manager) IsWatchingBusName(name string) bool {
	return m.busNames[name]
}

func (m *Manager) Conf() *Config {
	return &m.conf
}

func (s *Seat) Pinned() bool {
	return s.pinned
}

func (s *Seat) SetPinned(pinned bool) {
	s.pinned = pinned
}

func (s *Seat) Started() bool {
	return s.started
}

func (s *Session) Released() bool {
	return s.released
}

func (b *Button) SetDocked(docked bool) {
	b.docked = docked
}

func (b *Button) HandleEvent(typ, code uint16, value int32) {
	b.handleEvent(typ, code, value)
}
