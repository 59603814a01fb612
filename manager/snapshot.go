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
	"sort"
	"time"

	"github.com/markhindley/elogind/logger"
)

// SeatInfo is a point-in-time view of one seat, for the REST API.
type SeatInfo struct {
	ID              string   `json:"id"`
	ActiveSession   string   `json:"active-session,omitempty"`
	Sessions        []string `json:"sessions,omitempty"`
	CanGraphical    bool     `json:"can-graphical"`
	HasMasterDevice bool     `json:"has-master-device"`
}

// SessionInfo is a point-in-time view of one session.
type SessionInfo struct {
	ID        string     `json:"id"`
	UID       uint32     `json:"uid"`
	User      string     `json:"user,omitempty"`
	Seat      string     `json:"seat,omitempty"`
	TTY       string     `json:"tty,omitempty"`
	IdleHint  bool       `json:"idle-hint"`
	IdleSince *time.Time `json:"idle-since,omitempty"`
}

// UserInfo is a point-in-time view of one user with sessions.
type UserInfo struct {
	UID      uint32   `json:"uid"`
	GID      uint32   `json:"gid"`
	Name     string   `json:"name"`
	Sessions []string `json:"sessions,omitempty"`
}

// InhibitorInfo is a point-in-time view of one inhibitor lock.
type InhibitorInfo struct {
	ID    string     `json:"id"`
	What  string     `json:"what"`
	Mode  string     `json:"mode"`
	Who   string     `json:"who"`
	Why   string     `json:"why"`
	UID   uint32     `json:"uid"`
	PID   int        `json:"pid"`
	Since *time.Time `json:"since,omitempty"`
}

// SystemInfo summarizes the whole login state of the machine.
type SystemInfo struct {
	IdleHint  bool       `json:"idle-hint"`
	IdleSince *time.Time `json:"idle-since,omitempty"`
	Docked    bool       `json:"docked"`
	Displays  int        `json:"displays"`
	Seats     int        `json:"seats"`
	Sessions  int        `json:"sessions"`
	Users     int        `json:"users"`
}

func realtimeOrNil(ts DualTimestamp) *time.Time {
	if ts.IsZero() {
		return nil
	}
	t := ts.Realtime
	return &t
}

// Seats returns a snapshot of all seats, sorted by identifier.
func (m *Manager) Seats() []*SeatInfo {
	m.state.Lock()
	defer m.state.Unlock()

	infos := make([]*SeatInfo, 0, len(m.seats))
	for _, seat := range m.seats {
		info := &SeatInfo{
			ID:              seat.id,
			HasMasterDevice: seat.HasMasterDevice(),
			CanGraphical:    seat.HasMasterDevice(),
		}
		if seat.active != nil {
			info.ActiveSession = seat.active.id
		}
		for id := range seat.sessions {
			info.Sessions = append(info.Sessions, id)
		}
		sort.Strings(info.Sessions)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Sessions returns a snapshot of all sessions, sorted by identifier.
func (m *Manager) Sessions() []*SessionInfo {
	m.state.Lock()
	defer m.state.Unlock()

	infos := make([]*SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		info := &SessionInfo{
			ID:       s.id,
			TTY:      s.ttyPath,
			IdleHint: s.idleHint,
		}
		if s.user != nil {
			info.UID = s.user.uid
			info.User = s.user.name
		}
		if s.seat != nil {
			info.Seat = s.seat.id
		}
		info.IdleSince = realtimeOrNil(s.idleSince)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Users returns a snapshot of all users with sessions, sorted by uid.
func (m *Manager) Users() []*UserInfo {
	m.state.Lock()
	defer m.state.Unlock()

	infos := make([]*UserInfo, 0, len(m.users))
	for _, u := range m.users {
		info := &UserInfo{
			UID:  u.uid,
			GID:  u.gid,
			Name: u.name,
		}
		for id := range u.sessions {
			info.Sessions = append(info.Sessions, id)
		}
		sort.Strings(info.Sessions)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].UID < infos[j].UID })
	return infos
}

// Inhibitors returns a snapshot of all active inhibitor locks, sorted
// by identifier.
func (m *Manager) Inhibitors() []*InhibitorInfo {
	m.state.Lock()
	defer m.state.Unlock()

	infos := make([]*InhibitorInfo, 0, len(m.inhibitors))
	for _, i := range m.inhibitors {
		if !i.started {
			continue
		}
		infos = append(infos, &InhibitorInfo{
			ID:    i.id,
			What:  i.what.String(),
			Mode:  i.mode.String(),
			Who:   i.who,
			Why:   i.why,
			UID:   i.uid,
			PID:   i.pid,
			Since: realtimeOrNil(i.since),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// System returns the overall login state of the machine.
func (m *Manager) System() *SystemInfo {
	m.state.Lock()
	defer m.state.Unlock()

	idle, since, err := m.GetIdleHint()
	if err != nil {
		logger.Noticef("cannot determine idle hint: %v", err)
	}
	displays, err := m.CountDisplays()
	if err != nil {
		logger.Noticef("cannot count displays: %v", err)
	}
	return &SystemInfo{
		IdleHint:  idle,
		IdleSince: realtimeOrNil(since),
		Docked:    m.IsDocked(),
		Displays:  displays,
		Seats:     len(m.seats),
		Sessions:  len(m.sessions),
		Users:     len(m.users),
	}
}
