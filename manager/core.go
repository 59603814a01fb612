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
	"os"
	"path/filepath"
	"strings"

	"github.com/markhindley/elogind/dirs"
	"github.com/markhindley/elogind/logger"
	"github.com/markhindley/elogind/strutil"
)

// AddDevice returns the device registered under the given sysfs path,
// creating it first if needed. Master flags only accumulate: adding a
// non-master reference to a device already known as master does not
// demote it.
func (m *Manager) AddDevice(sysfs string, master bool) (*Device, error) {
	if d := m.devices[sysfs]; d != nil {
		d.master = d.master || master
		return d, nil
	}
	return newDevice(m, sysfs, master), nil
}

// AddSeat returns the seat with the given id, creating it if needed.
func (m *Manager) AddSeat(id string) (*Seat, error) {
	if s := m.seats[id]; s != nil {
		return s, nil
	}
	return newSeat(m, id), nil
}

// AddSession returns the session with the given id, creating it if
// needed.
func (m *Manager) AddSession(id string) (*Session, error) {
	if s := m.sessions[id]; s != nil {
		return s, nil
	}
	return newSession(m, id), nil
}

// AddUser returns the user with the given uid, creating it with the
// given gid and name if needed.
func (m *Manager) AddUser(uid, gid uint32, name string) (*User, error) {
	if u := m.users[uid]; u != nil {
		return u, nil
	}
	return newUser(m, uid, gid, name), nil
}

// AddUserByName resolves name through the account database and
// delegates to AddUser.
func (m *Manager) AddUserByName(name string) (*User, error) {
	creds, err := osutilLookupUser(name)
	if err != nil {
		return nil, err
	}
	return m.AddUser(creds.UID, creds.GID, creds.Name)
}

// AddUserByUID resolves uid through the account database and
// delegates to AddUser.
func (m *Manager) AddUserByUID(uid uint32) (*User, error) {
	creds, err := osutilLookupUID(uid)
	if err != nil {
		return nil, err
	}
	return m.AddUser(creds.UID, creds.GID, creds.Name)
}

// AddInhibitor returns the inhibitor registered under the given id,
// creating it if needed. A second request for the same id returns the
// existing record unchanged.
func (m *Manager) AddInhibitor(id string) (*Inhibitor, error) {
	if i := m.inhibitors[id]; i != nil {
		return i, nil
	}
	return newInhibitor(m, id), nil
}

// AddButton returns the button with the given name, creating it if
// needed.
func (m *Manager) AddButton(name string) (*Button, error) {
	if b := m.buttons[name]; b != nil {
		return b, nil
	}
	return newButton(m, name), nil
}

// WatchBusName adds name to the set of watched bus client names. It
// is a no-op if the name is already watched.
func (m *Manager) WatchBusName(name string) {
	m.busNames[name] = true
}

// DropBusName removes name from the watch set, unless it still acts
// as the controller of a live session.
func (m *Manager) DropBusName(name string) {
	// keep it if the name still owns a controller
	for _, session := range m.sessions {
		if session.IsController(name) {
			return
		}
	}

	delete(m.busNames, name)
}

// DeviceEvent is one arrival or removal notice from the device event
// subsystem.
type DeviceEvent struct {
	Action     string
	Syspath    string
	Sysname    string
	Properties map[string]string
	Tags       []string
}

// HasTag reports whether the device carries the given udev tag.
func (ev *DeviceEvent) HasTag(tag string) bool {
	return strutil.ListContains(ev.Tags, tag)
}

// ProcessSeatDevice reacts to a seat-relevant device coming or going.
// Arrivals attach the device to its declared seat, creating seat and
// device records as needed; removals queue the orphaned seat for
// garbage collection.
func (m *Manager) ProcessSeatDevice(ev *DeviceEvent) error {
	if ev.Action == "remove" {
		device := m.devices[ev.Syspath]
		if device == nil {
			return nil
		}

		m.addSeatToGCQueue(device.seat)
		device.free()

		return nil
	}

	sn := ev.Properties["ID_SEAT"]
	if sn == "" {
		sn = "seat0"
	}

	if !seatNameIsValid(sn) {
		logger.Noticef("device with invalid seat name %s found, ignoring", sn)
		return nil
	}

	seat := m.seats[sn]
	master := ev.HasTag("master-of-seat")

	// ignore non-master devices for unknown seats
	if !master && seat == nil {
		return nil
	}

	device, err := m.AddDevice(ev.Syspath, master)
	if err != nil {
		return err
	}

	if seat == nil {
		seat, err = m.AddSeat(sn)
		if err != nil {
			if device.seat == nil {
				device.free()
			}
			return err
		}
	}

	device.attach(seat)
	seat.Start()

	return nil
}

// ProcessButtonDevice reacts to a power/lid button input device coming
// or going.
func (m *Manager) ProcessButtonDevice(ev *DeviceEvent) error {
	if ev.Action == "remove" {
		b := m.buttons[ev.Sysname]
		if b == nil {
			return nil
		}

		b.free()

		return nil
	}

	b, err := m.AddButton(ev.Sysname)
	if err != nil {
		return err
	}

	sn := ev.Properties["ID_SEAT"]
	if sn == "" {
		sn = "seat0"
	}

	b.SetSeat(sn)
	if err := b.Open(); err != nil {
		logger.Noticef("cannot open %s: %v", b.name, err)
	}

	return nil
}

// GetIdleHint combines the block-idle inhibitor state with every
// session's idle hint into the system-wide idle hint and the
// timestamp at which it last changed.
//
// All sessions are visited exactly once, in no particular order: the
// first non-idle session flips the aggregate and its timestamp wins
// outright; further non-idle sessions only move the timestamp
// earlier, further idle sessions only move an idle aggregate's
// timestamp later.
func (m *Manager) GetIdleHint() (bool, DualTimestamp, error) {
	var ts DualTimestamp

	inhibited, _ := m.IsInhibited(InhibitIdle, InhibitBlock)
	idleHint := !inhibited

	for _, s := range m.sessions {
		ih, k, err := s.GetIdleHint()
		if err != nil {
			return false, ts, err
		}

		if !ih {
			if !idleHint {
				if k.Monotonic < ts.Monotonic {
					ts = k
				}
			} else {
				idleHint = false
				ts = k
			}
		} else if idleHint {
			if k.Monotonic > ts.Monotonic {
				ts = k
			}
		}
	}

	return idleHint, ts, nil
}

// ShallKillUser decides whether a departing user's processes are to
// be killed, applying the configured include and exclude lists.
func (m *Manager) ShallKillUser(user string) bool {
	if !m.conf.KillUserProcesses {
		return false
	}

	if strutil.ListContains(m.conf.KillExcludeUsers, user) {
		return false
	}

	if len(m.conf.KillOnlyUsers) == 0 {
		return true
	}

	return strutil.ListContains(m.conf.KillOnlyUsers, user)
}

// IsDocked reports whether any button device has seen a dock switch
// in the docked position.
func (m *Manager) IsDocked() bool {
	for _, b := range m.buttons {
		if b.docked {
			return true
		}
	}
	return false
}

// CountDisplays counts the connected DRM connectors. Any connector
// not explicitly "disconnected" counts as connected.
func (m *Manager) CountDisplays() (int, error) {
	entries, err := os.ReadDir(dirs.DrmClassDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dirs.DrmClassDir, e.Name(), "status"))
		if err != nil {
			// cards themselves have no status file, only connectors do
			continue
		}
		if strings.TrimSpace(string(data)) != "disconnected" {
			n++
		}
	}

	return n, nil
}

// IsDockedOrMultipleDisplays decides whether lid events are to be
// ignored, either because the machine is docked or because more than
// one display is connected.
func (m *Manager) IsDockedOrMultipleDisplays() bool {
	// if we are docked don't react to lid closing
	if m.IsDocked() {
		logger.Debugf("system is docked")
		return true
	}

	n, err := m.CountDisplays()
	if err != nil {
		logger.Noticef("display counting failed: %v", err)
	} else if n > 1 {
		logger.Debugf("multiple (%d) displays connected", n)
		return true
	}

	return false
}
