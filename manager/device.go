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

// Device is one device node contributing to seat assignment, keyed by
// its sysfs path. A device without a seat is legal transiently, right
// after creation or while its seat is being torn down.
type Device struct {
	m     *Manager
	sysfs string

	// master devices alone justify the existence of their seat; the
	// flag is monotonic, a later non-master registration of the same
	// path never clears it
	master bool

	seat *Seat
}

func newDevice(m *Manager, sysfs string, master bool) *Device {
	d := &Device{
		m:      m,
		sysfs:  sysfs,
		master: master,
	}
	m.devices[sysfs] = d
	return d
}

// Syspath returns the sysfs path the device is keyed by.
func (d *Device) Syspath() string {
	return d.sysfs
}

// IsMaster reports whether this device alone justifies its seat's
// existence.
func (d *Device) IsMaster() bool {
	return d.master
}

// Seat returns the seat the device is attached to, or nil.
func (d *Device) Seat() *Seat {
	return d.seat
}

func (d *Device) attach(s *Seat) {
	if d.seat == s {
		return
	}

	d.detach()
	d.seat = s
	s.devices[d.sysfs] = d
}

func (d *Device) detach() {
	if d.seat == nil {
		return
	}

	delete(d.seat.devices, d.sysfs)
	d.m.addSeatToGCQueue(d.seat)
	d.seat = nil
}

func (d *Device) free() {
	d.detach()
	delete(d.m.devices, d.sysfs)
}
