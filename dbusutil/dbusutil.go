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

// Package dbusutil provides helpers to connect to the system D-Bus.
package dbusutil

import (
	"github.com/godbus/dbus/v5"
)

// SystemBus returns a new private connection to the system bus, fully
// authenticated and with a Hello exchanged.
func SystemBus() (*dbus.Conn, error) {
	return connectSystemBus()
}

var connectSystemBus = func() (*dbus.Conn, error) {
	conn, err := dbus.SystemBusPrivate()
	if err != nil {
		return nil, err
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// MockConnections fakes the system bus connection for testing.
func MockConnections(systemBus func() (*dbus.Conn, error)) (restore func()) {
	oldSystem := connectSystemBus
	connectSystemBus = systemBus
	return func() {
		connectSystemBus = oldSystem
	}
}
