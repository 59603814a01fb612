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

// Package busmonitor watches the system bus for clients dropping off
// the bus, so that their session controller grants can be revoked.
package busmonitor

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"gopkg.in/tomb.v2"

	"github.com/markhindley/elogind/dbusutil"
	"github.com/markhindley/elogind/logger"
)

// NameDroppedFunc is called for every bus name that lost its owner.
type NameDroppedFunc func(name string)

type Interface interface {
	Connect() error
	Run() error
	Stop() error
}

// Monitor tracks NameOwnerChanged signals on the system bus and
// reports names whose owner went away.
type Monitor struct {
	tomb tomb.Tomb

	conn    *dbus.Conn
	signals chan *dbus.Signal

	nameDropped NameDroppedFunc
}

func New(nameDropped NameDroppedFunc) Interface {
	return &Monitor{
		nameDropped: nameDropped,
	}
}

// Connect opens a private system bus connection and subscribes to
// owner changes. It must be called before Run.
func (m *Monitor) Connect() error {
	conn, err := dbusutil.SystemBus()
	if err != nil {
		return fmt.Errorf("cannot connect to system bus: %v", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		conn.Close()
		return fmt.Errorf("cannot subscribe to bus name changes: %v", err)
	}

	m.conn = conn
	m.signals = make(chan *dbus.Signal, 16)
	conn.Signal(m.signals)

	return nil
}

// Run processes bus signals until Stop is called.
func (m *Monitor) Run() error {
	m.tomb.Go(func() error {
		for {
			select {
			case sig, ok := <-m.signals:
				if !ok {
					return fmt.Errorf("system bus connection closed")
				}
				m.busSignal(sig)
			case <-m.tomb.Dying():
				return nil
			}
		}
	})
	return nil
}

func (m *Monitor) busSignal(sig *dbus.Signal) {
	if sig.Name != "org.freedesktop.DBus.NameOwnerChanged" {
		return
	}
	if len(sig.Body) != 3 {
		return
	}
	name, ok1 := sig.Body[0].(string)
	oldOwner, ok2 := sig.Body[1].(string)
	newOwner, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	// only names that had an owner and lost it are interesting
	if oldOwner == "" || newOwner != "" {
		return
	}
	logger.Debugf("bus name %s lost its owner %s", name, oldOwner)
	if m.nameDropped != nil {
		m.nameDropped(name)
	}
}

// Stop terminates the signal loop and closes the bus connection.
func (m *Monitor) Stop() error {
	m.tomb.Kill(nil)
	err := m.tomb.Wait()
	if m.conn != nil {
		m.conn.RemoveSignal(m.signals)
		m.conn.Close()
		m.conn = nil
	}
	return err
}
