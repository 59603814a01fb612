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
	"path/filepath"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/markhindley/elogind/dirs"
	"github.com/markhindley/elogind/logger"
)

var evdevOpen = evdev.Open

// Button is a power, sleep or lid button input device, keyed by its
// input sysname (e.g. "event3").
type Button struct {
	m    *Manager
	name string

	seatName string

	docked    bool
	lidClosed bool

	dev    *evdev.InputDevice
	source *eventSource
}

func newButton(m *Manager, name string) *Button {
	b := &Button{
		m:    m,
		name: name,
	}
	m.buttons[name] = b
	return b
}

// Name returns the button's input sysname.
func (b *Button) Name() string {
	return b.name
}

// SeatName returns the name of the seat the button belongs to.
func (b *Button) SeatName() string {
	return b.seatName
}

// SetSeat assigns the button to the named seat.
func (b *Button) SetSeat(sn string) {
	b.seatName = sn
}

// Docked reports whether the button's dock switch is in the docked
// position.
func (b *Button) Docked() bool {
	return b.docked
}

// Open opens the underlying input device and registers it on the
// event loop. Opening an already open button is a no-op.
func (b *Button) Open() error {
	if b.dev != nil {
		return nil
	}

	path := filepath.Join(dirs.GlobalRootDir, "dev", "input", b.name)
	dev, err := evdevOpen(path)
	if err != nil {
		return err
	}

	source, err := b.m.loop.AddRead(int(dev.File.Fd()), PriorityNormal, func() {
		b.m.state.Lock()
		defer b.m.state.Unlock()
		b.dispatch()
	})
	if err != nil {
		dev.File.Close()
		return err
	}

	b.dev = dev
	b.source = source
	logger.Noticef("watching system buttons on %s (%s)", path, dev.Name)

	return nil
}

func (b *Button) dispatch() {
	ev, err := b.dev.ReadOne()
	if err != nil {
		logger.Noticef("cannot read event from %s: %v", b.name, err)
		return
	}
	b.handleEvent(ev.Type, ev.Code, ev.Value)
}

func (b *Button) handleEvent(typ, code uint16, value int32) {
	switch typ {
	case evdev.EV_KEY:
		if value == 0 {
			// key released
			return
		}
		switch code {
		case evdev.KEY_POWER, evdev.KEY_POWER2:
			b.m.handleButtonKey(InhibitHandlePowerKey, "power key")
		case evdev.KEY_SLEEP:
			b.m.handleButtonKey(InhibitHandleSuspendKey, "suspend key")
		case evdev.KEY_SUSPEND:
			b.m.handleButtonKey(InhibitHandleHibernateKey, "hibernate key")
		}
	case evdev.EV_SW:
		switch code {
		case evdev.SW_DOCK:
			b.docked = value > 0
			logger.Debugf("%s reports dock state %v", b.name, b.docked)
		case evdev.SW_LID:
			b.lidClosed = value > 0
			if b.lidClosed && !b.m.IsDockedOrMultipleDisplays() {
				b.m.handleButtonKey(InhibitHandleLidSwitch, "lid close")
			}
		}
	}
}

// handleButtonKey reacts to a physical power event, honoring block
// mode inhibitors taken for it. The actual power transition is the
// business of an external action handler.
func (m *Manager) handleButtonKey(what InhibitWhat, name string) {
	if inhibited, _ := m.IsInhibited(what, InhibitBlock); inhibited {
		logger.Noticef("refusing %s handling, locked by inhibitor", name)
		return
	}

	logger.Noticef("%s pressed", name)
	if m.buttonAction != nil {
		m.buttonAction(what)
	}
}

func (b *Button) closeDevice() {
	if b.source != nil {
		if err := b.m.loop.Remove(b.source); err != nil {
			logger.Debugf("cannot deregister %s: %v", b.name, err)
		}
		b.source = nil
	}
	if b.dev != nil {
		b.dev.File.Close()
		b.dev = nil
	}
}

func (b *Button) free() {
	b.closeDevice()
	delete(b.m.buttons, b.name)
}
