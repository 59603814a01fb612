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
	"strings"

	"github.com/markhindley/elogind/logger"
)

// InhibitWhat is the bit mask of power transitions an inhibitor
// blocks or delays.
type InhibitWhat int

const (
	InhibitShutdown InhibitWhat = 1 << iota
	InhibitSleep
	InhibitIdle
	InhibitHandlePowerKey
	InhibitHandleSuspendKey
	InhibitHandleHibernateKey
	InhibitHandleLidSwitch

	inhibitWhatMax
)

var inhibitWhatNames = []struct {
	bit  InhibitWhat
	name string
}{
	{InhibitShutdown, "shutdown"},
	{InhibitSleep, "sleep"},
	{InhibitIdle, "idle"},
	{InhibitHandlePowerKey, "handle-power-key"},
	{InhibitHandleSuspendKey, "handle-suspend-key"},
	{InhibitHandleHibernateKey, "handle-hibernate-key"},
	{InhibitHandleLidSwitch, "handle-lid-switch"},
}

// String formats the mask as a colon-separated list, e.g.
// "shutdown:idle".
func (w InhibitWhat) String() string {
	var frags []string
	for _, e := range inhibitWhatNames {
		if w&e.bit != 0 {
			frags = append(frags, e.name)
		}
	}
	return strings.Join(frags, ":")
}

// ParseInhibitWhat parses a colon-separated action list into a mask.
func ParseInhibitWhat(s string) (InhibitWhat, error) {
	var w InhibitWhat
	for _, frag := range strings.Split(s, ":") {
		found := false
		for _, e := range inhibitWhatNames {
			if e.name == frag {
				w |= e.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("cannot parse inhibit action %q", frag)
		}
	}
	return w, nil
}

// InhibitMode distinguishes locks that block a transition outright
// from ones that merely delay it.
type InhibitMode int

const (
	InhibitBlock InhibitMode = iota
	InhibitDelay
)

func (mm InhibitMode) String() string {
	if mm == InhibitDelay {
		return "delay"
	}
	return "block"
}

// ParseInhibitMode parses "block" or "delay".
func ParseInhibitMode(s string) (InhibitMode, error) {
	switch s {
	case "block":
		return InhibitBlock, nil
	case "delay":
		return InhibitDelay, nil
	}
	return 0, fmt.Errorf("cannot parse inhibit mode %q", s)
}

// Inhibitor is one client-held lock preventing some power
// transition.
type Inhibitor struct {
	m  *Manager
	id string

	what InhibitWhat
	mode InhibitMode

	who string
	why string

	uid uint32
	pid int

	started bool
	since   DualTimestamp
}

func newInhibitor(m *Manager, id string) *Inhibitor {
	i := &Inhibitor{
		m:  m,
		id: id,
	}
	m.inhibitors[id] = i
	return i
}

// ID returns the inhibitor identifier.
func (i *Inhibitor) ID() string {
	return i.id
}

// What returns the inhibited action mask.
func (i *Inhibitor) What() InhibitWhat {
	return i.what
}

// Mode returns the lock mode.
func (i *Inhibitor) Mode() InhibitMode {
	return i.mode
}

// Who returns the human readable owner of the lock.
func (i *Inhibitor) Who() string {
	return i.who
}

// Why returns the reason given when taking the lock.
func (i *Inhibitor) Why() string {
	return i.why
}

// Setup fills in the lock parameters. It has no effect on an already
// started inhibitor.
func (i *Inhibitor) Setup(what InhibitWhat, mode InhibitMode, who, why string, uid uint32, pid int) {
	if i.started {
		return
	}
	i.what = what
	i.mode = mode
	i.who = who
	i.why = why
	i.uid = uid
	i.pid = pid
}

// Start activates the lock and records when it was taken.
func (i *Inhibitor) Start() {
	if i.started {
		return
	}

	i.since = timeNow()
	logger.Debugf("inhibitor %s (%s, mode=%s) started by %s (%q)",
		i.id, i.what, i.mode, i.who, i.why)
	i.started = true
}

// Stop releases the lock and removes it from the registry.
func (i *Inhibitor) Stop() {
	if i.started {
		logger.Debugf("inhibitor %s stopped", i.id)
	}
	delete(i.m.inhibitors, i.id)
}

// IsInhibited reports whether any started inhibitor with the given
// mode covers any of the actions in w, and if so, the earliest moment
// such a lock was taken.
func (m *Manager) IsInhibited(w InhibitWhat, mm InhibitMode) (bool, DualTimestamp) {
	var ts DualTimestamp
	inhibited := false

	for _, i := range m.inhibitors {
		if !i.started {
			continue
		}
		if i.what&w == 0 || i.mode != mm {
			continue
		}

		if !inhibited || i.since.Monotonic < ts.Monotonic {
			ts = i.since
		}
		inhibited = true
	}

	return inhibited, ts
}
