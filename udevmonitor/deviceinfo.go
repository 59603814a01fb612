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

package udevmonitor

import (
	"path/filepath"
	"strings"

	"github.com/markhindley/elogind/dirs"
)

// DeviceInfo carries the uevent attributes of one added or removed
// device.
type DeviceInfo struct {
	data map[string]string
}

// NewDeviceInfo creates a DeviceInfo from uevent attributes. Events
// without a device path carry nothing useful and yield nil.
func NewDeviceInfo(kobj string, env map[string]string) *DeviceInfo {
	if env == nil {
		env = make(map[string]string)
	}
	if _, ok := env["DEVPATH"]; !ok {
		if kobj == "" {
			return nil
		}
		env["DEVPATH"] = kobj
	}
	return &DeviceInfo{data: env}
}

// Subsystem returns the value of the "SUBSYSTEM" attribute, e.g.
// "input" or "drm".
func (h *DeviceInfo) Subsystem() string {
	return h.data["SUBSYSTEM"]
}

// DevicePath returns the full device path under sysfs, e.g.
// /sys/devices/platform/i8042/serio0/input/input3.
func (h *DeviceInfo) DevicePath() string {
	return filepath.Join(dirs.SysfsDir, h.data["DEVPATH"])
}

// Sysname returns the last component of the device path, e.g.
// "event3".
func (h *DeviceInfo) Sysname() string {
	return filepath.Base(h.data["DEVPATH"])
}

// DeviceName returns the value of the "DEVNAME" attribute, e.g.
// "/dev/input/event3". It may be empty.
func (h *DeviceInfo) DeviceName() string {
	return h.data["DEVNAME"]
}

// Attribute returns an arbitrary attribute from the uevent data.
func (h *DeviceInfo) Attribute(name string) (string, bool) {
	val, ok := h.data[name]
	return val, ok
}

// Tags returns the udev tags of the device. Current tags are
// preferred over the sticky TAGS list when the event carries both.
func (h *DeviceInfo) Tags() []string {
	raw := h.data["CURRENT_TAGS"]
	if raw == "" {
		raw = h.data["TAGS"]
	}

	var tags []string
	for _, t := range strings.Split(raw, ":") {
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// HasTag reports whether the device carries the given udev tag.
func (h *DeviceInfo) HasTag(tag string) bool {
	for _, t := range h.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}
