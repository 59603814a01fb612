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
	"github.com/markhindley/elogind/logger"
)

// User is one operating system account with at least one session.
type User struct {
	m    *Manager
	uid  uint32
	gid  uint32
	name string

	sessions map[string]*Session

	inGCQueue bool
}

func newUser(m *Manager, uid, gid uint32, name string) *User {
	u := &User{
		m:        m,
		uid:      uid,
		gid:      gid,
		name:     name,
		sessions: make(map[string]*Session),
	}
	m.users[uid] = u
	return u
}

// UID returns the account's user id.
func (u *User) UID() uint32 {
	return u.uid
}

// GID returns the account's primary group id.
func (u *User) GID() uint32 {
	return u.gid
}

// Name returns the account name.
func (u *User) Name() string {
	return u.name
}

// SessionCount returns the number of live sessions of this user.
func (u *User) SessionCount() int {
	return len(u.sessions)
}

func (u *User) checkGC() bool {
	return len(u.sessions) > 0
}

func (u *User) free() {
	logger.Noticef("removed user %s", u.name)
	delete(u.m.users, u.uid)
}
