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

package osutil

import (
	"errors"
	"os/user"
	"strconv"
)

// ErrNoUser is returned when a user cannot be found in the account
// database.
var ErrNoUser = errors.New("no such user")

// UserCreds is the uid/gid/name triple of an account database entry.
type UserCreds struct {
	Name string
	UID  uint32
	GID  uint32
}

var (
	userLookup   = user.Lookup
	userLookupID = user.LookupId
)

func credsFromUser(u *user.User) (UserCreds, error) {
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return UserCreds{}, err
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return UserCreds{}, err
	}
	return UserCreds{Name: u.Username, UID: uint32(uid), GID: uint32(gid)}, nil
}

// LookupUser resolves an account name to its uid/gid through the
// system account database. A missing account yields ErrNoUser.
func LookupUser(name string) (UserCreds, error) {
	u, err := userLookup(name)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return UserCreds{}, ErrNoUser
		}
		return UserCreds{}, err
	}
	return credsFromUser(u)
}

// LookupUID resolves a numeric uid to its name/gid through the system
// account database. A missing account yields ErrNoUser.
func LookupUID(uid uint32) (UserCreds, error) {
	u, err := userLookupID(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		var unknown user.UnknownUserIdError
		if errors.As(err, &unknown) {
			return UserCreds{}, ErrNoUser
		}
		return UserCreds{}, err
	}
	return credsFromUser(u)
}

// MockUserLookup mocks the account database lookups, for testing.
func MockUserLookup(byName func(name string) (*user.User, error), byID func(id string) (*user.User, error)) (restore func()) {
	oldLookup, oldLookupID := userLookup, userLookupID
	userLookup = byName
	userLookupID = byID
	return func() {
		userLookup = oldLookup
		userLookupID = oldLookupID
	}
}
