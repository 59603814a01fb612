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

package daemon

import (
	"net/http"

	"github.com/gorilla/mux"
)

var api = []*Command{
	rootCmd,
	systemInfoCmd,
	seatsCmd,
	seatCmd,
	sessionsCmd,
	usersCmd,
	inhibitorsCmd,
}

var (
	rootCmd = &Command{
		Path: "/",
		GET:  tbd,
	}

	systemInfoCmd = &Command{
		Path: "/v1/system-info",
		GET:  sysInfo,
	}

	seatsCmd = &Command{
		Path: "/v1/seats",
		GET:  getSeats,
	}

	seatCmd = &Command{
		Path: "/v1/seats/{id}",
		GET:  getSeat,
	}

	sessionsCmd = &Command{
		Path: "/v1/sessions",
		GET:  getSessions,
	}

	usersCmd = &Command{
		Path: "/v1/users",
		GET:  getUsers,
	}

	inhibitorsCmd = &Command{
		Path: "/v1/inhibitors",
		GET:  getInhibitors,
	}
)

func tbd(c *Command, r *http.Request) Response {
	return SyncResponse([]string{"/v1/system-info"})
}

func sysInfo(c *Command, r *http.Request) Response {
	info := c.d.mgr.System()

	m := map[string]interface{}{
		"version":             c.d.Version,
		"idle-hint":           info.IdleHint,
		"docked":              info.Docked,
		"displays":            info.Displays,
		"seats":               info.Seats,
		"sessions":            info.Sessions,
		"users":               info.Users,
		"kill-user-processes": c.d.mgr.KillUserProcesses(),
	}
	if info.IdleSince != nil {
		m["idle-since"] = info.IdleSince
	}

	return SyncResponse(m)
}

func getSeats(c *Command, r *http.Request) Response {
	return SyncResponse(c.d.mgr.Seats())
}

func getSeat(c *Command, r *http.Request) Response {
	id := mux.Vars(r)["id"]
	for _, seat := range c.d.mgr.Seats() {
		if seat.ID == id {
			return SyncResponse(seat)
		}
	}
	return NotFound("cannot find seat %q", id)
}

func getSessions(c *Command, r *http.Request) Response {
	return SyncResponse(c.d.mgr.Sessions())
}

func getUsers(c *Command, r *http.Request) Response {
	return SyncResponse(c.d.mgr.Users())
}

func getInhibitors(c *Command, r *http.Request) Response {
	return SyncResponse(c.d.mgr.Inhibitors())
}
