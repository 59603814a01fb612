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

// cgroups-agent is installed as the legacy cgroup release agent: the
// kernel invokes it with the path of a control group that just ran
// empty, and it forwards that path to the daemon over a datagram
// socket.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/markhindley/elogind/dirs"
)

func run() error {
	if len(os.Args) != 2 {
		return fmt.Errorf("incorrect number of arguments")
	}

	conn, err := net.Dial("unixgram", dirs.CgroupsAgentSocket)
	if err != nil {
		return fmt.Errorf("cannot connect to %s: %v", dirs.CgroupsAgentSocket, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(os.Args[1])); err != nil {
		return fmt.Errorf("cannot send cgroup path: %v", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
