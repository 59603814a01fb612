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
	"os"
	"strings"

	"github.com/mvo5/goconfigparser"

	"github.com/markhindley/elogind/dirs"
)

// Config carries the daemon policy read from the configuration file.
type Config struct {
	// KillUserProcesses makes the daemon kill all processes of a user
	// when their last session ends.
	KillUserProcesses bool
	// KillOnlyUsers restricts killing to the named users; empty means
	// everyone.
	KillOnlyUsers []string
	// KillExcludeUsers always exempts the named users; it wins over
	// KillOnlyUsers.
	KillExcludeUsers []string
}

func defaultConfig() Config {
	return Config{
		KillExcludeUsers: []string{"root"},
	}
}

// load reads the configuration file into c. A missing file keeps the
// defaults and is not an error.
func (c *Config) load() error {
	path := dirs.ConfFile
	cfg := goconfigparser.New()
	if err := cfg.ReadFile(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot parse %s: %v", path, err)
	}

	if v, err := cfg.Get("Login", "KillUserProcesses"); err == nil {
		b, err := parseConfBool(v)
		if err != nil {
			return fmt.Errorf("cannot parse %s: %v", path, err)
		}
		c.KillUserProcesses = b
	}
	if v, err := cfg.Get("Login", "KillOnlyUsers"); err == nil {
		c.KillOnlyUsers = strings.Fields(v)
	}
	if v, err := cfg.Get("Login", "KillExcludeUsers"); err == nil {
		c.KillExcludeUsers = strings.Fields(v)
	}

	return nil
}

// parseConfBool accepts the boolean spellings traditionally allowed
// in logind.conf.
func parseConfBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "yes", "y", "true", "t", "on":
		return true, nil
	case "0", "no", "n", "false", "f", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value %q", v)
}
