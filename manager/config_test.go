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

package manager_test

import (
	"os"
	"path/filepath"

	. "gopkg.in/check.v1"

	"github.com/markhindley/elogind/dirs"
	"github.com/markhindley/elogind/manager"
	"github.com/markhindley/elogind/testutil"
)

type configSuite struct {
	testutil.BaseTest
}

var _ = Suite(&configSuite{})

func (s *configSuite) SetUpTest(c *C) {
	s.BaseTest.SetUpTest(c)

	dirs.SetRootDir(c.MkDir())
	s.AddCleanup(func() { dirs.SetRootDir("") })
}

func (s *configSuite) writeConf(c *C, content string) {
	c.Assert(os.MkdirAll(filepath.Dir(dirs.ConfFile), 0755), IsNil)
	c.Assert(os.WriteFile(dirs.ConfFile, []byte(content), 0644), IsNil)
}

func (s *configSuite) TestDefaultsWithoutFile(c *C) {
	m, err := manager.New(&manager.Options{TestRun: true})
	c.Assert(err, IsNil)
	defer m.Stop()

	c.Check(m.KillUserProcesses(), Equals, false)
	c.Check(m.Conf().KillExcludeUsers, DeepEquals, []string{"root"})
	c.Check(m.Conf().KillOnlyUsers, HasLen, 0)
}

func (s *configSuite) TestReadConf(c *C) {
	s.writeConf(c, `
[Login]
KillUserProcesses=yes
KillOnlyUsers=guest kiosk
KillExcludeUsers=root admin
`)

	m, err := manager.New(&manager.Options{TestRun: true})
	c.Assert(err, IsNil)
	defer m.Stop()

	c.Check(m.KillUserProcesses(), Equals, true)
	c.Check(m.Conf().KillOnlyUsers, DeepEquals, []string{"guest", "kiosk"})
	c.Check(m.Conf().KillExcludeUsers, DeepEquals, []string{"root", "admin"})
}

func (s *configSuite) TestMalformedConfIsNotFatal(c *C) {
	s.writeConf(c, `
[Login]
KillUserProcesses=perhaps
`)

	m, err := manager.New(&manager.Options{TestRun: true})
	c.Assert(err, IsNil)
	defer m.Stop()

	// the bad value is logged and the default kept
	c.Check(m.KillUserProcesses(), Equals, false)
}

func (s *configSuite) TestParseConfBool(c *C) {
	for _, v := range []string{"1", "yes", "Yes", "y", "true", "on"} {
		b, err := manager.ParseConfBool(v)
		c.Assert(err, IsNil, Commentf("%q", v))
		c.Check(b, Equals, true, Commentf("%q", v))
	}
	for _, v := range []string{"0", "no", "N", "false", "off"} {
		b, err := manager.ParseConfBool(v)
		c.Assert(err, IsNil, Commentf("%q", v))
		c.Check(b, Equals, false, Commentf("%q", v))
	}
	_, err := manager.ParseConfBool("perhaps")
	c.Assert(err, ErrorMatches, `invalid boolean value "perhaps"`)
}
