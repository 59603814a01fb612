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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"github.com/markhindley/elogind/busmonitor"
	"github.com/markhindley/elogind/daemon"
	"github.com/markhindley/elogind/daemonize"
	"github.com/markhindley/elogind/logger"
	"github.com/markhindley/elogind/manager"
	"github.com/markhindley/elogind/udevmonitor"
)

var version = "255.1"

var opts struct {
	Foreground bool `short:"F" long:"foreground" description:"Do not detach from the terminal"`
	Debug      bool `short:"d" long:"debug" description:"Enable debug logging"`
	Version    bool `long:"version" description:"Print version and exit"`
}

func init() {
	if err := logger.SimpleSetup(); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: failed to activate logging: %s\n", err)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// routeDeviceEvent converts a udev notification into a registry event
// and hands it to the right manager entry point.
func routeDeviceEvent(m *manager.Manager, action string, di *udevmonitor.DeviceInfo) {
	ev := &manager.DeviceEvent{
		Action:  action,
		Syspath: di.DevicePath(),
		Sysname: di.Sysname(),
		Tags:    di.Tags(),
	}
	ev.Properties = make(map[string]string)
	if seat, ok := di.Attribute("ID_SEAT"); ok {
		ev.Properties["ID_SEAT"] = seat
	}

	switch {
	case di.Subsystem() == "input" && di.HasTag("power-switch"):
		m.Submit(func() {
			if err := m.ProcessButtonDevice(ev); err != nil {
				logger.Noticef("cannot process button device %s: %v", ev.Sysname, err)
			}
		})
	case di.HasTag("master-of-seat") || di.HasTag("seat"):
		m.Submit(func() {
			if err := m.ProcessSeatDevice(ev); err != nil {
				logger.Noticef("cannot process seat device %s: %v", ev.Syspath, err)
			}
		})
	}
}

func run() error {
	if _, err := flags.ParseArgs(&opts, os.Args[1:]); err != nil {
		return err
	}

	if opts.Version {
		fmt.Fprintf(os.Stdout, "elogind %s\n", version)
		return nil
	}

	if opts.Debug {
		os.Setenv("ELOGIND_DEBUG", "1")
	}

	if !opts.Foreground {
		pid, err := daemonize.Daemonize()
		if err != nil {
			return err
		}
		if pid > 0 {
			// parent of a detaching stage
			os.Exit(0)
		}
		defer daemonize.RemovePidFile()
	}

	logger.Noticef("elogind %s starting up", version)

	m, err := manager.New(&manager.Options{
		IsSystem: os.Geteuid() == 0,
	})
	if err != nil {
		return err
	}
	if err := m.Startup(); err != nil {
		return err
	}

	udevMon := udevmonitor.New(
		func(di *udevmonitor.DeviceInfo) { routeDeviceEvent(m, "add", di) },
		func(di *udevmonitor.DeviceInfo) { routeDeviceEvent(m, "remove", di) })
	if err := udevMon.Connect(); err != nil {
		logger.Noticef("cannot connect to udev: %v", err)
		udevMon = nil
	} else if err := udevMon.Run(); err != nil {
		return err
	}

	busMon := busmonitor.New(func(name string) {
		m.Submit(func() {
			m.DropBusName(name)
		})
	})
	if err := busMon.Connect(); err != nil {
		logger.Noticef("cannot monitor the system bus: %v", err)
		busMon = nil
	} else if err := busMon.Run(); err != nil {
		return err
	}

	daemon.Version = version
	d := daemon.New(m)
	if err := d.Init(); err != nil {
		return err
	}
	d.Start()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- m.Run()
	}()

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-ch:
		logger.Noticef("exiting on %s", sig)
	case err := <-loopDone:
		if err != nil {
			logger.Noticef("event loop failed: %v", err)
		}
	case <-d.Dying():
	}

	if busMon != nil {
		if err := busMon.Stop(); err != nil {
			logger.Noticef("cannot stop bus monitor: %v", err)
		}
	}
	if udevMon != nil {
		if err := udevMon.Stop(); err != nil {
			logger.Noticef("cannot stop udev monitor: %v", err)
		}
	}
	if err := m.Stop(); err != nil {
		logger.Noticef("cannot stop manager: %v", err)
	}

	return d.Stop()
}
