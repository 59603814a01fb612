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

// Package epoll contains a thin wrapper around the epoll(7) facility.
//
// Using epoll from Go is unusual as the language provides facilities
// that normally make using it directly pointless. It is strictly
// required here to multiplex several unrelated kernel interfaces on
// one dispatch thread with a deterministic ordering between them.
package epoll

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Readiness is the bit mask of aspects of readiness to monitor with epoll.
type Readiness int

const (
	// Readable indicates readiness for reading (EPOLLIN).
	Readable Readiness = unix.EPOLLIN
	// Writable indicates readiness for writing (EPOLLOUT).
	Writable Readiness = unix.EPOLLOUT
)

// Epoll wraps a file descriptor which can be used for I/O readiness notification.
type Epoll struct {
	fd                int
	registeredFdCount int32 // read/modify using helper functions
}

// Open opens an event monitoring descriptor.
func Open() (*Epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("cannot open epoll file descriptor: %w", err)
	}
	e := &Epoll{fd: fd}
	runtime.SetFinalizer(e, func(e *Epoll) {
		if e.fd != -1 {
			e.Close()
		}
	})
	return e, nil
}

// Close closes the event monitoring descriptor.
func (e *Epoll) Close() error {
	runtime.SetFinalizer(e, nil)
	fd := e.fd
	e.fd = -1
	atomic.StoreInt32(&e.registeredFdCount, 0)
	return unix.Close(fd)
}

// Fd returns the integer unix file descriptor referencing the open file.
func (e *Epoll) Fd() int {
	return e.fd
}

// RegisteredFdCount returns the number of file descriptors which are currently
// registered to the epoll instance.
func (e *Epoll) RegisteredFdCount() int {
	return int(atomic.LoadInt32(&e.registeredFdCount))
}

// Register registers a file descriptor and allows observing specific I/O
// readiness events.
//
// Please refer to epoll_ctl(2) and EPOLL_CTL_ADD for details.
func (e *Epoll) Register(fd int, mask Readiness) error {
	atomic.AddInt32(&e.registeredFdCount, 1)
	err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: uint32(mask),
		Fd:     int32(fd),
	})
	if err != nil {
		atomic.AddInt32(&e.registeredFdCount, -1)
		return err
	}
	runtime.KeepAlive(e)
	return nil
}

// Deregister removes the given file descriptor from the epoll instance.
//
// Please refer to epoll_ctl(2) and EPOLL_CTL_DEL for details.
func (e *Epoll) Deregister(fd int) error {
	err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{})
	if err != nil {
		return err
	}
	atomic.AddInt32(&e.registeredFdCount, -1)
	return nil
}

// Event describes an IO readiness event on a specific file descriptor.
type Event struct {
	Fd        int
	Readiness Readiness
}

var unixEpollWait = unix.EpollWait

// WaitTimeout blocks and waits with the given timeout for arrival of
// events on any of the added file descriptors. A negative duration
// disables the timeout.
//
// Please refer to epoll_wait(2) for details.
func (e *Epoll) WaitTimeout(duration time.Duration) ([]Event, error) {
	msec := int(duration.Milliseconds())
	if duration < 0 {
		msec = -1
	}
	var n int
	var err error
	var sysEvents []unix.EpollEvent
	for {
		bufLen := e.RegisteredFdCount()
		if bufLen < 1 {
			// The buffer size does not need to match the number of
			// registered descriptors, the syscall populates as many
			// entries as are available.
			bufLen = 1
		}
		sysEvents = make([]unix.EpollEvent, bufLen)
		startTs := time.Now()
		n, err = unixEpollWait(e.fd, sysEvents, msec)
		runtime.KeepAlive(e)
		// EINTR is handled by adjusting the timeout (if necessary) and
		// restarting the syscall.
		if err == nil {
			break
		} else if err != unix.EINTR {
			return nil, err
		}
		if msec == -1 {
			continue
		}
		elapsed := time.Since(startTs)
		msec -= int(elapsed.Milliseconds())
		if msec <= 0 {
			n = 0
			break
		}
	}
	if n == 0 {
		return nil, nil
	}
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, Event{
			Fd:        int(sysEvents[i].Fd),
			Readiness: Readiness(sysEvents[i].Events),
		})
	}
	return events, nil
}

// Wait blocks and waits for arrival of events on any of the added file
// descriptors.
func (e *Epoll) Wait() ([]Event, error) {
	return e.WaitTimeout(time.Duration(-1))
}
