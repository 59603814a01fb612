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
	"time"

	"golang.org/x/sys/unix"
	. "gopkg.in/check.v1"

	"github.com/markhindley/elogind/manager"
	"github.com/markhindley/elogind/testutil"
)

type eventsSuite struct {
	testutil.BaseTest

	loop *manager.EventLoop
}

var _ = Suite(&eventsSuite{})

func (s *eventsSuite) SetUpTest(c *C) {
	s.BaseTest.SetUpTest(c)

	loop, err := manager.NewEventLoop()
	c.Assert(err, IsNil)
	s.loop = loop
	s.AddCleanup(func() { s.loop.Close() })
}

func (s *eventsSuite) pipe(c *C) (r, w int) {
	var p [2]int
	c.Assert(unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK), IsNil)
	s.AddCleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0], p[1]
}

func (s *eventsSuite) TestCallRunsOnLoopGoroutine(c *C) {
	done := make(chan error, 1)
	go func() {
		done <- s.loop.Run()
	}()

	ran := make(chan struct{})
	s.loop.Call(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		c.Fatal("call never ran")
	}

	c.Assert(s.loop.Stop(), IsNil)
	c.Assert(<-done, IsNil)
}

func (s *eventsSuite) TestStopTwice(c *C) {
	done := make(chan error, 1)
	go func() {
		done <- s.loop.Run()
	}()

	c.Assert(s.loop.Stop(), IsNil)
	c.Assert(s.loop.Stop(), IsNil)
	c.Assert(<-done, IsNil)
}

func (s *eventsSuite) TestPriorityOrderWithinBatch(c *C) {
	r1, w1 := s.pipe(c)
	r2, w2 := s.pipe(c)

	var order []string
	_, err := s.loop.AddRead(r1, manager.PriorityCgroupsAgent, func() {
		var buf [1]byte
		unix.Read(r1, buf[:])
		order = append(order, "late")
	})
	c.Assert(err, IsNil)
	_, err = s.loop.AddRead(r2, manager.PriorityNormal, func() {
		var buf [1]byte
		unix.Read(r2, buf[:])
		order = append(order, "normal")
	})
	c.Assert(err, IsNil)

	// make both ready before the loop polls; registration order is
	// the reverse of the dispatch order we expect
	_, err = unix.Write(w1, []byte{1})
	c.Assert(err, IsNil)
	_, err = unix.Write(w2, []byte{1})
	c.Assert(err, IsNil)

	fetched := make(chan []string, 1)
	s.loop.SetPostDispatch(func() {
		if len(order) == 2 {
			fetched <- order
			s.loop.Stop()
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- s.loop.Run()
	}()

	select {
	case got := <-fetched:
		c.Check(got, DeepEquals, []string{"normal", "late"})
	case <-time.After(5 * time.Second):
		c.Fatal("sources were not dispatched")
	}
	c.Assert(<-done, IsNil)
}

func (s *eventsSuite) TestRemovedSourceSkippedInBatch(c *C) {
	r1, w1 := s.pipe(c)
	r2, w2 := s.pipe(c)

	var got []string
	var src2 *manager.EventSource
	_, err := s.loop.AddRead(r1, manager.PriorityNormal, func() {
		var buf [1]byte
		unix.Read(r1, buf[:])
		got = append(got, "first")
		// second source became ready in the same batch, but is gone
		// by the time its turn comes
		s.loop.Remove(src2)
	})
	c.Assert(err, IsNil)
	src2, err = s.loop.AddRead(r2, manager.PriorityCgroupsAgent, func() {
		got = append(got, "second")
	})
	c.Assert(err, IsNil)

	_, err = unix.Write(w1, []byte{1})
	c.Assert(err, IsNil)
	_, err = unix.Write(w2, []byte{1})
	c.Assert(err, IsNil)

	checked := make(chan []string, 1)
	s.loop.SetPostDispatch(func() {
		if len(got) > 0 {
			checked <- got
			s.loop.Stop()
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- s.loop.Run()
	}()

	select {
	case order := <-checked:
		c.Check(order, DeepEquals, []string{"first"})
	case <-time.After(5 * time.Second):
		c.Fatal("source was not dispatched")
	}
	c.Assert(<-done, IsNil)
}

func (s *eventsSuite) TestRemoveDuringShutdown(c *C) {
	r, w := s.pipe(c)

	dispatched := make(chan struct{}, 1)
	src, err := s.loop.AddRead(r, manager.PriorityNormal, func() {
		var buf [1]byte
		unix.Read(r, buf[:])
		select {
		case dispatched <- struct{}{}:
		default:
		}
	})
	c.Assert(err, IsNil)

	done := make(chan error, 1)
	go func() {
		done <- s.loop.Run()
	}()

	// keep the source ready so the loop is busy dispatching it while
	// it is torn down from this goroutine
	_, err = unix.Write(w, []byte{1})
	c.Assert(err, IsNil)
	select {
	case <-dispatched:
	case <-time.After(5 * time.Second):
		c.Fatal("source was never dispatched")
	}
	_, err = unix.Write(w, []byte{1})
	c.Assert(err, IsNil)

	c.Assert(s.loop.Stop(), IsNil)
	c.Assert(s.loop.Remove(src), IsNil)
	c.Assert(<-done, IsNil)
}

func (s *eventsSuite) TestPostDispatchRunsAfterCalls(c *C) {
	var trace []string
	post := make(chan struct{}, 1)
	s.loop.SetPostDispatch(func() {
		trace = append(trace, "post")
		select {
		case post <- struct{}{}:
		default:
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- s.loop.Run()
	}()

	s.loop.Call(func() { trace = append(trace, "call") })
	select {
	case <-post:
	case <-time.After(5 * time.Second):
		c.Fatal("post-dispatch hook never ran")
	}

	seen := make(chan []string, 1)
	s.loop.Call(func() { seen <- trace })
	select {
	case got := <-seen:
		c.Assert(len(got) >= 2, Equals, true)
		c.Check(got[0], Equals, "call")
		c.Check(got[1], Equals, "post")
	case <-time.After(5 * time.Second):
		c.Fatal("calls never ran")
	}

	c.Assert(s.loop.Stop(), IsNil)
	c.Assert(<-done, IsNil)
}
