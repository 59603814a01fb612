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
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/markhindley/elogind/logger"
	"github.com/markhindley/elogind/osutil/epoll"
)

// Priority orders dispatch of event sources that became ready in the
// same poll cycle. Lower values dispatch first.
type Priority int

const (
	// PriorityInternal is reserved for the loop's own wakeup channel,
	// which carries submitted calls (device events, bus events,
	// shutdown). It always dispatches first.
	PriorityInternal Priority = -10
	// PriorityNormal is for ordinary event sources.
	PriorityNormal Priority = 0
	// PriorityCgroupsAgent sorts cgroup-empty notifications after all
	// normal sources, so that a cgroup running empty is only ever the
	// last-resort signal once more specific exit notifications have
	// updated state for the same cycle.
	PriorityCgroupsAgent Priority = 5
)

type eventSource struct {
	fd       int
	priority Priority
	callback func()
}

// EventLoop is a single-threaded dispatcher over an epoll descriptor.
// All callbacks run on the goroutine that called Run, in priority
// order within each readiness batch.
type EventLoop struct {
	poll    *epoll.Epoll
	sources map[int]*eventSource

	wakeR, wakeW int

	// mu guards calls, stopped and the sources map; Stop and Remove
	// may be called from outside the loop goroutine during shutdown.
	mu      sync.Mutex
	calls   []func()
	stopped bool

	postDispatch func()
}

// NewEventLoop creates an event loop with its wakeup channel already
// registered.
func NewEventLoop() (*EventLoop, error) {
	poll, err := epoll.Open()
	if err != nil {
		return nil, err
	}

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		poll.Close()
		return nil, fmt.Errorf("cannot create wakeup pipe: %v", err)
	}

	l := &EventLoop{
		poll:    poll,
		sources: make(map[int]*eventSource),
		wakeR:   p[0],
		wakeW:   p[1],
	}
	if err := l.poll.Register(l.wakeR, epoll.Readable); err != nil {
		poll.Close()
		unix.Close(p[0])
		unix.Close(p[1])
		return nil, err
	}
	l.sources[l.wakeR] = &eventSource{
		fd:       l.wakeR,
		priority: PriorityInternal,
		callback: l.drainCalls,
	}
	return l, nil
}

// AddRead registers fd for read readiness at the given priority.
func (l *EventLoop) AddRead(fd int, prio Priority, cb func()) (*eventSource, error) {
	if err := l.poll.Register(fd, epoll.Readable); err != nil {
		return nil, err
	}
	src := &eventSource{fd: fd, priority: prio, callback: cb}
	l.mu.Lock()
	l.sources[fd] = src
	l.mu.Unlock()
	return src, nil
}

// Remove deregisters a previously added event source. The descriptor
// itself stays open.
func (l *EventLoop) Remove(src *eventSource) error {
	if src == nil {
		return nil
	}
	l.mu.Lock()
	delete(l.sources, src.fd)
	l.mu.Unlock()
	return l.poll.Deregister(src.fd)
}

// Call schedules f to run on the loop goroutine. It is safe to call
// from any goroutine.
func (l *EventLoop) Call(f func()) {
	l.mu.Lock()
	l.calls = append(l.calls, f)
	l.mu.Unlock()
	// a full pipe already guarantees a pending wakeup
	unix.Write(l.wakeW, []byte{0})
}

// SetPostDispatch arranges for f to run after every dispatch batch.
func (l *EventLoop) SetPostDispatch(f func()) {
	l.postDispatch = f
}

func (l *EventLoop) drainCalls() {
	var buf [64]byte
	for {
		if _, err := unix.Read(l.wakeR, buf[:]); err != nil {
			break
		}
	}
	for {
		l.mu.Lock()
		calls := l.calls
		l.calls = nil
		l.mu.Unlock()
		if len(calls) == 0 {
			return
		}
		for _, f := range calls {
			f()
		}
	}
}

// Run dispatches events until Stop is called. Sources that became
// ready in the same poll cycle are dispatched in ascending priority
// order.
func (l *EventLoop) Run() error {
	for {
		events, err := l.poll.Wait()
		if err != nil {
			return err
		}

		batch := make([]*eventSource, 0, len(events))
		l.mu.Lock()
		for _, ev := range events {
			if src, ok := l.sources[ev.Fd]; ok {
				batch = append(batch, src)
			}
		}
		l.mu.Unlock()
		sort.SliceStable(batch, func(i, j int) bool {
			return batch[i].priority < batch[j].priority
		})
		for _, src := range batch {
			// a source may have been removed by an earlier callback
			// of the same batch
			l.mu.Lock()
			current := l.sources[src.fd] == src
			l.mu.Unlock()
			if !current {
				continue
			}
			src.callback()
		}

		if l.postDispatch != nil {
			l.postDispatch()
		}

		l.mu.Lock()
		stopped := l.stopped
		l.mu.Unlock()
		if stopped {
			return nil
		}
	}
}

// Stop makes Run return after the current dispatch batch. Safe to
// call from any goroutine; calling it twice is harmless.
func (l *EventLoop) Stop() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	l.mu.Unlock()

	if _, err := unix.Write(l.wakeW, []byte{0}); err != nil {
		logger.Debugf("cannot wake event loop for stopping: %v", err)
	}
	return nil
}

// Close releases the loop's descriptors. Only call after Run has
// returned.
func (l *EventLoop) Close() error {
	unix.Close(l.wakeR)
	unix.Close(l.wakeW)
	return l.poll.Close()
}
