// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package netpoll

import (
	"golang.org/x/sys/unix"
)

// pollBackend is the poll(2)-based Backend, selected at construction time
// when MUDUO_USE_POLL is set. Unlike epoll, poll(2) has no persistent
// kernel-side registration: every call re-submits the full interest list,
// so pollBackend keeps that list itself, alongside an fd->index map so
// Add/Mod/Del stay O(1) instead of O(n) scans.
type pollBackend struct {
	fds     []unix.PollFd
	indexOf map[int]int
}

// OpenPoll constructs a poll(2)-based Backend.
func OpenPoll() (Backend, error) {
	return &pollBackend{
		indexOf: make(map[int]int),
	}, nil
}

// Close is a no-op: poll(2) holds no kernel object to release.
func (b *pollBackend) Close() error {
	return nil
}

func toPollEvents(interest EventMask) (ev int16) {
	if interest&EventReadable != 0 {
		ev |= unix.POLLIN
	}
	if interest&EventUrgent != 0 {
		ev |= unix.POLLPRI
	}
	if interest&EventWritable != 0 {
		ev |= unix.POLLOUT
	}
	return
}

func fromPollEvents(ev int16) (mask EventMask) {
	if ev&unix.POLLIN != 0 {
		mask |= EventReadable
	}
	if ev&unix.POLLPRI != 0 {
		mask |= EventUrgent
	}
	if ev&unix.POLLOUT != 0 {
		mask |= EventWritable
	}
	if ev&unix.POLLHUP != 0 {
		mask |= EventHangup
	}
	if ev&(unix.POLLERR|unix.POLLNVAL) != 0 {
		mask |= EventError
	}
	return
}

func (b *pollBackend) Add(fd int, interest EventMask) error {
	if _, ok := b.indexOf[fd]; ok {
		return unix.EEXIST
	}
	b.indexOf[fd] = len(b.fds)
	b.fds = append(b.fds, unix.PollFd{
		Fd:     int32(fd),
		Events: toPollEvents(interest),
	})
	return nil
}

func (b *pollBackend) Mod(fd int, interest EventMask) error {
	idx, ok := b.indexOf[fd]
	if !ok {
		return unix.ENOENT
	}
	b.fds[idx].Events = toPollEvents(interest)
	return nil
}

// Del removes fd by swapping the last entry into its slot, keeping indexOf
// consistent; it is a no-op if fd was never added.
func (b *pollBackend) Del(fd int) error {
	idx, ok := b.indexOf[fd]
	if !ok {
		return nil
	}
	last := len(b.fds) - 1
	if idx != last {
		b.fds[idx] = b.fds[last]
		b.indexOf[int(b.fds[idx].Fd)] = idx
	}
	b.fds = b.fds[:last]
	delete(b.indexOf, fd)
	return nil
}

func (b *pollBackend) Wait(timeoutMs int, dst []Event) ([]Event, error) {
	n, err := unix.Poll(b.fds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	if n == 0 {
		return dst, nil
	}
	ready := 0
	for i := range b.fds {
		if b.fds[i].Revents == 0 {
			continue
		}
		dst = append(dst, Event{
			Fd:      b.fds[i].Fd,
			Revents: fromPollEvents(b.fds[i].Revents),
		})
		b.fds[i].Revents = 0
		ready++
		if ready == n {
			break
		}
	}
	return dst, nil
}
