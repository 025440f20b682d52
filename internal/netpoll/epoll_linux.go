// Copyright 2019 Andy Pan. All rights reserved.
// Copyright 2017 Joshua J Baker. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package netpoll

import (
	"golang.org/x/sys/unix"
)

// epollBackend is the default Backend on Linux.
type epollBackend struct {
	fd     int
	events []unix.EpollEvent
}

// OpenEpoll allocates a new epoll instance with close-on-exec set.
func OpenEpoll() (Backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollBackend{
		fd:     fd,
		events: make([]unix.EpollEvent, InitialEventBufferCap),
	}, nil
}

func (b *epollBackend) Close() error {
	return unix.Close(b.fd)
}

func toEpollEvents(interest EventMask) (ev uint32) {
	if interest&EventReadable != 0 {
		ev |= unix.EPOLLIN
	}
	if interest&EventUrgent != 0 {
		ev |= unix.EPOLLPRI
	}
	if interest&EventWritable != 0 {
		ev |= unix.EPOLLOUT
	}
	return
}

func fromEpollEvents(ev uint32) (mask EventMask) {
	if ev&unix.EPOLLIN != 0 {
		mask |= EventReadable
	}
	if ev&unix.EPOLLPRI != 0 {
		mask |= EventUrgent
	}
	if ev&unix.EPOLLOUT != 0 {
		mask |= EventWritable
	}
	if ev&unix.EPOLLHUP != 0 {
		mask |= EventHangup
	}
	if ev&unix.EPOLLERR != 0 {
		mask |= EventError
	}
	return
}

func (b *epollBackend) Add(fd int, interest EventMask) error {
	return unix.EpollCtl(b.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Fd:     int32(fd),
		Events: toEpollEvents(interest),
	})
}

func (b *epollBackend) Mod(fd int, interest EventMask) error {
	return unix.EpollCtl(b.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Fd:     int32(fd),
		Events: toEpollEvents(interest),
	})
}

func (b *epollBackend) Del(fd int) error {
	err := unix.EpollCtl(b.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

// Wait blocks in epoll_wait. A transient EINTR returns (dst, nil) with no
// events appended and nothing logged for the interrupted wait; the caller
// decides what, if anything, to log for other errors.
func (b *epollBackend) Wait(timeoutMs int, dst []Event) ([]Event, error) {
	n, err := unix.EpollWait(b.fd, b.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	for i := 0; i < n; i++ {
		dst = append(dst, Event{
			Fd:      b.events[i].Fd,
			Revents: fromEpollEvents(b.events[i].Events),
		})
	}
	if n == len(b.events) {
		b.events = make([]unix.EpollEvent, len(b.events)*2)
	}
	return dst, nil
}
