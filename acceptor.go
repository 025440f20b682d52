// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"net"

	"golang.org/x/sys/unix"

	rcerrors "github.com/loopthread/reactorcore/pkg/errors"
)

// NewConnectionCallback receives an accepted descriptor and its peer
// address. Ownership of the descriptor transfers to the callback: the
// Acceptor never closes it.
type NewConnectionCallback func(fd int, peerAddr net.Addr)

// Acceptor owns a Handle bound to a nonblocking listening descriptor on
// the base Loop. On every readable event it drains the accept backlog and
// invokes a user callback once per accepted descriptor.
type Acceptor struct {
	loop       *Loop
	listenFd   int
	handle     *Handle
	listening  bool

	// idleFd is a spare open descriptor, closed and reopened around an
	// EMFILE accept failure so the backlog can still be drained.
	idleFd int

	newConnectionCallback NewConnectionCallback
}

// NewAcceptor wraps an already-bound, already-listening-ready nonblocking
// listenFd for loop. The caller is responsible for socket(2)/bind(2); the
// Acceptor only owns the Handle lifecycle and the accept loop.
func NewAcceptor(loop *Loop, listenFd int) *Acceptor {
	idleFd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		loop.logger.Fatalf("reactorcore: acceptor could not open idle fd: %v", err)
	}

	a := &Acceptor{
		loop:     loop,
		listenFd: listenFd,
		idleFd:   idleFd,
	}
	a.handle = NewHandle(loop, listenFd)
	a.handle.SetReadCallback(func(Timestamp) { a.handleRead() })
	return a
}

// SetNewConnectionCallback installs cb, invoked once per accepted
// descriptor from the base Loop's thread.
func (a *Acceptor) SetNewConnectionCallback(cb NewConnectionCallback) {
	a.newConnectionCallback = cb
}

// Listening reports whether Listen has been called.
func (a *Acceptor) Listening() bool { return a.listening }

// Listen transitions the listener to listening state and enables
// read-interest on its Handle.
func (a *Acceptor) Listen() {
	if err := unix.Listen(a.listenFd, unix.SOMAXCONN); err != nil {
		a.loop.logger.Fatalf("reactorcore: acceptor listen failed: %v", err)
	}
	a.listening = true
	a.handle.EnableReading()
}

func (a *Acceptor) handleRead() {
	for {
		connFd, sa, err := unix.Accept(a.listenFd)
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return
			case unix.EMFILE, unix.ENFILE:
				a.handleDescriptorExhaustion()
				return
			case unix.EINTR, unix.ECONNABORTED:
				continue
			default:
				a.loop.logger.Errorf("%v: %v", rcerrors.ErrAcceptSocket, err)
				return
			}
		}
		_ = unix.SetNonblock(connFd, true)
		if a.newConnectionCallback != nil {
			a.newConnectionCallback(connFd, sockaddrToAddr(sa))
		}
	}
}

// handleDescriptorExhaustion implements the idle-fd trick: close the
// spare descriptor to free one slot, accept (and immediately drop) the
// connection that's wedged the backlog, then reopen the spare so the next
// exhaustion can be handled the same way.
func (a *Acceptor) handleDescriptorExhaustion() {
	unix.Close(a.idleFd)
	fd, _, err := unix.Accept(a.listenFd)
	if err == nil {
		unix.Close(fd)
	}
	idleFd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		a.loop.logger.Errorf("reactorcore: acceptor could not reopen idle fd: %v", err)
		return
	}
	a.idleFd = idleFd
}
