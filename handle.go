// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"fmt"
	"strings"

	"github.com/loopthread/reactorcore/internal/netpoll"
)

// registrationState tags where a Handle stands with respect to the
// Multiplexer's descriptor map.
type registrationState int

const (
	// stateNew is the state of a Handle that has never been submitted to
	// the kernel poller.
	stateNew registrationState = iota
	stateAdded
	stateDeleted
)

// Tied is the non-owning guard a connection-like owner hands a Handle so
// dispatch can detect the owner's destruction without the Handle
// participating in the owner's ownership graph. TryRetain attempts to
// promote the reference to a temporary strong hold; on success the
// returned release func must be called once dispatch finishes.
type Tied interface {
	TryRetain() (release func(), ok bool)
}

// ReadCallback is invoked when a Handle's descriptor becomes readable or
// urgent-readable. receiveTime is the Timestamp the owning Loop observed
// immediately after its Multiplexer's poll call returned.
type ReadCallback func(receiveTime Timestamp)

// EventCallback is the shape of the write, close, and error callback slots.
type EventCallback func()

// Handle binds one descriptor to up to four callbacks and to the Loop
// responsible for dispatching them. A Handle does not own the underlying
// descriptor: it is created by whoever owns it (an Acceptor, a connection,
// a Loop's own wakeup descriptor) and never closes it.
type Handle struct {
	loop *Loop
	fd   int32

	interest netpoll.EventMask
	revents  netpoll.EventMask
	state    registrationState

	readCallback  ReadCallback
	writeCallback EventCallback
	closeCallback EventCallback
	errorCallback EventCallback

	tie   Tied
	tied  bool

	removed bool
}

// NewHandle constructs a Handle for fd, owned by loop. The Handle starts
// with no interest and must have its callbacks set, and interest enabled,
// from loop's thread.
func NewHandle(loop *Loop, fd int) *Handle {
	return &Handle{
		loop:  loop,
		fd:    int32(fd),
		state: stateNew,
	}
}

// Fd returns the descriptor this Handle wraps.
func (h *Handle) Fd() int { return int(h.fd) }

// OwnerLoop returns the Loop this Handle was constructed against.
func (h *Handle) OwnerLoop() *Loop { return h.loop }

// Interest returns the current interest mask.
func (h *Handle) Interest() netpoll.EventMask { return h.interest }

// SetRevents is called by the Multiplexer between a poll return and
// dispatch; it is not part of the public callback-configuration surface.
func (h *Handle) SetRevents(revents netpoll.EventMask) { h.revents = revents }

func (h *Handle) registrationState() registrationState { return h.state }
func (h *Handle) setRegistrationState(s registrationState) { h.state = s }

// SetReadCallback installs cb in the read slot. Must be called before the
// first EnableReading, from the owning Loop's thread.
func (h *Handle) SetReadCallback(cb ReadCallback) { h.readCallback = cb }

// SetWriteCallback installs cb in the write slot.
func (h *Handle) SetWriteCallback(cb EventCallback) { h.writeCallback = cb }

// SetCloseCallback installs cb in the close slot.
func (h *Handle) SetCloseCallback(cb EventCallback) { h.closeCallback = cb }

// SetErrorCallback installs cb in the error slot.
func (h *Handle) SetErrorCallback(cb EventCallback) { h.errorCallback = cb }

// Tie records a non-owning guard reference and enables tie-gated dispatch.
// Connection-like owners whose destruction races with dispatch call this
// once, right after constructing their Handle.
func (h *Handle) Tie(owner Tied) {
	h.tie = owner
	// A guard that never guards is not a guard: tied stays true once a
	// tie target is recorded.
	h.tied = true
}

// EnableReading sets read interest and pushes the change to the Multiplexer.
func (h *Handle) EnableReading() {
	h.interest |= netpoll.EventReadable
	h.update()
}

// DisableReading clears read interest.
func (h *Handle) DisableReading() {
	h.interest &^= netpoll.EventReadable
	h.update()
}

// EnableWriting sets write interest.
func (h *Handle) EnableWriting() {
	h.interest |= netpoll.EventWritable
	h.update()
}

// DisableWriting clears write interest.
func (h *Handle) DisableWriting() {
	h.interest &^= netpoll.EventWritable
	h.update()
}

// DisableAll clears every interest bit.
func (h *Handle) DisableAll() {
	h.interest = 0
	h.update()
}

// IsNoneEvent reports whether no interest bit is set.
func (h *Handle) IsNoneEvent() bool { return h.interest == 0 }

// IsReading reports whether read interest is set.
func (h *Handle) IsReading() bool { return h.interest&netpoll.EventReadable != 0 }

// IsWriting reports whether write interest is set.
func (h *Handle) IsWriting() bool { return h.interest&netpoll.EventWritable != 0 }

func (h *Handle) update() {
	h.loop.UpdateHandle(h)
}

// Remove asks the owning Loop to erase this Handle's record from the
// Multiplexer. Callers must have already called DisableAll. Once removed, a
// dispatch already in progress for this Handle skips every callback slot
// still pending behind the one that called Remove.
func (h *Handle) Remove() {
	h.removed = true
	h.loop.RemoveHandle(h)
}

// isLive reports whether the Handle is still safe to hand the next callback
// slot to. A callback that removes the Handle on itself must stop the rest
// of the current dispatch from touching it.
func (h *Handle) isLive() bool { return !h.removed }

// HandleEvent is the Loop's entry point for dispatching this Handle's
// observed revents. If tied, it first attempts to promote the guard
// reference to a strong hold; on failure the event is dropped silently.
func (h *Handle) HandleEvent(receiveTime Timestamp) {
	if h.tied {
		if h.tie == nil {
			return
		}
		release, ok := h.tie.TryRetain()
		if !ok {
			return
		}
		defer release()
	}
	h.handleEventWithGuard(receiveTime)
}

func (h *Handle) handleEventWithGuard(receiveTime Timestamp) {
	if h.revents&netpoll.EventHangup != 0 && h.revents&netpoll.EventReadable == 0 {
		if h.closeCallback != nil {
			h.closeCallback()
		}
	}
	if !h.isLive() {
		return
	}
	if h.revents&netpoll.EventError != 0 {
		if h.errorCallback != nil {
			h.errorCallback()
		}
	}
	if !h.isLive() {
		return
	}
	if h.revents&(netpoll.EventReadable|netpoll.EventUrgent) != 0 {
		if h.readCallback != nil {
			h.readCallback(receiveTime)
		}
	}
	if !h.isLive() {
		return
	}
	if h.revents&netpoll.EventWritable != 0 {
		if h.writeCallback != nil {
			h.writeCallback()
		}
	}
}

// EventsToString renders mask the way muduo's Channel::eventsToString does,
// for use in diagnostic logging.
func EventsToString(fd int, mask netpoll.EventMask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d: ", fd)
	if mask&netpoll.EventReadable != 0 {
		b.WriteString("IN ")
	}
	if mask&netpoll.EventUrgent != 0 {
		b.WriteString("PRI ")
	}
	if mask&netpoll.EventWritable != 0 {
		b.WriteString("OUT ")
	}
	if mask&netpoll.EventHangup != 0 {
		b.WriteString("HUP ")
	}
	if mask&netpoll.EventError != 0 {
		b.WriteString("ERR ")
	}
	return strings.TrimSpace(b.String())
}

// String renders the Handle's fd and current interest mask for logging.
func (h *Handle) String() string {
	return EventsToString(int(h.fd), h.interest)
}
