// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"os"

	"github.com/loopthread/reactorcore/internal/netpoll"
	"github.com/loopthread/reactorcore/pkg/logging"
)

// Multiplexer wraps a kernel readiness backend (epoll or poll) with the
// New/Added/Deleted registration state machine and the descriptor-to-Handle
// map the backend's raw Event.Fd is resolved through.
// Poll looks up every ready descriptor in the map to find the Handle it
// appends to the caller's slice; events for descriptors with no map entry
// are dropped.
type Multiplexer struct {
	backend  netpoll.Backend
	handles  map[int32]*Handle
	usesPoll bool
	logger   logging.Logger

	// eventScratch is this Multiplexer's reusable event-result buffer;
	// the backend's appends grow it as needed and Poll resets its
	// length each call without discarding the backing array. It is not
	// shared across Multiplexers, each of which lives on its own Loop's
	// thread.
	eventScratch []netpoll.Event
}

// defaultInitialEventBufferCap is the default starting capacity of a
// Multiplexer's ready-event buffer.
const defaultInitialEventBufferCap = netpoll.InitialEventBufferCap

// NewMultiplexer allocates the kernel readiness object with close-on-exec
// semantics. It is fatal on failure. The backend is chosen by opts.UsePoll
// if set, falling back to the MUDUO_USE_POLL environment variable: set to
// any value, the poll(2) backend is used; otherwise epoll.
func NewMultiplexer(opts *Options) *Multiplexer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	usesPoll := opts.UsePoll == PollForcePoll ||
		(opts.UsePoll == PollUnset && os.Getenv("MUDUO_USE_POLL") != "")

	var (
		backend netpoll.Backend
		err     error
	)
	if usesPoll {
		backend, err = netpoll.OpenPoll()
	} else {
		backend, err = netpoll.OpenEpoll()
	}
	if err != nil {
		logger.Fatalf("reactorcore: multiplexer creation failed: %v", err)
	}

	cap := opts.InitialEventBufferCap
	if cap <= 0 {
		cap = defaultInitialEventBufferCap
	}

	return &Multiplexer{
		backend:      backend,
		handles:      make(map[int32]*Handle),
		usesPoll:     usesPoll,
		logger:       logger,
		eventScratch: make([]netpoll.Event, 0, cap),
	}
}

// Close releases the backing kernel object.
func (m *Multiplexer) Close() error {
	return m.backend.Close()
}

// Poll blocks up to timeoutMs for at least one descriptor to become ready.
// For each ready descriptor it sets the corresponding Handle's revents and
// appends the Handle to active. It returns the wall-clock Timestamp
// observed immediately after the blocking call returns.
func (m *Multiplexer) Poll(timeoutMs int, active *[]*Handle) Timestamp {
	events, err := m.backend.Wait(timeoutMs, m.eventScratch[:0])
	now := Now()
	if err != nil {
		m.logger.Errorf("reactorcore: multiplexer poll error: %v", err)
		return now
	}
	m.eventScratch = events[:0]
	for _, ev := range events {
		h, ok := m.handles[ev.Fd]
		if !ok {
			continue
		}
		h.SetRevents(ev.Revents)
		*active = append(*active, h)
	}
	return now
}

// UpdateHandle submits h's current interest to the kernel backend,
// transitioning its registration state.
func (m *Multiplexer) UpdateHandle(h *Handle) {
	switch h.registrationState() {
	case stateNew:
		m.handles[h.fd] = h
		h.setRegistrationState(stateAdded)
		if err := m.backend.Add(int(h.fd), h.interest); err != nil {
			m.logger.Fatalf("reactorcore: multiplexer add fd=%d failed: %v", h.fd, err)
		}
	case stateDeleted:
		if _, ok := m.handles[h.fd]; !ok {
			m.handles[h.fd] = h
		}
		h.setRegistrationState(stateAdded)
		if err := m.backend.Add(int(h.fd), h.interest); err != nil {
			m.logger.Fatalf("reactorcore: multiplexer add fd=%d failed: %v", h.fd, err)
		}
	default: // stateAdded
		if h.IsNoneEvent() {
			if err := m.backend.Del(int(h.fd)); err != nil {
				m.logger.Errorf("reactorcore: multiplexer del fd=%d failed: %v", h.fd, err)
			}
			h.setRegistrationState(stateDeleted)
			delete(m.handles, h.fd)
		} else {
			if err := m.backend.Mod(int(h.fd), h.interest); err != nil {
				m.logger.Fatalf("reactorcore: multiplexer mod fd=%d failed: %v", h.fd, err)
			}
		}
	}
}

// RemoveHandle erases h from the descriptor map, submits a DEL if it is
// currently Added, and resets its registration state to New.
func (m *Multiplexer) RemoveHandle(h *Handle) {
	delete(m.handles, h.fd)
	if h.registrationState() == stateAdded {
		if err := m.backend.Del(int(h.fd)); err != nil {
			m.logger.Errorf("reactorcore: multiplexer del fd=%d failed: %v", h.fd, err)
		}
	}
	h.setRegistrationState(stateNew)
}

// UsesPoll reports whether this Multiplexer was constructed with the
// poll(2) backend rather than epoll.
func (m *Multiplexer) UsesPoll() bool { return m.usesPoll }
