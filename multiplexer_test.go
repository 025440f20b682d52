// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopthread/reactorcore/internal/netpoll"
)

func newTestMultiplexer(t *testing.T, mode PollMode) *Multiplexer {
	t.Helper()
	o := initOptions(WithPollMode(mode))
	m := NewMultiplexer(o)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// TestMultiplexerRegistrationRoundTrip checks that an EnableReading-then-
// DisableAll-then-Remove sequence across both backends (expressed here
// directly against Multiplexer, since Handle's mutators require a Loop)
// leaves no entry for the descriptor in the Multiplexer's map.
func TestMultiplexerRegistrationRoundTrip(t *testing.T) {
	for _, mode := range []PollMode{PollForceEpoll, PollForcePoll} {
		mode := mode
		t.Run(modeName(mode), func(t *testing.T) {
			m := newTestMultiplexer(t, mode)

			r, w, err := os.Pipe()
			require.NoError(t, err)
			defer r.Close()
			defer w.Close()

			h := &Handle{fd: int32(r.Fd())}
			h.interest = netpoll.EventReadable

			m.UpdateHandle(h) // New -> Added (ADD)
			assert.Equal(t, stateAdded, h.registrationState())
			_, ok := m.handles[h.fd]
			assert.True(t, ok)

			h.interest = 0
			m.UpdateHandle(h) // Added, empty interest -> Deleted (DEL)
			assert.Equal(t, stateDeleted, h.registrationState())
			_, ok = m.handles[h.fd]
			assert.False(t, ok, "DEL canonicalizes by erasing the map entry")

			m.RemoveHandle(h)
			assert.Equal(t, stateNew, h.registrationState())
			_, ok = m.handles[h.fd]
			assert.False(t, ok)
		})
	}
}

// TestMultiplexerDeletedReAddWorks covers the re-ADD path that must keep
// working under the erase-on-DEL canonicalization: Deleted -> Added must
// re-insert into the map if absent.
func TestMultiplexerDeletedReAddWorks(t *testing.T) {
	m := newTestMultiplexer(t, PollForceEpoll)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	h := &Handle{fd: int32(r.Fd())}
	h.interest = netpoll.EventReadable
	m.UpdateHandle(h)

	h.interest = 0
	m.UpdateHandle(h)
	require.Equal(t, stateDeleted, h.registrationState())
	require.NotContains(t, m.handles, h.fd)

	h.interest = netpoll.EventReadable
	m.UpdateHandle(h)
	assert.Equal(t, stateAdded, h.registrationState())
	_, ok := m.handles[h.fd]
	assert.True(t, ok)
}

func TestMultiplexerPollReportsReadyHandle(t *testing.T) {
	for _, mode := range []PollMode{PollForceEpoll, PollForcePoll} {
		mode := mode
		t.Run(modeName(mode), func(t *testing.T) {
			m := newTestMultiplexer(t, mode)

			r, w, err := os.Pipe()
			require.NoError(t, err)
			defer r.Close()
			defer w.Close()

			h := &Handle{fd: int32(r.Fd())}
			h.interest = netpoll.EventReadable
			m.UpdateHandle(h)

			_, err = w.Write([]byte("x"))
			require.NoError(t, err)

			var active []*Handle
			ts := m.Poll(1000, &active)
			require.Len(t, active, 1)
			assert.Same(t, h, active[0])
			assert.NotZero(t, h.revents&netpoll.EventReadable)
			assert.True(t, ts.Valid())
		})
	}
}

func TestMultiplexerPollTimesOutWithNoReadyHandles(t *testing.T) {
	m := newTestMultiplexer(t, PollForceEpoll)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	h := &Handle{fd: int32(r.Fd())}
	h.interest = netpoll.EventReadable
	m.UpdateHandle(h)

	var active []*Handle
	start := time.Now()
	m.Poll(100, &active)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Empty(t, active)
}

func TestMultiplexerUsesPollReflectsBackend(t *testing.T) {
	epoll := newTestMultiplexer(t, PollForceEpoll)
	assert.False(t, epoll.UsesPoll())

	poll := newTestMultiplexer(t, PollForcePoll)
	assert.True(t, poll.UsesPoll())
}

func modeName(m PollMode) string {
	if m == PollForcePoll {
		return "poll"
	}
	return "epoll"
}
