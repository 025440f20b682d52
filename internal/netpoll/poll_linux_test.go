// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package netpoll

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPollAddWaitReportsReadable(t *testing.T) {
	b, err := OpenPoll()
	require.NoError(t, err)
	defer b.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	require.NoError(t, b.Add(int(r.Fd()), EventReadable))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	events, err := b.Wait(1000, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int32(r.Fd()), events[0].Fd)
	assert.NotZero(t, events[0].Revents&EventReadable)
}

func TestPollAddDuplicateFdErrors(t *testing.T) {
	b, err := OpenPoll()
	require.NoError(t, err)
	defer b.Close()

	r, _, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, b.Add(int(r.Fd()), EventReadable))
	assert.Equal(t, unix.EEXIST, b.Add(int(r.Fd()), EventReadable))
}

func TestPollModOnUnknownFdErrors(t *testing.T) {
	b, err := OpenPoll()
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, unix.ENOENT, b.Mod(99, EventReadable))
}

// TestPollDelSwapsLastEntryIntoSlot covers the compaction strategy noted
// in poll_linux.go's Del: removing a non-tail entry must not disturb the
// remaining fds' wait behavior.
func TestPollDelSwapsLastEntryIntoSlot(t *testing.T) {
	backend, err := OpenPoll()
	require.NoError(t, err)
	defer backend.Close()
	b := backend.(*pollBackend)

	var pipes [3][2]*os.File
	for i := range pipes {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		pipes[i] = [2]*os.File{r, w}
		require.NoError(t, b.Add(int(r.Fd()), EventReadable))
		defer r.Close()
		defer w.Close()
	}

	// Remove the middle entry; the last entry should now occupy its slot.
	middleFd := int(pipes[1][0].Fd())
	lastFd := int(pipes[2][0].Fd())
	require.NoError(t, b.Del(middleFd))

	assert.Len(t, b.fds, 2)
	assert.NotContains(t, b.indexOf, middleFd)
	idx, ok := b.indexOf[lastFd]
	require.True(t, ok)
	assert.Equal(t, int32(lastFd), b.fds[idx].Fd)

	_, err = pipes[2][1].Write([]byte("z"))
	require.NoError(t, err)
	events, err := b.Wait(1000, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int32(lastFd), events[0].Fd)
}

func TestPollDelOnUnknownFdIsNotError(t *testing.T) {
	b, err := OpenPoll()
	require.NoError(t, err)
	defer b.Close()
	assert.NoError(t, b.Del(123))
}

func TestPollWaitTimesOut(t *testing.T) {
	b, err := OpenPoll()
	require.NoError(t, err)
	defer b.Close()

	start := time.Now()
	events, err := b.Wait(100, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
