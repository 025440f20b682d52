// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopThreadStartLoopReturnsUsableLoop(t *testing.T) {
	var initCalled atomic.Bool
	lt := NewLoopThread(func(l *Loop) { initCalled.Store(true) })

	loop := lt.StartLoop()
	require.NotNil(t, loop)
	assert.True(t, initCalled.Load())
	assert.Eventually(t, loop.IsLooping, time.Second, 5*time.Millisecond)

	lt.Stop()
	assert.False(t, loop.IsLooping(), "Stop must join threadFunc before returning")
}

func TestLoopThreadStopWithoutInitCallback(t *testing.T) {
	lt := NewLoopThread(nil)
	loop := lt.StartLoop()
	require.NotNil(t, loop)
	assert.Eventually(t, loop.IsLooping, time.Second, 5*time.Millisecond)

	lt.Stop()
	assert.False(t, loop.IsLooping(), "Stop must join threadFunc before returning")
}

func TestLoopThreadStopIsIdempotent(t *testing.T) {
	lt := NewLoopThread(nil)
	loop := lt.StartLoop()
	assert.Eventually(t, loop.IsLooping, time.Second, 5*time.Millisecond)

	lt.Stop()
	assert.False(t, loop.IsLooping(), "Stop must join threadFunc before returning")
	assert.NotPanics(t, lt.Stop)
}
