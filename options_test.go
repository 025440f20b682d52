// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loopthread/reactorcore/internal/netpoll"
)

func TestInitOptionsDefaults(t *testing.T) {
	o := initOptions()
	assert.Equal(t, pollTimeoutMs, o.PollTimeoutMs)
	assert.Equal(t, netpoll.InitialEventBufferCap, o.InitialEventBufferCap)
	assert.Equal(t, PollUnset, o.UsePoll)
	assert.Nil(t, o.Logger)
}

func TestWithOptionsOverrideDefaults(t *testing.T) {
	o := initOptions(
		WithPollMode(PollForcePoll),
		WithPollTimeoutMs(42),
		WithInitialEventBufferCap(8),
	)
	assert.Equal(t, PollForcePoll, o.UsePoll)
	assert.Equal(t, 42, o.PollTimeoutMs)
	assert.Equal(t, 8, o.InitialEventBufferCap)
}
