// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"fmt"
	"time"
)

// Timestamp represents a point in time with microsecond resolution, observed
// immediately after a Multiplexer's poll call returns. It is passed to read
// callbacks so they can reason about delivery latency without calling
// time.Now() themselves on the hot path.
type Timestamp int64 // microseconds since the Unix epoch

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp(time.Now().UnixMicro())
}

// Time converts the Timestamp back to a time.Time.
func (t Timestamp) Time() time.Time {
	return time.UnixMicro(int64(t))
}

// Valid reports whether t holds a non-zero instant.
func (t Timestamp) Valid() bool {
	return t > 0
}

// Before reports whether t occurred strictly before other.
func (t Timestamp) Before(other Timestamp) bool {
	return t < other
}

// String renders t as "seconds.microseconds", matching muduo's Timestamp::toString.
func (t Timestamp) String() string {
	seconds := int64(t) / 1000000
	microseconds := int64(t) % 1000000
	return fmt.Sprintf("%d.%06d", seconds, microseconds)
}
