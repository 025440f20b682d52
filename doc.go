// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package reactorcore implements the event-demultiplexing and dispatch
// core of a multi-reactor networking runtime, built around the classic
// "one loop per thread" pattern: a Multiplexer wraps a kernel readiness
// primitive (epoll or poll), a Handle binds one descriptor to its
// callbacks, a Loop runs the poll-dispatch-drain cycle on its own OS
// thread, and a LoopThreadPool hands accepted connections to worker Loops
// round-robin.
//
// The package deliberately stops short of owning connection buffering,
// protocol framing, or any higher-level server object — those are left to
// callers built on top of it.
package reactorcore
