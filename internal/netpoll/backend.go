// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package netpoll wraps the two kernel readiness primitives the
// Multiplexer can be built on: epoll(7) (the Linux default) and
// poll(2) (selected when the MUDUO_USE_POLL environment variable is
// set to any value). Both implementations satisfy Backend so the root
// package's Multiplexer can stay agnostic of which one it was
// constructed with.
package netpoll

// EventMask is a bitwise OR of the event kinds a Handle is interested in,
// or that were observed ready on the most recent Wait.
type EventMask uint32

// Event kinds an interest mask can be built from.
const (
	EventReadable EventMask = 1 << iota
	EventUrgent
	EventWritable
	// EventHangup and EventError are revents-only: a caller never asks to
	// be notified of them, the kernel reports them unconditionally.
	EventHangup
	EventError
)

// Event is one ready descriptor returned from Wait, keyed by the raw
// integer fd rather than a back-pointer to a Handle, avoiding any risk of
// a dangling pointer once a Handle is destroyed; the Multiplexer looks the
// Handle up by fd in its own table.
type Event struct {
	Fd      int32
	Revents EventMask
}

// Backend is the raw, per-OS-primitive half of the Multiplexer: it knows
// how to ask the kernel for readiness and nothing about Handles, state
// machines, or wakeups.
type Backend interface {
	// Close releases the kernel object backing this Backend.
	Close() error
	// Wait blocks up to timeoutMs milliseconds (or indefinitely if
	// negative) for at least one descriptor to become ready, appending
	// ready events to dst and returning the (possibly reused) slice.
	Wait(timeoutMs int, dst []Event) ([]Event, error)
	// Add registers fd with the given interest mask. fd must not already
	// be registered.
	Add(fd int, interest EventMask) error
	// Mod updates the interest mask of an already-registered fd.
	Mod(fd int, interest EventMask) error
	// Del unregisters fd. It is not an error to Del an fd that was never
	// added.
	Del(fd int) error
}

// InitialEventBufferCap is the starting capacity of the epoll Backend's
// internal ready-event buffer. The epoll Backend doubles it whenever a Wait
// call returns exactly a full buffer, and never shrinks it. The poll Backend
// has no such buffer: it scans its own descriptor list on every Wait.
const InitialEventBufferCap = 16
