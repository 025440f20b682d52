// Copyright (c) 2019 The Gnet Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines common errors for reactorcore.
package errors

import "errors"

var (
	// ErrLoopAlreadyBoundToThread occurs when a second Loop is constructed on a
	// thread that already owns one.
	ErrLoopAlreadyBoundToThread = errors.New("reactorcore: a Loop already exists on this thread")
	// ErrLoopStopped occurs when an operation is attempted against a Loop that
	// has already quit.
	ErrLoopStopped = errors.New("reactorcore: loop has already quit")
	// ErrNotInLoopThread occurs when a thread-affine method is called from a
	// thread other than the Loop's owner.
	ErrNotInLoopThread = errors.New("reactorcore: call is not made from the loop's owning thread")
	// ErrHandleHasNoCallbacks occurs when enabling events on a Handle with no
	// callback registered for that direction.
	ErrHandleHasNoCallbacks = errors.New("reactorcore: handle has no callbacks registered")
	// ErrAcceptSocket occurs when the acceptor fails to accept a new connection
	// for a reason other than EAGAIN.
	ErrAcceptSocket = errors.New("reactorcore: accept a new connection error")
	// ErrPollerClosed occurs when an operation is attempted on a multiplexer
	// that has already been closed.
	ErrPollerClosed = errors.New("reactorcore: multiplexer is closed")
	// ErrNilTask occurs when trying to enqueue a nil task onto a Loop.
	ErrNilTask = errors.New("reactorcore: nil task is not allowed")
)
