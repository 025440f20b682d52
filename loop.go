// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	rcerrors "github.com/loopthread/reactorcore/pkg/errors"
	"github.com/loopthread/reactorcore/pkg/logging"
)

// pollTimeoutMs is the classic muduo default: the Multiplexer's poll call
// never blocks longer than this, so a Loop's liveness can always be
// reasoned about even if nothing ever wakes it.
const pollTimeoutMs = 10_000

// loopsByThread records which Loop, if any, currently owns each OS thread,
// keyed by Linux thread id. Go has no native OS-thread-local storage
// without cgo, so ownership is tracked in a map keyed by the thread id
// obtained via unix.Gettid after the owning goroutine has called
// runtime.LockOSThread.
var loopsByThread sync.Map // map[int]*Loop

// Loop is a single-threaded event reactor: it owns one Multiplexer, the
// set of Handles registered through it, a wakeup descriptor, and a FIFO of
// cross-thread tasks. Exactly one OS thread ever executes its dispatch
// cycle; that thread must call Run (never a different goroutine), and the
// calling goroutine must stay pinned to that OS thread (runtime.LockOSThread)
// for the Loop's lifetime. Run does not pin it itself.
type Loop struct {
	multiplexer *Multiplexer
	logger      logging.Logger

	looping  int32 // atomic bool
	quit     int32 // atomic bool
	draining int32 // atomic bool: set while the pending-task batch runs

	threadID      int
	pollTimeoutMs int

	active []*Handle

	wakeupFd     int
	wakeupHandle *Handle

	mu      sync.Mutex
	pending []func()

	pollReturnTime Timestamp
}

// NewLoop constructs a Loop bound to the calling OS thread. The caller
// must have already called runtime.LockOSThread, and must not construct a
// second Loop on the same thread — doing so is a fatal programming error.
func NewLoop(opts ...Option) *Loop {
	o := initOptions(opts...)

	logger := o.Logger
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	tid := unix.Gettid()
	if existing, ok := loopsByThread.Load(tid); ok {
		logger.Fatalf("%v: %p already on thread %d", rcerrors.ErrLoopAlreadyBoundToThread, existing, tid)
	}

	wakeupFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		logger.Fatalf("reactorcore: eventfd creation failed: %v", err)
	}

	timeoutMs := o.PollTimeoutMs
	if timeoutMs == 0 {
		timeoutMs = pollTimeoutMs
	}

	l := &Loop{
		multiplexer:   NewMultiplexer(o),
		logger:        logger,
		threadID:      tid,
		pollTimeoutMs: timeoutMs,
		wakeupFd:      wakeupFd,
	}
	loopsByThread.Store(tid, l)

	l.wakeupHandle = NewHandle(l, wakeupFd)
	l.wakeupHandle.SetReadCallback(func(Timestamp) { l.handleWakeupRead() })
	l.wakeupHandle.EnableReading()

	return l
}

// handleWakeupRead consumes exactly 8 bytes from the wakeup descriptor and
// discards the value.
func (l *Loop) handleWakeupRead() {
	var one [8]byte
	n, err := unix.Read(l.wakeupFd, one[:])
	if err != nil || n != 8 {
		l.logger.Errorf("reactorcore: loop wakeup read %d bytes instead of 8: %v", n, err)
	}
}

// wakeup writes one 8-byte counter increment to the wakeup descriptor,
// unblocking a thread parked in the Multiplexer's poll.
func (l *Loop) wakeup() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	n, err := unix.Write(l.wakeupFd, buf[:])
	if err != nil || n != 8 {
		l.logger.Errorf("reactorcore: loop wakeup write %d bytes instead of 8: %v", n, err)
	}
}

// Run drives the classic poll -> dispatch -> run-pending-tasks cycle on
// the calling goroutine until Quit is observed. The caller must pin this
// goroutine to its OS thread first (runtime.LockOSThread) so the Loop's
// thread-affinity guarantees hold.
func (l *Loop) Run() {
	atomic.StoreInt32(&l.looping, 1)
	atomic.StoreInt32(&l.quit, 0)

	for atomic.LoadInt32(&l.quit) == 0 {
		l.active = l.active[:0]
		l.pollReturnTime = l.multiplexer.Poll(l.pollTimeoutMs, &l.active)
		for _, h := range l.active {
			h.HandleEvent(l.pollReturnTime)
		}
		l.doPendingTasks()
	}

	atomic.StoreInt32(&l.looping, 0)
	loopsByThread.Delete(l.threadID)
}

// Quit requests the Loop stop after its current iteration. Safe to call
// from any thread; if called off the owning thread it also wakes the Loop
// so the request is observed promptly rather than after the next poll
// timeout.
func (l *Loop) Quit() {
	atomic.StoreInt32(&l.quit, 1)
	if !l.IsInLoopThread() {
		l.wakeup()
	}
}

// RunInLoop executes task synchronously if the caller is already on the
// owning thread; otherwise it enqueues task via QueueInLoop and returns
// without waiting for it to run.
func (l *Loop) RunInLoop(task func()) {
	if task == nil {
		l.logger.Errorf("%v", rcerrors.ErrNilTask)
		return
	}
	if l.IsInLoopThread() {
		task()
	} else {
		l.QueueInLoop(task)
	}
}

// QueueInLoop appends task to the pending queue and wakes the Loop unless
// the caller is on the owning thread and the Loop is not currently
// draining its pending-task batch. The draining exception is load-bearing:
// while draining, the pending slice has already been swapped out, so a
// task enqueued from inside that batch must still wake the next poll or it
// would sit unseen until some other event arrives.
func (l *Loop) QueueInLoop(task func()) {
	if task == nil {
		l.logger.Errorf("%v", rcerrors.ErrNilTask)
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, task)
	l.mu.Unlock()

	if !l.IsInLoopThread() || atomic.LoadInt32(&l.draining) != 0 {
		l.wakeup()
	}
}

func (l *Loop) doPendingTasks() {
	atomic.StoreInt32(&l.draining, 1)

	l.mu.Lock()
	tasks := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, task := range tasks {
		task()
	}

	atomic.StoreInt32(&l.draining, 0)
}

// assertInLoopThread aborts if called from any thread but the owner,
// guarding the thread-affine operations below (EventLoop.cc's analogous
// assertion is implicit in the C++ source's single-threaded contract;
// here it's made explicit and fatal since Go offers no compile-time help).
func (l *Loop) assertInLoopThread() {
	if !l.IsInLoopThread() {
		l.logger.Fatalf("%v: called from thread %d, owning thread is %d", rcerrors.ErrNotInLoopThread, unix.Gettid(), l.threadID)
	}
}

// UpdateHandle submits h's interest to the Multiplexer. Callable only from
// the owning thread.
func (l *Loop) UpdateHandle(h *Handle) {
	l.assertInLoopThread()
	l.multiplexer.UpdateHandle(h)
}

// RemoveHandle erases h's record from the Multiplexer. Callable only from
// the owning thread.
func (l *Loop) RemoveHandle(h *Handle) {
	l.assertInLoopThread()
	l.multiplexer.RemoveHandle(h)
}

// HasHandle reports whether h currently has a live record in the
// Multiplexer. Callable only from the owning thread.
func (l *Loop) HasHandle(h *Handle) bool {
	l.assertInLoopThread()
	found, ok := l.multiplexer.handles[h.fd]
	return ok && found == h
}

// IsInLoopThread reports whether the calling goroutine's OS thread is the
// Loop's owning thread.
func (l *Loop) IsInLoopThread() bool {
	return unix.Gettid() == l.threadID
}

// IsLooping reports whether Run is currently executing the dispatch cycle.
func (l *Loop) IsLooping() bool { return atomic.LoadInt32(&l.looping) != 0 }

// PollReturnTime returns the Timestamp observed after the most recent
// Multiplexer.Poll call returned.
func (l *Loop) PollReturnTime() Timestamp { return l.pollReturnTime }
