// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import (
	"runtime"
	"sync"
)

// LoopThread binds a Loop to a freshly spawned OS thread. StartLoop blocks
// the caller until the child thread's Loop has been constructed, so the
// returned pointer is always usable immediately.
type LoopThread struct {
	mu   sync.Mutex
	cond *sync.Cond
	loop *Loop
	wg   sync.WaitGroup

	initCallback func(*Loop)
	exiting      bool
}

// NewLoopThread constructs a LoopThread. initCallback, if non-nil, runs on
// the child thread once its Loop exists but before Run is called.
func NewLoopThread(initCallback func(*Loop)) *LoopThread {
	t := &LoopThread{initCallback: initCallback}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// StartLoop spawns the thread, blocks until it has constructed its Loop,
// and returns that Loop.
func (t *LoopThread) StartLoop() *Loop {
	t.wg.Add(1)
	go t.threadFunc()

	t.mu.Lock()
	for t.loop == nil {
		t.cond.Wait()
	}
	t.mu.Unlock()

	return t.loop
}

func (t *LoopThread) threadFunc() {
	defer t.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	loop := NewLoop()

	if t.initCallback != nil {
		t.initCallback(loop)
	}

	t.mu.Lock()
	t.loop = loop
	t.cond.Broadcast()
	t.mu.Unlock()

	loop.Run()

	t.mu.Lock()
	t.loop = nil
	t.mu.Unlock()
}

// Stop marks the thread as exiting, quits its Loop if still present, and
// joins threadFunc before returning, releasing the goroutine and its
// locked OS thread.
func (t *LoopThread) Stop() {
	t.mu.Lock()
	t.exiting = true
	loop := t.loop
	t.mu.Unlock()

	if loop != nil {
		loop.Quit()
	}
	t.wg.Wait()
}
