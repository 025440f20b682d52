// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

// LoopThreadPool owns a base Loop (the "main reactor", supplied by the
// embedder rather than owned by the pool) and N worker LoopThreads,
// handing out worker Loops to new connections via round-robin.
type LoopThreadPool struct {
	baseLoop *Loop

	threadCount int
	threads     []*LoopThread
	workers     []*Loop

	nextIndex int
}

// NewLoopThreadPool constructs a pool around baseLoop. SetThreadCount and
// Start must be called before GetNextLoop returns anything but baseLoop.
func NewLoopThreadPool(baseLoop *Loop) *LoopThreadPool {
	return &LoopThreadPool{baseLoop: baseLoop}
}

// SetThreadCount records the desired worker count. No thread is spawned
// until Start is called.
func (p *LoopThreadPool) SetThreadCount(n int) {
	p.threadCount = n
}

// Start spawns threadCount LoopThreads, each running initCallback once its
// Loop exists. If threadCount is 0, GetNextLoop returns the base Loop on
// every call.
func (p *LoopThreadPool) Start(initCallback func(*Loop)) {
	p.threads = make([]*LoopThread, p.threadCount)
	p.workers = make([]*Loop, p.threadCount)
	for i := 0; i < p.threadCount; i++ {
		t := NewLoopThread(initCallback)
		p.threads[i] = t
		p.workers[i] = t.StartLoop()
	}
}

// GetNextLoop returns the next worker Loop in round-robin order, or the
// base Loop if no workers were started. Callable only from the base
// Loop's thread.
func (p *LoopThreadPool) GetNextLoop() *Loop {
	if len(p.workers) == 0 {
		return p.baseLoop
	}
	l := p.workers[p.nextIndex]
	p.nextIndex++
	if p.nextIndex >= len(p.workers) {
		p.nextIndex = 0
	}
	return l
}

// BaseLoop returns the pool's main-reactor Loop.
func (p *LoopThreadPool) BaseLoop() *Loop { return p.baseLoop }

// Workers returns the pool's worker Loops, in registration order.
func (p *LoopThreadPool) Workers() []*Loop { return p.workers }

// Stop quits every worker LoopThread, in reverse registration order.
func (p *LoopThreadPool) Stop() {
	for i := len(p.threads) - 1; i >= 0; i-- {
		p.threads[i].Stop()
	}
}
