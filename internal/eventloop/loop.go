// Package eventloop provides a cooperative task queue drained by the main loop.
//
// Background work (model loading, file dialogs) posts its completion here
// so that scene and GL state are only touched from the goroutine that owns
// them.
package eventloop

import "sync"

// Loop is a FIFO queue of tasks. Post may be called from any goroutine;
// Drain runs tasks on the caller's goroutine.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{}
}

// Post queues fn to run on the next Drain.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Drain runs every task queued before the call and returns how many ran.
// Tasks posted while draining run on the next call.
func (l *Loop) Drain() int {
	l.mu.Lock()
	batch := l.tasks
	l.tasks = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}
