package reconcile

import "sync"

// Executor runs confirmation tasks. It is the only place a toggle suspends.
type Executor interface {
	Submit(task func())
}

// GoExecutor runs each task on its own goroutine.
type GoExecutor struct {
	wg sync.WaitGroup
}

func (e *GoExecutor) Submit(task func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		task()
	}()
}

// Wait blocks until every submitted task has returned.
func (e *GoExecutor) Wait() {
	e.wg.Wait()
}

// ManualExecutor queues tasks until the caller runs them, which makes the
// order in which overlapping confirmations resolve explicit.
type ManualExecutor struct {
	mu    sync.Mutex
	queue []func()
}

func (e *ManualExecutor) Submit(task func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append(e.queue, task)
}

// Len returns the number of queued tasks.
func (e *ManualExecutor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// RunNext runs the oldest queued task.
func (e *ManualExecutor) RunNext() bool {
	return e.RunAt(0)
}

// RunAt runs the i-th queued task, counted from the oldest.
func (e *ManualExecutor) RunAt(i int) bool {
	e.mu.Lock()
	if i < 0 || i >= len(e.queue) {
		e.mu.Unlock()
		return false
	}
	task := e.queue[i]
	e.queue = append(e.queue[:i:i], e.queue[i+1:]...)
	e.mu.Unlock()

	task()
	return true
}

// RunAll drains the queue in order, including tasks submitted while
// draining, and returns how many ran.
func (e *ManualExecutor) RunAll() int {
	n := 0
	for e.RunNext() {
		n++
	}
	return n
}
