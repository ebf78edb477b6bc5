package handoff

import (
	"fmt"
	"sync"
)

// ReleaseQueue carries reclaimed handles from the render thread back to the
// UI thread, which alone may delete or reuse them.
type ReleaseQueue struct {
	mu      sync.Mutex
	handles []uint32
}

func (q *ReleaseQueue) Push(hs ...uint32) {
	if len(hs) == 0 {
		return
	}
	q.mu.Lock()
	q.handles = append(q.handles, hs...)
	q.mu.Unlock()
}

// Drain swaps the queue out and returns its contents.
func (q *ReleaseQueue) Drain() []uint32 {
	q.mu.Lock()
	out := q.handles
	q.handles = nil
	q.mu.Unlock()
	return out
}

func (q *ReleaseQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handles)
}

// Task is a unit of work posted to the render thread.
type Task struct {
	Name string
	Run  func() error
}

// Tasks is the queue of work that other threads post to the render thread.
// Tasks run at the start of the next frame.
type Tasks struct {
	mu    sync.Mutex
	queue []Task
}

func (q *Tasks) Post(name string, fn func() error) {
	q.mu.Lock()
	q.queue = append(q.queue, Task{Name: name, Run: fn})
	q.mu.Unlock()
}

// Drain swaps the pending tasks out and returns them in posting order.
func (q *Tasks) Drain() []Task {
	q.mu.Lock()
	out := q.queue
	q.queue = nil
	q.mu.Unlock()
	return out
}

func (q *Tasks) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// RunAll runs the pending tasks in order and returns how many ran. A task
// that fails or panics is handed to onError and the rest of the batch
// still runs. Tasks posted while the batch runs wait for the next call.
func (q *Tasks) RunAll(onError func(name string, err error)) int {
	batch := q.Drain()
	for _, t := range batch {
		if err := runTask(t); err != nil && onError != nil {
			onError(t.Name, err)
		}
	}
	return len(batch)
}

func runTask(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, r)
		}
	}()
	return t.Run()
}
