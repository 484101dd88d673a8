package services

import (
	"log"
	"sync"
)

// Executor runs submitted work.
type Executor interface {
	// Submit schedules work without blocking the caller.
	Submit(work func())
}

// SerialQueue runs submitted work one item at a time, in submission order,
// on a single dedicated goroutine.
type SerialQueue struct {
	name string

	mu     sync.Mutex
	cond   *sync.Cond
	items  []func()
	closed bool
	done   chan struct{}
}

// Ensure SerialQueue implements Executor.
var _ Executor = (*SerialQueue)(nil)

// NewSerialQueue starts a queue. The name prefixes log output.
func NewSerialQueue(name string) *SerialQueue {
	q := &SerialQueue{
		name: name,
		done: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Submit appends work to the queue. Work submitted after Close is dropped.
func (q *SerialQueue) Submit(work func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, work)
	q.cond.Signal()
}

// Sync blocks until all work submitted before the call has run.
// It must not be called from work running on the same queue.
func (q *SerialQueue) Sync() {
	reached := make(chan struct{})

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.items = append(q.items, func() { close(reached) })
	q.cond.Signal()
	q.mu.Unlock()

	<-reached
}

// Close stops accepting work, runs what is already queued and waits for the
// queue goroutine to exit. It must not be called from work running on the
// same queue.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()

	<-q.done
}

func (q *SerialQueue) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		work := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		q.execute(work)
	}
}

// execute runs one item. A panicking item is logged and the queue carries on.
func (q *SerialQueue) execute(work func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s: recovered from panic in queued work: %v", q.name, r)
		}
	}()
	work()
}
