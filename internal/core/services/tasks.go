package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/keyward/internal/core/ports/driven"
)

// TaskOption customises a single scheduled task.
type TaskOption func(*taskOptions)

type taskOptions struct {
	executor Executor
}

// OnExecutor runs the task on e instead of the registry's executor.
// The owning layer uses it for work that must run on its UI context.
func OnExecutor(e Executor) TaskOption {
	return func(o *taskOptions) {
		o.executor = e
	}
}

// TaskHandle is a scheduled unit of delayed work.
type TaskHandle struct {
	name      string
	deadline  time.Time
	timer     driven.Timer
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// Name returns the name the task was scheduled under.
func (h *TaskHandle) Name() string {
	return h.name
}

// Deadline returns when the task is due.
func (h *TaskHandle) Deadline() time.Time {
	return h.deadline
}

// Cancelled returns true if the task was cancelled or replaced.
func (h *TaskHandle) Cancelled() bool {
	return h.cancelled.Load()
}

func (h *TaskHandle) stop() {
	h.cancelled.Store(true)
	if h.timer != nil {
		h.timer.Stop()
	}
	h.cancel()
}

// TaskRegistry owns named, cancellable units of delayed work.
// At most one task is pending per name.
type TaskRegistry struct {
	clock    driven.Clock
	executor Executor

	mu    sync.Mutex
	tasks map[string]*TaskHandle
}

// NewTaskRegistry creates a registry whose tasks run on executor.
func NewTaskRegistry(clock driven.Clock, executor Executor) *TaskRegistry {
	return &TaskRegistry{
		clock:    clock,
		executor: executor,
		tasks:    make(map[string]*TaskHandle),
	}
}

// Schedule runs work after delay. A task already pending under name is
// cancelled before the new one is installed. The context passed to work is
// cancelled if the task is cancelled and is valid until work returns.
func (r *TaskRegistry) Schedule(
	name string,
	delay time.Duration,
	work func(ctx context.Context),
	opts ...TaskOption,
) *TaskHandle {
	o := taskOptions{executor: r.executor}
	for _, opt := range opts {
		opt(&o)
	}
	if delay < 0 {
		delay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &TaskHandle{
		name:     name,
		deadline: r.clock.Now().Add(delay),
		ctx:      ctx,
		cancel:   cancel,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.tasks[name]; ok {
		old.stop()
	}
	r.tasks[name] = h
	h.timer = r.clock.AfterFunc(delay, func() {
		o.executor.Submit(func() {
			r.run(h, work)
		})
	})

	return h
}

// run executes a fired task unless it was cancelled or replaced meanwhile.
func (r *TaskRegistry) run(h *TaskHandle, work func(ctx context.Context)) {
	r.mu.Lock()
	current := r.tasks[h.name] == h
	if current {
		delete(r.tasks, h.name)
	}
	r.mu.Unlock()

	if !current || h.Cancelled() {
		return
	}

	defer h.cancel()
	work(h.ctx)
}

// Cancel cancels the task pending under name, if any.
func (r *TaskRegistry) Cancel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.tasks[name]; ok {
		h.stop()
		delete(r.tasks, name)
	}
}

// CancelAll cancels every pending task. It never waits for running work,
// so it is safe to call from inside a task.
func (r *TaskRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, h := range r.tasks {
		h.stop()
		delete(r.tasks, name)
	}
}

// Pending returns the handle pending under name.
func (r *TaskRegistry) Pending(name string) (*TaskHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.tasks[name]
	return h, ok
}

// Len returns the number of pending tasks.
func (r *TaskRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
