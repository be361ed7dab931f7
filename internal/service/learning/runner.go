package learning

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Task is a unit of background work. It receives a context that is detached
// from the request which submitted it.
type Task func(ctx context.Context) error

// TaskError reports a failed background task.
type TaskError struct {
	TaskID string
	Name   string
	Err    error
}

func (e *TaskError) Error() string {
	return e.Name + " [" + e.TaskID + "]: " + e.Err.Error()
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Runner executes tasks in their own goroutines. Failures are sent to an error
// channel that a single goroutine drains into the log, so they never reach the
// submitter.
type Runner struct {
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
	tasks  sync.WaitGroup

	errs    chan *TaskError
	drained chan struct{}
}

func NewRunner(timeout time.Duration, log *zap.Logger) *Runner {
	r := &Runner{
		timeout: timeout,
		log:     log.With(zap.String("module", "learning")),
		errs:    make(chan *TaskError, 16),
		drained: make(chan struct{}),
	}
	go r.drain()
	return r
}

// Submit starts task and returns its id, or "" when the runner is closed.
func (r *Runner) Submit(name string, task Task) string {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn("runner closed, dropping task", zap.String("task", name))
		return ""
	}
	r.tasks.Add(1)
	r.mu.Unlock()

	id := uuid.NewString()
	go r.run(id, name, task)
	return id
}

func (r *Runner) run(id, name string, task Task) {
	defer r.tasks.Done()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = errors.New("task panicked")
				r.log.Error("task panic", zap.String("taskId", id), zap.Any("panic", p))
			}
		}()
		return task(ctx)
	}()
	if err != nil {
		r.errs <- &TaskError{TaskID: id, Name: name, Err: err}
	}
}

func (r *Runner) drain() {
	defer close(r.drained)
	for taskErr := range r.errs {
		r.log.Error("background task failed",
			zap.String("taskId", taskErr.TaskID),
			zap.String("task", taskErr.Name),
			zap.Error(taskErr.Err),
		)
	}
}

// Close stops accepting tasks and waits for running ones to finish or for ctx
// to end, whichever comes first.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.tasks.Wait()
		close(r.errs)
		close(done)
	}()

	select {
	case <-done:
		<-r.drained
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
