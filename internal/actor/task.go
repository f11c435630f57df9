package actor

import (
	"context"
)

// Task is a cancelable, awaitable unit of background work.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Go runs fn on its own goroutine with a context canceled by Abort.
func Go(ctx context.Context, name string, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		defer cancel()
		fn(ctx)
	}()
	return t
}

// Name returns the task label.
func (t *Task) Name() string {
	return t.name
}

// Abort asks the task to stop. It does not wait.
func (t *Task) Abort() {
	t.cancel()
}

// Done is closed once the task returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task returned.
func (t *Task) Wait() {
	<-t.done
}

// AbortAll aborts every task.
func AbortAll(tasks []*Task) {
	for _, t := range tasks {
		t.Abort()
	}
}

// WaitAll waits for every task or until ctx is done, returning the names still running.
func WaitAll(ctx context.Context, tasks []*Task) []string {
	for i, t := range tasks {
		select {
		case <-t.Done():
		case <-ctx.Done():
			var pending []string
			for _, rest := range tasks[i:] {
				select {
				case <-rest.Done():
				default:
					pending = append(pending, rest.name)
				}
			}
			return pending
		}
	}
	return nil
}
