package engine

import (
	"context"
	"sync"
)

// CategorizationTask tracks a background categorization run started by Sync.
// Callers that want the results persisted before exiting should Wait on it;
// callers that don't care may Cancel or simply drop the handle.
type CategorizationTask struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu      sync.Mutex
	applied int
	err     error
}

func newCategorizationTask(cancel context.CancelFunc) *CategorizationTask {
	return &CategorizationTask{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Wait blocks until the task finishes and returns its terminal error, if any.
func (t *CategorizationTask) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancel stops the task. Categories already persisted are kept.
func (t *CategorizationTask) Cancel() {
	t.cancel()
	<-t.done
}

// Applied reports how many transactions received a category so far.
func (t *CategorizationTask) Applied() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applied
}

func (t *CategorizationTask) recordApplied() {
	t.mu.Lock()
	t.applied++
	t.mu.Unlock()
}

func (t *CategorizationTask) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}
