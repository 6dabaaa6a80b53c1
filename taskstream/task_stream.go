package taskstream

import (
	"github.com/vanadium-labs/asynclock/cancel"
	"github.com/vanadium-labs/asynclock/dispatch"
	"github.com/vanadium-labs/asynclock/future"
)

// TaskStream serializes no-result work items.
type TaskStream struct {
	core *core
}

// NewTaskStream creates an empty TaskStream, dispatching enqueued work with
// d (dispatch.Default if nil).
func NewTaskStream(d dispatch.Dispatcher) *TaskStream {
	return &TaskStream{core: newCore(d)}
}

// Enqueue appends fn to the stream and returns a Future for its error, once
// every task enqueued ahead of it has finished. token, if it fires before
// fn's turn to run arrives, cancels fn instead of running it; it has no
// effect once fn has started.
func (s *TaskStream) Enqueue(token cancel.Token, fn func() error) *future.Future[struct{}] {
	return enqueue(s.core, token, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// PendingCount returns the number of tasks enqueued but not yet finished.
func (s *TaskStream) PendingCount() int64 { return s.core.PendingCount() }

// Reset rewinds the stream so the next Enqueue starts a new serial run; see
// core.Reset.
func (s *TaskStream) Reset() { s.core.Reset() }

// Complete enqueues a no-op task and returns its Future; see core.Complete.
func (s *TaskStream) Complete() *future.Future[struct{}] { return s.core.Complete() }

// Dispose lets already-chained tasks finish, then disposes; see core.Dispose.
func (s *TaskStream) Dispose() *future.Future[struct{}] { return s.core.Dispose() }

// ValueTaskStream serializes work items that produce a T on success.
type ValueTaskStream[T any] struct {
	core *core
}

// NewValueTaskStream creates an empty ValueTaskStream, dispatching enqueued
// work with d (dispatch.Default if nil).
func NewValueTaskStream[T any](d dispatch.Dispatcher) *ValueTaskStream[T] {
	return &ValueTaskStream[T]{core: newCore(d)}
}

// Enqueue appends fn to the stream and returns a Future for its result,
// once every task enqueued ahead of it has finished. token, if it fires
// before fn's turn to run arrives, cancels fn instead of running it; it has
// no effect once fn has started.
func (s *ValueTaskStream[T]) Enqueue(token cancel.Token, fn func() (T, error)) *future.Future[T] {
	return enqueue(s.core, token, fn)
}

// PendingCount returns the number of tasks enqueued but not yet finished.
func (s *ValueTaskStream[T]) PendingCount() int64 { return s.core.PendingCount() }

// Reset rewinds the stream so the next Enqueue starts a new serial run; see
// core.Reset.
func (s *ValueTaskStream[T]) Reset() { s.core.Reset() }

// Complete enqueues a no-op task and returns its Future; see core.Complete.
func (s *ValueTaskStream[T]) Complete() *future.Future[struct{}] { return s.core.Complete() }

// Dispose lets already-chained tasks finish, then disposes; see core.Dispose.
func (s *ValueTaskStream[T]) Dispose() *future.Future[struct{}] { return s.core.Dispose() }
