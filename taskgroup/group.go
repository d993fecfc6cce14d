package taskgroup

import (
	"context"
	"sync/atomic"
)

// TaskGroup is the non-throwing flavor: children produce plain values.
// The goroutine that created the group is the only legitimate consumer;
// every method except CancelAll and IsCancelled belongs to it.
type TaskGroup[T any] struct {
	core   *core[T]
	closed atomic.Bool
}

// NewTaskGroup creates a group bound to ctx for manual lifecycle control.
// The caller owns teardown and must call Drain before abandoning the
// handle.
//
// Prefer WithTaskGroup, which guarantees the group is empty on every
// exit path.
func NewTaskGroup[T any](ctx context.Context, opts ...Option) *TaskGroup[T] {
	return &TaskGroup[T]{core: newCore[T](ctx, opts...)}
}

// Spawn starts fn as a child of the group. It reports false, without
// running fn, once the group is cancelled. Spawn never blocks.
//
// A panic inside fn is not recovered: the non-throwing flavor has no
// error channel to deliver it on, so it takes the program down.
func (g *TaskGroup[T]) Spawn(fn func(ctx context.Context) T, opts ...SpawnOption) bool {
	if g.closed.Load() {
		panic("taskgroup: Spawn on a group whose scope has exited")
	}
	return g.core.startChild(g.core.spawnInfo(opts), func(ctx context.Context) outcome[T] {
		return outcome[T]{val: fn(ctx)}
	})
}

// Next returns the next child result in completion order, blocking while
// children are in flight. It returns ok=false once no child is pending;
// later successful Spawn calls re-open delivery.
func (g *TaskGroup[T]) Next() (T, bool) {
	g.core.enterNext()
	defer g.core.exitNext()
	out, ok := g.core.next()
	return out.val, ok
}

// IsEmpty reports whether every spawned child has been delivered.
func (g *TaskGroup[T]) IsEmpty() bool { return g.core.isEmpty() }

// PendingLen returns the number of spawned children not yet delivered.
func (g *TaskGroup[T]) PendingLen() int { return g.core.pendingLen() }

// IsCancelled reports whether the group was cancelled, explicitly or by
// cancellation of the context the scope was created with.
func (g *TaskGroup[T]) IsCancelled() bool { return g.core.isCancelled() }

// CancelAll cancels the group and every attached child. Records already
// produced remain deliverable. Idempotent; safe from any goroutine.
func (g *TaskGroup[T]) CancelAll() { g.core.cancelAll() }

// Context returns the context children run under. It is cancelled when
// the group is cancelled or the scope exits.
func (g *TaskGroup[T]) Context() context.Context { return g.core.ctx }

// Drain consumes and discards results until the group is empty and
// closes the handle. Idempotent. WithTaskGroup calls it on every exit
// path; manual users must.
func (g *TaskGroup[T]) Drain() {
	if !g.closed.CompareAndSwap(false, true) {
		return
	}
	g.core.drain()
}

func (c *core[T]) spawnInfo(opts []SpawnOption) TaskInfo {
	cfg := spawnConfig{priority: c.opts.Priority}
	for _, fn := range opts {
		fn(&cfg)
	}
	return TaskInfo{Priority: cfg.priority}
}

// WithTaskGroup runs body with a fresh non-throwing group and tears it
// down afterwards: remaining children are awaited and their results
// discarded, so the group is empty when WithTaskGroup returns. If body
// panics, all children are cancelled, the group is drained, and the
// panic is re-raised.
func WithTaskGroup[T, R any](ctx context.Context, body func(ctx context.Context, g *TaskGroup[T]) R, opts ...Option) R {
	g := NewTaskGroup[T](ctx, opts...)
	defer func() {
		if r := recover(); r != nil {
			g.CancelAll()
			g.Drain()
			panic(r)
		}
		g.Drain()
	}()
	return body(ctx, g)
}
