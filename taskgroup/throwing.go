package taskgroup

import (
	"context"
	"sync/atomic"
)

// ThrowingTaskGroup is the throwing flavor: children produce a value or
// an error, and a child's error surfaces through the Next call that
// delivers it. Siblings keep running and stay deliverable.
type ThrowingTaskGroup[T any] struct {
	core   *core[T]
	closed atomic.Bool
}

// NewThrowingTaskGroup creates a throwing group bound to ctx for manual
// lifecycle control. The caller must call Drain before abandoning the
// handle; prefer WithThrowingTaskGroup.
func NewThrowingTaskGroup[T any](ctx context.Context, opts ...Option) *ThrowingTaskGroup[T] {
	return &ThrowingTaskGroup[T]{core: newCore[T](ctx, opts...)}
}

// Spawn starts fn as a child of the group. It reports false, without
// running fn, once the group is cancelled. Spawn never blocks.
//
// A panic inside fn is recovered into a *PanicError and delivered as the
// child's error.
func (g *ThrowingTaskGroup[T]) Spawn(fn func(ctx context.Context) (T, error), opts ...SpawnOption) bool {
	if g.closed.Load() {
		panic("taskgroup: Spawn on a group whose scope has exited")
	}
	return g.core.startChild(g.core.spawnInfo(opts), func(ctx context.Context) (out outcome[T]) {
		defer func() {
			if r := recover(); r != nil {
				out = outcome[T]{err: newPanicError(r)}
			}
		}()
		v, err := fn(ctx)
		return outcome[T]{val: v, err: err}
	})
}

// Next returns the next child outcome in completion order, blocking
// while children are in flight. ok is false once no child is pending.
// When the delivered child failed, err carries its error and the value
// is the zero of T.
func (g *ThrowingTaskGroup[T]) Next() (_ T, ok bool, err error) {
	g.core.enterNext()
	defer g.core.exitNext()
	out, ok := g.core.next()
	if !ok || out.err != nil {
		var zero T
		return zero, ok, out.err
	}
	return out.val, true, nil
}

// IsEmpty reports whether every spawned child has been delivered.
func (g *ThrowingTaskGroup[T]) IsEmpty() bool { return g.core.isEmpty() }

// PendingLen returns the number of spawned children not yet delivered.
func (g *ThrowingTaskGroup[T]) PendingLen() int { return g.core.pendingLen() }

// IsCancelled reports whether the group was cancelled, explicitly or by
// cancellation of the context the scope was created with.
func (g *ThrowingTaskGroup[T]) IsCancelled() bool { return g.core.isCancelled() }

// CancelAll cancels the group and every attached child. Records already
// produced remain deliverable. Idempotent; safe from any goroutine.
func (g *ThrowingTaskGroup[T]) CancelAll() { g.core.cancelAll() }

// Context returns the context children run under.
func (g *ThrowingTaskGroup[T]) Context() context.Context { return g.core.ctx }

// Drain consumes and discards outcomes, child errors included, until the
// group is empty, then closes the handle. Idempotent.
func (g *ThrowingTaskGroup[T]) Drain() {
	if !g.closed.CompareAndSwap(false, true) {
		return
	}
	g.core.drain()
}

// WithThrowingTaskGroup runs body with a fresh throwing group and tears
// it down afterwards. When body returns an error, all children are
// cancelled, the group is drained, and body's error is returned; a body
// panic cancels and drains the same way before re-raising.
//
// Errors of children that body never consumed are discarded during the
// implicit drain, on the error path and on the normal path alike: only
// errors returned out of body propagate. Callers that want every child
// error surfaced must call Next until it reports empty before returning.
func WithThrowingTaskGroup[T, R any](ctx context.Context, body func(ctx context.Context, g *ThrowingTaskGroup[T]) (R, error), opts ...Option) (R, error) {
	g := NewThrowingTaskGroup[T](ctx, opts...)
	defer func() {
		if r := recover(); r != nil {
			g.CancelAll()
			g.Drain()
			panic(r)
		}
	}()
	res, err := body(ctx, g)
	if err != nil {
		g.CancelAll()
		g.Drain()
		var zero R
		return zero, err
	}
	g.Drain()
	return res, nil
}
