// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics using a throwing task group. It enables incremental migration
// without changing call sites.
package errgroup

import (
	"context"
	"sync"

	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

// Group is an errgroup-like wrapper over a ThrowingTaskGroup. Fail-fast:
// the first non-nil error cancels the group context.
//
// Unlike x/sync/errgroup, a function passed to Go after the group was
// cancelled is dropped un-executed, and Go must not be called after Wait
// has returned.
type Group struct {
	g   *taskgroup.ThrowingTaskGroup[struct{}]
	ctx context.Context

	once     sync.Once
	firstErr error
}

// WithContext creates a Group bound to ctx. The returned context is
// canceled the first time a function passed to Go returns a non-nil
// error, and when Wait returns.
func WithContext(ctx context.Context) (*Group, context.Context) {
	tg := taskgroup.NewThrowingTaskGroup[struct{}](ctx)
	return &Group{g: tg, ctx: tg.Context()}, tg.Context()
}

// Go starts a function. It should return a non-nil error to signal failure.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	g.g.Spawn(func(context.Context) (struct{}, error) {
		err := f()
		if err != nil {
			// Fail-fast at completion time, not at Wait.
			g.g.CancelAll()
		}
		return struct{}{}, err
	})
}

// Wait blocks until all functions have returned. It returns the first
// non-nil error in completion order, or nil. Idempotent.
func (g *Group) Wait() error {
	g.once.Do(func() {
		for {
			_, ok, err := g.g.Next()
			if !ok {
				break
			}
			if err != nil && g.firstErr == nil {
				g.firstErr = err
			}
		}
		g.g.Drain()
	})
	return g.firstErr
}
