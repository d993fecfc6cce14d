package taskgroup

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSpawnNextDeliversAllResults(t *testing.T) {
	t.Parallel()
	got := WithTaskGroup(context.Background(), func(_ context.Context, g *TaskGroup[int]) []int {
		g.Spawn(func(_ context.Context) int { return 1 })
		g.Spawn(func(_ context.Context) int { return 2 })
		var vals []int
		for {
			v, ok := g.Next()
			if !ok {
				break
			}
			vals = append(vals, v)
		}
		return vals
	})
	sort.Ints(got)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected {1, 2} in some order, got %v", got)
	}
}

func TestNextOnEmptyGroupReturnsImmediately(t *testing.T) {
	t.Parallel()
	WithTaskGroup(context.Background(), func(_ context.Context, g *TaskGroup[int]) struct{} {
		start := time.Now()
		if _, ok := g.Next(); ok {
			t.Error("Next on an empty group reported a result")
		}
		if time.Since(start) > 100*time.Millisecond {
			t.Error("Next on an empty group suspended")
		}
		return struct{}{}
	})
}

func TestDeliveryFollowsCompletionOrder(t *testing.T) {
	t.Parallel()
	WithTaskGroup(context.Background(), func(_ context.Context, g *TaskGroup[int]) struct{} {
		releaseA := make(chan struct{})
		releaseB := make(chan struct{})
		g.Spawn(func(_ context.Context) int { <-releaseA; return 1 })
		g.Spawn(func(_ context.Context) int { <-releaseB; return 2 })

		close(releaseB)
		if v, ok := g.Next(); !ok || v != 2 {
			t.Errorf("expected first-completed child (2) first, got %d ok=%v", v, ok)
		}
		close(releaseA)
		if v, ok := g.Next(); !ok || v != 1 {
			t.Errorf("expected remaining child (1), got %d ok=%v", v, ok)
		}
		return struct{}{}
	})
}

func TestSpawnAfterCancelAllRejected(t *testing.T) {
	t.Parallel()
	WithTaskGroup(context.Background(), func(_ context.Context, g *TaskGroup[int]) struct{} {
		g.Spawn(func(ctx context.Context) int {
			<-ctx.Done()
			return -1
		})
		g.CancelAll()

		var ran atomic.Bool
		if g.Spawn(func(_ context.Context) int { ran.Store(true); return 0 }) {
			t.Error("Spawn succeeded on a cancelled group")
		}
		if g.PendingLen() != 1 {
			t.Errorf("rejected Spawn changed pending count: %d", g.PendingLen())
		}
		if _, ok := g.Next(); !ok {
			t.Error("previously spawned child was not delivered")
		}
		time.Sleep(20 * time.Millisecond)
		if ran.Load() {
			t.Error("rejected operation was executed")
		}
		return struct{}{}
	})
}

func TestCancelAllIdempotent(t *testing.T) {
	t.Parallel()
	WithTaskGroup(context.Background(), func(_ context.Context, g *TaskGroup[int]) struct{} {
		g.Spawn(func(ctx context.Context) int {
			<-ctx.Done()
			return 7
		})
		g.CancelAll()
		g.CancelAll()
		g.CancelAll()
		if !g.IsCancelled() {
			t.Error("group not cancelled after CancelAll")
		}
		if v, ok := g.Next(); !ok || v != 7 {
			t.Errorf("cancelled child not delivered, got %d ok=%v", v, ok)
		}
		return struct{}{}
	})
}

func TestParentCancelPropagatesToChildren(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	observed := WithTaskGroup(ctx, func(_ context.Context, g *TaskGroup[bool]) bool {
		g.Spawn(func(ctx context.Context) bool {
			select {
			case <-ctx.Done():
				return true
			case <-time.After(3 * time.Second):
				return false
			}
		})
		cancel()
		v, ok := g.Next()
		if !ok {
			t.Error("child was not delivered")
		}
		if !g.IsCancelled() {
			t.Error("group did not reflect parent cancellation")
		}
		return v
	})
	if !observed {
		t.Fatal("child did not observe cancellation")
	}
}

func TestSpawnReopensDeliveryAfterEmpty(t *testing.T) {
	t.Parallel()
	WithTaskGroup(context.Background(), func(_ context.Context, g *TaskGroup[int]) struct{} {
		g.Spawn(func(_ context.Context) int { return 1 })
		if _, ok := g.Next(); !ok {
			t.Fatal("first child missing")
		}
		if _, ok := g.Next(); ok {
			t.Fatal("group should be empty")
		}
		g.Spawn(func(_ context.Context) int { return 2 })
		if v, ok := g.Next(); !ok || v != 2 {
			t.Fatalf("delivery did not re-open, got %d ok=%v", v, ok)
		}
		return struct{}{}
	})
}

func TestScopeDrainsUnconsumedChildren(t *testing.T) {
	t.Parallel()
	var g *TaskGroup[int]
	WithTaskGroup(context.Background(), func(_ context.Context, inner *TaskGroup[int]) struct{} {
		g = inner
		for i := 0; i < 5; i++ {
			g.Spawn(func(_ context.Context) int { time.Sleep(10 * time.Millisecond); return i })
		}
		return struct{}{}
	})
	if !g.IsEmpty() {
		t.Fatal("group not empty after scope exit")
	}
}

func TestSpawnAfterScopeExitPanics(t *testing.T) {
	t.Parallel()
	var leaked *TaskGroup[int]
	WithTaskGroup(context.Background(), func(_ context.Context, g *TaskGroup[int]) struct{} {
		leaked = g
		return struct{}{}
	})
	defer func() {
		if recover() == nil {
			t.Error("expected panic from Spawn on an exited scope")
		}
	}()
	leaked.Spawn(func(_ context.Context) int { return 0 })
}

func TestBodyPanicCancelsAndDrains(t *testing.T) {
	t.Parallel()
	var g *TaskGroup[int]
	var childCancelled atomic.Bool
	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("expected body panic to re-raise, got %v", r)
			}
		}()
		WithTaskGroup(context.Background(), func(_ context.Context, inner *TaskGroup[int]) struct{} {
			g = inner
			g.Spawn(func(ctx context.Context) int {
				<-ctx.Done()
				childCancelled.Store(true)
				return 0
			})
			panic("boom")
		})
	}()
	if !g.IsEmpty() {
		t.Error("group not empty after body panic")
	}
	if !childCancelled.Load() {
		t.Error("child was not cancelled on body panic")
	}
}

func TestConcurrentNextPanics(t *testing.T) {
	t.Parallel()
	g := NewTaskGroup[int](context.Background())
	defer g.Drain()

	release := make(chan struct{})
	g.Spawn(func(_ context.Context) int { <-release; return 1 })

	done := make(chan struct{})
	go func() {
		defer close(done)
		g.Next()
	}()
	time.Sleep(30 * time.Millisecond)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic from second consumer")
			}
		}()
		g.Next()
	}()

	close(release)
	<-done
}

type countObserver struct {
	created   atomic.Int64
	cancelled atomic.Int64
	drained   atomic.Int64
	started   atomic.Int64
	finished  atomic.Int64
}

func (o *countObserver) GroupCreated(_ context.Context)                  { o.created.Add(1) }
func (o *countObserver) GroupCancelled(_ context.Context)                { o.cancelled.Add(1) }
func (o *countObserver) GroupDrained(_ context.Context, _ time.Duration) { o.drained.Add(1) }
func (o *countObserver) TaskStarted(_ context.Context, _ TaskInfo)       { o.started.Add(1) }
func (o *countObserver) TaskFinished(_ context.Context, _ TaskInfo, _ time.Duration, _ error) {
	o.finished.Add(1)
}

func TestObserverHooks(t *testing.T) {
	t.Parallel()
	obs := &countObserver{}
	WithTaskGroup(context.Background(), func(_ context.Context, g *TaskGroup[int]) struct{} {
		g.Spawn(func(_ context.Context) int { return 1 })
		g.Spawn(func(_ context.Context) int { return 2 })
		return struct{}{}
	}, WithObserver(obs))
	if obs.created.Load() != 1 || obs.drained.Load() != 1 {
		t.Errorf("unexpected group counts: created=%d drained=%d", obs.created.Load(), obs.drained.Load())
	}
	if obs.started.Load() != 2 || obs.finished.Load() != 2 {
		t.Errorf("unexpected task counts: started=%d finished=%d", obs.started.Load(), obs.finished.Load())
	}
	if obs.cancelled.Load() != 0 {
		t.Errorf("spurious cancel notification: %d", obs.cancelled.Load())
	}
}

func TestSpawnPriorityReachesObserver(t *testing.T) {
	t.Parallel()
	prios := make(chan Priority, 2)
	obs := &priorityObserver{prios: prios}
	WithTaskGroup(context.Background(), func(_ context.Context, g *TaskGroup[int]) struct{} {
		g.Spawn(func(_ context.Context) int { return 1 })
		g.Spawn(func(_ context.Context) int { return 2 }, WithSpawnPriority(PriorityHigh))
		return struct{}{}
	}, WithObserver(obs), WithDefaultPriority(PriorityUtility))

	seen := map[Priority]int{}
	seen[<-prios]++
	seen[<-prios]++
	if seen[PriorityUtility] != 1 || seen[PriorityHigh] != 1 {
		t.Fatalf("unexpected priorities: %v", seen)
	}
}

type priorityObserver struct {
	prios chan Priority
}

func (o *priorityObserver) GroupCreated(_ context.Context)                  {}
func (o *priorityObserver) GroupCancelled(_ context.Context)                {}
func (o *priorityObserver) GroupDrained(_ context.Context, _ time.Duration) {}
func (o *priorityObserver) TaskStarted(_ context.Context, info TaskInfo)    { o.prios <- info.Priority }
func (o *priorityObserver) TaskFinished(_ context.Context, _ TaskInfo, _ time.Duration, _ error) {
}
