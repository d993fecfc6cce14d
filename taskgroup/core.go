package taskgroup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	llq "github.com/emirpasic/gods/v2/queues/linkedlistqueue"
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"
)

// outcome is the record a completing child surrenders to the group.
// The non-throwing flavor never populates err.
type outcome[T any] struct {
	val T
	err error
}

type status int

const (
	running status = iota
	cancelled // absorbing
)

// core is the shared state of one task group. It is mutated by the
// consumer and by every child goroutine; all transitions run under mu so
// that poll, offer and cancel linearize against each other.
//
// Accounting invariant: pending counts children spawned but not yet
// delivered. A record sits in ready, in the waiter slot, or is still
// in flight; pending is decremented only at delivery.
type core[T any] struct {
	parent context.Context // consumer's context; implicit cancellation source
	ctx    context.Context // group context, parent of every child context
	cancel context.CancelFunc

	mu       sync.Mutex
	status   status
	pending  int
	ready    *llq.Queue[*outcome[T]]
	waiter   chan *outcome[T] // size-1 one-shot handoff; nil when no consumer waits
	children *rbt.Tree[uint64, context.CancelFunc]
	lastID   uint64

	// consuming guards the single-consumer discipline on Next.
	consuming atomic.Bool

	opts Options
	obs  Observer
}

func newCore[T any](parent context.Context, optFns ...Option) *core[T] {
	if parent == nil {
		parent = context.Background()
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	ctx, cancel := context.WithCancel(parent)
	c := &core[T]{
		parent:   parent,
		ctx:      ctx,
		cancel:   cancel,
		ready:    llq.New[*outcome[T]](),
		children: rbt.New[uint64, context.CancelFunc](),
		opts:     opts,
		obs:      opts.Observer,
	}
	if c.obs != nil {
		c.obs.GroupCreated(ctx)
	}
	return c
}

// tryAdd registers intent to spawn one child. It fails once the group is
// cancelled, explicitly or through the consumer's context. On success the
// child is attached to the registry so CancelAll reaches it.
func (c *core[T]) tryAdd() (id uint64, ctx context.Context, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parent.Err() != nil {
		c.status = cancelled
	}
	if c.status == cancelled {
		return 0, nil, false
	}
	c.pending++
	c.lastID++
	id = c.lastID
	childCtx, cancel := context.WithCancel(c.ctx)
	c.children.Put(id, cancel)
	return id, childCtx, true
}

// offer hands a completed child's record to the group: directly to a
// waiting consumer when one is installed, otherwise onto the ready queue.
// The child is detached from the registry in the same critical section.
func (c *core[T]) offer(id uint64, out *outcome[T]) {
	c.mu.Lock()
	if cf, found := c.children.Get(id); found {
		c.children.Remove(id)
		defer cf()
	}
	if w := c.waiter; w != nil {
		c.waiter = nil
		c.mu.Unlock()
		w <- out
		return
	}
	c.ready.Enqueue(out)
	c.mu.Unlock()
}

// next delivers one record, blocking while children are still in flight.
// The second return is false only when no child is pending, so a drain
// loop terminates exactly when the group is empty.
func (c *core[T]) next() (outcome[T], bool) {
	c.mu.Lock()
	if out, found := c.ready.Dequeue(); found {
		c.pending--
		c.mu.Unlock()
		return *out, true
	}
	if c.pending == 0 {
		c.mu.Unlock()
		var zero outcome[T]
		return zero, false
	}
	w := make(chan *outcome[T], 1)
	c.waiter = w
	c.mu.Unlock()

	// Every in-flight child eventually offers a record, cancelled or
	// not, so the handoff always completes.
	out := <-w
	c.mu.Lock()
	c.pending--
	c.mu.Unlock()
	return *out, true
}

// startChild runs one child on its own goroutine. The spawn path never
// blocks the caller.
func (c *core[T]) startChild(info TaskInfo, run func(ctx context.Context) outcome[T]) bool {
	id, ctx, ok := c.tryAdd()
	if !ok {
		return false
	}
	info.ID = id
	go func() {
		if c.obs != nil {
			c.obs.TaskStarted(c.ctx, info)
		}
		start := time.Now()
		out := run(ctx)
		if c.obs != nil {
			c.obs.TaskFinished(c.ctx, info, time.Since(start), out.err)
		}
		c.offer(id, &out)
	}()
	return true
}

// cancelAll flips the group to cancelled and requests cancellation on
// every attached child. Records already in ready stay deliverable.
// Idempotent and callable from any goroutine, including a child's.
func (c *core[T]) cancelAll() {
	c.mu.Lock()
	first := c.status != cancelled
	c.status = cancelled
	cancels := make([]context.CancelFunc, 0, c.children.Size())
	it := c.children.Iterator()
	for it.Next() {
		cancels = append(cancels, it.Value())
	}
	c.mu.Unlock()

	c.cancel()
	for _, cf := range cancels {
		cf()
	}
	if first && c.obs != nil {
		c.obs.GroupCancelled(c.ctx)
	}
}

func (c *core[T]) isCancelled() bool {
	if c.parent.Err() != nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == cancelled
}

func (c *core[T]) isEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending == 0
}

func (c *core[T]) pendingLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// enterNext enforces the single-consumer discipline on Next.
func (c *core[T]) enterNext() {
	if !c.consuming.CompareAndSwap(false, true) {
		panic("taskgroup: concurrent Next on a single-consumer group")
	}
}

func (c *core[T]) exitNext() {
	c.consuming.Store(false)
}

// drain consumes and discards records until the group is empty, then
// releases the group context.
func (c *core[T]) drain() {
	start := time.Now()
	for {
		if _, ok := c.next(); !ok {
			break
		}
	}
	c.cancel()
	if c.obs != nil {
		c.obs.GroupDrained(c.ctx, time.Since(start))
	}
}
