package taskgroup

import (
	"context"
	"time"
)

// TaskInfo provides metadata about a child task. It is passed to
// Observer hooks.
type TaskInfo struct {
	ID       uint64
	Priority Priority
}

// Observer receives lifecycle notifications from a group. All hooks run
// synchronously on the group's goroutines and must not block.
type Observer interface {
	GroupCreated(ctx context.Context)
	GroupCancelled(ctx context.Context)
	GroupDrained(ctx context.Context, wait time.Duration)
	TaskStarted(ctx context.Context, info TaskInfo)
	TaskFinished(ctx context.Context, info TaskInfo, dur time.Duration, err error)
}
