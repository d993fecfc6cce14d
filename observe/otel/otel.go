package otel

import (
	"context"
	"time"

	"github.com/NetPo4ki/go-taskgroup/taskgroup"
)

// Nop is a no-op implementation of the taskgroup.Observer interface.
// It serves as a placeholder for an OpenTelemetry-backed observer without adding dependencies.
type Nop struct{}

var _ taskgroup.Observer = (*Nop)(nil)

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) GroupCreated(context.Context)                                           {}
func (*Nop) GroupCancelled(context.Context)                                         {}
func (*Nop) GroupDrained(context.Context, time.Duration)                            {}
func (*Nop) TaskStarted(context.Context, taskgroup.TaskInfo)                        {}
func (*Nop) TaskFinished(context.Context, taskgroup.TaskInfo, time.Duration, error) {}
