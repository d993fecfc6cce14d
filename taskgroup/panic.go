package taskgroup

import (
	"fmt"
	"runtime"
)

// PanicError wraps a panic recovered from a throwing child together with
// the goroutine stack captured at the point of the panic. It is delivered
// through Next as the child's error.
type PanicError struct {
	// Value is the original value passed to panic().
	Value any

	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("child panic: %v\n\n%s", e.Value, e.Stack)
}

func (e *PanicError) Unwrap() error { return nil }

func newPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: v,
		Stack: string(buf[:n]),
	}
}
