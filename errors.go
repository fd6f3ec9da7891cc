package tinycoro

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory indicates that the stack allocation backend could not
	// satisfy an Acquire request. The scheduler that surfaced it remains
	// usable.
	ErrOutOfMemory = errors.New("tinycoro: out of memory")

	// ErrInvalidHandle indicates an operation on an unknown or
	// already-cleaned-up coroutine.
	ErrInvalidHandle = errors.New("tinycoro: invalid coroutine handle")

	// ErrNotTerminated indicates a Join on a coroutine that has not yet
	// reached Finished or Failed.
	ErrNotTerminated = errors.New("tinycoro: coroutine has not terminated")

	// ErrWouldBlock indicates a channel operation that cannot complete
	// without suspending, issued from a context that cannot suspend.
	ErrWouldBlock = errors.New("tinycoro: operation would block")

	// ErrViolation indicates a context switch contract violation, such as
	// resuming a coroutine that is not suspended, yielding from outside
	// coroutine code, or consuming an execution context twice.
	// A violation is fatal to the offending call but never to other
	// coroutines or to the scheduler.
	ErrViolation = errors.New("tinycoro: context switch violation")
)

func violationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrViolation, fmt.Sprintf(format, args...))
}

// A PanicError captures a panic raised by a coroutine's entry function,
// along with the stack trace at the point of the panic.
// It is retrievable through [Scheduler.Join] after the coroutine reaches
// the Failed state.
type PanicError struct {
	// Value is the value the entry function panicked with.
	Value any

	// Stack is the stack trace captured at recovery time.
	Stack []byte
}

func newPanicError(v any, stack []byte) *PanicError {
	return &PanicError{Value: v, Stack: stack}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("tinycoro: coroutine panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap returns the panic value if it was an error, so that a PanicError
// cooperates with [errors.Is] and [errors.As].
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
