package tinycoro

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// An ID is a stable, generation-tagged handle to a coroutine, unique for
// the lifetime of its scheduler. The zero ID is invalid.
type ID struct {
	index uint32
	gen   uint32
}

// Valid reports whether id was ever issued by a scheduler.
// It does not report whether the coroutine is still live.
func (id ID) Valid() bool { return id.gen != 0 }

func (id ID) String() string {
	return fmt.Sprintf("coroutine-%d.%d", id.index, id.gen)
}

// Status is the lifecycle state of a coroutine.
// At most one coroutine per scheduler is Running at any instant.
type Status uint8

const (
	// StatusReady means the coroutine is in the run-queue, eligible to run.
	StatusReady Status = iota
	// StatusRunning means the coroutine is currently executing.
	StatusRunning
	// StatusSuspended means the coroutine yielded or blocked and is waiting
	// to be resumed.
	StatusSuspended
	// StatusFinished means the entry function returned normally.
	StatusFinished
	// StatusFailed means the entry function returned an error, panicked,
	// or exited via runtime.Goexit.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusRunning:
		return "Running"
	case StatusSuspended:
		return "Suspended"
	case StatusFinished:
		return "Finished"
	case StatusFailed:
		return "Failed"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Terminal reports whether s is Finished or Failed.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// An Entry is the function a coroutine runs once.
//
// The returned value is retrievable through [Scheduler.Join] after the
// coroutine finishes. A non-nil error, a panic, or a runtime.Goexit marks
// the coroutine Failed; the failure is likewise retrievable through Join
// and never disturbs other coroutines.
type Entry func(co *Coroutine) (any, error)

// A Coroutine is a cooperatively scheduled unit of execution with its own
// stack reservation and execution context. It runs until it yields, blocks
// on a [Channel] or [Signal], or returns.
//
// A Coroutine value is passed to the [Entry] function and is only
// meaningful inside it; the handle for outside use is the [ID].
type Coroutine struct {
	id     ID
	s      *Scheduler
	status Status
	stack  Stack
	ctx    *ExecContext
	entry  Entry

	// transfer holds the value most recently passed across the scheduling
	// boundary, in either direction.
	transfer any

	// blocked distinguishes a channel wait from a voluntary yield.
	// Blocked coroutines stay out of the run-queue until woken.
	blocked bool

	// waitSeq identifies the current blocking wait; every wake advances
	// it. Waiter lists record the sequence at enqueue time so that an
	// entry left behind by an out-of-band wake cannot complete a later,
	// unrelated wait.
	waitSeq uint64

	started bool
	result  outcome
}

type outcome struct {
	value any
	err   error
}

// ID returns the coroutine's handle.
func (co *Coroutine) ID() ID { return co.id }

// Status returns the coroutine's current status.
func (co *Coroutine) Status() Status { return co.status }

// Stack returns the coroutine's stack reservation as a byte slice.
// The region is exclusively owned by this coroutine until it terminates.
func (co *Coroutine) Stack() []byte { return co.stack.Bytes() }

// Yield suspends the coroutine, placing it at the tail of the run-queue,
// and transfers control back to the scheduler. Execution resumes exactly
// after this call the next time the coroutine is dispatched.
//
// The value v is delivered to whoever resumes the coroutine; a plain
// round-robin re-dispatch discards it. Yield returns the resumer's value,
// or nil when resumed by the run-queue.
//
// Yield may only be called from within the running coroutine's own code;
// any other caller panics with an error wrapping [ErrViolation], which the
// offending coroutine's trampoline captures as a failure.
func (co *Coroutine) Yield(v any) any {
	s := co.s
	if s.current != co || co.status != StatusRunning {
		panic(violationf("Yield called outside the running coroutine"))
	}
	co.transfer = v
	co.status = StatusSuspended
	co.blocked = false
	s.swapOut(co)
	return co.transfer
}

// block suspends the coroutine without queueing it. Control returns here
// when something wakes the coroutine; the woken value is returned.
func (co *Coroutine) block() any {
	s := co.s
	if s.current != co || co.status != StatusRunning {
		panic(violationf("wait called outside the running coroutine"))
	}
	co.status = StatusSuspended
	co.blocked = true
	s.swapOut(co)
	return co.transfer
}

// trampoline is the fixed entry routine a fresh context starts in.
// It runs the user entry once, records the terminal state, and restores
// the scheduler's context.
func (co *Coroutine) trampoline() {
	s := co.s
	completed := false
	var value any
	var err error
	defer func() {
		if !completed {
			if r := recover(); r != nil {
				err = newPanicError(r, debug.Stack())
			} else {
				err = violationf("coroutine terminated by runtime.Goexit")
			}
		}
		if err != nil {
			// A failed entry's partial return value is not a result.
			co.status = StatusFailed
			value = nil
		} else {
			co.status = StatusFinished
		}
		co.result = outcome{value: value, err: err}
		if e := s.backend.Restore(s.main); e != nil {
			// Nothing left to unwind here; the scheduler cannot be resumed.
			s.logger.Error("restore of scheduler context failed",
				zap.Stringer("id", co.id), zap.Error(e))
		}
	}()
	value, err = co.entry(co)
	completed = true
}
