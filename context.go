package tinycoro

import "sync/atomic"

// An ExecContext is an opaque handle to a suspended point of execution.
//
// An ExecContext behaves like a parking slot: Swap parks the caller in one
// context and resumes another, and the classic "capture may return twice"
// behavior of getcontext-style primitives shows up here simply as Swap
// returning. A context may hold at most one pending resumption at a time;
// depositing a second one, or resuming a retired context, is detected and
// rejected rather than corrupting a suspended coroutine's state.
type ExecContext struct {
	resume  chan directive
	pending atomic.Bool
	retired atomic.Bool
}

type directive uint8

const (
	dirRun directive = iota
	dirDiscard
)

func newExecContext() *ExecContext {
	return &ExecContext{resume: make(chan directive, 1)}
}

// deposit hands a single resumption to whoever parks (or is parked) on c.
func (c *ExecContext) deposit(d directive) error {
	if c.retired.Load() {
		return violationf("resume of a retired execution context")
	}
	if !c.pending.CompareAndSwap(false, true) {
		return violationf("execution context resumed twice")
	}
	c.resume <- d
	return nil
}

// park blocks until a resumption is deposited.
func (c *ExecContext) park() directive {
	d := <-c.resume
	c.pending.Store(false)
	return d
}

func (c *ExecContext) retire() {
	c.retired.Store(true)
}

// A Backend supplies the execution-context primitives the scheduler is
// built on. It is injectable for testing; [NewGoroutineBackend] is the
// default.
//
// The contract mirrors the classic getcontext/makecontext/swapcontext/
// setcontext quartet, with disposal added because contexts that have never
// run still hold resources:
//
//   - Capture returns a context representing the caller's current point of
//     execution, suitable as the target of a later Swap or Restore.
//   - Initialize returns a context that, when first swapped into, executes
//     entry bound to the given stack. Entry must not return control by
//     ordinary means; it ends with a Restore.
//   - Swap parks the caller in from and transfers control to to. It does
//     not return until a later Swap or Restore targets from.
//   - Restore is a one-way transfer used at coroutine termination. After a
//     successful Restore the caller must not touch scheduler state again.
//   - Discard disposes of a context that has never been swapped into.
type Backend interface {
	Capture() (*ExecContext, error)
	Initialize(stack Stack, entry func()) (*ExecContext, error)
	Swap(from, to *ExecContext) error
	Restore(to *ExecContext) error
	Discard(ctx *ExecContext) error
}

// NewGoroutineBackend returns the default [Backend], which runs each
// coroutine on its own goroutine and transfers control with a strict
// one-token handoff, so that exactly one logical thread of the scheduling
// domain executes at any instant.
//
// The acquired stack region is not consumed by this backend (goroutines
// carry their own stacks); it remains the coroutine's private workspace,
// reachable via [Coroutine.Stack]. Backends that install machine contexts
// directly receive the region through the same contract.
func NewGoroutineBackend() Backend { return goroutineBackend{} }

type goroutineBackend struct{}

func (goroutineBackend) Capture() (*ExecContext, error) {
	return newExecContext(), nil
}

func (goroutineBackend) Initialize(stack Stack, entry func()) (*ExecContext, error) {
	if entry == nil {
		return nil, violationf("initialize with nil entry")
	}
	if !stack.valid() {
		return nil, violationf("initialize with invalid stack")
	}
	ctx := newExecContext()
	go func() {
		if ctx.park() == dirDiscard {
			return
		}
		entry()
	}()
	return ctx, nil
}

func (goroutineBackend) Swap(from, to *ExecContext) error {
	if from == nil || to == nil {
		return violationf("swap with nil context")
	}
	if err := to.deposit(dirRun); err != nil {
		return err
	}
	if from.park() == dirDiscard {
		return violationf("parked context discarded")
	}
	return nil
}

func (goroutineBackend) Restore(to *ExecContext) error {
	if to == nil {
		return violationf("restore of nil context")
	}
	return to.deposit(dirRun)
}

func (goroutineBackend) Discard(ctx *ExecContext) error {
	if ctx == nil {
		return violationf("discard of nil context")
	}
	if err := ctx.deposit(dirDiscard); err != nil {
		return err
	}
	ctx.retire()
	return nil
}
