package tinycoro

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Policy selects the run-queue ordering.
type Policy uint8

// PolicyFIFO services coroutines in the order they became Ready.
// It is the only supported policy.
const PolicyFIFO Policy = iota

// Config configures a [Scheduler]. The zero value is usable: FIFO policy,
// [DefaultStackSize] stacks from the platform allocator, the goroutine
// backend, and no logging.
type Config struct {
	// DefaultStackSize is the stack size for Spawn calls that do not
	// specify one. Zero means DefaultStackSize.
	DefaultStackSize int

	// Policy selects the run-queue ordering. Only PolicyFIFO is supported.
	Policy Policy

	// Allocator supplies coroutine stacks. Nil means NewSystemAllocator().
	Allocator Allocator

	// Backend supplies the execution-context primitives.
	// Nil means NewGoroutineBackend().
	Backend Backend

	// Logger receives structured scheduling events at debug level.
	// Nil means zap.NewNop().
	Logger *zap.Logger
}

// A Scheduler multiplexes coroutines onto the thread that drives it,
// strictly cooperatively: a coroutine runs until it yields, blocks, or
// terminates, and the scheduler then dispatches the head of the FIFO
// run-queue.
//
// A Scheduler and everything spawned on it form one single-threaded
// scheduling domain. All methods must be driven from one goroutine (or
// from coroutine code running on its behalf); no locking is performed
// inside a domain. Independent Schedulers are themselves independent;
// to pass data between them, use a [Mailbox].
type Scheduler struct {
	stackSize int
	alloc     Allocator
	backend   Backend
	logger    *zap.Logger

	// main is the scheduler's own execution context, the one coroutines
	// yield back into.
	main *ExecContext

	runq    queue[ID]
	slots   []slot
	free    []uint32
	results map[ID]outcome

	// current is the one Running coroutine, or nil while the scheduler
	// itself is executing.
	current *Coroutine

	live   int
	closed bool
}

type slot struct {
	gen uint32
	co  *Coroutine
}

// New creates a Scheduler from cfg.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Policy != PolicyFIFO {
		return nil, fmt.Errorf("tinycoro: unsupported run-queue policy %d", cfg.Policy)
	}
	if cfg.DefaultStackSize < 0 {
		return nil, fmt.Errorf("tinycoro: negative default stack size %d", cfg.DefaultStackSize)
	}
	s := &Scheduler{
		stackSize: cfg.DefaultStackSize,
		alloc:     cfg.Allocator,
		backend:   cfg.Backend,
		logger:    cfg.Logger,
		results:   make(map[ID]outcome),
	}
	if s.stackSize == 0 {
		s.stackSize = DefaultStackSize
	}
	if s.alloc == nil {
		s.alloc = NewSystemAllocator()
	}
	if s.backend == nil {
		s.backend = NewGoroutineBackend()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	main, err := s.backend.Capture()
	if err != nil {
		return nil, err
	}
	s.main = main
	return s, nil
}

// Spawn creates a coroutine running entry with the default stack size and
// appends it to the run-queue tail. It does not run anything; call
// [Scheduler.RunUntilIdle].
func (s *Scheduler) Spawn(entry Entry) (ID, error) {
	return s.SpawnSized(entry, 0)
}

// SpawnSized is [Scheduler.Spawn] with an explicit stack size in bytes.
// A non-positive size means the scheduler default.
//
// An allocation failure surfaces here, wrapping [ErrOutOfMemory]; the
// scheduler remains usable.
func (s *Scheduler) SpawnSized(entry Entry, stackSize int) (ID, error) {
	if s.closed {
		return ID{}, violationf("spawn on a closed scheduler")
	}
	if entry == nil {
		return ID{}, violationf("spawn with nil entry")
	}
	if stackSize <= 0 {
		stackSize = s.stackSize
	}
	stack, err := s.alloc.Acquire(stackSize)
	if err != nil {
		return ID{}, err
	}
	co := &Coroutine{s: s, status: StatusReady, stack: stack, entry: entry}
	ctx, err := s.backend.Initialize(stack, co.trampoline)
	if err != nil {
		if rerr := s.alloc.Release(stack); rerr != nil {
			s.logger.Error("stack release failed", zap.Error(rerr))
		}
		return ID{}, err
	}
	co.ctx = ctx
	co.id = s.register(co)
	s.live++
	s.runq.Push(co.id)
	s.logger.Debug("coroutine spawned",
		zap.Stringer("id", co.id), zap.Int("stackSize", stack.Size()))
	return co.id, nil
}

// RunUntilIdle pops and dispatches run-queue heads until the queue is
// empty. Coroutines that yield are re-appended to the tail; coroutines
// that block stay out of the queue until woken; coroutines that terminate
// are cleaned up and their stacks released.
//
// RunUntilIdle never fails on behalf of a coroutine: entry failures are
// only visible through [Scheduler.Join]. It returns an error wrapping
// [ErrViolation] only when called from inside a coroutine or after Close.
func (s *Scheduler) RunUntilIdle() error {
	if s.current != nil {
		return violationf("RunUntilIdle called from inside a coroutine")
	}
	if s.closed {
		return violationf("RunUntilIdle on a closed scheduler")
	}
	for !s.runq.Empty() {
		id := s.runq.Pop()
		co, ok := s.lookup(id)
		if !ok || co.status != StatusReady {
			// Stale queue entry; the coroutine was discarded.
			continue
		}
		s.dispatch(co)
	}
	return nil
}

// dispatch swaps into co and classifies the state it comes back in.
// This is the only place the scheduler swaps into a coroutine.
func (s *Scheduler) dispatch(co *Coroutine) {
	co.status = StatusRunning
	co.started = true
	s.current = co
	err := s.backend.Swap(s.main, co.ctx)
	s.current = nil
	if err != nil {
		// The context machinery refused the swap; the coroutine never ran.
		co.status = StatusFailed
		co.result = outcome{err: err}
		if derr := s.backend.Discard(co.ctx); derr != nil {
			s.logger.Error("context discard failed",
				zap.Stringer("id", co.id), zap.Error(derr))
		}
		s.cleanup(co)
		return
	}
	switch co.status {
	case StatusSuspended:
		if !co.blocked {
			co.status = StatusReady
			co.transfer = nil
			s.runq.Push(co.id)
		}
	case StatusFinished, StatusFailed:
		s.cleanup(co)
	default:
		s.logger.Error("coroutine returned control in unexpected state",
			zap.Stringer("id", co.id), zap.Stringer("status", co.status))
	}
}

// swapOut transfers control from co back to the scheduler.
func (s *Scheduler) swapOut(co *Coroutine) {
	if err := s.backend.Swap(co.ctx, s.main); err != nil {
		panic(err)
	}
}

// wake moves a blocked coroutine to Ready with a transferred value and
// queues it. Wakes are serviced in the order they happen.
func (s *Scheduler) wake(co *Coroutine, v any) {
	co.waitSeq++
	co.transfer = v
	co.blocked = false
	co.status = StatusReady
	s.runq.Push(co.id)
	s.logger.Debug("coroutine woken", zap.Stringer("id", co.id))
}

// wakeIfBlocked wakes id only if it is still suspended in the blocking
// wait identified by seq. Waiter lists may hold stale entries for
// coroutines already woken through another path — [Scheduler.Resume],
// or a different channel — and possibly blocked again since; the
// sequence check rejects those, and they report false and are skipped.
func (s *Scheduler) wakeIfBlocked(id ID, seq uint64, v any) bool {
	co, ok := s.lookup(id)
	if !ok || co.status != StatusSuspended || !co.blocked || co.waitSeq != seq {
		return false
	}
	s.wake(co, v)
	return true
}

// Resume wakes a coroutine that is blocked on a [Channel], [Signal] or
// similar wait, passing it v, and schedules it.
//
// An unknown or already-cleaned-up id fails with [ErrInvalidHandle]. A
// coroutine that is not blocked — Ready, Running, or merely yielded and
// already queued — fails with [ErrViolation]; waking it again could only
// corrupt its suspended state.
func (s *Scheduler) Resume(id ID, v any) error {
	co, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidHandle, id)
	}
	if co.status != StatusSuspended || !co.blocked {
		return violationf("resume of %v in state %v", id, co.status)
	}
	s.wake(co, v)
	return nil
}

// Status returns the status of id. Terminal statuses remain queryable
// after cleanup, until the scheduler is closed.
func (s *Scheduler) Status(id ID) (Status, error) {
	if co, ok := s.lookup(id); ok {
		return co.status, nil
	}
	if out, ok := s.results[id]; ok {
		if out.err != nil {
			return StatusFailed, nil
		}
		return StatusFinished, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrInvalidHandle, id)
}

// Join returns the coroutine's result once it is terminal: the entry's
// return value after Finished, or the captured failure after Failed.
//
// Joining a live coroutine fails with [ErrNotTerminated]; an unknown or
// discarded id fails with [ErrInvalidHandle]. Join is idempotent.
func (s *Scheduler) Join(id ID) (any, error) {
	if out, ok := s.results[id]; ok {
		return out.value, out.err
	}
	if _, ok := s.lookup(id); ok {
		return nil, fmt.Errorf("%w: %v", ErrNotTerminated, id)
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, id)
}

// Discard tears down a coroutine that has never run: its entry is not
// executed, its stack is released, and its id becomes invalid.
//
// Only a never-started Ready coroutine may be discarded. Discarding a
// Running or Suspended coroutine would destroy a stack that might still
// be resumed, so it fails with [ErrViolation].
func (s *Scheduler) Discard(id ID) error {
	co, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidHandle, id)
	}
	if co.started || co.status != StatusReady {
		return violationf("discard of %v in state %v", id, co.status)
	}
	if err := s.backend.Discard(co.ctx); err != nil {
		return err
	}
	if err := s.alloc.Release(co.stack); err != nil {
		s.logger.Error("stack release failed",
			zap.Stringer("id", id), zap.Error(err))
	}
	co.stack = Stack{}
	s.unregister(id)
	s.live--
	s.logger.Debug("coroutine discarded", zap.Stringer("id", id))
	return nil
}

// cleanup releases a terminal coroutine's resources and records its
// result for Join. The stack is released exactly once, here.
func (s *Scheduler) cleanup(co *Coroutine) {
	co.ctx.retire()
	s.results[co.id] = co.result
	if err := s.alloc.Release(co.stack); err != nil {
		s.logger.Error("stack release failed",
			zap.Stringer("id", co.id), zap.Error(err))
	}
	co.stack = Stack{}
	s.unregister(co.id)
	s.live--
	s.logger.Debug("coroutine terminal",
		zap.Stringer("id", co.id), zap.Stringer("status", co.status))
}

// Close tears down the scheduler. It fails with [ErrViolation] while any
// coroutine is live: a live coroutine's stack must never be reclaimed out
// from under it. Pooled allocator caches are drained; release errors are
// aggregated.
func (s *Scheduler) Close() error {
	if s.current != nil {
		return violationf("Close called from inside a coroutine")
	}
	if s.live != 0 {
		return violationf("Close with %d live coroutines", s.live)
	}
	if s.closed {
		return nil
	}
	s.closed = true
	s.main.retire()
	s.results = nil
	var err error
	if c, ok := s.alloc.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func (s *Scheduler) register(co *Coroutine) ID {
	if n := len(s.free); n > 0 {
		i := s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[i].gen++
		s.slots[i].co = co
		return ID{index: i, gen: s.slots[i].gen}
	}
	s.slots = append(s.slots, slot{gen: 1, co: co})
	return ID{index: uint32(len(s.slots) - 1), gen: 1}
}

func (s *Scheduler) unregister(id ID) {
	s.slots[id.index].co = nil
	s.free = append(s.free, id.index)
}

func (s *Scheduler) lookup(id ID) (*Coroutine, bool) {
	if int(id.index) >= len(s.slots) {
		return nil, false
	}
	sl := s.slots[id.index]
	if sl.co == nil || sl.gen != id.gen {
		return nil, false
	}
	return sl.co, true
}
