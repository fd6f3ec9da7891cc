package tinycoro

import (
	"os"
	"unsafe"

	"go.uber.org/multierr"
)

// DefaultStackSize is the stack size used when a [Config] or a Spawn call
// does not specify one.
const DefaultStackSize = 512 * 1024

// A Stack is an exclusively owned, page-aligned memory region serving as
// a coroutine's stack reservation.
//
// A Stack is produced by an [Allocator] and must be returned to the same
// Allocator exactly once, only after the owning coroutine is terminal.
// The zero Stack is invalid.
type Stack struct {
	mem []byte // usable region, page-aligned
	raw []byte // full allocation, including alignment slack or a guard page
}

// Bytes returns the usable region.
func (s Stack) Bytes() []byte { return s.mem }

// Size returns the size of the usable region in bytes.
func (s Stack) Size() int { return len(s.mem) }

func (s Stack) valid() bool { return s.mem != nil }

// An Allocator hands out aligned stack regions and takes them back.
//
// Acquire returns a region of at least size bytes, aligned to the platform
// page size and rounded up to a whole number of pages, or an error wrapping
// [ErrOutOfMemory] if the backing store cannot satisfy the request.
//
// Release must be called at most once per Stack, and only after the owning
// coroutine is no longer running.
type Allocator interface {
	Acquire(size int) (Stack, error)
	Release(s Stack) error
}

// pageCeil rounds size up to the next multiple of the platform page size.
func pageCeil(size int) int {
	page := os.Getpagesize()
	return (size + page - 1) / page * page
}

// NewHeapAllocator returns an [Allocator] backed by the Go heap.
// Regions are over-allocated and sliced to page alignment.
func NewHeapAllocator() Allocator { return heapAllocator{} }

type heapAllocator struct{}

func (heapAllocator) Acquire(size int) (Stack, error) {
	if size <= 0 {
		return Stack{}, violationf("stack size must be positive, got %d", size)
	}
	size = pageCeil(size)
	page := os.Getpagesize()
	raw := make([]byte, size+page)
	off := 0
	if r := int(uintptr(unsafe.Pointer(&raw[0])) % uintptr(page)); r != 0 {
		off = page - r
	}
	return Stack{mem: raw[off : off+size], raw: raw}, nil
}

func (heapAllocator) Release(s Stack) error {
	if !s.valid() {
		return ErrInvalidHandle
	}
	return nil
}

// A PooledAllocator caches released stacks of one configured size and
// reuses them for subsequent acquires, amortizing the cost of the base
// allocator. Requests of any other size pass through. The configured size
// is rounded up to a whole number of pages, matching what allocators hand
// out, so that requests for the same rounded size hit the pool.
//
// Pooling is a policy choice. Acquire/release balancing against the base
// allocator is preserved: Close returns every cached stack.
type PooledAllocator struct {
	base Allocator
	size int
	pool chan Stack
}

// NewPooledAllocator wraps base with a free list of up to capacity stacks
// of stackSize bytes.
func NewPooledAllocator(base Allocator, stackSize, capacity int) *PooledAllocator {
	if stackSize <= 0 {
		panic("tinycoro(PooledAllocator): stack size must be positive")
	}
	if capacity < 0 {
		panic("tinycoro(PooledAllocator): negative capacity")
	}
	return &PooledAllocator{
		base: base,
		size: pageCeil(stackSize),
		pool: make(chan Stack, capacity),
	}
}

func (p *PooledAllocator) Acquire(size int) (Stack, error) {
	if size <= 0 || pageCeil(size) != p.size {
		return p.base.Acquire(size)
	}
	select {
	case s := <-p.pool:
		return s, nil
	default:
		return p.base.Acquire(size)
	}
}

func (p *PooledAllocator) Release(s Stack) error {
	if !s.valid() {
		return ErrInvalidHandle
	}
	if s.Size() != p.size {
		return p.base.Release(s)
	}
	select {
	case p.pool <- s:
		return nil
	default:
		return p.base.Release(s)
	}
}

// Close returns all cached stacks to the base allocator, aggregating any
// release errors.
func (p *PooledAllocator) Close() error {
	var err error
	for {
		select {
		case s := <-p.pool:
			err = multierr.Append(err, p.base.Release(s))
		default:
			return err
		}
	}
}
