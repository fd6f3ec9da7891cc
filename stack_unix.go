//go:build unix

package tinycoro

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// NewSystemAllocator returns the platform [Allocator].
//
// On unix it maps anonymous memory with an inaccessible guard page at the
// low end of each region, so a stack overflow faults instead of silently
// corrupting adjacent memory.
func NewSystemAllocator() Allocator { return mmapAllocator{} }

type mmapAllocator struct{}

func (mmapAllocator) Acquire(size int) (Stack, error) {
	if size <= 0 {
		return Stack{}, violationf("stack size must be positive, got %d", size)
	}
	page := unix.Getpagesize()
	n := pageCeil(size)
	total := n + page // one guard page below the stack

	raw, err := unix.Mmap(-1, 0, total,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return Stack{}, fmt.Errorf("%w: mmap of %d bytes: %v", ErrOutOfMemory, total, err)
		}
		return Stack{}, fmt.Errorf("tinycoro: mmap: %w", err)
	}
	if err := unix.Mprotect(raw[:page], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(raw)
		return Stack{}, fmt.Errorf("tinycoro: mprotect guard page: %w", err)
	}
	return Stack{mem: raw[page:total], raw: raw}, nil
}

func (mmapAllocator) Release(s Stack) error {
	if !s.valid() {
		return ErrInvalidHandle
	}
	return unix.Munmap(s.raw)
}
