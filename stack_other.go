//go:build !unix

package tinycoro

// NewSystemAllocator returns the platform [Allocator].
//
// On platforms without anonymous memory mapping it falls back to
// page-aligned heap allocation.
func NewSystemAllocator() Allocator { return heapAllocator{} }
