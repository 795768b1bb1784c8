// Package memory implements the fixed-capacity slab allocator the rest of
// the engine relies on for address-stable price levels and order-queue
// chunks.
package memory

import (
	"fmt"
	"unsafe"
)

const freeListEnd = -1

// Pool is a fixed-capacity slab allocator for T. It hands out pointers
// into a single pre-sized backing slice that never grows or moves after
// construction, so every pointer it returns stays valid until explicitly
// freed. Unlike sync.Pool, it never drops an entry behind the caller's
// back and it fails hard — by panicking — when exhausted, matching the
// "capacities are sized from domain maxima" contract the engine is built
// on.
type Pool[T any] struct {
	slab     []T
	next     []int32 // free-list link per slot; freeListEnd terminates
	isFree   []bool
	freeHead int32
	freeLen  int
}

// NewPool materializes capacity zero-valued T slots and an embedded
// free-list over them.
func NewPool[T any](capacity int) *Pool[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("memory: pool capacity must be positive, got %d", capacity))
	}
	p := &Pool[T]{
		slab:   make([]T, capacity),
		next:   make([]int32, capacity),
		isFree: make([]bool, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.next[i] = int32(i + 1)
		p.isFree[i] = true
	}
	p.next[capacity-1] = freeListEnd
	p.freeHead = 0
	p.freeLen = capacity
	return p
}

// Cap returns the pool's fixed capacity.
func (p *Pool[T]) Cap() int { return len(p.slab) }

// Len returns the number of slots currently allocated.
func (p *Pool[T]) Len() int { return len(p.slab) - p.freeLen }

// Alloc pops the free-list head, resets it to T's zero value and returns
// a stable pointer into the slab. Panics if the pool is exhausted.
func (p *Pool[T]) Alloc() *T {
	if p.freeLen == 0 {
		panic(fmt.Sprintf("memory: pool exhausted (capacity %d)", len(p.slab)))
	}
	idx := p.freeHead
	p.freeHead = p.next[idx]
	p.freeLen--
	p.isFree[idx] = false
	var zero T
	p.slab[idx] = zero
	return &p.slab[idx]
}

// Free returns ptr's slot to the free-list. ptr must have been returned by
// Alloc on this pool and not already freed; violating either panics, since
// both are configuration/protocol errors rather than recoverable ones.
func (p *Pool[T]) Free(ptr *T) {
	idx := p.indexOf(ptr)
	if p.isFree[idx] {
		panic(fmt.Sprintf("memory: double free of pool slot %d", idx))
	}
	p.isFree[idx] = true
	p.next[idx] = p.freeHead
	p.freeHead = int32(idx)
	p.freeLen++
}

// indexOf recovers ptr's slot index via pointer arithmetic against the
// slab's base address, the same technique the original slab allocator
// uses (computing the block index by subtracting the base pointer).
func (p *Pool[T]) indexOf(ptr *T) int32 {
	base := unsafe.Pointer(&p.slab[0])
	var zero T
	size := unsafe.Sizeof(zero)
	off := uintptr(unsafe.Pointer(ptr)) - uintptr(base)
	idx := off / size
	if off%size != 0 || idx >= uintptr(len(p.slab)) {
		panic("memory: Free called with a pointer that does not belong to this pool")
	}
	return int32(idx)
}
