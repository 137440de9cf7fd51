// Package mem is the lowest layer of the memory subsystem: a fixed-size pool
// of physical user frames. It knows nothing about processes, eviction, or
// swap — that bookkeeping belongs to package frame. mem only hands out and
// reclaims raw page-sized buffers, the kernel's "user pool".
package mem

import (
	"sync"

	"github.com/tfdavids/pintos/src/util"
)

// PGSHIFT is the base-2 exponent of the page size.
const PGSHIFT uint = 12

// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

// PGOFFSET masks the in-page offset of an address.
const PGOFFSET = PGSIZE - 1

// Pa_t is a physical user frame address: an opaque handle returned by the
// pool, not a raw pointer. It indexes into the pool's backing storage.
type Pa_t uintptr

// Page_t is the byte contents of a single physical frame.
type Page_t [PGSIZE]uint8

// badFrame marks an index that never denotes a valid allocation.
const badFrame Pa_t = ^Pa_t(0)

// Pool is a fixed-capacity freelist of physical user frames, mirroring the
// kernel's palloc_get_page(PAL_USER)/palloc_free_page pair. It is safe for
// concurrent use; the frame table is the only expected caller.
type Pool struct {
	mu    sync.Mutex
	pages []Page_t
	free  []bool // free[i] true means pages[i] is unallocated
	nfree int
}

// NewPool allocates a pool of n physical user frames.
func NewPool(n int) *Pool {
	if n <= 0 {
		panic("mem: empty pool")
	}
	p := &Pool{
		pages: make([]Page_t, n),
		free:  make([]bool, n),
		nfree: n,
	}
	for i := range p.free {
		p.free[i] = true
	}
	return p
}

// Capacity returns the total number of frames the pool was created with.
func (p *Pool) Capacity() int {
	return len(p.pages)
}

// Free reports the number of frames currently unallocated.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nfree
}

// Alloc obtains one frame from the pool, zeroed. It returns ok=false when the
// kernel user pool is exhausted; the frame table then evicts a victim and
// reuses its frame directly.
func (p *Pool) Alloc() (pa Pa_t, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, free := range p.free {
		if free {
			p.free[i] = false
			p.nfree--
			for j := range p.pages[i] {
				p.pages[i][j] = 0
			}
			return Pa_t(i), true
		}
	}
	return badFrame, false
}

// Release returns a frame to the pool. When poison is true the frame is
// filled with a poison byte rather than zeroed, so a stray use-after-free
// reads garbage instead of quietly succeeding.
func (p *Pool) Release(pa Pa_t, poison bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := int(pa)
	if i < 0 || i >= len(p.pages) || p.free[i] {
		panic("mem: double free or bad frame")
	}
	fill := uint8(0)
	if poison {
		fill = 0xcc
	}
	for j := range p.pages[i] {
		p.pages[i][j] = fill
	}
	p.free[i] = true
	p.nfree++
}

// Bytes returns the byte contents backing frame pa.
func (p *Pool) Bytes(pa Pa_t) []uint8 {
	i := int(pa)
	if i < 0 || i >= len(p.pages) {
		panic("mem: frame out of range")
	}
	return p.pages[i][:]
}

// Zero fills frame pa with zero bytes.
func (p *Pool) Zero(pa Pa_t) {
	b := p.Bytes(pa)
	for i := range b {
		b[i] = 0
	}
}

// Pageof rounds a byte length up to whole pages.
func Pageof(nbytes int) int {
	return util.Roundup(nbytes, PGSIZE) / PGSIZE
}

// Pagealigned reports whether v is a multiple of PGSIZE.
func Pagealigned[T util.Int](v T) bool {
	pgsize := PGSIZE
	return util.Rounddown(v, T(pgsize)) == v
}
