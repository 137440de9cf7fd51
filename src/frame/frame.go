// Package frame is the process-wide registry of physical user frames: it
// allocates frames from the kernel user pool and, once that pool is
// exhausted, picks a victim with a clock (second-chance) sweep and evicts
// it. The table never stores a pointer into a process's supplementary page
// table — only an Owner handle and the victim's user page address — so the
// frame table and each process's SPT can be implemented without a reference
// cycle between them (Design Notes, "pointer graphs").
package frame

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/tfdavids/pintos/src/hashtable"
	"github.com/tfdavids/pintos/src/mem"
	"github.com/tfdavids/pintos/src/oommsg"
	"github.com/tfdavids/pintos/src/stats"
)

// Owner is implemented by a process's supplementary page table. The frame
// table calls back into it to query the hardware accessed bit during the
// clock sweep and to perform the actual eviction once a victim is chosen.
type Owner interface {
	// Accessed reports the hardware accessed bit for upage.
	Accessed(upage uintptr) bool
	// ClearAccessed clears the hardware accessed bit for upage.
	ClearAccessed(upage uintptr)
	// Evict is called with the raw bytes of the frame about to be reused.
	// The implementation must write back or swap out the contents as
	// appropriate, update its page descriptor's location, and clear the
	// hardware mapping for upage. It must not call back into the frame
	// table (Table.mu is held across this call).
	Evict(upage uintptr, frame []byte) error
}

// Entry describes one frame currently backing a user page.
type Entry struct {
	Kpage   mem.Pa_t
	Upage   uintptr
	Owner   Owner
	Pinned  bool
}

// Table is the global frame table. One Table instance is shared by every
// process in the kernel; Owner implementations identify "their" entries by
// upage, never by storing frame-table internals.
type Table struct {
	mu    sync.Mutex
	pool  *mem.Pool
	order *list.List // insertion order; front = oldest (clock hand starts here)
	index *hashtable.Table

	Faults    stats.Counter_t
	Evictions stats.Counter_t
}

// NewTable constructs a frame table drawing frames from pool.
func NewTable(pool *mem.Pool) *Table {
	return &Table{pool: pool, order: list.New(), index: hashtable.New(64)}
}

// Len returns the number of frames currently tracked.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}

// Alloc obtains a physical frame for upage, evicting a victim if the pool is
// exhausted. The new entry starts unpinned; callers that must keep the page
// resident (demand-load on behalf of a pinned descriptor) call SetPinned
// immediately afterward.
func (t *Table) Alloc(owner Owner, upage uintptr) mem.Pa_t {
	t.mu.Lock()
	defer t.mu.Unlock()

	kpage, ok := t.pool.Alloc()
	if !ok {
		kpage = t.evictLocked()
	}
	e := &Entry{Kpage: kpage, Upage: upage, Owner: owner}
	el := t.order.PushBack(e)
	t.index.Set(int(kpage), el)
	t.Faults.Inc()
	return kpage
}

// evictLocked runs the clock/second-chance sweep and returns a frame ready
// for reuse. t.mu must already be held.
func (t *Table) evictLocked() mem.Pa_t {
	n := t.order.Len()
	for i := 0; i < 2*n+1; i++ {
		front := t.order.Front()
		if front == nil {
			break
		}
		e := front.Value.(*Entry)
		if e.Pinned {
			t.order.MoveToBack(front)
			continue
		}
		if e.Owner.Accessed(e.Upage) {
			e.Owner.ClearAccessed(e.Upage)
			t.order.MoveToBack(front)
			continue
		}

		t.order.Remove(front)
		t.index.Del(int(e.Kpage))
		frameBytes := t.pool.Bytes(e.Kpage)
		if err := e.Owner.Evict(e.Upage, frameBytes); err != nil {
			panic(fmt.Sprintf("frame: eviction of upage %#x failed: %v", e.Upage, err))
		}
		t.pool.Zero(e.Kpage)
		t.Evictions.Inc()
		return e.Kpage
	}
	oommsg.Notify(1)
	panic("frame: pinning exhaustion, no unpinned frame to evict")
}

// Free removes kpage's entry and returns the frame to the kernel pool.
func (t *Table) Free(kpage mem.Pa_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el := t.lookupLocked(kpage)
	t.order.Remove(el)
	t.index.Del(int(kpage))
	t.pool.Release(kpage, true)
}

// SetPinned toggles the eviction-exempt flag for kpage.
func (t *Table) SetPinned(kpage mem.Pa_t, pinned bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el := t.lookupLocked(kpage)
	el.Value.(*Entry).Pinned = pinned
}

// Bytes returns the raw backing storage for kpage, letting callers fill a
// freshly allocated frame's contents (zero, file read, or swap-in) and read
// a victim's contents during eviction writeback.
func (t *Table) Bytes(kpage mem.Pa_t) []byte {
	return t.pool.Bytes(kpage)
}

// Pinned reports the current pinned state of kpage.
func (t *Table) Pinned(kpage mem.Pa_t) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookupLocked(kpage).Value.(*Entry).Pinned
}

func (t *Table) lookupLocked(kpage mem.Pa_t) *list.Element {
	v, ok := t.index.Get(int(kpage))
	if !ok {
		panic(fmt.Sprintf("frame: unknown frame %#x", kpage))
	}
	return v.(*list.Element)
}
