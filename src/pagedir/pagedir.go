// Package pagedir stands in for the hardware page directory: install/clear
// of a user mapping, and query/clear of the accessed and dirty bits. On real
// hardware these bits are set by the MMU on every load/store; this
// simulation exposes SetAccessed/SetDirty so a test harness (or the
// simulator's fault-injection driver) can model a user instruction touching
// a page without actually executing one.
package pagedir

import (
	"sync"

	"github.com/tfdavids/pintos/src/mem"
)

type entry struct {
	kpage    mem.Pa_t
	writable bool
	accessed bool
	dirty    bool
}

// Directory is one process's page table: a map from user page number to the
// frame currently backing it, plus the bits the frame table's clock
// algorithm and the eviction writeback path consult.
type Directory struct {
	mu      sync.Mutex
	entries map[uintptr]*entry
}

// New returns an empty page directory.
func New() *Directory {
	return &Directory{entries: make(map[uintptr]*entry)}
}

// Install maps upage to kpage with the given writability. Both the accessed
// and dirty bits start clear, as they do after a hardware PTE install.
func (d *Directory) Install(upage uintptr, kpage mem.Pa_t, writable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[upage] = &entry{kpage: kpage, writable: writable}
}

// Clear removes the mapping for upage, if any.
func (d *Directory) Clear(upage uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, upage)
}

// Mapped reports whether upage currently has a hardware mapping and, if so,
// the frame it maps to.
func (d *Directory) Mapped(upage uintptr) (mem.Pa_t, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[upage]
	if !ok {
		return 0, false
	}
	return e.kpage, true
}

// Writable reports whether upage is mapped writable. False if unmapped.
func (d *Directory) Writable(upage uintptr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[upage]
	return ok && e.writable
}

// Accessed reports the hardware accessed bit for upage.
func (d *Directory) Accessed(upage uintptr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[upage]
	return ok && e.accessed
}

// ClearAccessed clears the accessed bit for upage, part of the clock
// algorithm's second-chance sweep.
func (d *Directory) ClearAccessed(upage uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[upage]; ok {
		e.accessed = false
	}
}

// Dirty reports the hardware dirty bit for upage.
func (d *Directory) Dirty(upage uintptr) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[upage]
	return ok && e.dirty
}

// ClearDirty clears the dirty bit for upage, done after a clean writeback.
func (d *Directory) ClearDirty(upage uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[upage]; ok {
		e.dirty = false
	}
}

// SetAccessed models a hardware load or store touching upage.
func (d *Directory) SetAccessed(upage uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[upage]; ok {
		e.accessed = true
	}
}

// SetDirty models a hardware store touching upage. It also sets accessed,
// since no store happens without a preceding access.
func (d *Directory) SetDirty(upage uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[upage]; ok {
		e.dirty = true
		e.accessed = true
	}
}
