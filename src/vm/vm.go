// Package vm implements the supplementary page table (SPT): one per
// process, it maps user virtual pages to page descriptors describing where
// their contents currently live — not yet loaded, resident in a frame,
// swapped out, or recoverable from a file — and drives demand-loading,
// lazy stack growth, and mmap bookkeeping. It is the Owner the frame table
// calls back into when it needs to evict one of this process's frames.
package vm

import (
	"fmt"
	"sync"

	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/fs"
	"github.com/tfdavids/pintos/src/frame"
	"github.com/tfdavids/pintos/src/mem"
	"github.com/tfdavids/pintos/src/pagedir"
	"github.com/tfdavids/pintos/src/process"
	"github.com/tfdavids/pintos/src/swap"
)

// Location names where a page descriptor's contents currently live.
type Location int

const (
	NotPresent Location = iota
	InFrame
	InSwap
	InFile
)

func (l Location) String() string {
	switch l {
	case NotPresent:
		return "not-present"
	case InFrame:
		return "in-frame"
	case InSwap:
		return "in-swap"
	case InFile:
		return "in-file"
	default:
		return "unknown"
	}
}

// Descriptor is one user page's entry in a process's SPT.
type Descriptor struct {
	Upage    uintptr
	Writable bool
	Pinned   bool
	Location Location

	Kpage    mem.Pa_t // valid iff Location == InFrame
	SwapSlot int       // valid iff Location == InSwap

	// File-backed fields. File == nil means this is an anonymous (zero-fill)
	// page; any location tag still applies (an anonymous page can be
	// InFrame, InSwap, or NotPresent before its first fault).
	File       fs.File
	FileOffset int
	FileBytes  int // bytes to read from File; the remainder of the page reads as zero
	Shared     bool
	Mapped     bool
	MappingID  int

	Stack bool // created by lazy stack growth
}

// AddressSpace is one process's supplementary page table plus the
// collaborators it needs to resolve faults: the shared frame table and swap
// manager, this process's hardware page directory, and the filesystem lock
// writeback of dirty file-backed pages must hold.
type AddressSpace struct {
	mu    sync.Mutex
	pages map[uintptr]*Descriptor

	Owner  *process.Process
	frames *frame.Table
	swap   *swap.Manager
	dir    *pagedir.Directory
	fsLock *fs.Lock

	StackBase  uintptr // highest address of the stack region (PHYS_BASE)
	StackLimit uintptr // lowest address the stack may lazily grow to
}

// New constructs an empty address space. stackBase is the highest stack
// address (PHYS_BASE in Pintos terms); stackLimit is the lowest absolute
// address the stack may lazily grow down to, and also the ceiling an mmap
// region must stay below (invariant 7).
func New(owner *process.Process, frames *frame.Table, sw *swap.Manager, dir *pagedir.Directory, fsLock *fs.Lock, stackBase, stackLimit uintptr) *AddressSpace {
	return &AddressSpace{
		pages:      make(map[uintptr]*Descriptor),
		Owner:      owner,
		frames:     frames,
		swap:       sw,
		dir:        dir,
		fsLock:     fsLock,
		StackBase:  stackBase,
		StackLimit: stackLimit,
	}
}

func pageAligned(v uintptr) bool { return v&uintptr(mem.PGOFFSET) == 0 }

// AddAnon installs a not-yet-loaded zero-fill page descriptor at upage.
func (as *AddressSpace) AddAnon(upage uintptr, writable bool) defs.Err_t {
	if !pageAligned(upage) {
		panic("vm: unaligned upage")
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	if _, ok := as.pages[upage]; ok {
		return defs.EINVAL
	}
	as.pages[upage] = &Descriptor{Upage: upage, Writable: writable}
	return 0
}

// AddFile installs a not-yet-loaded file-backed page descriptor at upage.
// fileBytes bytes are read from file at offset; the rest of the page reads
// as zero and is never written back. Only a shared, writable page writes
// its first fileBytes bytes back to file when dirty.
func (as *AddressSpace) AddFile(upage uintptr, file fs.File, offset, fileBytes int, writable, shared bool, mappingID int) defs.Err_t {
	if !pageAligned(upage) {
		panic("vm: unaligned upage")
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	if _, ok := as.pages[upage]; ok {
		return defs.EINVAL
	}
	as.pages[upage] = &Descriptor{
		Upage:      upage,
		Writable:   writable,
		File:       file,
		FileOffset: offset,
		FileBytes:  fileBytes,
		Shared:     shared,
		Mapped:     true,
		MappingID:  mappingID,
	}
	return 0
}

// Stat returns a value snapshot of upage's descriptor, for tests and
// invariant checks; mutating the result has no effect on the SPT.
func (as *AddressSpace) Stat(upage uintptr) (Descriptor, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	d, ok := as.pages[upage]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Len reports the number of descriptors currently tracked, used by the
// forced-exit cleanup invariant (an exited process's SPT must be empty).
func (as *AddressSpace) Len() int {
	as.mu.Lock()
	defer as.mu.Unlock()
	return len(as.pages)
}

// canGrowStack reports whether upage lies in the lazy stack growth window:
// within the stack region (above StackLimit, below StackBase), not already
// mapped, and reached by a plausible stack access at addr relative to esp —
// at or above esp, or no more than 32 bytes below it (the furthest a PUSHA
// can reach past the current stack pointer).
func (as *AddressSpace) canGrowStack(upage, addr, esp uintptr) bool {
	if upage <= as.StackLimit || upage >= as.StackBase {
		return false
	}
	if _, ok := as.pages[upage]; ok {
		return false
	}
	return addr+32 >= esp || addr >= esp
}

// ensurePinned is the shared body of Pin and HandleFault: look up upage,
// growing the stack if it is unknown but addr is a plausible stack access,
// then mark it pinned and demand-load it.
func (as *AddressSpace) ensurePinned(upage, addr, esp uintptr) defs.Err_t {
	as.mu.Lock()
	desc, ok := as.pages[upage]
	if !ok {
		if !as.canGrowStack(upage, addr, esp) {
			as.mu.Unlock()
			return defs.EFAULT
		}
		desc = &Descriptor{Upage: upage, Writable: true, Stack: true}
		as.pages[upage] = desc
	}
	desc.Pinned = true
	loc, kpage := desc.Location, desc.Kpage
	as.mu.Unlock()

	if loc == InFrame {
		as.frames.SetPinned(kpage, true)
		return 0
	}
	return as.ForceLoad(upage)
}

// HandleFault resolves a page fault at faultaddr with the user stack
// pointer esp (used only to evaluate the stack-growth window). It rounds
// faultaddr down to its page and resolves to exactly one of: a known
// descriptor (demand-loaded), an unknown address inside the stack growth
// window (grown then demand-loaded), or forced exit.
func (as *AddressSpace) HandleFault(faultaddr, esp uintptr) defs.Err_t {
	upage := faultaddr &^ uintptr(mem.PGOFFSET)
	return as.ensurePinned(upage, faultaddr, esp)
}

// Pin marks upage resident and pinned, demand-loading it first (and
// growing the stack if upage is an unmapped plausible stack access) if
// necessary. Used by the syscall gate's validate_ptr/range/string, which
// pin every page a syscall touches before copying to or from it.
func (as *AddressSpace) Pin(upage, esp uintptr) defs.Err_t {
	return as.ensurePinned(upage, upage, esp)
}

// Unpin clears the pinned flag for upage, a no-op if upage is unknown (the
// caller may be unwinding after a failed Pin partway through a range).
func (as *AddressSpace) Unpin(upage uintptr) {
	as.mu.Lock()
	desc, ok := as.pages[upage]
	if !ok {
		as.mu.Unlock()
		return
	}
	desc.Pinned = false
	loc := desc.Location
	kpage := desc.Kpage
	as.mu.Unlock()

	if loc == InFrame {
		as.frames.SetPinned(kpage, false)
	}
}

// ForceLoad brings upage's descriptor into a frame if it is not already
// there. The frame table lock is never held across this call, since
// obtaining a frame may evict another page of this very address space,
// which reenters through Evict.
func (as *AddressSpace) ForceLoad(upage uintptr) defs.Err_t {
	as.mu.Lock()
	desc, ok := as.pages[upage]
	if !ok {
		as.mu.Unlock()
		return defs.EFAULT
	}
	if desc.Location == InFrame {
		kpage, pinned := desc.Kpage, desc.Pinned
		as.mu.Unlock()
		as.frames.SetPinned(kpage, pinned)
		return 0
	}
	// snapshot: nothing else touches this descriptor concurrently (a single
	// process thread drives its own faults; concurrent Evict calls target
	// other upages), so it's safe to read these fields unlocked below.
	loc, slot, file, foff, fbytes, pinned := desc.Location, desc.SwapSlot, desc.File, desc.FileOffset, desc.FileBytes, desc.Pinned
	as.mu.Unlock()

	kpage := as.frames.Alloc(as, upage)
	buf := as.frames.Bytes(kpage)

	switch loc {
	case NotPresent:
		if file != nil {
			n, err := file.ReadAt(buf[:fbytes], foff)
			if err != 0 {
				as.frames.Free(kpage)
				return err
			}
			for i := n; i < fbytes; i++ {
				buf[i] = 0
			}
			for i := fbytes; i < len(buf); i++ {
				buf[i] = 0
			}
		}
		// anonymous pages: mem.Pool.Alloc already zero-fills fresh frames.
	case InSwap:
		if !as.swap.LoadPage(slot, buf) {
			as.frames.Free(kpage)
			return defs.EFAULT
		}
	case InFile:
		if file != nil {
			n, err := file.ReadAt(buf[:fbytes], foff)
			if err != 0 {
				as.frames.Free(kpage)
				return err
			}
			for i := n; i < len(buf); i++ {
				buf[i] = 0
			}
		}
	default:
		panic(fmt.Sprintf("vm: force-load from unexpected location %v", loc))
	}

	as.dir.Install(upage, kpage, desc.Writable)

	as.mu.Lock()
	desc.Location = InFrame
	desc.Kpage = kpage
	as.mu.Unlock()

	as.frames.SetPinned(kpage, pinned)
	return 0
}

// ReadBytes copies n bytes starting at uva, which must already be pinned
// resident (the syscall gate's contract). Used by READ/WRITE handlers that
// move data between user memory and a file descriptor.
func (as *AddressSpace) ReadBytes(uva uintptr, n int) ([]byte, defs.Err_t) {
	out := make([]byte, 0, n)
	for len(out) < n {
		upage := uva &^ uintptr(mem.PGOFFSET)
		off := int(uva & uintptr(mem.PGOFFSET))
		as.mu.Lock()
		desc, ok := as.pages[upage]
		if !ok || desc.Location != InFrame {
			as.mu.Unlock()
			return nil, defs.EFAULT
		}
		kpage := desc.Kpage
		as.mu.Unlock()
		buf := as.frames.Bytes(kpage)
		take := n - len(out)
		if take > len(buf)-off {
			take = len(buf) - off
		}
		out = append(out, buf[off:off+take]...)
		uva += uintptr(take)
	}
	return out, 0
}

// WriteBytes copies src into user memory starting at uva, which must
// already be pinned resident and writable.
func (as *AddressSpace) WriteBytes(uva uintptr, src []byte) defs.Err_t {
	written := 0
	for written < len(src) {
		cur := uva + uintptr(written)
		upage := cur &^ uintptr(mem.PGOFFSET)
		off := int(cur & uintptr(mem.PGOFFSET))
		as.mu.Lock()
		desc, ok := as.pages[upage]
		if !ok || desc.Location != InFrame || !desc.Writable {
			as.mu.Unlock()
			return defs.EFAULT
		}
		kpage := desc.Kpage
		as.mu.Unlock()
		buf := as.frames.Bytes(kpage)
		take := len(src) - written
		if take > len(buf)-off {
			take = len(buf) - off
		}
		copy(buf[off:off+take], src[written:written+take])
		as.dir.SetDirty(upage)
		written += take
	}
	return 0
}

// Free destroys upage's descriptor, writing back dirty shared file content
// and releasing its frame or swap slot.
func (as *AddressSpace) Free(upage uintptr) defs.Err_t {
	as.mu.Lock()
	desc, ok := as.pages[upage]
	if !ok {
		as.mu.Unlock()
		return defs.EINVAL
	}
	delete(as.pages, upage)
	loc, kpage, slot := desc.Location, desc.Kpage, desc.SwapSlot
	as.mu.Unlock()

	switch loc {
	case InFrame:
		as.writebackIfDirty(desc, upage)
		as.dir.Clear(upage)
		as.frames.Free(kpage)
	case InSwap:
		as.swap.Free(slot)
	}
	return 0
}

func (as *AddressSpace) writebackIfDirty(desc *Descriptor, upage uintptr) {
	if desc.File == nil || !desc.Shared || !desc.Writable {
		return
	}
	if !as.dir.Dirty(upage) {
		return
	}
	buf := as.frames.Bytes(desc.Kpage)
	as.fsLock.Lock()
	desc.File.WriteAt(buf[:desc.FileBytes], desc.FileOffset)
	as.fsLock.Unlock()
}

// FreeAll destroys every descriptor, releasing all frames and swap slots
// this process holds. Called on process exit (including forced exit).
func (as *AddressSpace) FreeAll() {
	as.mu.Lock()
	upages := make([]uintptr, 0, len(as.pages))
	for u := range as.pages {
		upages = append(upages, u)
	}
	as.mu.Unlock()
	for _, u := range upages {
		as.Free(u)
	}
}

// Munmap destroys every descriptor tagged with mappingID, writing back
// dirty file-backed pages. Returns defs.EINVAL if no descriptor carries
// that id.
func (as *AddressSpace) Munmap(mappingID int) defs.Err_t {
	as.mu.Lock()
	var upages []uintptr
	for u, d := range as.pages {
		if d.Mapped && d.MappingID == mappingID {
			upages = append(upages, u)
		}
	}
	as.mu.Unlock()
	if len(upages) == 0 {
		return defs.EINVAL
	}
	for _, u := range upages {
		as.Free(u)
	}
	return 0
}

// Accessed implements frame.Owner: it reports the hardware accessed bit,
// part of the clock sweep's second-chance test.
func (as *AddressSpace) Accessed(upage uintptr) bool {
	return as.dir.Accessed(upage)
}

// ClearAccessed implements frame.Owner.
func (as *AddressSpace) ClearAccessed(upage uintptr) {
	as.dir.ClearAccessed(upage)
}

// Evict implements frame.Owner: it writes back or swaps out frame's
// contents as appropriate, updates the descriptor's location, and clears
// the hardware mapping. Called by the frame table with its own lock held,
// never with as.mu held, so it is safe for it to take as.mu itself.
func (as *AddressSpace) Evict(upage uintptr, frameBytes []byte) error {
	as.mu.Lock()
	desc, ok := as.pages[upage]
	if !ok {
		as.mu.Unlock()
		return fmt.Errorf("vm: eviction of unknown upage %#x", upage)
	}
	as.mu.Unlock()

	if desc.File != nil {
		if desc.Shared && desc.Writable && as.dir.Dirty(upage) {
			as.fsLock.Lock()
			desc.File.WriteAt(frameBytes[:desc.FileBytes], desc.FileOffset)
			as.fsLock.Unlock()
		}
		as.mu.Lock()
		desc.Location = InFile
		desc.Kpage = 0
		as.mu.Unlock()
	} else {
		slot := as.swap.WritePage(frameBytes)
		as.mu.Lock()
		desc.Location = InSwap
		desc.SwapSlot = slot
		desc.Kpage = 0
		as.mu.Unlock()
	}
	as.dir.Clear(upage)
	return nil
}
