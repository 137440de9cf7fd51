// Package swap manages the fixed-size pool of page-sized backing slots on
// the swap block device: a bitmap of occupied slots protected by a single
// lock, plus whole-page reads and writes against the device.
package swap

import (
	"fmt"
	"sync"

	"github.com/tfdavids/pintos/src/mem"
	"github.com/tfdavids/pintos/src/stats"
)

// SectorSize is the size of one block-device sector in bytes.
const SectorSize = 512

// SectorsPerPage is the number of device sectors one page occupies.
const SectorsPerPage = mem.PGSIZE / SectorSize

// Device abstracts the swap block device. The Manager's lock guards only its
// slot bitmap; device reads and writes run outside that lock, each on the
// sectors of a slot the calling Manager method has claimed or checked.
type Device interface {
	// Sectors reports the total sector count of the device.
	Sectors() int
	ReadSector(idx int, buf []byte)
	WriteSector(idx int, buf []byte)
}

// Manager hands out and reclaims swap slots and moves whole pages to and
// from the swap device. The slot count is fixed at construction time from
// the device's reported size, per Section 4.3 of the design.
type Manager struct {
	mu     sync.Mutex
	dev    Device
	nslots int
	used   []bool

	Writes stats.Counter_t
	Reads  stats.Counter_t
}

// New derives the slot count from the device's sector count and constructs
// an all-free bitmap.
func New(dev Device) *Manager {
	n := dev.Sectors() / SectorsPerPage
	if n <= 0 {
		panic("swap: device too small to hold a single page")
	}
	return &Manager{dev: dev, nslots: n, used: make([]bool, n)}
}

// Slots returns the total number of swap slots.
func (m *Manager) Slots() int {
	return m.nslots
}

// Used reports how many slots are currently occupied.
func (m *Manager) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.used {
		if b {
			n++
		}
	}
	return n
}

// WritePage scans the bitmap for a free slot, claims it, and writes page
// (exactly one page in length) to the device. It panics if swap is full —
// swap exhaustion is a system-capacity failure per the design's error taxa,
// not a recoverable condition.
func (m *Manager) WritePage(page []byte) int {
	if len(page) != mem.PGSIZE {
		panic("swap: page has wrong size")
	}
	m.mu.Lock()
	slot := -1
	for i, b := range m.used {
		if !b {
			m.used[i] = true
			slot = i
			break
		}
	}
	m.mu.Unlock()
	if slot == -1 {
		panic(fmt.Sprintf("swap: exhausted (%d slots all in use)", m.nslots))
	}

	base := slot * SectorsPerPage
	for s := 0; s < SectorsPerPage; s++ {
		m.dev.WriteSector(base+s, page[s*SectorSize:(s+1)*SectorSize])
	}
	m.Writes.Inc()
	return slot
}

// LoadPage reads slot into page and frees the slot. It returns false,
// leaving page untouched, iff slot is out of range or was not in use — the
// bitmap bit is cleared only after the read completes, so a concurrent
// LoadPage racing a reused slot never observes a torn read.
func (m *Manager) LoadPage(slot int, page []byte) bool {
	if len(page) != mem.PGSIZE {
		panic("swap: page has wrong size")
	}
	m.mu.Lock()
	if slot < 0 || slot >= m.nslots || !m.used[slot] {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	base := slot * SectorsPerPage
	for s := 0; s < SectorsPerPage; s++ {
		m.dev.ReadSector(base+s, page[s*SectorSize:(s+1)*SectorSize])
	}

	m.mu.Lock()
	m.used[slot] = false
	m.mu.Unlock()
	m.Reads.Inc()
	return true
}

// Free releases slot without reading it back, used when a page descriptor
// referencing a swapped-out page is destroyed directly (process exit,
// munmap) rather than demand-loaded.
func (m *Manager) Free(slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot < 0 || slot >= m.nslots || !m.used[slot] {
		panic("swap: freeing a slot that is not in use")
	}
	m.used[slot] = false
}
