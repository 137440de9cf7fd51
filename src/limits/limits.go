// Package limits tracks system-wide resource budgets for the memory
// subsystem: how many user frames, swap slots, and mmap regions the kernel
// was configured with.
package limits

import (
	"sync/atomic"
	"unsafe"
)

// Sysatomic_t is a numeric budget that can be atomically taken from and
// given back, used for counters that many processes draw down concurrently.
type Sysatomic_t int64

func (s *Sysatomic_t) aptr() *int64 {
	return (*int64)(unsafe.Pointer(s))
}

// Given increases the budget by n.
func (s *Sysatomic_t) Given(n uint) {
	atomic.AddInt64(s.aptr(), int64(n))
}

// Taken tries to decrement the budget by n, returning false without effect
// if that would drive it negative.
func (s *Sysatomic_t) Taken(n uint) bool {
	if atomic.AddInt64(s.aptr(), -int64(n)) >= 0 {
		return true
	}
	atomic.AddInt64(s.aptr(), int64(n))
	return false
}

// Take decrements the budget by one.
func (s *Sysatomic_t) Take() bool { return s.Taken(1) }

// Give increments the budget by one.
func (s *Sysatomic_t) Give() { s.Given(1) }

// Value reads the current budget.
func (s *Sysatomic_t) Value() int64 {
	return atomic.LoadInt64(s.aptr())
}

// Syslimit_t holds the configured resource ceilings for one kernel instance.
type Syslimit_t struct {
	// UserFrames is the size of the kernel user pool, in pages.
	UserFrames int
	// SwapSlots is the number of page-sized slots on the swap device.
	SwapSlots int
	// MmapsPerProc caps the number of live mmap regions per process.
	MmapsPerProc Sysatomic_t
	// PinnedFrames caps how many frames may be pinned system-wide, so a
	// runaway syscall validating an enormous range cannot starve eviction.
	PinnedFrames Sysatomic_t
}

// Default returns a reasonable set of limits for a teaching kernel running
// under a simulator rather than real hardware.
func Default() *Syslimit_t {
	return &Syslimit_t{
		UserFrames:   256,
		SwapSlots:    512,
		MmapsPerProc: 128,
		PinnedFrames: 4096,
	}
}
