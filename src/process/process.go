// Package process is the narrow handle the memory subsystem and syscall gate
// hold for "the current process": identity, exit status, and the CPU-time
// accounting reported to a waiting parent. Process loading, scheduling, and
// the actual exec/wait implementation are external collaborators (Design
// Notes) — this package only carries what they need to hand back to a
// parent, plus the accounting bookkeeping a real scheduler would drive.
package process

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tfdavids/pintos/src/defs"
)

// Accnt accumulates per-process CPU-time accounting. Userns and Sysns are
// nanosecond counters updated by the scheduler (external); Add merges a
// child's final accounting into its parent on reap.
type Accnt struct {
	Userns int64
	Sysns  int64
	mu     sync.Mutex
}

// Utadd adds delta to the user-time counter.
func (a *Accnt) Utadd(delta time.Duration) {
	atomic.AddInt64(&a.Userns, int64(delta))
}

// Sysadd adds delta to the system-time counter.
func (a *Accnt) Sysadd(delta time.Duration) {
	atomic.AddInt64(&a.Sysns, int64(delta))
}

// Add merges n's counters into a, taking a's lock so concurrent readers of
// a's snapshot never observe a torn update.
func (a *Accnt) Add(n *Accnt) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Userns += atomic.LoadInt64(&n.Userns)
	a.Sysns += atomic.LoadInt64(&n.Sysns)
}

// Snapshot returns a consistent copy of the two counters.
func (a *Accnt) Snapshot() (userns, sysns int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Userns, a.Sysns
}

// Process is one user process: its pid, its exit status once EXIT has run,
// and the resources the virtual-memory layer owns on its behalf. A real
// kernel's process_execute/process_wait machinery builds and reaps these;
// here they are constructed directly by tests and by the kernel-context
// simulator.
type Process struct {
	Pid Pid_t

	mu     sync.Mutex
	exited bool
	status int
	done   chan struct{}

	Accnt     Accnt
	nextMapid int32
}

// Pid_t identifies a process; re-exported so callers need not import defs
// just to name a pid.
type Pid_t = defs.Pid_t

// New returns a fresh, not-yet-exited process handle for pid.
func New(pid Pid_t) *Process {
	return &Process{Pid: pid, done: make(chan struct{})}
}

// Exit records status and wakes any Wait call. Idempotent: a thread exits
// exactly once, so the second and later calls are no-ops, matching
// EXIT(status) storing the status where the waiting parent can observe it.
func (p *Process) Exit(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return
	}
	p.exited = true
	p.status = status
	close(p.done)
}

// Wait blocks until the process has exited and returns its status.
func (p *Process) Wait() int {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// ExitStatus reports the stored status and whether Exit has run yet, without
// blocking.
func (p *Process) ExitStatus() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.exited
}

// NextMapid allocates the next mapping id for this process's mmap calls.
// mmap's contract returns the mapping's starting address as the id in a real
// kernel; the simulator (which has no hardware address space) instead hands
// out a small dense id so tests can name mappings without caring about
// addresses.
func (p *Process) NextMapid() int {
	return int(atomic.AddInt32(&p.nextMapid, 1))
}
