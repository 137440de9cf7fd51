// Package kernelctx bundles the kernel-wide singletons the syscall gate and
// the virtual-memory layer need — the frame table, swap manager,
// filesystem, filesystem lock, console, and the process-control hooks — so
// they travel as one scoped value instead of as free-floating package
// globals (Design Notes, "global state").
package kernelctx

import (
	"github.com/tfdavids/pintos/src/console"
	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/fd"
	"github.com/tfdavids/pintos/src/frame"
	"github.com/tfdavids/pintos/src/fs"
	"github.com/tfdavids/pintos/src/pagedir"
	"github.com/tfdavids/pintos/src/process"
	"github.com/tfdavids/pintos/src/swap"
	"github.com/tfdavids/pintos/src/vm"
)

// Context is the kernel-wide state shared by every process: the resources
// process_execute/process_wait, the filesystem, and terminal I/O are
// external collaborators for (Design Notes item 2), wired up once at boot
// and handed to every syscall.
type Context struct {
	Frames  *frame.Table
	Swap    *swap.Manager
	FS      fs.Filesystem
	FSLock  *fs.Lock
	Console *console.Console

	StackBase  uintptr
	StackLimit uintptr

	// ProcessExecute and ProcessWait stand in for the external
	// process_execute/process_wait collaborator (Section 6). The kernel
	// simulator wires these to its own process table; a unit test that
	// never calls EXEC/WAIT may leave them nil.
	ProcessExecute func(cmd string) int
	ProcessWait    func(pid int) int

	// Shutdown stands in for shutdown_power_off.
	Shutdown func()
}

// New constructs a Context from its collaborators.
func New(frames *frame.Table, sw *swap.Manager, filesystem fs.Filesystem, con *console.Console, stackBase, stackLimit uintptr) *Context {
	return &Context{
		Frames:     frames,
		Swap:       sw,
		FS:         filesystem,
		FSLock:     &fs.Lock{},
		Console:    con,
		StackBase:  stackBase,
		StackLimit: stackLimit,
	}
}

// Proc bundles one process's narrow collaborator handles: its identity and
// exit status, its address space, and its file-descriptor table.
type Proc struct {
	*process.Process
	AS  *vm.AddressSpace
	Fds *fd.Table
}

// NewProc constructs a fresh process under ctx: a page directory, an empty
// address space wired to the shared frame table and swap manager, and a
// descriptor table with stdin/stdout installed.
func (ctx *Context) NewProc(pid defs.Pid_t) *Proc {
	dir := pagedir.New()
	as := vm.New(process.New(pid), ctx.Frames, ctx.Swap, dir, ctx.FSLock, ctx.StackBase, ctx.StackLimit)
	p := &Proc{
		Process: as.Owner,
		AS:      as,
		Fds:     fd.New(ctx.Console.Stdin(), ctx.Console.Stdout()),
	}
	return p
}

// ForceExit implements the cancellation contract (Section 5): release
// every resource the process holds and store the forced-exit status. Safe
// to call more than once; only the first call has effect (Process.Exit is
// idempotent).
func (p *Proc) ForceExit() {
	p.Fds.CloseAll()
	p.AS.FreeAll()
	p.Process.Exit(defs.ForcedExit)
}
