// Package syscall is the syscall gate: it decodes a trap's arguments,
// validates and pins every user pointer the call touches, dispatches to a
// typed handler, and unpins on the way out. Unknown or unimplemented
// syscall numbers, and every user-induced fault the handlers detect,
// terminate the process with status -1 (Section 7, taxon 1).
package syscall

import (
	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/fd"
	"github.com/tfdavids/pintos/src/fs"
	"github.com/tfdavids/pintos/src/kernelctx"
	"github.com/tfdavids/pintos/src/mem"
)

// Gate dispatches decoded syscalls against a shared kernel context.
type Gate struct {
	ctx *kernelctx.Context
}

// New returns a gate bound to ctx.
func New(ctx *kernelctx.Context) *Gate {
	return &Gate{ctx: ctx}
}

// Args holds a syscall's up-to-three 32-bit arguments.
type Args [3]int

// result is a handler's outcome: either a value to return to the user, or
// a fatal flag meaning the process must be forced to exit with status -1.
type result struct {
	value int
	fatal bool
}

func ok(v int) result { return result{value: v} }
func fatal() result   { return result{fatal: true} }

// Syscall decodes and runs syscall number num with args, on behalf of proc,
// whose trap frame reports user stack pointer esp. It returns the value to
// place in the caller-visible accumulator register.
func (g *Gate) Syscall(proc *kernelctx.Proc, num int, args Args, esp uintptr) int {
	if num < 0 || num >= len(defs.SyscallArgCounts) {
		proc.ForceExit()
		return defs.ForcedExit
	}
	switch num {
	case defs.SYS_CHDIR, defs.SYS_MKDIR, defs.SYS_READDIR, defs.SYS_ISDIR, defs.SYS_INUMBER:
		proc.ForceExit()
		return defs.ForcedExit
	}

	c := &callCtx{proc: proc, ctx: g.ctx, esp: esp}
	r := g.dispatch(c, num, args)
	c.unpinAll()
	if r.fatal {
		proc.ForceExit()
		return defs.ForcedExit
	}
	return r.value
}

func (g *Gate) dispatch(c *callCtx, num int, args Args) result {
	switch num {
	case defs.SYS_HALT:
		return g.sysHalt(c, args)
	case defs.SYS_EXIT:
		return g.sysExit(c, args)
	case defs.SYS_EXEC:
		return g.sysExec(c, args)
	case defs.SYS_WAIT:
		return g.sysWait(c, args)
	case defs.SYS_CREATE:
		return g.sysCreate(c, args)
	case defs.SYS_REMOVE:
		return g.sysRemove(c, args)
	case defs.SYS_OPEN:
		return g.sysOpen(c, args)
	case defs.SYS_FILESIZE:
		return g.sysFilesize(c, args)
	case defs.SYS_READ:
		return g.sysRead(c, args)
	case defs.SYS_WRITE:
		return g.sysWrite(c, args)
	case defs.SYS_SEEK:
		return g.sysSeek(c, args)
	case defs.SYS_TELL:
		return g.sysTell(c, args)
	case defs.SYS_CLOSE:
		return g.sysClose(c, args)
	case defs.SYS_MMAP:
		return g.sysMmap(c, args)
	case defs.SYS_MUNMAP:
		return g.sysMunmap(c, args)
	default:
		return fatal()
	}
}

func (g *Gate) sysHalt(c *callCtx, args Args) result {
	if g.ctx.Shutdown != nil {
		g.ctx.Shutdown()
	}
	return ok(0)
}

func (g *Gate) sysExit(c *callCtx, args Args) result {
	status := args[0]
	c.proc.Fds.CloseAll()
	c.proc.AS.FreeAll()
	c.proc.Process.Exit(status)
	return ok(status)
}

func (g *Gate) sysExec(c *callCtx, args Args) result {
	cmd, err := c.validateString(uintptr(args[0]))
	if err != 0 {
		return fatal()
	}
	if g.ctx.ProcessExecute == nil {
		return ok(-1)
	}
	return ok(g.ctx.ProcessExecute(cmd))
}

func (g *Gate) sysWait(c *callCtx, args Args) result {
	if g.ctx.ProcessWait == nil {
		return ok(-1)
	}
	return ok(g.ctx.ProcessWait(args[0]))
}

func (g *Gate) sysCreate(c *callCtx, args Args) result {
	name, err := c.validateString(uintptr(args[0]))
	if err != 0 {
		return fatal()
	}
	g.ctx.FSLock.Lock()
	ferr := g.ctx.FS.Create(name, args[1])
	g.ctx.FSLock.Unlock()
	return ok(boolInt(ferr == 0))
}

func (g *Gate) sysRemove(c *callCtx, args Args) result {
	name, err := c.validateString(uintptr(args[0]))
	if err != 0 {
		return fatal()
	}
	g.ctx.FSLock.Lock()
	ferr := g.ctx.FS.Remove(name)
	g.ctx.FSLock.Unlock()
	return ok(boolInt(ferr == 0))
}

func (g *Gate) sysOpen(c *callCtx, args Args) result {
	name, err := c.validateString(uintptr(args[0]))
	if err != 0 {
		return fatal()
	}
	g.ctx.FSLock.Lock()
	file, ferr := g.ctx.FS.Open(name)
	g.ctx.FSLock.Unlock()
	if ferr != 0 {
		return ok(-1)
	}
	fdno := c.proc.Fds.Install(fd.OpenFile(file, fd.FD_READ|fd.FD_WRITE))
	return ok(fdno)
}

func (g *Gate) sysFilesize(c *callCtx, args Args) result {
	f, okFd := c.proc.Fds.Get(args[0])
	if !okFd {
		return fatal()
	}
	g.ctx.FSLock.Lock()
	n, _ := f.Fops.Length()
	g.ctx.FSLock.Unlock()
	return ok(n)
}

func (g *Gate) sysRead(c *callCtx, args Args) result {
	fdno, bufp, n := args[0], args[1], args[2]
	if fdno == defs.STDOUT_FILENO {
		return fatal()
	}
	if err := c.validateRange(uintptr(bufp), n); err != 0 {
		return fatal()
	}
	data := make([]byte, n)
	total := 0

	if fdno == defs.STDIN_FILENO {
		stdin := g.ctx.Console.Stdin()
		for total < n {
			k, _ := stdin.Read(data[total:])
			if k == 0 {
				break
			}
			total += k
		}
	} else {
		f, okFd := c.proc.Fds.Get(fdno)
		if !okFd {
			return fatal()
		}
		g.ctx.FSLock.Lock()
		for total < n {
			k, ferr := f.Fops.Read(data[total:])
			if ferr != 0 || k == 0 {
				break
			}
			total += k
		}
		g.ctx.FSLock.Unlock()
	}

	if err := c.proc.AS.WriteBytes(uintptr(bufp), data[:total]); err != 0 {
		return fatal()
	}
	return ok(total)
}

func (g *Gate) sysWrite(c *callCtx, args Args) result {
	fdno, bufp, n := args[0], args[1], args[2]
	if fdno == defs.STDIN_FILENO {
		return fatal()
	}
	if err := c.validateRange(uintptr(bufp), n); err != 0 {
		return fatal()
	}
	data, err := c.proc.AS.ReadBytes(uintptr(bufp), n)
	if err != 0 {
		return fatal()
	}

	if fdno == defs.STDOUT_FILENO {
		stdout := g.ctx.Console.Stdout()
		written, _ := stdout.Write(data)
		return ok(written)
	}

	f, okFd := c.proc.Fds.Get(fdno)
	if !okFd {
		return fatal()
	}
	g.ctx.FSLock.Lock()
	total := 0
	for total < n {
		k, ferr := f.Fops.Write(data[total:])
		if ferr != 0 || k == 0 {
			break
		}
		total += k
	}
	g.ctx.FSLock.Unlock()
	return ok(total)
}

func (g *Gate) sysSeek(c *callCtx, args Args) result {
	f, okFd := c.proc.Fds.Get(args[0])
	if !okFd {
		return fatal()
	}
	g.ctx.FSLock.Lock()
	f.Fops.Seek(args[1])
	g.ctx.FSLock.Unlock()
	return ok(0)
}

func (g *Gate) sysTell(c *callCtx, args Args) result {
	f, okFd := c.proc.Fds.Get(args[0])
	if !okFd {
		return fatal()
	}
	g.ctx.FSLock.Lock()
	pos, _ := f.Fops.Tell()
	g.ctx.FSLock.Unlock()
	return ok(pos)
}

func (g *Gate) sysClose(c *callCtx, args Args) result {
	if err := c.proc.Fds.Close(args[0]); err != 0 {
		return fatal()
	}
	return ok(0)
}

// underlyer is implemented by the fd adapter wrapping an fs.File, letting
// MMAP recover the concrete file behind a descriptor's Fdops_i to reopen it.
type underlyer interface {
	Underlying() fs.File
}

func (g *Gate) sysMmap(c *callCtx, args Args) result {
	fdno, addr := args[0], args[1]
	f, okFd := c.proc.Fds.Get(fdno)
	if !okFd {
		return ok(defs.MAP_FAILED)
	}
	u, isFile := f.Fops.(underlyer)
	if !isFile {
		return ok(defs.MAP_FAILED)
	}

	g.ctx.FSLock.Lock()
	length, lerr := f.Fops.Length()
	g.ctx.FSLock.Unlock()
	if lerr != 0 || length <= 0 {
		return ok(defs.MAP_FAILED)
	}
	if addr == 0 || addr%mem.PGSIZE != 0 || addr < 0 {
		return ok(defs.MAP_FAILED)
	}
	npages := (length + mem.PGSIZE - 1) / mem.PGSIZE
	if uintptr(addr)+uintptr(npages*mem.PGSIZE) > c.proc.AS.StackLimit {
		return ok(defs.MAP_FAILED)
	}
	for i := 0; i < npages; i++ {
		if _, present := c.proc.AS.Stat(uintptr(addr + i*mem.PGSIZE)); present {
			return ok(defs.MAP_FAILED)
		}
	}

	g.ctx.FSLock.Lock()
	reopened, rerr := u.Underlying().Reopen()
	g.ctx.FSLock.Unlock()
	if rerr != 0 {
		return ok(defs.MAP_FAILED)
	}

	mappingID := c.proc.NextMapid()
	for i := 0; i < npages; i++ {
		upage := uintptr(addr + i*mem.PGSIZE)
		fbytes := mem.PGSIZE
		if i == npages-1 {
			fbytes = length - i*mem.PGSIZE
		}
		if err := c.proc.AS.AddFile(upage, reopened, i*mem.PGSIZE, fbytes, true, true, mappingID); err != 0 {
			for j := 0; j < i; j++ {
				c.proc.AS.Free(uintptr(addr + j*mem.PGSIZE))
			}
			reopened.Close()
			return ok(defs.MAP_FAILED)
		}
	}
	return ok(mappingID)
}

func (g *Gate) sysMunmap(c *callCtx, args Args) result {
	if err := c.proc.AS.Munmap(args[0]); err != 0 {
		return fatal()
	}
	return ok(0)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
