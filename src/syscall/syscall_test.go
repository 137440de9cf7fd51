package syscall

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tfdavids/pintos/src/console"
	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/frame"
	"github.com/tfdavids/pintos/src/fs"
	"github.com/tfdavids/pintos/src/kernelctx"
	"github.com/tfdavids/pintos/src/mem"
	"github.com/tfdavids/pintos/src/swap"
)

const (
	testStackBase  = uintptr(0xc0000000)
	testStackLimit = uintptr(0xbf000000)
)

func newTestGate(t *testing.T) (*Gate, *kernelctx.Context) {
	t.Helper()
	pool := mem.NewPool(16)
	frames := frame.NewTable(pool)
	dev := swap.NewMemDevice(swap.SectorsPerPage * 32)
	sw := swap.New(dev)
	con := console.New(&bytes.Buffer{}, 256)
	ctx := kernelctx.New(frames, sw, fs.NewMemfs(), con, testStackBase, testStackLimit)
	return New(ctx), ctx
}

// installString maps a zero-page anon region at addr and writes s followed
// by a NUL terminator into it, matching how a user program's argument
// string would already sit in its address space before a syscall trap.
func installString(t *testing.T, proc *kernelctx.Proc, addr uintptr, s string) {
	t.Helper()
	require.Equal(t, defs.Err_t(0), proc.AS.AddAnon(addr, true))
	require.Equal(t, defs.Err_t(0), proc.AS.Pin(addr, addr))
	require.Equal(t, defs.Err_t(0), proc.AS.WriteBytes(addr, append([]byte(s), 0)))
	proc.AS.Unpin(addr)
}

func TestCreateOpenWriteReadClose_RoundTrip(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)

	nameAddr := uintptr(0x08048000)
	bufAddr := uintptr(0x08049000)
	installString(t, proc, nameAddr, "f.txt")
	require.Equal(t, defs.Err_t(0), proc.AS.AddAnon(bufAddr, true))

	require.Equal(t, 1, gate.Syscall(proc, defs.SYS_CREATE, Args{int(nameAddr), 0}, bufAddr))

	fdno := gate.Syscall(proc, defs.SYS_OPEN, Args{int(nameAddr)}, bufAddr)
	require.GreaterOrEqual(t, fdno, 2)

	require.Equal(t, defs.Err_t(0), proc.AS.Pin(bufAddr, bufAddr))
	proc.AS.WriteBytes(bufAddr, []byte("hello"))
	proc.AS.Unpin(bufAddr)

	n := gate.Syscall(proc, defs.SYS_WRITE, Args{fdno, int(bufAddr), 5}, bufAddr)
	require.Equal(t, 5, n)

	gate.Syscall(proc, defs.SYS_SEEK, Args{fdno, 0}, bufAddr)
	n = gate.Syscall(proc, defs.SYS_READ, Args{fdno, int(bufAddr), 5}, bufAddr)
	require.Equal(t, 5, n)

	require.Equal(t, defs.Err_t(0), proc.AS.Pin(bufAddr, bufAddr))
	data, _ := proc.AS.ReadBytes(bufAddr, 5)
	proc.AS.Unpin(bufAddr)
	require.Equal(t, "hello", string(data))

	require.Equal(t, 0, gate.Syscall(proc, defs.SYS_CLOSE, Args{fdno}, bufAddr))
}

func TestCreate_DuplicateName_ReturnsFalseWithoutForcingExit(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)
	nameAddr := uintptr(0x08048000)
	installString(t, proc, nameAddr, "dup.txt")

	require.Equal(t, 1, gate.Syscall(proc, defs.SYS_CREATE, Args{int(nameAddr), 0}, nameAddr))
	require.Equal(t, 0, gate.Syscall(proc, defs.SYS_CREATE, Args{int(nameAddr), 0}, nameAddr))

	_, exited := proc.ExitStatus()
	require.False(t, exited, "a business-logic failure like name collision does not force exit")
}

func TestOpen_NonexistentFile_ReturnsNegativeOneWithoutForcingExit(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)
	nameAddr := uintptr(0x08048000)
	installString(t, proc, nameAddr, "missing.txt")

	require.Equal(t, -1, gate.Syscall(proc, defs.SYS_OPEN, Args{int(nameAddr)}, nameAddr))
	_, exited := proc.ExitStatus()
	require.False(t, exited)
}

func TestRead_UnknownFd_ForcesExit(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)
	bufAddr := uintptr(0x08048000)
	proc.AS.AddAnon(bufAddr, true)

	result := gate.Syscall(proc, defs.SYS_READ, Args{99, int(bufAddr), 4}, bufAddr)
	require.Equal(t, defs.ForcedExit, result)
	status, exited := proc.ExitStatus()
	require.True(t, exited)
	require.Equal(t, defs.ForcedExit, status)
}

func TestWrite_ToStdin_ForcesExit(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)
	bufAddr := uintptr(0x08048000)
	proc.AS.AddAnon(bufAddr, true)

	result := gate.Syscall(proc, defs.SYS_WRITE, Args{defs.STDIN_FILENO, int(bufAddr), 4}, bufAddr)
	require.Equal(t, defs.ForcedExit, result)
}

func TestMunmap_UnknownID_ForcesExit(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)

	result := gate.Syscall(proc, defs.SYS_MUNMAP, Args{123}, 0)
	require.Equal(t, defs.ForcedExit, result)
}

func TestMmap_BadFd_ReturnsMapFailedWithoutForcingExit(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)

	result := gate.Syscall(proc, defs.SYS_MMAP, Args{99, 0x10000000}, 0)
	require.Equal(t, defs.MAP_FAILED, result)
	_, exited := proc.ExitStatus()
	require.False(t, exited)
}

func TestMmap_ThenMunmap_RoundTrip(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)

	nameAddr := uintptr(0x08048000)
	installString(t, proc, nameAddr, "mapped.txt")
	require.Equal(t, 1, gate.Syscall(proc, defs.SYS_CREATE, Args{int(nameAddr), mem.PGSIZE}, nameAddr))
	fdno := gate.Syscall(proc, defs.SYS_OPEN, Args{int(nameAddr)}, nameAddr)
	require.GreaterOrEqual(t, fdno, 2)

	mapAddr := 0x10000000
	mid := gate.Syscall(proc, defs.SYS_MMAP, Args{fdno, mapAddr}, nameAddr)
	require.NotEqual(t, defs.MAP_FAILED, mid)

	desc, ok := proc.AS.Stat(uintptr(mapAddr))
	require.True(t, ok)
	require.True(t, desc.Mapped)

	require.Equal(t, 0, gate.Syscall(proc, defs.SYS_MUNMAP, Args{mid}, nameAddr))
	_, ok = proc.AS.Stat(uintptr(mapAddr))
	require.False(t, ok, "munmap destroys every descriptor tagged with the mapping id")
}

func TestUnimplementedDirectorySyscall_ForcesExit(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)

	result := gate.Syscall(proc, defs.SYS_MKDIR, Args{0}, 0)
	require.Equal(t, defs.ForcedExit, result)
}

func TestOutOfRangeSyscallNumber_ForcesExit(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)

	result := gate.Syscall(proc, 999, Args{}, 0)
	require.Equal(t, defs.ForcedExit, result)
}

func TestExit_StoresStatusAndReleasesResources(t *testing.T) {
	gate, ctx := newTestGate(t)
	proc := ctx.NewProc(1)
	proc.AS.AddAnon(0x08048000, true)

	gate.Syscall(proc, defs.SYS_EXIT, Args{7}, 0)
	status, exited := proc.ExitStatus()
	require.True(t, exited)
	require.Equal(t, 7, status)
	require.Equal(t, 0, proc.AS.Len(), "EXIT frees every SPT descriptor")
}
