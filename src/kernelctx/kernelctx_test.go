package kernelctx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tfdavids/pintos/src/console"
	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/frame"
	"github.com/tfdavids/pintos/src/fs"
	"github.com/tfdavids/pintos/src/mem"
	"github.com/tfdavids/pintos/src/swap"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	pool := mem.NewPool(8)
	frames := frame.NewTable(pool)
	dev := swap.NewMemDevice(swap.SectorsPerPage * 8)
	sw := swap.New(dev)
	con := console.New(&bytes.Buffer{}, 32)
	return New(frames, sw, fs.NewMemfs(), con, 0xc0000000, 0xbf000000)
}

func TestNewProc_InstallsStdinStdout(t *testing.T) {
	ctx := newTestContext(t)
	proc := ctx.NewProc(1)

	_, ok := proc.Fds.Get(defs.STDIN_FILENO)
	require.True(t, ok)
	_, ok = proc.Fds.Get(defs.STDOUT_FILENO)
	require.True(t, ok)
}

func TestForceExit_ReleasesAddressSpaceAndFds(t *testing.T) {
	ctx := newTestContext(t)
	proc := ctx.NewProc(1)
	proc.AS.AddAnon(0x08048000, true)

	proc.ForceExit()

	require.Equal(t, 0, proc.AS.Len())
	status, exited := proc.ExitStatus()
	require.True(t, exited)
	require.Equal(t, defs.ForcedExit, status)
}

func TestForceExit_IsIdempotent(t *testing.T) {
	ctx := newTestContext(t)
	proc := ctx.NewProc(1)
	proc.ForceExit()
	require.NotPanics(t, func() { proc.ForceExit() })
}
