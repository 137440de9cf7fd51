package fd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/fdops"
	"github.com/tfdavids/pintos/src/fs"
)

type nullFdops struct{}

func (nullFdops) Read(dst []byte) (int, defs.Err_t)                 { return 0, 0 }
func (nullFdops) Write(src []byte) (int, defs.Err_t)                { return 0, 0 }
func (nullFdops) Seek(pos int) defs.Err_t                           { return 0 }
func (nullFdops) Tell() (int, defs.Err_t)                           { return 0, 0 }
func (nullFdops) Length() (int, defs.Err_t)                         { return 0, 0 }
func (nullFdops) ReadAt(dst []byte, offset int) (int, defs.Err_t)   { return 0, 0 }
func (nullFdops) Reopen() (fdops.Fdops_i, defs.Err_t)               { return nullFdops{}, 0 }
func (nullFdops) Close() defs.Err_t                                 { return 0 }

func TestNew_InstallsStdinStdout(t *testing.T) {
	table := New(nullFdops{}, nullFdops{})
	_, ok := table.Get(defs.STDIN_FILENO)
	require.True(t, ok)
	_, ok = table.Get(defs.STDOUT_FILENO)
	require.True(t, ok)
}

func TestInstall_AssignsFdsStartingAt2(t *testing.T) {
	table := New(nullFdops{}, nullFdops{})
	first := table.Install(&Fd_t{Fops: nullFdops{}})
	second := table.Install(&Fd_t{Fops: nullFdops{}})
	require.Equal(t, 2, first)
	require.Equal(t, 3, second)
}

func TestClose_UnknownFd_ReturnsEBADF(t *testing.T) {
	table := New(nullFdops{}, nullFdops{})
	require.Equal(t, defs.EBADF, table.Close(42))
}

func TestClose_RemovesDescriptor(t *testing.T) {
	table := New(nullFdops{}, nullFdops{})
	fdno := table.Install(&Fd_t{Fops: nullFdops{}})
	require.Equal(t, defs.Err_t(0), table.Close(fdno))
	_, ok := table.Get(fdno)
	require.False(t, ok)
}

func TestOpenFile_Underlying_ReturnsConcreteFile(t *testing.T) {
	m := fs.NewMemfs()
	m.Create("a.txt", 0)
	f, _ := m.Open("a.txt")

	entry := OpenFile(f, FD_READ|FD_WRITE)
	u, ok := entry.Fops.(interface{ Underlying() fs.File })
	require.True(t, ok)
	require.Equal(t, f, u.Underlying())
}

func TestCloseAll_ClosesEveryDescriptor(t *testing.T) {
	table := New(nullFdops{}, nullFdops{})
	table.Install(&Fd_t{Fops: nullFdops{}})
	table.Install(&Fd_t{Fops: nullFdops{}})
	table.CloseAll()
	_, ok := table.Get(2)
	require.False(t, ok)
}
