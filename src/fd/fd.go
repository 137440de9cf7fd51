// Package fd is the per-process file-descriptor table: the narrow
// collaborator the syscall gate consults to turn a user fd number into
// filesystem or console operations. The real table also tracks
// close-on-exec and directory descriptors; those are out of scope here
// (directory syscalls are unimplemented per the design).
package fd

import (
	"sync"

	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/fdops"
	"github.com/tfdavids/pintos/src/fs"
)

// Fd_t is one open file descriptor: its operations and its permission bits.
type Fd_t struct {
	Fops  fdops.Fdops_i
	Perms int
}

// Permission bits.
const (
	FD_READ  = 0x1
	FD_WRITE = 0x2
)

// Copyfd duplicates an open descriptor by reopening its underlying file; the
// copy keeps the original's permission bits.
func Copyfd(f *Fd_t) (*Fd_t, defs.Err_t) {
	nf, err := f.Fops.Reopen()
	if err != 0 {
		return nil, err
	}
	return &Fd_t{Fops: nf, Perms: f.Perms}, 0
}

// Table is one process's fd number -> Fd_t map. fd 0 and 1 are reserved for
// the console and are installed by New; OPEN allocates upward from 2.
type Table struct {
	mu   sync.Mutex
	fds  map[int]*Fd_t
	next int
}

// New constructs a table with stdin and stdout pre-installed.
func New(stdin, stdout fdops.Fdops_i) *Table {
	t := &Table{fds: make(map[int]*Fd_t), next: 2}
	t.fds[defs.STDIN_FILENO] = &Fd_t{Fops: stdin, Perms: FD_READ}
	t.fds[defs.STDOUT_FILENO] = &Fd_t{Fops: stdout, Perms: FD_WRITE}
	return t
}

// Install assigns the next free fd number to f and returns it.
func (t *Table) Install(f *Fd_t) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.next
	t.next++
	t.fds[n] = f
	return n
}

// Get returns the descriptor for fdno, if open.
func (t *Table) Get(fdno int) (*Fd_t, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.fds[fdno]
	return f, ok
}

// Close closes and removes fdno's descriptor. Returns defs.EBADF if fdno was
// not open.
func (t *Table) Close(fdno int) defs.Err_t {
	t.mu.Lock()
	f, ok := t.fds[fdno]
	if ok {
		delete(t.fds, fdno)
	}
	t.mu.Unlock()
	if !ok {
		return defs.EBADF
	}
	return f.Fops.Close()
}

// CloseAll closes every descriptor still open, used when a process exits.
func (t *Table) CloseAll() {
	t.mu.Lock()
	fds := t.fds
	t.fds = make(map[int]*Fd_t)
	t.mu.Unlock()
	for _, f := range fds {
		f.Fops.Close()
	}
}

// OpenFile wraps an fs.File as an Fd_t with the given permissions, the
// adapter OPEN uses to bridge the filesystem's narrower File interface
// to the fd table's Fdops_i.
func OpenFile(file fs.File, perms int) *Fd_t {
	return &Fd_t{Fops: fileFd{file}, Perms: perms}
}

// fileFd adapts fs.File to fdops.Fdops_i.
type fileFd struct {
	f fs.File
}

func (a fileFd) Read(dst []byte) (int, defs.Err_t)                 { return a.f.Read(dst) }
func (a fileFd) Write(src []byte) (int, defs.Err_t)                { return a.f.Write(src) }
func (a fileFd) Seek(pos int) defs.Err_t                           { return a.f.Seek(pos) }
func (a fileFd) Tell() (int, defs.Err_t)                           { return a.f.Tell() }
func (a fileFd) Length() (int, defs.Err_t)                         { return a.f.Length() }
func (a fileFd) ReadAt(dst []byte, offset int) (int, defs.Err_t)   { return a.f.ReadAt(dst, offset) }
func (a fileFd) Close() defs.Err_t                                 { return a.f.Close() }

func (a fileFd) Reopen() (fdops.Fdops_i, defs.Err_t) {
	nf, err := a.f.Reopen()
	if err != 0 {
		return nil, err
	}
	return fileFd{nf}, 0
}

// Underlying exposes the concrete fs.File behind this descriptor. MMAP uses
// it to reopen the file and build per-page file-backed SPT descriptors,
// which fdops.Fdops_i's narrower surface doesn't carry.
func (a fileFd) Underlying() fs.File { return a.f }
