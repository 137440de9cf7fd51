// Package fs is the narrow filesystem surface the memory subsystem and
// syscall gate consume: create/remove/open by name, and per-file
// length/read/write/seek/tell/reopen/close. The real filesystem,
// its block cache, and the global lock serializing mutations against it are
// external collaborators (Design Notes) — this package only specifies the
// interface they must satisfy, plus an in-memory fake for testing.
package fs

import (
	"sync"

	"github.com/tfdavids/pintos/src/defs"
)

// File is one open file's narrow surface: positioned reads/writes plus the
// random-access ReadAt mmap and file-backed demand-load need.
type File interface {
	Length() (int, defs.Err_t)
	ReadAt(dst []byte, offset int) (int, defs.Err_t)
	WriteAt(src []byte, offset int) (int, defs.Err_t)
	Read(dst []byte) (int, defs.Err_t)
	Write(src []byte) (int, defs.Err_t)
	Seek(pos int) defs.Err_t
	Tell() (int, defs.Err_t)
	Reopen() (File, defs.Err_t)
	Close() defs.Err_t
}

// Filesystem is the external collaborator backing CREATE, REMOVE, and OPEN.
// All its methods are serialized by the caller holding Lock (the
// "filesys_lock" of the design notes); the implementation itself need not
// be concurrency-safe.
type Filesystem interface {
	Create(name string, initialSize int) defs.Err_t
	Remove(name string) defs.Err_t
	Open(name string) (File, defs.Err_t)
}

// Lock serializes every filesystem mutation, matching the design's single
// global filesys_lock. Callers must keep the critical section around file_*
// calls short: eviction's writeback of a file-backed page also needs this
// lock, so it must never be held across a frame_alloc or force_load.
type Lock struct {
	mu sync.Mutex
}

func (l *Lock) Lock()   { l.mu.Lock() }
func (l *Lock) Unlock() { l.mu.Unlock() }

// memFile is the Memfs-backed File implementation.
type memFile struct {
	fs   *Memfs
	name string
	pos  int
}

func (f *memFile) Length() (int, defs.Err_t) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	data, ok := f.fs.files[f.name]
	if !ok {
		return 0, defs.ENOENT
	}
	return len(data), 0
}

func (f *memFile) ReadAt(dst []byte, offset int) (int, defs.Err_t) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	data, ok := f.fs.files[f.name]
	if !ok {
		return 0, defs.ENOENT
	}
	if offset >= len(data) {
		return 0, 0
	}
	n := copy(dst, data[offset:])
	return n, 0
}

func (f *memFile) WriteAt(src []byte, offset int) (int, defs.Err_t) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	data, ok := f.fs.files[f.name]
	if !ok {
		return 0, defs.ENOENT
	}
	end := offset + len(src)
	if end > len(data) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[offset:end], src)
	f.fs.files[f.name] = data
	return len(src), 0
}

func (f *memFile) Read(dst []byte) (int, defs.Err_t) {
	n, err := f.ReadAt(dst, f.pos)
	if err != 0 {
		return 0, err
	}
	f.pos += n
	return n, 0
}

func (f *memFile) Write(src []byte) (int, defs.Err_t) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	data, ok := f.fs.files[f.name]
	if !ok {
		return 0, defs.ENOENT
	}
	end := f.pos + len(src)
	if end > len(data) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[f.pos:end], src)
	f.fs.files[f.name] = data
	f.pos = end
	return len(src), 0
}

func (f *memFile) Seek(pos int) defs.Err_t {
	if pos < 0 {
		return defs.EINVAL
	}
	f.pos = pos
	return 0
}

func (f *memFile) Tell() (int, defs.Err_t) {
	return f.pos, 0
}

func (f *memFile) Reopen() (File, defs.Err_t) {
	return &memFile{fs: f.fs, name: f.name}, 0
}

func (f *memFile) Close() defs.Err_t {
	return 0
}

// Memfs is a flat, in-memory Filesystem used by the kernel simulator and by
// every test in this module that does not care about on-disk layout.
type Memfs struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemfs returns an empty in-memory filesystem.
func NewMemfs() *Memfs {
	return &Memfs{files: make(map[string][]byte)}
}

func (m *Memfs) Create(name string, initialSize int) defs.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; ok {
		return defs.EEXIST
	}
	if initialSize < 0 {
		initialSize = 0
	}
	m.files[name] = make([]byte, initialSize)
	return 0
}

func (m *Memfs) Remove(name string) defs.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return defs.ENOENT
	}
	delete(m.files, name)
	return 0
}

func (m *Memfs) Open(name string) (File, defs.Err_t) {
	m.mu.Lock()
	_, ok := m.files[name]
	m.mu.Unlock()
	if !ok {
		return nil, defs.ENOENT
	}
	return &memFile{fs: m, name: name}, 0
}
