// Package fdops defines the operation set every open file descriptor
// exposes to the syscall gate, regardless of whether it is backed by a
// filesystem file or by the console. Keeping it as its own tiny interface
// package (rather than importing fs or console directly from fd) is what
// lets fd.Table hold stdin/stdout and ordinary files side by side.
package fdops

import "github.com/tfdavids/pintos/src/defs"

// Fdops_i is implemented by anything installable in a file-descriptor
// table: an open filesystem file, or the console's stdin/stdout handles.
type Fdops_i interface {
	Read(dst []byte) (int, defs.Err_t)
	Write(src []byte) (int, defs.Err_t)
	Seek(pos int) defs.Err_t
	Tell() (int, defs.Err_t)
	Length() (int, defs.Err_t)
	// ReadAt is the random-access read mmap and file-backed demand-load
	// need. Descriptors that cannot back a mapping (the console) return
	// defs.EINVAL.
	ReadAt(dst []byte, offset int) (int, defs.Err_t)
	Reopen() (Fdops_i, defs.Err_t)
	Close() defs.Err_t
}
