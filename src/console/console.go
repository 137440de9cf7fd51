// Package console is the external terminal-I/O collaborator: stdin and
// stdout as installable fdops.Fdops_i handles, backed by a small
// wraparound ring buffer for keyboard input and a direct write-through for
// output (the kernel's putbuf). Real terminal I/O interrupt handling and
// shutdown are out of scope; this package only gives the syscall gate
// something to read fd 0 and write fd 1 from.
package console

import (
	"io"
	"sync"

	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/fdops"
)

// ringbuf is a small single-writer/single-reader wraparound byte buffer,
// sized for keyboard input rather than bulk data.
type ringbuf struct {
	buf        []uint8
	head, tail int
}

func newRingbuf(size int) *ringbuf {
	return &ringbuf{buf: make([]uint8, size)}
}

func (r *ringbuf) used() int { return r.head - r.tail }
func (r *ringbuf) left() int { return len(r.buf) - r.used() }

func (r *ringbuf) push(b []uint8) int {
	n := 0
	for n < len(b) && r.left() > 0 {
		r.buf[r.head%len(r.buf)] = b[n]
		r.head++
		n++
	}
	return n
}

func (r *ringbuf) pop(dst []uint8) int {
	n := 0
	for n < len(dst) && r.used() > 0 {
		dst[n] = r.buf[r.tail%len(r.buf)]
		r.tail++
		n++
	}
	return n
}

// Console holds the shared input queue and output sink for one simulated
// terminal.
type Console struct {
	mu  sync.Mutex
	in  *ringbuf
	out io.Writer
}

// New constructs a console writing output to out, with an input queue of
// capacity inputCap bytes.
func New(out io.Writer, inputCap int) *Console {
	return &Console{in: newRingbuf(inputCap), out: out}
}

// Feed enqueues simulated keystrokes for later Stdin reads. Used by test
// harnesses and the kernel simulator's input driver; a real kernel fills
// the same queue from the keyboard interrupt handler (input_getc's
// producer side, out of scope here).
func (c *Console) Feed(data []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.in.push(data)
}

// Stdin returns an fdops.Fdops_i reading from the console's input queue.
func (c *Console) Stdin() Handle { return Handle{c: c, writable: false} }

// Stdout returns an fdops.Fdops_i writing through to the console's sink.
func (c *Console) Stdout() Handle { return Handle{c: c, writable: true} }

// Handle is the fdops.Fdops_i installed at fd 0 or fd 1. WRITE on the stdin
// handle and READ on the stdout handle both return EINVAL; the syscall gate
// additionally forces an exit on those cases per the design's user-induced
// fault policy.
type Handle struct {
	c        *Console
	writable bool
}

func (h Handle) Read(dst []byte) (int, defs.Err_t) {
	if h.writable {
		return 0, defs.EINVAL
	}
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	return h.c.in.pop(dst), 0
}

func (h Handle) Write(src []byte) (int, defs.Err_t) {
	if !h.writable {
		return 0, defs.EINVAL
	}
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	n, err := h.c.out.Write(src)
	if err != nil {
		return n, defs.EFAULT
	}
	return n, 0
}

func (h Handle) Seek(pos int) defs.Err_t                         { return defs.EINVAL }
func (h Handle) Tell() (int, defs.Err_t)                         { return 0, defs.EINVAL }
func (h Handle) Length() (int, defs.Err_t)                       { return 0, defs.EINVAL }
func (h Handle) ReadAt(dst []byte, offset int) (int, defs.Err_t) { return 0, defs.EINVAL }

// Reopen returns a handle to the same console side; stdin/stdout are not
// per-open-instance resources, so there is nothing to duplicate.
func (h Handle) Reopen() (fdops.Fdops_i, defs.Err_t) { return h, 0 }
func (h Handle) Close() defs.Err_t                   { return 0 }
