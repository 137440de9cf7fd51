package syscall

import (
	"github.com/tfdavids/pintos/src/defs"
	"github.com/tfdavids/pintos/src/kernelctx"
	"github.com/tfdavids/pintos/src/mem"
)

// maxString bounds how many bytes validateString will scan looking for a
// NUL terminator, so a malformed or malicious string argument can't pin the
// entire address space one page at a time.
const maxString = 4096

// callCtx tracks the pages one syscall invocation has pinned, so the gate
// can unpin every one of them on the way out regardless of which handler
// ran or how it failed (Section 4.4, "pin discipline").
type callCtx struct {
	proc   *kernelctx.Proc
	ctx    *kernelctx.Context
	esp    uintptr
	pinned []uintptr
}

func pageOf(uva uintptr) uintptr { return uva &^ uintptr(mem.PGOFFSET) }

// validatePtr pins the page containing uva, demand-loading it if needed.
// Returns defs.EFAULT if uva lies outside user space or cannot be loaded.
func (c *callCtx) validatePtr(uva uintptr) defs.Err_t {
	if uva == 0 || uva >= c.proc.AS.StackBase {
		return defs.EFAULT
	}
	upage := pageOf(uva)
	if err := c.proc.AS.Pin(upage, c.esp); err != 0 {
		return err
	}
	c.pinned = append(c.pinned, upage)
	return 0
}

// validateRange pins every page spanning the n-byte range starting at uva.
func (c *callCtx) validateRange(uva uintptr, n int) defs.Err_t {
	if n < 0 {
		return defs.EINVAL
	}
	if n == 0 {
		return c.validatePtr(uva)
	}
	start := pageOf(uva)
	end := pageOf(uva + uintptr(n-1))
	for p := start; ; p += uintptr(mem.PGSIZE) {
		if err := c.validatePtr(p); err != 0 {
			return err
		}
		if p == end {
			break
		}
	}
	return 0
}

// validateString pins pages one at a time, reading and appending bytes
// until it finds a NUL terminator, and returns the decoded Go string.
// Fails with defs.ENAMETOOLONG past maxString bytes without a terminator.
func (c *callCtx) validateString(uva uintptr) (string, defs.Err_t) {
	var out []byte
	for i := 0; i < maxString; i++ {
		cur := uva + uintptr(i)
		if err := c.validatePtr(cur); err != 0 {
			return "", err
		}
		b, err := c.proc.AS.ReadBytes(cur, 1)
		if err != 0 {
			return "", err
		}
		if b[0] == 0 {
			return string(out), 0
		}
		out = append(out, b[0])
	}
	return "", defs.ENAMETOOLONG
}

// unpinAll releases every page this call pinned, in the order pinned.
func (c *callCtx) unpinAll() {
	for _, upage := range c.pinned {
		c.proc.AS.Unpin(upage)
	}
}
