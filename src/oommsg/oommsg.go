// Package oommsg carries out-of-memory notifications from the frame table
// to anyone reading Ch. It does not change allocation behavior by itself — the frame
// table still panics on pinning exhaustion after notifying.
package oommsg

// Msg is sent on Ch when the frame table could not find a victim to evict
// (every frame is pinned) before it gives up and panics.
type Msg struct {
	// Need is the number of frames the caller was trying to obtain.
	Need int
}

// Ch is the global channel frame-table exhaustion is reported on. It is
// buffered so a reporting send never blocks the allocating thread.
var Ch = make(chan Msg, 16)

// Notify reports an exhaustion event without blocking.
func Notify(need int) {
	select {
	case Ch <- Msg{Need: need}:
	default:
	}
}
