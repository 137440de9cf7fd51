// Package stats provides lightweight, togglable counters for the memory
// subsystem: page faults, evictions, and swap traffic. Counting is disabled
// by default so instrumentation never perturbs timing-sensitive tests.
package stats

import (
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unsafe"
)

// Enabled turns counter increments and cycle accounting on or off at
// runtime; both are no-ops while false.
var Enabled = false

// Counter_t is a monotonically increasing event counter.
type Counter_t int64

// Duration_t accumulates elapsed wall-clock time in nanoseconds.
type Duration_t int64

// Inc increments the counter by one.
func (c *Counter_t) Inc() {
	if Enabled {
		atomic.AddInt64((*int64)(unsafe.Pointer(c)), 1)
	}
}

// Add adds n to the counter.
func (c *Counter_t) Add(n int64) {
	if Enabled {
		atomic.AddInt64((*int64)(unsafe.Pointer(c)), n)
	}
}

// Value reads the current counter value regardless of Enabled.
func (c *Counter_t) Value() int64 {
	return atomic.LoadInt64((*int64)(unsafe.Pointer(c)))
}

// Since adds the elapsed time since start to the duration counter.
func (d *Duration_t) Since(start time.Time) {
	if Enabled {
		atomic.AddInt64((*int64)(unsafe.Pointer(d)), int64(time.Since(start)))
	}
}

// Dump renders every Counter_t/Duration_t field of st (a struct value) as a
// printable multi-line string.
func Dump(st interface{}) string {
	v := reflect.ValueOf(st)
	var sb strings.Builder
	for i := 0; i < v.NumField(); i++ {
		name := v.Type().Field(i).Name
		t := v.Field(i).Type().String()
		switch {
		case strings.HasSuffix(t, "Counter_t"):
			n := v.Field(i).Interface().(Counter_t)
			sb.WriteString("\n\t" + name + ": " + strconv.FormatInt(int64(n), 10))
		case strings.HasSuffix(t, "Duration_t"):
			n := v.Field(i).Interface().(Duration_t)
			sb.WriteString("\n\t" + name + ": " + time.Duration(n).String())
		}
	}
	sb.WriteString("\n")
	return sb.String()
}
