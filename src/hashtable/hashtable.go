// Package hashtable is a bucketed hash table with a lock-free Get, used by
// the frame table to map physical frame addresses to their frame-table entry
// without serializing every page-fault lookup behind one global lock.
package hashtable

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"unsafe"
)

type elem_t struct {
	key     interface{}
	value   interface{}
	keyHash uint32
	next    *elem_t
}

type bucket_t struct {
	sync.RWMutex
	first *elem_t
}

func (b *bucket_t) len() int {
	b.RLock()
	defer b.RUnlock()
	l := 0
	for e := b.first; e != nil; e = e.next {
		l++
	}
	return l
}

// Table maps arbitrary comparable keys (int or string) to values. Reads
// never block a writer and vice versa except within the same bucket.
type Table struct {
	buckets  []*bucket_t
	maxchain int
}

// New allocates a table with the given number of buckets.
func New(nbuckets int) *Table {
	if nbuckets <= 0 {
		nbuckets = 1
	}
	t := &Table{buckets: make([]*bucket_t, nbuckets), maxchain: 1}
	for i := range t.buckets {
		t.buckets[i] = &bucket_t{}
	}
	return t
}

// Size returns the total number of stored entries.
func (t *Table) Size() int {
	n := 0
	for _, b := range t.buckets {
		n += b.len()
	}
	return n
}

// Get looks up key and reports whether it was present.
func (t *Table) Get(key interface{}) (interface{}, bool) {
	kh := khash(key)
	b := t.buckets[t.bucketOf(kh)]
	for e := loadptr(&b.first); e != nil; e = loadptr(&e.next) {
		if e.keyHash == kh && equal(e.key, key) {
			return e.value, true
		}
	}
	return nil, false
}

// Set inserts key/value, returning false without effect if key already
// exists (callers that need upsert semantics should Del then Set).
func (t *Table) Set(key, value interface{}) bool {
	kh := khash(key)
	b := t.buckets[t.bucketOf(kh)]
	b.Lock()
	defer b.Unlock()

	var last *elem_t
	for e := b.first; e != nil; e = e.next {
		if e.keyHash == kh && equal(e.key, key) {
			return false
		}
		last = e
	}
	n := &elem_t{key: key, value: value, keyHash: kh}
	if last == nil {
		storeptr(&b.first, n)
	} else {
		storeptr(&last.next, n)
	}
	return true
}

// Del removes key, if present.
func (t *Table) Del(key interface{}) {
	kh := khash(key)
	b := t.buckets[t.bucketOf(kh)]
	b.Lock()
	defer b.Unlock()

	var last *elem_t
	for e := b.first; e != nil; e = e.next {
		if e.keyHash == kh && equal(e.key, key) {
			if last == nil {
				storeptr(&b.first, e.next)
			} else {
				storeptr(&last.next, e.next)
			}
			return
		}
		last = e
	}
}

func (t *Table) bucketOf(kh uint32) int {
	return int(kh % uint32(len(t.buckets)))
}

// Without an explicit memory model this relies on LoadPointer/StorePointer
// giving acquire/release-like behavior on the platforms this kernel targets.
func loadptr(e **elem_t) *elem_t {
	p := atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(e)))
	return (*elem_t)(p)
}

func storeptr(p **elem_t, n *elem_t) {
	atomic.StorePointer((*unsafe.Pointer)(unsafe.Pointer(p)), unsafe.Pointer(n))
}

func khash(key interface{}) uint32 {
	return uint32(2654435761) * hash(key)
}

func hash(key interface{}) uint32 {
	switch x := key.(type) {
	case int:
		return uint32(x)
	case uint64:
		return uint32(x) ^ uint32(x>>32)
	case string:
		h := fnv.New32a()
		h.Write([]byte(x))
		return h.Sum32()
	}
	panic(fmt.Errorf("hashtable: unsupported key type %T", key))
}

func equal(a, b interface{}) bool {
	switch x := a.(type) {
	case int:
		return x == b.(int)
	case uint64:
		return x == b.(uint64)
	case string:
		return x == b.(string)
	}
	panic(fmt.Errorf("hashtable: unsupported key type %T", a))
}
