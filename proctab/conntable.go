/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package proctab

import (
	"net"
	"sync"
)

// connSlot is one (service, remote-address) connection group: a
// fixed-capacity set of live child handles plus the bucket-chain links
// that place it in its ConnTable hash bucket.
type connSlot struct {
	gen      uint32
	inUse    bool
	remote   string
	capacity int
	procs    []Handle
	bucket   int
	prev     int32
	next     int32
}

// ConnTable indexes connection groups by remote address across
// bucketCount hash buckets, each a doubly-linked chain of slab slots.
// Front insertion and O(1) unlink mirror the original intrusive list;
// the fixed-capacity slice inside each group gives O(1) swap-with-last
// removal for its member handles.
type ConnTable struct {
	mu      sync.Mutex
	slab    []connSlot
	free    []uint32
	buckets [bucketCount]int32
}

// NewConnTable returns an empty table.
func NewConnTable() *ConnTable {
	t := &ConnTable{}
	for i := range t.buckets {
		t.buckets[i] = -1
	}
	return t
}

func (t *ConnTable) alloc() uint32 {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		return idx
	}
	t.slab = append(t.slab, connSlot{gen: 1})
	return uint32(len(t.slab) - 1)
}

func (t *ConnTable) handle(idx uint32) Handle {
	return Handle{Index: idx + 1, Generation: t.slab[idx].gen}
}

func (t *ConnTable) resolve(h Handle) (*connSlot, bool) {
	if !h.Valid() || h.Index > uint32(len(t.slab)) {
		return nil, false
	}
	s := &t.slab[h.Index-1]
	if !s.inUse || s.gen != h.Generation {
		return nil, false
	}
	return s, true
}

// GetOrCreate returns the connection group for ip, creating one on first
// sight. capacity <= 0 disables per-source tracking entirely: no group is
// created and ok is false.
func (t *ConnTable) GetOrCreate(ip net.IP, capacity int) (h Handle, ok bool) {
	if capacity <= 0 {
		return Handle{}, false
	}

	key := ip.String()
	b := hashFold(ip)

	t.mu.Lock()
	defer t.mu.Unlock()

	for cur := t.buckets[b]; cur != -1; cur = t.slab[cur].next {
		if t.slab[cur].remote == key {
			return t.handle(uint32(cur)), true
		}
	}

	idx := t.alloc()
	head := t.buckets[b]
	t.slab[idx].inUse = true
	t.slab[idx].remote = key
	t.slab[idx].capacity = capacity
	t.slab[idx].procs = nil
	t.slab[idx].bucket = b
	t.slab[idx].prev = -1
	t.slab[idx].next = head
	if head != -1 {
		t.slab[head].prev = int32(idx)
	}
	t.buckets[b] = int32(idx)

	return t.handle(idx), true
}

// NewProc appends proc to the connection group's member set, enforcing
// its fixed capacity.
func (t *ConnTable) NewProc(h Handle, proc Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.resolve(h)
	if !ok {
		return ErrStaleHandle.Error(nil)
	}
	if len(s.procs) >= s.capacity {
		return ErrPerSourceLimitExceeded.Error(nil)
	}

	s.procs = append(s.procs, proc)
	return nil
}

// RemoveProc drops proc from the connection group via swap-with-last. If
// the group becomes empty it is unlinked from its bucket and freed.
func (t *ConnTable) RemoveProc(h Handle, proc Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.resolve(h)
	if !ok {
		return false
	}

	for i, p := range s.procs {
		if p != proc {
			continue
		}
		last := len(s.procs) - 1
		s.procs[i] = s.procs[last]
		s.procs = s.procs[:last]
		if len(s.procs) == 0 {
			t.release(h.Index - 1)
		}
		return true
	}
	return false
}

func (t *ConnTable) release(idx uint32) {
	s := &t.slab[idx]

	if s.prev != -1 {
		t.slab[s.prev].next = s.next
	} else {
		t.buckets[s.bucket] = s.next
	}
	if s.next != -1 {
		t.slab[s.next].prev = s.prev
	}

	s.inUse = false
	s.remote = ""
	s.procs = nil
	s.gen = nextGeneration(s.gen)

	t.free = append(t.free, idx)
}

// Occupancy reports how many children are currently tracked under h, or
// -1 if h is stale.
func (t *ConnTable) Occupancy(h Handle) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.resolve(h)
	if !ok {
		return -1
	}
	return len(s.procs)
}
