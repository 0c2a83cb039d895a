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

import "sync"

// procSlot is one tracked child: its PID-hash chain link plus a second,
// independent chain link for its owning service's child list, exactly
// the "second intrusive index field on the same slab slot" the original
// achieves with a second pointer pair on the same procinfo struct.
type procSlot struct {
	gen        uint32
	inUse      bool
	pid        int
	service    string
	conn       Handle
	hashBucket int
	hashPrev   int32
	hashNext   int32
	childPrev  int32
	childNext  int32
}

// ProcTable tracks every live child by PID, and independently by the
// service that spawned it.
type ProcTable struct {
	mu         sync.Mutex
	slab       []procSlot
	free       []uint32
	pidBuckets [bucketCount]int32
	childHeads map[string]int32
}

// NewProcTable returns an empty table.
func NewProcTable() *ProcTable {
	t := &ProcTable{childHeads: make(map[string]int32)}
	for i := range t.pidBuckets {
		t.pidBuckets[i] = -1
	}
	return t
}

func (t *ProcTable) alloc() uint32 {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		return idx
	}
	t.slab = append(t.slab, procSlot{gen: 1})
	return uint32(len(t.slab) - 1)
}

func (t *ProcTable) handle(idx uint32) Handle {
	return Handle{Index: idx + 1, Generation: t.slab[idx].gen}
}

func (t *ProcTable) resolve(h Handle) (*procSlot, bool) {
	if !h.Valid() || h.Index > uint32(len(t.slab)) {
		return nil, false
	}
	s := &t.slab[h.Index-1]
	if !s.inUse || s.gen != h.Generation {
		return nil, false
	}
	return s, true
}

func (t *ProcTable) findPID(pid int) int32 {
	b := hashFold(pidBytes(pid))
	for cur := t.pidBuckets[b]; cur != -1; cur = t.slab[cur].hashNext {
		if t.slab[cur].pid == pid {
			return cur
		}
	}
	return -1
}

// Add tracks a newly forked child, linking it into both the PID hash
// table and its service's child list. conn is the connection group
// handle to associate with the child, or the zero Handle if per-source
// tracking does not apply.
func (t *ProcTable) Add(pid int, service string, conn Handle) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.findPID(pid) != -1 {
		return Handle{}, ErrDuplicatePID.Error(nil)
	}

	b := hashFold(pidBytes(pid))
	idx := t.alloc()

	hashHead := t.pidBuckets[b]
	childHead, hasChildHead := t.childHeads[service]
	if !hasChildHead {
		childHead = -1
	}

	t.slab[idx].inUse = true
	t.slab[idx].pid = pid
	t.slab[idx].service = service
	t.slab[idx].conn = conn
	t.slab[idx].hashBucket = b
	t.slab[idx].hashPrev = -1
	t.slab[idx].hashNext = hashHead
	t.slab[idx].childPrev = -1
	t.slab[idx].childNext = childHead

	if hashHead != -1 {
		t.slab[hashHead].hashPrev = int32(idx)
	}
	t.pidBuckets[b] = int32(idx)

	if childHead != -1 {
		t.slab[childHead].childPrev = int32(idx)
	}
	t.childHeads[service] = int32(idx)

	return t.handle(idx), nil
}

// Lookup resolves a live PID to its handle.
func (t *ProcTable) Lookup(pid int) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.findPID(pid)
	if idx == -1 {
		return Handle{}, false
	}
	return t.handle(uint32(idx)), true
}

// Remove untracks a child, unlinking it from both chains and freeing its
// slot. It reports whether h referred to a live slot.
func (t *ProcTable) Remove(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.resolve(h)
	if !ok {
		return false
	}

	if s.hashPrev != -1 {
		t.slab[s.hashPrev].hashNext = s.hashNext
	} else {
		t.pidBuckets[s.hashBucket] = s.hashNext
	}
	if s.hashNext != -1 {
		t.slab[s.hashNext].hashPrev = s.hashPrev
	}

	if s.childPrev != -1 {
		t.slab[s.childPrev].childNext = s.childNext
	} else if s.childNext != -1 {
		t.childHeads[s.service] = s.childNext
	} else {
		delete(t.childHeads, s.service)
	}
	if s.childNext != -1 {
		t.slab[s.childNext].childPrev = s.childPrev
	}

	s.inUse = false
	s.pid = -1
	s.conn = Handle{}
	s.gen = nextGeneration(s.gen)

	t.free = append(t.free, h.Index-1)
	return true
}

// Children returns every live PID currently attributed to service.
func (t *ProcTable) Children(service string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pids []int
	for cur, ok := t.childHeads[service]; ok && cur != -1; cur = t.slab[cur].childNext {
		pids = append(pids, t.slab[cur].pid)
	}
	return pids
}

// ConnOf returns the connection group handle associated with a tracked
// child, if any.
func (t *ProcTable) ConnOf(h Handle) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.resolve(h)
	if !ok {
		return Handle{}, false
	}
	return s.conn, s.conn.Valid()
}
