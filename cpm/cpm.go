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

// Package cpm implements a per-(service, remote-address) connections-per-
// minute limiter with an optional cool-down. Each tracked pair gets a ring
// of fixed-width time buckets; arrivals rotate and sum the ring to
// approximate a sliding one-minute window without storing individual
// timestamps.
package cpm

import (
	"container/list"
	"sync"
	"time"
)

const (
	bucketCount      = 6
	bucketGranularity = 10 * time.Second
	idleRecycleAfter  = 60 * time.Second
)

// Verdict is the outcome of a Check call.
type Verdict int

const (
	Allow Verdict = iota
	OverLimit
	TemporarilyDisabled
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case OverLimit:
		return "over-limit"
	case TemporarilyDisabled:
		return "temporarily-disabled"
	default:
		return "unknown"
	}
}

type bucket struct {
	tick  int64
	count int
}

type entry struct {
	key         string
	buckets     [bucketCount]bucket
	lastTouched time.Time
	denyUntil   time.Time
	elem        *list.Element
}

// Container holds every tracked (service, remote-address) bucket set
// behind a single mutex, with a combined map + LRU list so a miss can
// either recycle a cold entry or pull one from a pooled allocator,
// instead of growing without bound.
type Container struct {
	mu     sync.Mutex
	byKey  map[string]*entry
	lru    *list.List
	pool   sync.Pool
}

// NewContainer returns an empty, ready-to-use Container.
func NewContainer() *Container {
	return &Container{
		byKey: make(map[string]*entry),
		lru:   list.New(),
		pool: sync.Pool{
			New: func() interface{} { return &entry{} },
		},
	}
}

// obtain returns a zeroed entry ready for a new key: the coldest LRU entry
// if it has been idle at least idleRecycleAfter and its cool-down has
// expired, otherwise a fresh one from the pool.
func (c *Container) obtain(now time.Time) *entry {
	if back := c.lru.Back(); back != nil {
		cand := back.Value.(*entry)
		if now.Sub(cand.lastTouched) >= idleRecycleAfter && !now.Before(cand.denyUntil) {
			delete(c.byKey, cand.key)
			*cand = entry{elem: back}
			c.lru.MoveToFront(back)
			return cand
		}
	}

	e := c.pool.Get().(*entry)
	*e = entry{}
	e.elem = c.lru.PushFront(e)
	return e
}

// Check records an arrival for (service, remote) at now and reports
// whether it should be admitted. cpmMax <= 0 disables the limiter for
// every key. coolDown, when positive, holds a key at TemporarilyDisabled
// for that long once it goes over limit.
func (c *Container) Check(service, remote string, now time.Time, cpmMax int, coolDown time.Duration) Verdict {
	if cpmMax <= 0 {
		return Allow
	}

	key := service + "|" + remote

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byKey[key]
	if !ok {
		e = c.obtain(now)
		e.key = key
		c.byKey[key] = e
	} else {
		c.lru.MoveToFront(e.elem)
	}

	if coolDown > 0 && now.Before(e.denyUntil) {
		return TemporarilyDisabled
	}

	tick := now.Unix() / int64(bucketGranularity/time.Second)
	idx := int(((tick % bucketCount) + bucketCount) % bucketCount)

	if e.buckets[idx].tick != tick {
		e.buckets[idx] = bucket{tick: tick}
	}
	e.buckets[idx].count++
	e.lastTouched = now

	var sum int
	for _, b := range e.buckets {
		if b.tick >= tick-(bucketCount-1) && b.tick <= tick {
			sum += b.count
		}
	}

	window := bucketGranularity * bucketCount
	rate := sum * 60 / int(window/time.Second)

	if rate > cpmMax {
		if coolDown > 0 {
			e.denyUntil = now.Add(coolDown)
		}
		return OverLimit
	}

	return Allow
}

// Len reports how many (service, remote-address) pairs are currently
// tracked. Exposed for tests and diagnostics.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}
