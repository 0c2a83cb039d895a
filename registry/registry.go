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

package registry

import (
	"sync/atomic"

	"github.com/sabouaram/xinetd-go/config"
	"github.com/sabouaram/xinetd-go/service"
)

// Diff summarizes one Reload call against the previously active
// snapshot: which services are brand new, which were matched by
// identity and carried over (mutated in place, possibly needing a
// socket reset), and which no longer appear and are retired.
type Diff struct {
	Added   []*service.Service
	Carried []CarriedService
	Retired []*service.Service
}

// CarriedService is a service matched across reload by identity tuple.
// NeedsReset is true when a field that requires tearing down the live
// listening socket changed: max_child, per_source, or the bound
// port/bind path.
type CarriedService struct {
	Previous   *service.Service
	Next       *service.Service
	NeedsReset bool
}

// Registry publishes the active Snapshot behind a single atomic
// pointer: readers (acceptors, the dispatcher) call Current and never
// block on a concurrent Reload. Reload itself takes no lock, so
// concurrent Reload calls are not serialized against each other.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// New returns an empty Registry; call Reload to load a first snapshot.
func New() *Registry {
	return &Registry{}
}

// Current returns the active snapshot, or nil if none has loaded yet.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Reload parses path and, on success, computes a Diff against the
// current snapshot and atomically publishes the new one. A parse that
// yields zero usable services together with at least one error is
// treated as parse-fatal: the current snapshot is kept and ErrParseFatal
// is returned, wrapping the underlying parse error. A parse with zero
// services and no error publishes an empty snapshot.
func (r *Registry) Reload(path string) (*Diff, error) {
	res, err := config.ParseFile(path)
	if err != nil {
		return nil, ErrParseFatal.Error(err)
	}

	prev := r.current.Load()
	next := NewSnapshot(res.Services)

	diff := computeDiff(prev, next)

	r.current.Store(next)

	return diff, nil
}

func computeDiff(prev, next *Snapshot) *Diff {
	d := &Diff{}

	checked := make(map[service.IdentityTuple]bool)

	for _, svc := range next.Services {
		id := svc.IdentityTuple()
		if prev == nil {
			d.Added = append(d.Added, svc)
			continue
		}

		old, ok := prev.Lookup(id)
		if !ok {
			d.Added = append(d.Added, svc)
			continue
		}

		checked[id] = true
		d.Carried = append(d.Carried, CarriedService{
			Previous:   old,
			Next:       svc,
			NeedsReset: needsReset(old, svc),
		})
	}

	if prev != nil {
		for _, old := range prev.Services {
			id := old.IdentityTuple()
			if !checked[id] {
				d.Retired = append(d.Retired, old)
			}
		}
	}

	return d
}

func needsReset(old, next *service.Service) bool {
	return old.MaxChild != next.MaxChild ||
		old.MaxPerSource != next.MaxPerSource ||
		old.Port != next.Port ||
		old.BindPath != next.BindPath
}
