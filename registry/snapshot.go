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

// Package registry holds the currently active set of services as an
// immutable Snapshot, published through a single atomic pointer so
// acceptors reading it never block on a concurrent reload.
package registry

import (
	"github.com/sabouaram/xinetd-go/service"
)

// Snapshot is an immutable, published view of every service currently
// known to the registry, plus a by-identity index used to carry records
// over across a reload.
type Snapshot struct {
	Services []*service.Service
	byID     map[service.IdentityTuple]*service.Service
}

// NewSnapshot builds a Snapshot and its identity index from svcs.
func NewSnapshot(svcs []*service.Service) *Snapshot {
	idx := make(map[service.IdentityTuple]*service.Service, len(svcs))
	for _, s := range svcs {
		idx[s.IdentityTuple()] = s
	}
	return &Snapshot{Services: svcs, byID: idx}
}

// Lookup returns the service carrying identity tuple id, if any.
func (s *Snapshot) Lookup(id service.IdentityTuple) (*service.Service, bool) {
	if s == nil {
		return nil, false
	}
	svc, ok := s.byID[id]
	return svc, ok
}

// ByName returns the first service named name, if any; service names
// are unique within one snapshot by construction (the parser rejects
// duplicate service blocks).
func (s *Snapshot) ByName(name string) (*service.Service, bool) {
	if s == nil {
		return nil, false
	}
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return nil, false
}
