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

// Package builtin is the extension point the dispatcher calls into
// instead of forking a server process. Protocol handlers themselves
// (daytime, chargen, discard, ...) are out of scope; this package only
// ships the registry and one reference handler, echo, so the dispatcher
// and acceptor are exercisable end to end without an external binary.
package builtin

import (
	"context"
	"net"
	"sync"
)

// HandlerFunc serves one accepted connection to completion.
type HandlerFunc func(ctx context.Context, conn net.Conn) error

// entry pairs a handler with whether it must run in its own goroutine
// ("fork mode" for stream wait=no style concurrency) rather than inline
// on the caller's goroutine.
type entry struct {
	fn       HandlerFunc
	forkMode bool
}

// Registry maps a service's builtin name to its handler.
type Registry struct {
	mu sync.RWMutex
	m  map[string]entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]entry)}
}

// Register adds name to the registry. forkMode marks a handler that
// should run on its own goroutine rather than inline.
func (r *Registry) Register(name string, fn HandlerFunc, forkMode bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.m[name]; exists {
		return ErrDuplicateBuiltin.Error(nil)
	}
	r.m[name] = entry{fn: fn, forkMode: forkMode}
	return nil
}

// Lookup returns the handler registered for name, if any, and whether it
// runs in fork mode.
func (r *Registry) Lookup(name string) (fn HandlerFunc, forkMode bool, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.m[name]
	if !ok {
		return nil, false, false
	}
	return e.fn, e.forkMode, true
}

// NewDefaultRegistry returns a Registry pre-populated with the builtins
// this module ships: echo only.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("echo", Echo, true)
	return r
}
