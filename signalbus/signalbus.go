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

// Package signalbus is the single FIFO pipe the acceptor's main loop
// drains: every asynchronous event that must be handled on that loop
// (a reconfigure request, a child exit, a retry timer, a shutdown
// request) is posted here instead of touching acceptor state directly
// from another goroutine.
package signalbus

import "sync"

// Code identifies what a Signal carries.
type Code int

const (
	// Reconfigure asks the main loop to reload the registry.
	Reconfigure Code = iota
	// Terminate asks the main loop to shut every acceptor down.
	Terminate
	// ChildReaped reports that a spawned child has exited.
	ChildReaped
	// RetryTimerFired reports that a service's starts-window retry
	// timer elapsed and the acceptor may be re-armed.
	RetryTimerFired
)

// Signal is one event posted onto the Bus. Pid/Status/Err are only
// meaningful for ChildReaped; Service is meaningful for ChildReaped and
// RetryTimerFired.
type Signal struct {
	Code    Code
	Service string
	Pid     int
	Status  int
	Err     error
}

// Bus is a bounded, multi-producer single-consumer FIFO. Posting never
// blocks the caller past the buffer's capacity except at the drop
// policy below: a full bus drops the oldest unread signal rather than
// stalling a reaping or reconfiguration goroutine.
type Bus struct {
	mu     sync.Mutex
	ch     chan Signal
	closed bool
}

// New returns a Bus buffering up to capacity pending signals.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bus{ch: make(chan Signal, capacity)}
}

// Post enqueues sig, dropping the oldest pending signal if the bus is
// full. It returns ErrBusClosed once Close has been called.
func (b *Bus) Post(sig Signal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed.Error(nil)
	}

	select {
	case b.ch <- sig:
		return nil
	default:
	}

	select {
	case <-b.ch:
	default:
	}

	select {
	case b.ch <- sig:
	default:
	}
	return nil
}

// C exposes the receive side for a single consuming goroutine's select
// loop.
func (b *Bus) C() <-chan Signal {
	return b.ch
}

// Close stops further Post calls and closes the channel once drained by
// the consumer; callers must not Post after calling Close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}
