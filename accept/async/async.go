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

// Package async is the completion-port-style acceptor variant: a
// bounded worker pool drains the fan-in completion channel so a slow
// dispatch never blocks accepting the next connection.
package async

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sabouaram/xinetd-go/accept"
	"github.com/sabouaram/xinetd-go/signalbus"
)

const idleTick = 30 * time.Second

// maxWorkers bounds the pool at min(2*NumCPU, 64).
func maxWorkers() int64 {
	n := int64(2 * runtime.NumCPU())
	if n > 64 {
		return 64
	}
	if n < 1 {
		return 1
	}
	return n
}

// Acceptor is the bounded-worker-pool acceptor core.
type Acceptor struct {
	listeners  []accept.Listener
	dispatcher accept.Dispatcher
	reaper     accept.Reaper
	bus        *signalbus.Bus
	sem        *semaphore.Weighted
	onSignal   func(signalbus.Signal)
}

// New returns an Acceptor serving listeners with a worker pool bounded
// at min(2*NumCPU, 64).
func New(listeners []accept.Listener, d accept.Dispatcher, r accept.Reaper, bus *signalbus.Bus) *Acceptor {
	return &Acceptor{
		listeners:  listeners,
		dispatcher: d,
		reaper:     r,
		bus:        bus,
		sem:        semaphore.NewWeighted(maxWorkers()),
	}
}

// SetSignalHandler installs a callback invoked for every bus signal
// other than Terminate (which this loop handles itself by returning).
func (a *Acceptor) SetSignalHandler(fn func(signalbus.Signal)) {
	a.onSignal = fn
}

// Run drives the loop until ctx is cancelled or a Terminate signal
// arrives on the bus.
func (a *Acceptor) Run(ctx context.Context) error {
	completions := accept.FanIn(ctx, a.listeners)
	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case c, ok := <-completions:
			if !ok {
				return nil
			}
			if err := a.sem.Acquire(ctx, 1); err != nil {
				c.Conn.Close()
				continue
			}
			go func(c accept.Completion) {
				defer a.sem.Release(1)
				_ = a.dispatcher.Handle(ctx, c.Service, c.Conn)
			}(c)

		case sig := <-a.bus.C():
			if sig.Code == signalbus.Terminate {
				return nil
			}
			if a.onSignal != nil {
				a.onSignal(sig)
			}

		case <-ticker.C:
			_ = a.reaper.Poll()
		}
	}
}
