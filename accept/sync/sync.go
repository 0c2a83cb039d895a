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

// Package sync is the synchronous acceptor variant: a single goroutine
// dispatches one connection at a time, matching historical inetd's
// select-loop concurrency model for wait=yes services.
package sync

import (
	"context"
	"time"

	"github.com/sabouaram/xinetd-go/accept"
	"github.com/sabouaram/xinetd-go/signalbus"
)

// idleTick drives the reaper poll while no connection is pending,
// matching the 30s select timeout of the synchronous model.
const idleTick = 30 * time.Second

// Acceptor is the single-goroutine, one-at-a-time acceptor core.
type Acceptor struct {
	listeners  []accept.Listener
	dispatcher accept.Dispatcher
	reaper     accept.Reaper
	bus        *signalbus.Bus
	onSignal   func(signalbus.Signal)
}

// New returns an Acceptor serving listeners.
func New(listeners []accept.Listener, d accept.Dispatcher, r accept.Reaper, bus *signalbus.Bus) *Acceptor {
	return &Acceptor{listeners: listeners, dispatcher: d, reaper: r, bus: bus}
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
			_ = a.dispatcher.Handle(ctx, c.Service, c.Conn)

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
