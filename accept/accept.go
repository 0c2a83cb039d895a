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

// Package accept defines the shared contract between the two acceptor
// core variants (accept/sync, accept/async): both fan a set of
// listening sockets in, hand each accepted connection to a Dispatcher,
// and drive a Reaper poll off the same idle tick.
package accept

import (
	"context"
	"net"

	"github.com/sabouaram/xinetd-go/service"
)

// Listener pairs a live net.Listener with the service it was opened
// for, so a fan-in goroutine can label each accepted connection.
type Listener struct {
	Service  *service.Service
	Listener net.Listener
}

// Completion is one accepted connection, labeled with the service whose
// listener produced it.
type Completion struct {
	Service *service.Service
	Conn    net.Conn
}

// Dispatcher is the subset of dispatch.Dispatcher both acceptor
// variants depend on.
type Dispatcher interface {
	Handle(ctx context.Context, svc *service.Service, conn net.Conn) error
}

// Reaper is the subset of reaper.Reaper both acceptor variants drive
// off their idle tick.
type Reaper interface {
	Poll() error
}

// FanIn starts one goroutine per listener, each looping on Accept and
// posting a Completion; it returns the shared completion channel and
// stops feeding it once ctx is cancelled or a listener's Accept fails.
func FanIn(ctx context.Context, listeners []Listener) <-chan Completion {
	out := make(chan Completion)
	for _, l := range listeners {
		l := l
		go func() {
			for {
				conn, err := l.Listener.Accept()
				if err != nil {
					return
				}
				select {
				case out <- Completion{Service: l.Service, Conn: conn}:
				case <-ctx.Done():
					conn.Close()
					return
				}
			}
		}()
	}
	return out
}
