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

package async_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sabouaram/xinetd-go/accept"
	asyncaccept "github.com/sabouaram/xinetd-go/accept/async"
	"github.com/sabouaram/xinetd-go/service"
	"github.com/sabouaram/xinetd-go/signalbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDispatcher struct {
	mu    sync.Mutex
	count int
	done  chan struct{}
}

func (d *countingDispatcher) Handle(ctx context.Context, svc *service.Service, conn net.Conn) error {
	conn.Close()
	d.mu.Lock()
	d.count++
	n := d.count
	d.mu.Unlock()
	if n == 3 {
		close(d.done)
	}
	return nil
}

type noopReaper struct{}

func (noopReaper) Poll() error { return nil }

func TestAsyncAcceptorHandlesConcurrentConnections(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	svc := &service.Service{Name: "echo"}
	disp := &countingDispatcher{done: make(chan struct{})}
	bus := signalbus.New(1)

	a := asyncaccept.New([]accept.Listener{{Service: svc, Listener: ln}}, disp, noopReaper{}, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	for i := 0; i < 3; i++ {
		c, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		c.Close()
	}

	select {
	case <-disp.done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all connections were dispatched")
	}

	assert.GreaterOrEqual(t, disp.count, 3)
}
