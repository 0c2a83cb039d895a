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

package sync_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sabouaram/xinetd-go/accept"
	syncaccept "github.com/sabouaram/xinetd-go/accept/sync"
	"github.com/sabouaram/xinetd-go/service"
	"github.com/sabouaram/xinetd-go/signalbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDispatcher struct{ handled chan *service.Service }

func (s *stubDispatcher) Handle(ctx context.Context, svc *service.Service, conn net.Conn) error {
	conn.Close()
	s.handled <- svc
	return nil
}

type stubReaper struct{ polls int }

func (s *stubReaper) Poll() error { s.polls++; return nil }

func TestAcceptorDispatchesConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	svc := &service.Service{Name: "echo"}
	disp := &stubDispatcher{handled: make(chan *service.Service, 1)}
	bus := signalbus.New(1)

	a := syncaccept.New([]accept.Listener{{Service: svc, Listener: ln}}, disp, &stubReaper{}, bus)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = a.Run(ctx) }()
	defer cancel()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case got := <-disp.handled:
		assert.Same(t, svc, got)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never invoked")
	}
}

func TestAcceptorStopsOnTerminateSignal(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	bus := signalbus.New(1)
	a := syncaccept.New([]accept.Listener{{Service: &service.Service{}, Listener: ln}}, &stubDispatcher{handled: make(chan *service.Service, 1)}, &stubReaper{}, bus)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	require.NoError(t, bus.Post(signalbus.Signal{Code: signalbus.Terminate}))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("acceptor did not stop on Terminate")
	}
}
