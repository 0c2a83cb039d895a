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

package reaper_test

import (
	"net"
	"testing"

	"github.com/sabouaram/xinetd-go/proctab"
	"github.com/sabouaram/xinetd-go/reaper"
	"github.com/sabouaram/xinetd-go/signalbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLogger struct{ warned []string }

func (s *stubLogger) Warnf(format string, args ...interface{}) {
	s.warned = append(s.warned, format)
}

func TestHandleExitRemovesProcAndConnMembership(t *testing.T) {
	procs := proctab.NewProcTable()
	conns := proctab.NewConnTable()

	connH, ok := conns.GetOrCreate(net.ParseIP("10.0.0.1"), 4)
	require.True(t, ok)

	procH, err := procs.Add(4242, "echo", connH)
	require.NoError(t, err)
	require.NoError(t, conns.NewProc(connH, procH))
	require.Equal(t, 1, conns.Occupancy(connH))

	var reenabled []string
	r := reaper.New(procs, conns, &stubLogger{}, func(svc string) { reenabled = append(reenabled, svc) })

	r.HandleExit(signalbus.Signal{Code: signalbus.ChildReaped, Pid: 4242, Service: "echo", Status: 0})

	_, ok = procs.Lookup(4242)
	assert.False(t, ok)
	assert.Equal(t, -1, conns.Occupancy(connH))
	assert.Equal(t, []string{"echo"}, reenabled)
}

func TestHandleExitLogsNonzeroStatus(t *testing.T) {
	procs := proctab.NewProcTable()
	conns := proctab.NewConnTable()

	procH, err := procs.Add(99, "echo", proctab.Handle{})
	require.NoError(t, err)
	_ = procH

	log := &stubLogger{}
	r := reaper.New(procs, conns, log, nil)
	r.HandleExit(signalbus.Signal{Code: signalbus.ChildReaped, Pid: 99, Service: "echo", Status: 1})

	assert.Len(t, log.warned, 1)
}

func TestHandleExitIgnoresUnmanagedPid(t *testing.T) {
	procs := proctab.NewProcTable()
	conns := proctab.NewConnTable()
	log := &stubLogger{}
	r := reaper.New(procs, conns, log, nil)

	r.HandleExit(signalbus.Signal{Code: signalbus.ChildReaped, Pid: 777, Status: 0})
	assert.Empty(t, log.warned)
}
