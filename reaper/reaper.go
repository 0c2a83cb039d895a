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

// Package reaper retires proctab bookkeeping once a spawned child has
// exited. It has two entry points into the same cleanup: the
// event-driven path fed by the spawner's per-child cmd.Wait goroutine
// through the signal bus, and a defensive WNOHANG sweep run off the
// acceptor's idle tick that catches any process reaped outside that
// path (a double-fork builtin, a server that reparents its own
// children to init).
package reaper

import (
	"golang.org/x/sys/unix"

	"github.com/sabouaram/xinetd-go/proctab"
	"github.com/sabouaram/xinetd-go/signalbus"
)

// Logger is satisfied by *logrus.Logger; kept minimal so this package
// does not need to import logrus itself.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// Reaper removes a service's proc and connection-group bookkeeping once
// a child exits, and re-enables an acceptor that had been disabled
// solely because the service hit max_child.
type Reaper struct {
	procs *proctab.ProcTable
	conns *proctab.ConnTable
	log   Logger

	// reenable is called with a service name once reaping it may have
	// freed capacity under max_child; the acceptor side decides whether
	// it actually needs re-arming.
	reenable func(service string)
}

// New returns a Reaper operating on procs/conns. reenable may be nil.
func New(procs *proctab.ProcTable, conns *proctab.ConnTable, log Logger, reenable func(service string)) *Reaper {
	return &Reaper{procs: procs, conns: conns, log: log, reenable: reenable}
}

// HandleExit processes one ChildReaped signal from the bus.
func (r *Reaper) HandleExit(sig signalbus.Signal) {
	if sig.Code != signalbus.ChildReaped {
		return
	}
	r.reap(sig.Pid, sig.Service, sig.Status)
}

func (r *Reaper) reap(pid int, svcName string, status int) {
	h, ok := r.procs.Lookup(pid)
	if !ok {
		// Unmanaged: nothing in proctab references this pid.
		return
	}

	if conn, ok := r.procs.ConnOf(h); ok {
		r.conns.RemoveProc(conn, h)
	}
	r.procs.Remove(h)

	if status != 0 && r.log != nil {
		r.log.Warnf("child exited nonzero: program=%s pid=%d status=%d", svcName, pid, status)
	}

	if r.reenable != nil {
		r.reenable(svcName)
	}
}

// Poll performs one non-blocking WNOHANG sweep over exited children not
// already observed through the signal bus, reaping their kernel zombie
// state so the process table does not grow unbounded. It is meant to be
// driven by the acceptor's 30s idle tick.
func (r *Reaper) Poll() error {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
		if err == unix.ECHILD || pid <= 0 {
			return nil
		}
		if err != nil {
			return ErrWaitFailed.Error(err)
		}

		status := 0
		if ws.Exited() {
			status = ws.ExitStatus()
		} else if ws.Signaled() {
			status = 128 + int(ws.Signal())
		}
		r.reap(pid, "", status)
	}
}
