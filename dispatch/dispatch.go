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

// Package dispatch runs every accepted connection through the
// admission pipeline before a server process (or builtin) ever touches
// it: address and geo ACLs, the connections-per-minute limiter, the
// time-of-day window, the starts-window loop guard, and per-source /
// max_child capacity, in that order, short-circuiting on the first
// deny.
package dispatch

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sabouaram/xinetd-go/builtin"
	"github.com/sabouaram/xinetd-go/cpm"
	"github.com/sabouaram/xinetd-go/proctab"
	"github.com/sabouaram/xinetd-go/service"
	"github.com/sabouaram/xinetd-go/signalbus"
	"github.com/sabouaram/xinetd-go/spawner"
)

// cntIntvl is the window (seconds) a service's start count is measured
// over; retryTime is how long a looping service stays disabled once
// tripped. Named after the C inetd constants of the same behavior.
const (
	cntIntvl  = 60 * time.Second
	retryTime = 600 * time.Second
)

// startsWindow tracks one service's consecutive-fork counter, the C
// inetd se_count/se_time pair.
type startsWindow struct {
	count       int
	windowStart time.Time
	disabledTil time.Time
}

// Logger is satisfied by *logrus.Logger.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Dispatcher runs the admission pipeline and hands admitted connections
// off to a server process or a builtin handler.
type Dispatcher struct {
	conns    *proctab.ConnTable
	procs    *proctab.ProcTable
	cpm      *cpm.Container
	spawn    *spawner.Spawner
	builtins *builtin.Registry
	bus      *signalbus.Bus
	log      Logger

	// toomany is the start count threshold that trips the loop guard;
	// 0 disables the check, matching the `toomany=0` default.
	toomany int

	mu     sync.Mutex
	starts map[string]*startsWindow
}

// New returns a Dispatcher. toomany is the starts-window threshold
// (0 disables it).
func New(conns *proctab.ConnTable, procs *proctab.ProcTable, c *cpm.Container, sp *spawner.Spawner, builtins *builtin.Registry, bus *signalbus.Bus, log Logger, toomany int) *Dispatcher {
	return &Dispatcher{
		conns:    conns,
		procs:    procs,
		cpm:      c,
		spawn:    sp,
		builtins: builtins,
		bus:      bus,
		log:      log,
		toomany:  toomany,
		starts:   make(map[string]*startsWindow),
	}
}

func remoteIP(conn net.Conn) net.IP {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

// Handle admits conn against svc's ACLs and limits, then either spawns
// svc's server process or invokes its builtin handler. It closes conn
// itself on any deny or on an admission-pipeline error; on successful
// handoff to a forked server, it closes its own copy of the socket once
// the child has its independently duplicated descriptor.
func (d *Dispatcher) Handle(ctx context.Context, svc *service.Service, conn net.Conn) error {
	ip := remoteIP(conn)

	if err := d.admit(svc, ip); err != nil {
		conn.Close()
		return err
	}

	if d.tripStartsWindow(svc.Name) {
		conn.Close()
		return ErrServiceLooping.Error(nil)
	}

	var connHandle proctab.Handle
	var haveGroup bool
	if svc.MaxPerSource > 0 && ip != nil {
		h, ok := d.conns.GetOrCreate(ip, svc.MaxPerSource)
		if ok {
			connHandle = h
			haveGroup = true
		}
	}
	if haveGroup && d.conns.Occupancy(connHandle) >= svc.MaxPerSource {
		conn.Close()
		return ErrPerSourceLimit.Error(nil)
	}

	if count := len(d.procs.Children(svc.Name)); svc.MaxChild > 0 && count >= svc.MaxChild {
		conn.Close()
		return ErrMaxChildReached.Error(nil)
	}

	if svc.Builtin != "" {
		return d.dispatchBuiltin(ctx, svc, conn, connHandle, haveGroup)
	}
	return d.dispatchFork(svc, conn, connHandle, haveGroup)
}

// admit runs the ACL and rate-limit checks; it never touches conn or
// proctab state.
func (d *Dispatcher) admit(svc *service.Service, ip net.IP) error {
	if svc.NetACL != nil && ip != nil {
		if !svc.NetACL.Allowed(ip) {
			return ErrDeniedByNetACL.Error(nil)
		}
	} else if ip != nil && !svc.NetACLDefault.Allow() {
		return ErrDeniedByNetACL.Error(nil)
	}

	if svc.GeoACL != nil && ip != nil {
		ok, err := svc.GeoACL.Allowed(ip)
		if err != nil || !ok {
			return ErrDeniedByGeoACL.Error(err)
		}
	}

	if svc.CPMMax > 0 {
		remote := ""
		if ip != nil {
			remote = ip.String()
		}
		cooldown := time.Duration(svc.CPMCoolDown) * time.Second
		if v := d.cpm.Check(svc.Name, remote, time.Now(), svc.CPMMax, cooldown); v != cpm.Allow {
			return ErrDeniedByCPM.Error(nil)
		}
	}

	if svc.TimeACL != nil && !svc.TimeACL.Empty() && !svc.TimeACL.Allowed(time.Now()) {
		return ErrDeniedByTimeACL.Error(nil)
	}

	return nil
}

// tripStartsWindow implements the se_count/se_time loop guard: the
// first dispatch in a fresh window just stamps it; once count reaches
// toomany within cntIntvl of the window start, the service trips and
// stays denied for retryTime.
func (d *Dispatcher) tripStartsWindow(name string) bool {
	if d.toomany <= 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	w, ok := d.starts[name]
	if !ok {
		w = &startsWindow{}
		d.starts[name] = w
	}

	if !w.disabledTil.IsZero() {
		if now.Before(w.disabledTil) {
			return true
		}
		w.disabledTil = time.Time{}
		w.count = 0
	}

	w.count++
	if w.count == 1 {
		w.windowStart = now
		return false
	}

	if w.count >= d.toomany {
		if now.Sub(w.windowStart) <= cntIntvl {
			w.disabledTil = now.Add(retryTime)
			if d.log != nil {
				d.log.Warnf("%s server failing (looping), disabled for %s", name, retryTime)
			}
			return true
		}
		w.windowStart = now
		w.count = 1
	}
	return false
}

func (d *Dispatcher) dispatchBuiltin(ctx context.Context, svc *service.Service, conn net.Conn, connHandle proctab.Handle, haveGroup bool) error {
	fn, forkMode, ok := d.builtins.Lookup(svc.Builtin)
	if !ok {
		conn.Close()
		return ErrNoHandler.Error(nil)
	}

	// Builtins run inline in this process rather than forking, so they
	// never acquire a proctab handle; haveGroup/connHandle only gate
	// per-source admission above, there is no membership to release.
	run := func() {
		defer conn.Close()
		_ = fn(ctx, conn)
	}

	if forkMode {
		go run()
	} else {
		run()
	}
	return nil
}

func (d *Dispatcher) dispatchFork(svc *service.Service, conn net.Conn, connHandle proctab.Handle, haveGroup bool) error {
	if svc.ServerPath == "" {
		conn.Close()
		return ErrNoHandler.Error(nil)
	}

	pid, err := d.spawn.Spawn(svc, conn)
	// The child holds its own duplicated descriptor; our copy is no
	// longer needed once Spawn returns, success or failure.
	conn.Close()
	if err != nil {
		return err
	}

	procHandle, err := d.procs.Add(pid, svc.Name, connHandle)
	if err != nil {
		return err
	}
	if haveGroup {
		if err := d.conns.NewProc(connHandle, procHandle); err != nil {
			return ErrPerSourceLimit.Error(err)
		}
	}

	if d.log != nil {
		d.log.Infof("%s spawned pid=%d", svc.Name, pid)
	}
	return nil
}
