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

// Package supervisor owns every moving part of one running daemon
// instance — the registry, the signal bus, the dispatcher, the reaper
// and the acceptor — as a single value passed by reference, rather
// than as package-level globals. It is the generalized analogue of the
// teacher's Config interface (Start/Reload/Stop/Shutdown plus
// RegisterFuncStartBefore/After hooks) applied to this daemon's
// lifecycle instead of a pluggable component tree.
package supervisor

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/sabouaram/xinetd-go/accept"
	asyncaccept "github.com/sabouaram/xinetd-go/accept/async"
	syncaccept "github.com/sabouaram/xinetd-go/accept/sync"
	"github.com/sabouaram/xinetd-go/builtin"
	"github.com/sabouaram/xinetd-go/cpm"
	"github.com/sabouaram/xinetd-go/dispatch"
	"github.com/sabouaram/xinetd-go/logger"
	"github.com/sabouaram/xinetd-go/proctab"
	"github.com/sabouaram/xinetd-go/reaper"
	"github.com/sabouaram/xinetd-go/registry"
	"github.com/sabouaram/xinetd-go/service"
	"github.com/sabouaram/xinetd-go/signalbus"
	"github.com/sabouaram/xinetd-go/spawner"
)

// acceptorCore is satisfied by both accept/sync.Acceptor and
// accept/async.Acceptor.
type acceptorCore interface {
	Run(ctx context.Context) error
	SetSignalHandler(fn func(signalbus.Signal))
}

// Options configures a Supervisor at construction.
type Options struct {
	// Async selects the bounded-worker-pool acceptor core over the
	// single-goroutine synchronous one.
	Async bool
	// Toomany is the starts-window threshold passed to the dispatcher;
	// 0 disables the loop guard.
	Toomany int
	// LogLevel is parsed by the logger package; empty defaults to info.
	LogLevel string
}

// Supervisor wires the registry, acceptor, dispatcher and reaper
// together and drives reconfiguration from both explicit Reload calls
// and a filesystem watch on the active configuration file.
type Supervisor struct {
	runID string

	opts Options
	log  *logger.Logger
	met  *Metrics

	reg   *registry.Registry
	bus   *signalbus.Bus
	disp  *dispatch.Dispatcher
	reap  *reaper.Reaper
	procs *proctab.ProcTable
	conns *proctab.ConnTable

	mu       sync.Mutex
	confPath string
	cancel   context.CancelFunc
	acceptor acceptorCore
	watcher  *fsnotify.Watcher
	before   []func()
	after    []func()
	started  bool
}

// New builds a Supervisor from opts. It does not start accepting
// connections until Start is called.
func New(opts Options) (*Supervisor, error) {
	log, err := logger.New(opts.LogLevel)
	if err != nil {
		return nil, err
	}

	bus := signalbus.New(256)
	procs := proctab.NewProcTable()
	conns := proctab.NewConnTable()
	cpmContainer := cpm.NewContainer()
	sp := spawner.New(bus)
	builtins := builtin.NewDefaultRegistry()

	s := &Supervisor{
		runID: uuid.New().String(),
		opts:  opts,
		log:   log,
		met:   NewMetrics(),
		reg:   registry.New(),
		bus:   bus,
		procs: procs,
		conns: conns,
	}

	s.disp = dispatch.New(conns, procs, cpmContainer, sp, builtins, bus, log, opts.Toomany)
	s.reap = reaper.New(procs, conns, log, s.reenable)

	return s, nil
}

// RegisterFuncStartBefore adds a hook run just before listeners open.
func (s *Supervisor) RegisterFuncStartBefore(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before = append(s.before, fn)
}

// RegisterFuncStartAfter adds a hook run just after listeners open.
func (s *Supervisor) RegisterFuncStartAfter(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.after = append(s.after, fn)
}

func (s *Supervisor) reenable(svcName string) {
	s.met.Disabled.WithLabelValues(svcName).Set(0)
}

// Start loads confPath, opens every service's listener, launches the
// acceptor core and begins watching confPath for changes.
func (s *Supervisor) Start(confPath string) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted.Error(nil)
	}
	s.started = true
	s.confPath = confPath
	s.mu.Unlock()

	for _, fn := range s.before {
		fn()
	}

	diff, err := s.reg.Reload(confPath)
	if err != nil {
		return err
	}
	s.met.Reloads.Inc()

	listeners, err := openListeners(diff.Added)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.opts.Async {
		s.acceptor = asyncaccept.New(listeners, s.disp, s.reap, s.bus)
	} else {
		s.acceptor = syncaccept.New(listeners, s.disp, s.reap, s.bus)
	}
	s.acceptor.SetSignalHandler(s.handleSignal)

	go func() { _ = s.acceptor.Run(ctx) }()

	if err := s.watchConfig(confPath); err != nil {
		s.log.Warnf("config watch disabled: %v", err)
	}

	for _, fn := range s.after {
		fn()
	}

	logger.WithService(s.log, "supervisor").Infof("started run_id=%s services=%d", s.runID, len(diff.Added))
	return nil
}

func openListeners(svcs []*service.Service) ([]accept.Listener, error) {
	out := make([]accept.Listener, 0, len(svcs))
	for _, svc := range svcs {
		ln, err := accept.Listen(svc)
		if err != nil {
			return nil, err
		}
		out = append(out, accept.Listener{Service: svc, Listener: ln})
	}
	return out, nil
}

func (s *Supervisor) watchConfig(confPath string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatchFailed.Error(err)
	}
	if err := w.Add(filepath.Dir(confPath)); err != nil {
		w.Close()
		return ErrWatchFailed.Error(err)
	}

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name == confPath && (ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
					_ = s.bus.Post(signalbus.Signal{Code: signalbus.Reconfigure})
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// handleSignal runs on the acceptor's own goroutine for every bus
// signal besides Terminate.
func (s *Supervisor) handleSignal(sig signalbus.Signal) {
	switch sig.Code {
	case signalbus.ChildReaped:
		s.reap.HandleExit(sig)
		s.met.Reaped.WithLabelValues(sig.Service, outcomeLabel(sig.Status)).Inc()
	case signalbus.Reconfigure:
		if err := s.Reload(); err != nil {
			s.log.Warnf("reload failed: %v", err)
		}
	}
}

func outcomeLabel(status int) string {
	if status == 0 {
		return "ok"
	}
	return "error"
}

// Reload re-parses the active configuration file and publishes the
// resulting diff. It opens no listener for a newly added service and
// closes none for a retired one, and Start refuses a second call, so
// the listeners opened by Start are the only ones served.
func (s *Supervisor) Reload() error {
	s.mu.Lock()
	path := s.confPath
	s.mu.Unlock()

	diff, err := s.reg.Reload(path)
	if err != nil {
		return err
	}
	s.met.Reloads.Inc()
	logger.WithService(s.log, "supervisor").Infof(
		"reloaded added=%d carried=%d retired=%d", len(diff.Added), len(diff.Carried), len(diff.Retired))
	return nil
}

// Stop cancels the acceptor loop and stops watching the configuration
// file, but keeps the Supervisor's bookkeeping (proc table, registry)
// intact for inspection.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted.Error(nil)
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
	_ = s.bus.Post(signalbus.Signal{Code: signalbus.Terminate})
	return nil
}

// Shutdown is Stop followed by closing the signal bus; no further
// Start call is supported on a Supervisor afterward.
func (s *Supervisor) Shutdown() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.bus.Close()
	return nil
}

// RunID returns the UUID generated for this Supervisor instance, used
// to correlate log lines and metrics across a single process lifetime.
func (s *Supervisor) RunID() string {
	return s.runID
}
