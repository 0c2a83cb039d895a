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

// Package spawner is the default socket-handoff collaborator: it forks
// a server process with the accepted connection's file descriptor
// attached, then waits for it in the background and posts the exit
// event onto the signal bus for the reaper to pick up. Grounded on the
// child-process lifecycle handling in the pack's container runtime
// example, generalized from a container init process to an arbitrary
// inetd-style worker.
package spawner

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/sabouaram/xinetd-go/service"
	"github.com/sabouaram/xinetd-go/signalbus"
)

// Spawner forks service server processes and reports their exit through
// a signal bus.
type Spawner struct {
	bus *signalbus.Bus
}

// New returns a Spawner posting child-exit events onto bus.
func New(bus *signalbus.Bus) *Spawner {
	return &Spawner{bus: bus}
}

// filer is satisfied by every concrete net.Conn this package expects to
// hand off: *net.TCPConn, *net.UnixConn, *net.UDPConn each return a
// dup'd *os.File safe to pass across exec.
type filer interface {
	File() (*os.File, error)
}

// Spawn starts svc.ServerPath with svc.Argv, the accepted connection
// installed as fd 0/1/2 (matching inetd's historical contract of
// wiring the socket to the child's standard streams), and returns the
// forked pid. A background goroutine blocks in cmd.Wait and posts
// signalbus.ChildReaped once the process exits.
func (s *Spawner) Spawn(svc *service.Service, conn net.Conn) (int, error) {
	f, ok := conn.(filer)
	if !ok {
		return 0, ErrNoFileDescriptor.Error(nil)
	}

	fd, err := f.File()
	if err != nil {
		return 0, ErrNoFileDescriptor.Error(err)
	}
	defer fd.Close()

	cmd := exec.Command(svc.ServerPath, svc.Argv[1:]...)
	cmd.Stdin = fd
	cmd.Stdout = fd
	cmd.Stderr = fd
	cmd.Dir = svc.WorkDir
	cmd.Env = buildEnv(svc.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if cred, err := credentialFor(svc.Identity); err == nil && cred != nil {
		cmd.SysProcAttr.Credential = cred
	}

	if err := cmd.Start(); err != nil {
		return 0, ErrSpawnFailed.Error(err)
	}

	pid := cmd.Process.Pid

	go func() {
		err := cmd.Wait()
		status := 0
		if cmd.ProcessState != nil {
			status = cmd.ProcessState.ExitCode()
		}
		_ = s.bus.Post(signalbus.Signal{
			Code:    signalbus.ChildReaped,
			Service: svc.Name,
			Pid:     pid,
			Status:  status,
			Err:     err,
		})
	}()

	return pid, nil
}

func buildEnv(p service.EnvPolicy) []string {
	env := make([]string, 0, len(p.PassThrough)+len(p.Set))
	for _, name := range p.PassThrough {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	for k, v := range p.Set {
		env = append(env, k+"="+v)
	}
	return env
}

func credentialFor(id service.Identity) (*syscall.Credential, error) {
	if id.User == "" {
		return nil, nil
	}

	u, err := user.Lookup(id.User)
	if err != nil {
		return nil, err
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse gid %q: %w", u.Gid, err)
	}

	if id.Group != "" {
		if g, err := user.LookupGroup(id.Group); err == nil {
			if v, err := strconv.ParseUint(g.Gid, 10, 32); err == nil {
				gid = v
			}
		}
	}

	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}
