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

// Package service holds the published, immutable definition of one
// listening service and the mutable runtime state layered on top of it.
// A Service is built once by the configuration parser and never mutated
// in place afterward; reconfiguration publishes a replacement value
// instead, so anything holding a *Service can keep using it without
// locking.
package service

import (
	"sync"

	"github.com/sabouaram/xinetd-go/geoacl"
	"github.com/sabouaram/xinetd-go/netacl"
	"github.com/sabouaram/xinetd-go/timeacl"
)

// SocketKind is the service's socket type.
type SocketKind int

const (
	SocketStream SocketKind = iota
	SocketDatagram
	SocketRaw
	SocketRDM
	SocketSeqPacket
)

// Family is the service's protocol family.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
	FamilyUnix
)

// WaitMode selects single-threaded ("wait") or multi-threaded
// ("nowait") acceptance for a service.
type WaitMode int

const (
	WaitSingle WaitMode = iota
	WaitMulti
)

// Verdict is a tri-state ACL default: unset defers to "allow", and the
// two set states are mutually exclusive by construction (it is a single
// field, not two independent booleans).
type Verdict int

const (
	VerdictUnset Verdict = iota
	VerdictAllowAll
	VerdictDenyAll
)

// Allow resolves the tri-state to a boolean, matching "allow if unset".
func (v Verdict) Allow() bool {
	return v != VerdictDenyAll
}

// Identity is the user/group/login-class a spawned server runs as.
type Identity struct {
	User       string
	Group      string
	LoginClass string
}

// EnvPolicy controls which variables a spawned server inherits.
type EnvPolicy struct {
	PassThrough []string
	Set         map[string]string
}

// Banners are optional text sent to a connecting client at various
// points in the admission pipeline.
type Banners struct {
	Generic string
	Success string
	Failure string
}

// IPsecPolicy is a placeholder for a future IPsec policy binding; no
// component currently interprets it beyond carrying it through
// reconfiguration.
type IPsecPolicy struct {
	Policy string
}

// Redirect names a remote endpoint a connection is proxied to instead of
// spawning a local server.
type Redirect struct {
	Host string
	Port int
}

// IdentityTuple is the key used by the registry (C8) to decide whether a
// service carries over its listening socket across a reconfiguration.
type IdentityTuple struct {
	Name     string
	Protocol string
	Socket   SocketKind
	Family   Family
	RPC      bool
}

// Service is a service's immutable, published definition. Once returned
// from Validate, a Service is never modified; a reconfiguration produces
// a new Service value and publishes it through the registry instead.
type Service struct {
	Name     string
	Socket   SocketKind
	Family   Family
	Protocol string
	RPC      bool
	Port     int
	BindPath string

	Wait WaitMode

	Identity Identity

	Builtin    string
	ServerPath string
	Argv       []string
	WorkDir    string
	Env        EnvPolicy

	SndBuf int
	RcvBuf int

	MaxChild     int
	CPMMax       int
	CPMCoolDown  int
	MaxPerSource int

	TimeACL *timeacl.ACL
	NetACL  *netacl.ACL

	NetACLDefault Verdict

	GeoACL *geoacl.ACL

	GeoACLDefault Verdict
	GeoDatabase   string

	Banners  Banners
	IPsec    *IPsecPolicy
	Redirect *Redirect
}

const maxArgv = 20

// Validate enforces the invariants from the data model: exactly one of
// {builtin, server path}; unix-family services leave port unused and
// require a bind path; non-negative limits; a bounded argv with a
// program name in argv[0].
func (s *Service) Validate() error {
	hasBuiltin := s.Builtin != ""
	hasServer := s.ServerPath != ""

	if !hasBuiltin && !hasServer {
		return ErrMissingHandler.Error(nil)
	}
	if hasBuiltin && hasServer {
		return ErrAmbiguousHandler.Error(nil)
	}

	if s.Family == FamilyUnix {
		if s.Port != 0 {
			return ErrUnixPortUnused.Error(nil)
		}
		if s.BindPath == "" {
			return ErrMissingBindPath.Error(nil)
		}
	}

	if s.MaxChild < 0 || s.MaxPerSource < 0 || s.CPMMax < 0 {
		return ErrNegativeLimit.Error(nil)
	}

	if hasServer {
		if len(s.Argv) == 0 {
			return ErrArgvEmpty.Error(nil)
		}
		if len(s.Argv) > maxArgv {
			return ErrArgvTooLong.Error(nil)
		}
	}

	return nil
}

// IdentityTuple returns the key used to carry a listening socket over
// from a prior snapshot across reconfiguration.
func (s *Service) IdentityTuple() IdentityTuple {
	return IdentityTuple{
		Name:     s.Name,
		Protocol: s.Protocol,
		Socket:   s.Socket,
		Family:   s.Family,
		RPC:      s.RPC,
	}
}

// interned caches Service names so equal names across snapshots compare
// by pointer, matching the teacher's component-key interning idiom.
var interned sync.Map

// Intern returns a canonical *string for name, reusing prior calls'
// result for the same text.
func Intern(name string) *string {
	if v, ok := interned.Load(name); ok {
		return v.(*string)
	}
	v, _ := interned.LoadOrStore(name, &name)
	return v.(*string)
}
