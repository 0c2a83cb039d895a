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

// Package netacl implements a BIND-style radix ACL: every accepted
// connection's source address is matched against a set of allow/deny CIDR
// rules, the most specific (longest) prefix match wins, and a configurable
// default verdict applies when nothing matches.
package netacl

import (
	"fmt"
	"net"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix"

	liberr "github.com/sabouaram/xinetd-go/errors"
)

// Rule is one ACL entry as read from service configuration, e.g.
// "10.0.0.0/8" with Allow true, or "0.0.0.0/0" as a catch-all.
type Rule struct {
	CIDR  string
	Allow bool
}

// ACL holds the compiled radix trees for IPv4 and IPv6 rule sets plus the
// default verdict used when no rule matches. An ACL is immutable after
// Build; reconfiguration replaces the pointer rather than mutating a live
// tree, so concurrent Allowed calls never race with a rebuild.
type ACL struct {
	v4      *iradix.Tree
	v6      *iradix.Tree
	byDflt  bool
	hasRule bool
}

// Build compiles rules into an ACL. defaultAllow is the verdict when no
// rule matches any address, mirroring AccessIP's match_default parameter.
// Rules are unique under (verdict, normalized CIDR); a repeat of the same
// pair is rejected as ErrDuplicate.
func Build(rules []Rule, defaultAllow bool) (*ACL, error) {
	a := &ACL{
		v4:     iradix.New(),
		v6:     iradix.New(),
		byDflt: defaultAllow,
	}

	seen := make(map[string]bool, len(rules))

	for _, r := range rules {
		norm, err := normalizeCIDR(r.CIDR)
		if err != nil {
			return nil, err
		}

		dupKey := fmt.Sprintf("%v|%s", r.Allow, norm)
		if seen[dupKey] {
			return nil, ErrDuplicate.Error(fmt.Errorf("rule: %s", norm))
		}
		seen[dupKey] = true

		if err = a.insert(r, norm); err != nil {
			return nil, err
		}
		a.hasRule = true
	}

	return a, nil
}

func normalizeCIDR(raw string) (string, error) {
	cidr := strings.TrimSpace(raw)
	if cidr == "" {
		return "", ErrInvalidCIDR.Error(nil)
	}

	if !strings.Contains(cidr, "/") {
		if strings.Contains(cidr, ":") {
			cidr += "/128"
		} else {
			cidr += "/32"
		}
	}

	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return "", ErrInvalidCIDR.Error(err)
	}

	return network.String(), nil
}

func (a *ACL) insert(r Rule, norm string) error {
	_, network, err := net.ParseCIDR(norm)
	if err != nil {
		return ErrInvalidCIDR.Error(err)
	}

	ones, bits := network.Mask.Size()
	key := ipBits(network.IP, ones)

	if bits == net.IPv4len*8 {
		tree, _, _ := a.v4.Insert(key, r.Allow)
		a.v4 = tree
	} else {
		tree, _, _ := a.v6.Insert(key, r.Allow)
		a.v6 = tree
	}

	return nil
}

// Allowed reports the verdict for addr. With no rules configured at all,
// everything is allowed (an empty ACL is a no-op, matching AccessIP's
// "acl_active() == false" fallback).
func (a *ACL) Allowed(addr net.IP) bool {
	if a == nil || !a.hasRule {
		return true
	}

	v4 := addr.To4()

	var (
		tree *iradix.Tree
		bits int
	)

	if v4 != nil {
		tree, bits = a.v4, net.IPv4len*8
		addr = v4
	} else {
		tree, bits = a.v6, net.IPv6len*8
		addr = addr.To16()
	}

	if addr == nil {
		return a.byDflt
	}

	key := ipBits(addr, bits)

	if _, raw, ok := tree.Root().LongestPrefix(key); ok {
		return raw.(bool)
	}

	return a.byDflt
}

// AllowedString parses s (an IP literal, with or without a port, e.g.
// "203.0.113.5" or "203.0.113.5:443") and applies Allowed.
func (a *ACL) AllowedString(s string) (bool, error) {
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false, ErrInvalidAddress.Error(fmt.Errorf("address: %s", s))
	}

	return a.Allowed(ip), nil
}
