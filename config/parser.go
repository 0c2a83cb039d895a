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

// Package config implements the sectioned directive grammar used to
// describe services: include/includedir directives, a single optional
// defaults block, and one or more named service blocks, each holding
// KEY op value-list entries with $(KEY) variable expansion against the
// defaults block. Parsing is best-effort: every error is collected in
// Result.Errors and the parser keeps going past it; ParseFile returns an
// error only when no service could be built and at least one error was
// collected.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/sabouaram/xinetd-go/config/attrs"
	"github.com/sabouaram/xinetd-go/geoacl"
	"github.com/sabouaram/xinetd-go/netacl"
	"github.com/sabouaram/xinetd-go/service"
	"github.com/sabouaram/xinetd-go/timeacl"
)

const maxExpansionDepth = 4

// rawEntry is one KEY op value-list line before attribute-specific
// interpretation.
type rawEntry struct {
	key    string
	op     attrs.Op
	values []string
	line   int
}

// rawBlock is a "defaults" or "service NAME" block as parsed, before
// merging with defaults and building a service.Service.
type rawBlock struct {
	name    string
	isDflt  bool
	entries []rawEntry
	file    string
}

// Result is everything a successful (or partially successful) parse
// produced.
type Result struct {
	Services []*service.Service
	Errors   *multierror.Error
}

// ParseFile parses path and any include/includedir directives it
// references, and builds the resulting set of services. ParseFile never
// returns a nil Result; check Result.Errors for accumulated diagnostics
// and the returned error for whether the parse was fatal (no usable
// services).
func ParseFile(path string) (*Result, error) {
	blocks, errs := parseTree(path, 0)

	res := &Result{Errors: errs}

	dfltSeen := false
	var dflt rawBlock
	var svcBlocks []rawBlock

	for _, b := range blocks {
		if b.isDflt {
			if dfltSeen {
				errs = multierror.Append(errs, ErrMultipleDefaults.Error(fmt.Errorf("file: %s", b.file)))
				continue
			}
			dflt = b
			dfltSeen = true
			continue
		}
		svcBlocks = append(svcBlocks, b)
	}

	seenNames := make(map[string]bool, len(svcBlocks))

	for _, b := range svcBlocks {
		if seenNames[b.name] {
			errs = multierror.Append(errs, ErrDuplicateService.Error(fmt.Errorf("service: %s", b.name)))
			continue
		}
		seenNames[b.name] = true

		svc, err := buildService(b, dflt)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if svc == nil {
			continue
		}
		res.Services = append(res.Services, svc)
	}

	res.Errors = errs

	if len(res.Services) == 0 && errs != nil && errs.Len() > 0 {
		return res, errs.ErrorOrNil()
	}

	return res, nil
}

// parseTree parses path and recursively follows include/includedir,
// accumulating every block found and every diagnostic raised, rather
// than stopping at the first bad file.
func parseTree(path string, depth int) ([]rawBlock, *multierror.Error) {
	var errs *multierror.Error

	content, err := os.ReadFile(path)
	if err != nil {
		errs = multierror.Append(errs, ErrIncludeUnreadable.Error(fmt.Errorf("%s: %w", path, err)))
		return nil, errs
	}

	toks, err := lex(string(content))
	if err != nil {
		errs = multierror.Append(errs, err)
		return nil, errs
	}

	var blocks []rawBlock

	i := 0
	for i < len(toks) && toks[i].kind != tokEOF {
		t := toks[i]

		if t.kind != tokWord {
			errs = multierror.Append(errs, ErrSyntax.Error(fmt.Errorf("%s:%d: unexpected token", path, t.line)))
			i++
			continue
		}

		switch strings.ToLower(t.text) {
		case "include", "includedir":
			isDir := strings.EqualFold(t.text, "includedir")
			i++
			if i >= len(toks) || toks[i].kind != tokWord {
				errs = multierror.Append(errs, ErrSyntax.Error(fmt.Errorf("%s:%d: include missing path", path, t.line)))
				continue
			}
			target := resolveInclude(path, toks[i].text)
			i++

			var targets []string
			if isDir {
				entries, derr := os.ReadDir(target)
				if derr != nil {
					errs = multierror.Append(errs, ErrIncludeUnreadable.Error(fmt.Errorf("%s: %w", target, derr)))
					break
				}
				names := make([]string, 0, len(entries))
				for _, e := range entries {
					if !e.IsDir() {
						names = append(names, e.Name())
					}
				}
				sort.Strings(names)
				for _, nm := range names {
					targets = append(targets, filepath.Join(target, nm))
				}
			} else {
				targets = []string{target}
			}

			for _, tgt := range targets {
				sub, serr := parseTree(tgt, depth+1)
				blocks = append(blocks, sub...)
				if serr != nil {
					errs = multierror.Append(errs, serr.Errors...)
				}
			}

		case "defaults", "service":
			isDflt := strings.EqualFold(t.text, "defaults")
			i++

			name := ""
			if !isDflt {
				if i >= len(toks) || toks[i].kind != tokWord {
					errs = multierror.Append(errs, ErrSyntax.Error(fmt.Errorf("%s:%d: service missing name", path, t.line)))
					continue
				}
				name = toks[i].text
				i++
			}

			if i >= len(toks) || toks[i].kind != tokLBrace {
				errs = multierror.Append(errs, ErrSyntax.Error(fmt.Errorf("%s:%d: expected '{'", path, t.line)))
				continue
			}
			i++

			block := rawBlock{name: name, isDflt: isDflt, file: path}

			for i < len(toks) && toks[i].kind != tokRBrace && toks[i].kind != tokEOF {
				entry, consumed, eerr := parseEntry(toks[i:], path)
				if eerr != nil {
					errs = multierror.Append(errs, eerr)
					i += consumed
					continue
				}
				block.entries = append(block.entries, entry)
				i += consumed
			}

			if i < len(toks) && toks[i].kind == tokRBrace {
				i++
			} else {
				errs = multierror.Append(errs, ErrSyntax.Error(fmt.Errorf("%s: unterminated block", path)))
			}

			blocks = append(blocks, block)

		default:
			errs = multierror.Append(errs, ErrSyntax.Error(fmt.Errorf("%s:%d: unexpected directive %q", path, t.line, t.text)))
			i++
		}
	}

	return blocks, errs
}

func resolveInclude(fromFile, target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(filepath.Dir(fromFile), target)
}

// parseEntry consumes one KEY op value* entry starting at toks[0],
// returning how many tokens were consumed so the caller can resync even
// on error.
func parseEntry(toks []token, file string) (rawEntry, int, error) {
	key := toks[0]
	if len(toks) < 2 {
		return rawEntry{}, 1, ErrSyntax.Error(fmt.Errorf("%s:%d: entry truncated", file, key.line))
	}

	var op attrs.Op
	switch toks[1].kind {
	case tokOpSet:
		op = attrs.OpSet
	case tokOpAppend:
		op = attrs.OpAppend
	case tokOpRemove:
		op = attrs.OpRemove
	default:
		return rawEntry{}, 2, ErrSyntax.Error(fmt.Errorf("%s:%d: expected an operator after %q", file, key.line, key.text))
	}

	values := make([]string, 0, 2)
	i := 2
	for i < len(toks) && toks[i].kind == tokWord && toks[i].line == key.line {
		values = append(values, toks[i].text)
		i++
	}

	spec, known := attrs.Default[strings.ToLower(key.text)]
	if !known {
		return rawEntry{}, i, ErrUnknownAttribute.Error(fmt.Errorf("%s:%d: %q", file, key.line, key.text))
	}
	if !spec.OpAllowed(op) {
		return rawEntry{}, i, ErrBadOperator.Error(fmt.Errorf("%s:%d: %q", file, key.line, key.text))
	}
	if spec.MaxArity > 0 && len(values) > spec.MaxArity {
		return rawEntry{}, i, ErrBadArity.Error(fmt.Errorf("%s:%d: %q", file, key.line, key.text))
	}

	return rawEntry{
		key:    strings.ToLower(key.text),
		op:     op,
		values: values,
		line:   key.line,
	}, i, nil
}

// mergedValues resolves one key's effective value list for a service
// block: explicit service entries (applying their operators against the
// inherited defaults value when the key is Inherit-eligible), falling
// back to the defaults block's own "=" value when the service has no
// entry at all.
func mergedValues(key string, spec attrs.Spec, svc, dflt rawBlock) ([]string, bool) {
	var base []string
	if spec.Inherit {
		for _, e := range dflt.entries {
			if e.key == key && e.op == attrs.OpSet {
				base = append(base, e.values...)
			}
		}
	}

	found := false
	cur := base

	for _, e := range svc.entries {
		if e.key != key {
			continue
		}
		found = true
		switch e.op {
		case attrs.OpSet:
			cur = append([]string{}, e.values...)
		case attrs.OpAppend:
			cur = append(cur, e.values...)
		case attrs.OpRemove:
			cur = removeTokens(cur, e.values)
		}
	}

	if !found && len(base) == 0 {
		return nil, false
	}

	return cur, true
}

func removeTokens(from, remove []string) []string {
	rm := make(map[string]bool, len(remove))
	for _, r := range remove {
		rm[r] = true
	}
	out := make([]string, 0, len(from))
	for _, v := range from {
		if !rm[v] {
			out = append(out, v)
		}
	}
	return out
}

// expand resolves $(KEY) references in s against the defaults block,
// up to maxExpansionDepth nested levels.
func expand(s string, dflt rawBlock, depth int) (string, error) {
	if depth > maxExpansionDepth {
		return "", ErrExpansionDepth.Error(fmt.Errorf("value: %s", s))
	}

	for {
		start := strings.Index(s, "$(")
		if start < 0 {
			return s, nil
		}
		end := strings.Index(s[start:], ")")
		if end < 0 {
			return "", ErrSyntax.Error(fmt.Errorf("unterminated variable reference in %q", s))
		}
		end += start

		varName := strings.ToLower(s[start+2 : end])
		var val string
		resolved := false
		for _, e := range dflt.entries {
			if e.key == varName && e.op == attrs.OpSet && len(e.values) > 0 {
				val = e.values[0]
				resolved = true
			}
		}
		if !resolved {
			return "", ErrUnknownVariable.Error(fmt.Errorf("$(%s)", varName))
		}

		expanded, err := expand(val, dflt, depth+1)
		if err != nil {
			return "", err
		}

		s = s[:start] + expanded + s[end+1:]
	}
}

// buildService merges a service block with the defaults block and
// produces a validated *service.Service.
func buildService(svc, dflt rawBlock) (*service.Service, error) {
	get := func(key string) ([]string, bool) {
		spec := attrs.Default[key]
		vals, ok := mergedValues(key, spec, svc, dflt)
		if !ok {
			return nil, false
		}
		out := make([]string, len(vals))
		for i, v := range vals {
			e, err := expand(v, dflt, 0)
			if err != nil {
				out[i] = v
				continue
			}
			out[i] = e
		}
		return out, true
	}

	getOne := func(key string) (string, bool) {
		vals, ok := get(key)
		if !ok || len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	}

	s := &service.Service{Name: svc.name}

	st, ok := getOne("socket_type")
	if !ok {
		return nil, ErrMissingRequired.Error(fmt.Errorf("service %s: socket_type", svc.name))
	}
	switch strings.ToLower(st) {
	case "stream":
		s.Socket = service.SocketStream
	case "dgram":
		s.Socket = service.SocketDatagram
	case "raw":
		s.Socket = service.SocketRaw
	case "rdm":
		s.Socket = service.SocketRDM
	case "seqpacket":
		s.Socket = service.SocketSeqPacket
	default:
		return nil, ErrSyntax.Error(fmt.Errorf("service %s: unknown socket_type %q", svc.name, st))
	}

	if proto, ok := getOne("protocol"); ok {
		s.Protocol = strings.TrimSuffix(strings.TrimSuffix(proto, "4"), "6")
		if strings.HasSuffix(proto, "6") {
			s.Family = service.FamilyIPv6
		}
		if strings.HasPrefix(proto, "rpc/") {
			s.RPC = true
		}
	} else {
		s.Protocol = "tcp"
	}

	if wt, ok := getOne("wait"); ok {
		if strings.EqualFold(wt, "yes") {
			s.Wait = service.WaitSingle
		} else {
			s.Wait = service.WaitMulti
		}
	} else {
		return nil, ErrMissingRequired.Error(fmt.Errorf("service %s: wait", svc.name))
	}

	if u, ok := getOne("user"); ok {
		s.Identity.User = u
	}
	if g, ok := getOne("group"); ok {
		s.Identity.Group = g
	}
	if lc, ok := getOne("login_class"); ok {
		s.Identity.LoginClass = lc
	}

	if srv, ok := getOne("server"); ok {
		s.ServerPath = srv
		s.Argv = append([]string{srv}, mustGet(get, "server_args")...)
	}

	if bp, ok := getOne("bind_path"); ok {
		s.BindPath = bp
		s.Family = service.FamilyUnix
	}

	if wd, ok := getOne("workdir"); ok {
		s.WorkDir = wd
	}

	if p, ok := getOne("port"); ok {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, ErrSyntax.Error(fmt.Errorf("service %s: bad port %q", svc.name, p))
		}
		s.Port = n
	}

	if inst, ok := getOne("instances"); ok {
		if strings.EqualFold(inst, "UNLIMITED") {
			s.MaxChild = 0
		} else if n, err := strconv.Atoi(inst); err == nil {
			s.MaxChild = n
		}
	}

	if ps, ok := getOne("per_source"); ok {
		if n, err := strconv.Atoi(ps); err == nil {
			s.MaxPerSource = n
		}
	}

	if cpm, ok := get("cpm"); ok && len(cpm) > 0 {
		if n, err := strconv.Atoi(cpm[0]); err == nil {
			s.CPMMax = n
		}
		if len(cpm) > 1 {
			if n, err := strconv.Atoi(cpm[1]); err == nil {
				s.CPMCoolDown = n
			}
		}
	}

	if sb, ok := getOne("sndbuf"); ok {
		if n, err := strconv.Atoi(sb); err == nil {
			s.SndBuf = n
		}
	}
	if rb, ok := getOne("rcvbuf"); ok {
		if n, err := strconv.Atoi(rb); err == nil {
			s.RcvBuf = n
		}
	}

	if at, ok := get("access_times"); ok {
		acl, err := timeacl.Build(at)
		if err != nil {
			return nil, err
		}
		s.TimeACL = acl
	}

	if err := buildNetACL(s, get); err != nil {
		return nil, err
	}
	if err := buildGeoACL(s, get); err != nil {
		return nil, err
	}

	if b, ok := getOne("banner"); ok {
		s.Banners.Generic = b
	}
	if b, ok := getOne("banner_success"); ok {
		s.Banners.Success = b
	}
	if b, ok := getOne("banner_fail"); ok {
		s.Banners.Failure = b
	}

	if rd, ok := get("redirect"); ok && len(rd) == 2 {
		port, err := strconv.Atoi(rd[1])
		if err == nil {
			s.Redirect = &service.Redirect{Host: rd[0], Port: port}
		}
	}

	disableNo := false
	if dis, ok := getOne("disable"); ok {
		if strings.EqualFold(dis, "yes") {
			return nil, nil
		}
		disableNo = strings.EqualFold(dis, "no")
	}

	if !disableNo {
		if whitelist := defaultsEnabledList(dflt); len(whitelist) > 0 && !containsFold(whitelist, svc.name) {
			return nil, nil
		}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("service %s: %w", svc.name, err)
	}

	return s, nil
}

func mustGet(get func(string) ([]string, bool), key string) []string {
	v, _ := get(key)
	return v
}

// defaultsEnabledList reads the "enabled" whitelist straight from the
// defaults block's own entries: unlike Inherit-eligible attributes, this
// one is never read through a service block, so it bypasses the
// generic merge path.
func defaultsEnabledList(dflt rawBlock) []string {
	var names []string
	for _, e := range dflt.entries {
		if e.key != "enabled" {
			continue
		}
		switch e.op {
		case attrs.OpSet:
			names = append([]string{}, e.values...)
		case attrs.OpAppend:
			names = append(names, e.values...)
		case attrs.OpRemove:
			names = removeTokens(names, e.values)
		}
	}
	return names
}

func containsFold(list []string, name string) bool {
	for _, v := range list {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

func buildNetACL(s *service.Service, get func(string) ([]string, bool)) error {
	var rules []netacl.Rule
	verdict := service.VerdictUnset

	if allow, ok := get("only_from"); ok {
		for _, v := range allow {
			if strings.EqualFold(v, "ALL") {
				if verdict == service.VerdictDenyAll {
					return service.ErrDefaultVerdictConflict.Error(nil)
				}
				verdict = service.VerdictAllowAll
				continue
			}
			rules = append(rules, netacl.Rule{CIDR: v, Allow: true})
		}
	}
	if deny, ok := get("no_access"); ok {
		for _, v := range deny {
			if strings.EqualFold(v, "ALL") {
				if verdict == service.VerdictAllowAll {
					return service.ErrDefaultVerdictConflict.Error(nil)
				}
				verdict = service.VerdictDenyAll
				continue
			}
			rules = append(rules, netacl.Rule{CIDR: v, Allow: false})
		}
	}

	if len(rules) == 0 && verdict == service.VerdictUnset {
		return nil
	}

	s.NetACLDefault = verdict
	acl, err := netacl.Build(rules, verdict.Allow())
	if err != nil {
		return err
	}
	s.NetACL = acl
	return nil
}

func buildGeoACL(s *service.Service, get func(string) ([]string, bool)) error {
	var rules []geoacl.Rule
	defaultAllow := true

	appendRules := func(vals []string, allow bool) {
		i := 0
		for i < len(vals) {
			if strings.EqualFold(vals[i], "ALL") {
				defaultAllow = allow
				i++
				continue
			}
			if i+1 >= len(vals) {
				break
			}
			field := geoField(vals[i])
			rules = append(rules, geoacl.Rule{Field: field, Spec: vals[i+1], Allow: allow})
			i += 2
		}
	}

	if allow, ok := get("geoip_allow"); ok {
		appendRules(allow, true)
	}
	if deny, ok := get("geoip_deny"); ok {
		appendRules(deny, false)
	}

	if len(rules) == 0 {
		return nil
	}

	if defaultAllow {
		s.GeoACLDefault = service.VerdictAllowAll
	} else {
		s.GeoACLDefault = service.VerdictDenyAll
	}

	db, _ := get("geoip_db")
	path := ""
	if len(db) > 0 {
		path = db[0]
	}
	s.GeoDatabase = path

	acl, err := geoacl.Open(path, rules, defaultAllow)
	if err != nil {
		return err
	}
	s.GeoACL = acl
	return nil
}

func geoField(s string) geoacl.Field {
	switch strings.ToLower(s) {
	case "continent":
		return geoacl.FieldContinent
	case "country":
		return geoacl.FieldCountry
	case "timezone":
		return geoacl.FieldTimeZone
	case "city":
		return geoacl.FieldCity
	default:
		return geoacl.FieldNone
	}
}
