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

// Package attrs describes, for every recognized service/defaults
// attribute, whether it is required, repeatable, inheritable from the
// defaults block, which operators it accepts, and its maximum arity.
// The parser rejects keys missing from this table and checks each
// entry's operator and arity against it; the values themselves are
// interpreted key by key inside the parser.
package attrs

// Op is one of the three assignment operators a config entry may use.
type Op int

const (
	OpSet Op = iota
	OpAppend
	OpRemove
)

// Handler is the shape of a per-key value handler: it receives the raw
// value tokens for one entry and the operator used. Spec has no Handler
// field and the parser calls none; it interprets each key's values
// itself.
type Handler func(op Op, values []string) error

// Spec is one attribute's table entry.
type Spec struct {
	// Required marks an attribute that a service block cannot do
	// without. The parser does not read this flag; it checks socket_type
	// and wait itself when it builds a service.
	Required bool

	// Multi marks a list-valued attribute. The parser does not read this
	// flag: any key may repeat within one block, and each entry is
	// applied in declaration order.
	Multi bool

	// AllowOp restricts which operators this attribute accepts; nil
	// means all three ("=", "+=", "-=") are allowed.
	AllowOp []Op

	// Inherit means a service block with no entry for this key takes
	// the defaults block's value verbatim.
	Inherit bool

	// MaxArity caps the number of value tokens per entry; zero means
	// unbounded.
	MaxArity int
}

// Table maps attribute key to its Spec. Keys are the lowercase
// directive names as they appear in source files.
type Table map[string]Spec

// OpAllowed reports whether op is permitted for spec; an empty AllowOp
// permits every operator.
func (s Spec) OpAllowed(op Op) bool {
	if len(s.AllowOp) == 0 {
		return true
	}
	for _, o := range s.AllowOp {
		if o == op {
			return true
		}
	}
	return false
}

// Default is the attribute table for the grammar in use: socket/wait are
// required and single-valued; list attributes (only_from, no_access,
// access_times, geoip_allow/deny, passenv) are multi-valued and
// inheritable; env is multi-valued but not inherited, matching the
// convention that environment overrides are additive per service.
var Default = Table{
	"socket_type":  {Required: true, MaxArity: 1},
	"protocol":     {MaxArity: 1, Inherit: true},
	"wait":         {Required: true, MaxArity: 1},
	"user":         {MaxArity: 1, Inherit: true},
	"group":        {MaxArity: 1, Inherit: true},
	"login_class":  {MaxArity: 1, Inherit: true},
	"server":       {MaxArity: 1},
	"server_args":  {Multi: true},
	"port":         {MaxArity: 1},
	"bind_path":    {MaxArity: 1},
	"instances":    {MaxArity: 1, Inherit: true},
	"per_source":   {MaxArity: 1, Inherit: true},
	"cpm":          {MaxArity: 2, Inherit: true},
	"access_times": {Multi: true, Inherit: true},
	"only_from":    {Multi: true, Inherit: true, AllowOp: []Op{OpSet, OpAppend, OpRemove}},
	"no_access":    {Multi: true, Inherit: true, AllowOp: []Op{OpSet, OpAppend, OpRemove}},
	"geoip_allow":  {Multi: true, Inherit: true},
	"geoip_deny":   {Multi: true, Inherit: true},
	"geoip_db":     {MaxArity: 1, Inherit: true},
	"env":          {Multi: true},
	"passenv":      {Multi: true, Inherit: true, AllowOp: []Op{OpSet, OpAppend, OpRemove}},
	"enabled":      {Multi: true, AllowOp: []Op{OpSet, OpAppend, OpRemove}},
	"disable":      {MaxArity: 1},
	"flags":        {Multi: true, Inherit: true, AllowOp: []Op{OpSet, OpAppend, OpRemove}},
	"banner":       {MaxArity: 1, Inherit: true},
	"banner_success": {MaxArity: 1, Inherit: true},
	"banner_fail":  {MaxArity: 1, Inherit: true},
	"redirect":     {MaxArity: 2},
	"bind":         {MaxArity: 1, Inherit: true},
	"rpc_version":  {MaxArity: 1},
	"workdir":      {MaxArity: 1, Inherit: true},
	"sndbuf":       {MaxArity: 1, Inherit: true},
	"rcvbuf":       {MaxArity: 1, Inherit: true},
}
