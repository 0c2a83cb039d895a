/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package config

import liberr "github.com/sabouaram/xinetd-go/errors"

const (
	ErrSyntax liberr.CodeError = liberr.MinPkgConfig + iota
	ErrUnknownAttribute
	ErrBadOperator
	ErrBadArity
	ErrMultipleDefaults
	ErrExpansionDepth
	ErrUnknownVariable
	ErrIncludeUnreadable
	ErrDuplicateService
	ErrMissingRequired
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgConfig, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrSyntax:
		return "syntax error"
	case ErrUnknownAttribute:
		return "unknown attribute"
	case ErrBadOperator:
		return "operator not allowed for this attribute"
	case ErrBadArity:
		return "wrong number of values for this attribute"
	case ErrMultipleDefaults:
		return "more than one defaults block"
	case ErrExpansionDepth:
		return "variable expansion nested too deeply"
	case ErrUnknownVariable:
		return "reference to an undefined variable"
	case ErrIncludeUnreadable:
		return "include target could not be read"
	case ErrDuplicateService:
		return "duplicate service block"
	case ErrMissingRequired:
		return "missing required attribute"
	default:
		return liberr.UnknownMessage
	}
}
