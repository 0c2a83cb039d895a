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

package dispatch

import liberr "github.com/sabouaram/xinetd-go/errors"

const (
	ErrDeniedByNetACL liberr.CodeError = liberr.MinPkgDispatch + iota
	ErrDeniedByGeoACL
	ErrDeniedByCPM
	ErrDeniedByTimeACL
	ErrServiceLooping
	ErrPerSourceLimit
	ErrMaxChildReached
	ErrNoHandler
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgDispatch, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case ErrDeniedByNetACL:
		return "denied by address ACL"
	case ErrDeniedByGeoACL:
		return "denied by geo ACL"
	case ErrDeniedByCPM:
		return "denied by connections-per-minute limit"
	case ErrDeniedByTimeACL:
		return "denied by time-of-day window"
	case ErrServiceLooping:
		return "service failing (looping), disabled for retry window"
	case ErrPerSourceLimit:
		return "per-source connection limit reached"
	case ErrMaxChildReached:
		return "max_child reached"
	case ErrNoHandler:
		return "service has neither a builtin nor a server path"
	default:
		return liberr.UnknownMessage
	}
}
