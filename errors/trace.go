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

package errors

import (
	"path"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
)

const (
	pathSeparator = "/"
	pathVendor    = "vendor"
	pathMod       = "mod"
	pathPkg       = "pkg"
)

var filterPkg = path.Clean(convPathFromLocal(reflect.TypeOf(UnknownError).PkgPath()))

func convPathFromLocal(str string) string {
	return strings.Replace(str, string(filepath.Separator), pathSeparator, -1)
}

func init() {
	if i := strings.LastIndex(filterPkg, pathSeparator+pathVendor+pathSeparator); i != -1 {
		filterPkg = filterPkg[:i+1]
	}
}

// getFrame captures the first caller frame outside this package.
func getFrame() runtime.Frame {
	programCounters := make([]uintptr, 20, 255)
	n := runtime.Callers(2, programCounters)

	if n > 0 {
		frames := runtime.CallersFrames(programCounters[:n])
		more := true

		for more {
			var frame runtime.Frame
			frame, more = frames.Next()

			if strings.Contains(frame.Function, filterPkg) {
				continue
			}

			return runtime.Frame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			}
		}
	}

	return getNilFrame()
}

func frameAt(file string, line int) runtime.Frame {
	return runtime.Frame{File: file, Line: line}
}

func getNilFrame() runtime.Frame {
	return runtime.Frame{Function: "", File: "", Line: 0}
}

func filterPath(pathname string) string {
	var (
		filterMod    = pathSeparator + pathPkg + pathSeparator + pathMod + pathSeparator
		filterVendor = pathSeparator + pathVendor + pathSeparator
	)

	pathname = convPathFromLocal(pathname)

	if i := strings.LastIndex(pathname, filterMod); i != -1 {
		pathname = pathname[i+len(filterMod):]
	}

	if i := strings.LastIndex(pathname, filterPkg); i != -1 {
		pathname = pathname[i+len(filterPkg):]
	}

	if i := strings.LastIndex(pathname, filterVendor); i != -1 {
		pathname = pathname[i+len(filterVendor):]
	}

	pathname = path.Clean(pathname)

	return strings.Trim(pathname, pathSeparator)
}
