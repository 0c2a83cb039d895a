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

// Each package below owns a contiguous 100-wide range of CodeError values
// and registers its Message function at the matching Min constant.
const (
	MinPkgConfig   = 100
	MinPkgRegistry = 200
	MinPkgNetACL   = 300
	MinPkgTimeACL  = 400
	MinPkgGeoACL   = 500
	MinPkgCPM      = 600
	MinPkgProcTab  = 700
	MinPkgService  = 800
	MinPkgAccept   = 900
	MinPkgDispatch = 1000
	MinPkgReaper   = 1100
	MinPkgSpawner  = 1200
	MinPkgBuiltin  = 1300
	MinPkgSignal   = 1400
	MinPkgSuper    = 1500
	MinPkgLogger   = 1600
	MinPkgMetrics  = 1700
	MinPkgCmd      = 1800

	MinAvailable = 2000
)
