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

// Package proctab tracks live children and per-source connection groups
// over a slab of fixed slots instead of the pointer-linked lists and
// RB-trees a C inetd uses for the same bookkeeping. Every slot carries a
// generation counter, so a Handle captured before a slot was freed and
// recycled is detected as stale on next use rather than silently
// resolving to whatever now occupies that slot.
package proctab

import "math"

// Handle addresses a slab slot. The zero Handle never refers to a live
// slot; Index is 1-based so the zero value stays invalid without a
// separate sentinel field.
type Handle struct {
	Index      uint32
	Generation uint32
}

// Valid reports whether h could plausibly address a slot (Index != 0).
// It does not by itself prove the slot is still live — pass the handle
// back to the owning table for that.
func (h Handle) Valid() bool {
	return h.Index != 0
}

const maxGeneration = math.MaxUint32

func nextGeneration(g uint32) uint32 {
	if g == maxGeneration {
		return 1
	}
	return g + 1
}
