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

package proctab

const bucketCount = 256

// hashFold is the 5-shift-xor fold used to bucket both PIDs and raw
// address bytes into bucketCount slots.
func hashFold(p []byte) int {
	hv := uint32(0xABC3D20F)
	for _, b := range p {
		hv = (hv << 5) ^ (hv >> 23) ^ uint32(b)
	}
	hv = (hv ^ (hv >> 16)) & (bucketCount - 1)
	return int(hv)
}

func pidBytes(pid int) []byte {
	return []byte{
		byte(pid),
		byte(pid >> 8),
		byte(pid >> 16),
		byte(pid >> 24),
	}
}
