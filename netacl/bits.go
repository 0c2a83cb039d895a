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

package netacl

// go-immutable-radix matches longest common byte prefix, not bit prefix, so
// CIDR masks that don't land on a byte boundary (/24 is fine, /21 is not)
// need bit-granular keys. ipBits expands an address into one key byte per
// bit (0x00 or 0x01), truncated to bitlen bits; LongestPrefix over that key
// space reproduces CIDR longest-prefix-match exactly.
func ipBits(ip []byte, bitlen int) []byte {
	if bitlen > len(ip)*8 {
		bitlen = len(ip) * 8
	}

	out := make([]byte, bitlen)
	for i := 0; i < bitlen; i++ {
		byteIdx := i / 8
		bitIdx := uint(7 - i%8)
		if ip[byteIdx]&(1<<bitIdx) != 0 {
			out[i] = 1
		}
	}

	return out
}
