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

package proctab_test

import (
	"net"
	"testing"

	"github.com/sabouaram/xinetd-go/proctab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnTable_GetOrCreate_DisabledWhenCapacityZero(t *testing.T) {
	ct := proctab.NewConnTable()
	_, ok := ct.GetOrCreate(net.ParseIP("10.0.0.1"), 0)
	assert.False(t, ok)
}

func TestConnTable_GetOrCreate_SameAddressReturnsSameHandle(t *testing.T) {
	ct := proctab.NewConnTable()
	h1, ok := ct.GetOrCreate(net.ParseIP("10.0.0.1"), 2)
	require.True(t, ok)
	h2, ok := ct.GetOrCreate(net.ParseIP("10.0.0.1"), 2)
	require.True(t, ok)
	assert.Equal(t, h1, h2)
}

func TestConnTable_NewProc_EnforcesCapacity(t *testing.T) {
	ct := proctab.NewConnTable()
	h, ok := ct.GetOrCreate(net.ParseIP("10.0.0.2"), 1)
	require.True(t, ok)

	require.NoError(t, ct.NewProc(h, proctab.Handle{Index: 1, Generation: 1}))
	assert.Error(t, ct.NewProc(h, proctab.Handle{Index: 2, Generation: 1}))
	assert.Equal(t, 1, ct.Occupancy(h))
}

func TestConnTable_RemoveProc_FreesEmptyGroup(t *testing.T) {
	ct := proctab.NewConnTable()
	h, ok := ct.GetOrCreate(net.ParseIP("10.0.0.3"), 1)
	require.True(t, ok)

	proc := proctab.Handle{Index: 1, Generation: 1}
	require.NoError(t, ct.NewProc(h, proc))
	assert.True(t, ct.RemoveProc(h, proc))

	assert.Equal(t, -1, ct.Occupancy(h))

	h2, ok := ct.GetOrCreate(net.ParseIP("10.0.0.4"), 1)
	require.True(t, ok)
	assert.Equal(t, h.Index, h2.Index)
	assert.NotEqual(t, h.Generation, h2.Generation)
}

func TestProcTable_AddLookupRemove(t *testing.T) {
	pt := proctab.NewProcTable()

	h, err := pt.Add(1234, "ssh", proctab.Handle{})
	require.NoError(t, err)

	found, ok := pt.Lookup(1234)
	require.True(t, ok)
	assert.Equal(t, h, found)

	assert.True(t, pt.Remove(h))
	_, ok = pt.Lookup(1234)
	assert.False(t, ok)
}

func TestProcTable_DuplicatePIDRejected(t *testing.T) {
	pt := proctab.NewProcTable()
	_, err := pt.Add(42, "ssh", proctab.Handle{})
	require.NoError(t, err)

	_, err = pt.Add(42, "ftp", proctab.Handle{})
	assert.Error(t, err)
}

func TestProcTable_ChildrenListsAreIndependentOfHashOrder(t *testing.T) {
	pt := proctab.NewProcTable()

	h1, err := pt.Add(100, "ssh", proctab.Handle{})
	require.NoError(t, err)
	_, err = pt.Add(101, "ftp", proctab.Handle{})
	require.NoError(t, err)
	h3, err := pt.Add(102, "ssh", proctab.Handle{})
	require.NoError(t, err)

	children := pt.Children("ssh")
	assert.ElementsMatch(t, []int{100, 102}, children)

	pt.Remove(h1)
	assert.ElementsMatch(t, []int{102}, pt.Children("ssh"))

	pt.Remove(h3)
	assert.Empty(t, pt.Children("ssh"))
}

func TestProcTable_StaleHandleAfterRecycle(t *testing.T) {
	pt := proctab.NewProcTable()

	h, err := pt.Add(1, "ssh", proctab.Handle{})
	require.NoError(t, err)
	require.True(t, pt.Remove(h))

	h2, err := pt.Add(2, "ssh", proctab.Handle{})
	require.NoError(t, err)

	assert.Equal(t, h.Index, h2.Index)
	assert.NotEqual(t, h.Generation, h2.Generation)
	assert.False(t, pt.Remove(h))
}
