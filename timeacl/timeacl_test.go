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

package timeacl_test

import (
	"testing"
	"time"

	"github.com/sabouaram/xinetd-go/timeacl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	w, err := timeacl.Parse("08:00-18:30")
	require.NoError(t, err)
	assert.Equal(t, 8*60, w.Start)
	assert.Equal(t, 18*60+30, w.End)
}

func TestParse_Invalid(t *testing.T) {
	_, err := timeacl.Parse("garbage")
	assert.Error(t, err)

	_, err = timeacl.Parse("18:00-08:00")
	assert.Error(t, err, "start must be before end")
}

func TestACL_EmptyAllowsAlways(t *testing.T) {
	a, err := timeacl.Build(nil)
	require.NoError(t, err)
	assert.True(t, a.Empty())
	assert.True(t, a.Allowed(time.Now()))
}

func TestACL_Allowed(t *testing.T) {
	a, err := timeacl.Build([]string{"09:00-17:00"})
	require.NoError(t, err)

	in := time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local)
	out := time.Date(2026, 1, 1, 20, 0, 0, 0, time.Local)

	assert.True(t, a.Allowed(in))
	assert.False(t, a.Allowed(out))
}

func TestACL_SubsumedRangeIsDropped(t *testing.T) {
	a, err := timeacl.Build([]string{"08:00-20:00", "09:00-10:00"})
	require.NoError(t, err)

	assert.Len(t, a.Windows(), 1)
}

func TestACL_WiderRangeReplacesNarrower(t *testing.T) {
	a, err := timeacl.Build([]string{"09:00-10:00", "08:00-20:00"})
	require.NoError(t, err)

	windows := a.Windows()
	require.Len(t, windows, 1)
	assert.Equal(t, "08:00-20:00", windows[0].String())
}

func TestACL_TooManyRanges(t *testing.T) {
	ranges := make([]string, 0, 11)
	for i := 0; i < 11; i++ {
		ranges = append(ranges, timeacl.Window{Start: i * 60, End: i*60 + 30}.String())
	}

	_, err := timeacl.Build(ranges)
	assert.Error(t, err)
}
