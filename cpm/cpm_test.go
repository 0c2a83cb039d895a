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

package cpm_test

import (
	"testing"
	"time"

	"github.com/sabouaram/xinetd-go/cpm"
	"github.com/stretchr/testify/assert"
)

func TestCheck_AllowsUnderLimit(t *testing.T) {
	c := cpm.NewContainer()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		v := c.Check("ssh", "10.0.0.1", now, 10, 0)
		assert.Equal(t, cpm.Allow, v)
	}
}

func TestCheck_OverLimitTriggersDenial(t *testing.T) {
	c := cpm.NewContainer()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var last cpm.Verdict
	for i := 0; i < 10; i++ {
		last = c.Check("ssh", "10.0.0.1", now, 5, 0)
	}
	assert.Equal(t, cpm.OverLimit, last)
}

func TestCheck_CoolDownBlocksUntilExpiry(t *testing.T) {
	c := cpm.NewContainer()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		c.Check("ssh", "10.0.0.1", now, 5, 30*time.Second)
	}

	v := c.Check("ssh", "10.0.0.1", now.Add(1*time.Second), 5, 30*time.Second)
	assert.Equal(t, cpm.TemporarilyDisabled, v)

	v = c.Check("ssh", "10.0.0.1", now.Add(31*time.Second), 5, 30*time.Second)
	assert.NotEqual(t, cpm.TemporarilyDisabled, v)
}

func TestCheck_CPMMaxZeroDisablesLimiter(t *testing.T) {
	c := cpm.NewContainer()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 100; i++ {
		v := c.Check("ssh", "10.0.0.1", now, 0, 0)
		assert.Equal(t, cpm.Allow, v)
	}
}

func TestCheck_DifferentKeysIndependent(t *testing.T) {
	c := cpm.NewContainer()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		c.Check("ssh", "10.0.0.1", now, 5, 0)
	}
	v := c.Check("ssh", "10.0.0.2", now, 5, 0)
	assert.Equal(t, cpm.Allow, v)
	assert.Equal(t, 2, c.Len())
}

func TestCheck_BucketRotationDropsOldCounts(t *testing.T) {
	c := cpm.NewContainer()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		c.Check("ssh", "10.0.0.1", now, 5, 0)
	}

	later := now.Add(2 * time.Minute)
	v := c.Check("ssh", "10.0.0.1", later, 5, 0)
	assert.Equal(t, cpm.Allow, v)
}

func TestContainer_RecyclesIdleEntry(t *testing.T) {
	c := cpm.NewContainer()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.Check("ssh", "10.0.0.1", now, 5, 0)
	assert.Equal(t, 1, c.Len())

	later := now.Add(61 * time.Second)
	c.Check("ssh", "10.0.0.2", later, 5, 0)

	assert.Equal(t, 1, c.Len())
}
