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

package supervisor_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabouaram/xinetd-go/supervisor"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "main.xconf")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestNewBuildsUniqueRunID(t *testing.T) {
	s1, err := supervisor.New(supervisor.Options{})
	require.NoError(t, err)
	s2, err := supervisor.New(supervisor.Options{})
	require.NoError(t, err)

	_, err = uuid.Parse(s1.RunID())
	require.NoError(t, err)
	assert.NotEqual(t, s1.RunID(), s2.RunID())
}

func TestNewRejectsInvalidLogLevel(t *testing.T) {
	_, err := supervisor.New(supervisor.Options{LogLevel: "not-a-level"})
	require.Error(t, err)
}

func TestStartTwiceFails(t *testing.T) {
	p := writeConf(t, `
service cat {
	socket_type = stream
	protocol    = tcp
	wait        = no
	port        = 0
	server      = /bin/cat
}
`)

	s, err := supervisor.New(supervisor.Options{})
	require.NoError(t, err)

	require.NoError(t, s.Start(p))
	defer s.Shutdown()

	err = s.Start(p)
	require.Error(t, err)
}

func TestStopBeforeStartFails(t *testing.T) {
	s, err := supervisor.New(supervisor.Options{})
	require.NoError(t, err)

	err = s.Stop()
	require.Error(t, err)
}

func TestStartRunsHooksInOrder(t *testing.T) {
	p := writeConf(t, `
service cat {
	socket_type = stream
	protocol    = tcp
	wait        = no
	port        = 0
	server      = /bin/cat
}
`)

	s, err := supervisor.New(supervisor.Options{})
	require.NoError(t, err)

	var order []string
	s.RegisterFuncStartBefore(func() { order = append(order, "before") })
	s.RegisterFuncStartAfter(func() { order = append(order, "after") })

	require.NoError(t, s.Start(p))
	defer s.Shutdown()

	require.Equal(t, []string{"before", "after"}, order)
}

func TestReloadPublishesMetricAndSucceeds(t *testing.T) {
	p := writeConf(t, `
service cat {
	socket_type = stream
	protocol    = tcp
	wait        = no
	port        = 0
	server      = /bin/cat
}
`)

	s, err := supervisor.New(supervisor.Options{Async: true})
	require.NoError(t, err)
	require.NoError(t, s.Start(p))
	defer s.Shutdown()

	require.NoError(t, s.Reload())
}

func TestShutdownStopsAndClosesBus(t *testing.T) {
	p := writeConf(t, `
service cat {
	socket_type = stream
	protocol    = tcp
	wait        = no
	port        = 0
	server      = /bin/cat
}
`)

	s, err := supervisor.New(supervisor.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Start(p))

	require.NoError(t, s.Shutdown())
	time.Sleep(10 * time.Millisecond)
}
