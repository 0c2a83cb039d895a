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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sabouaram/xinetd-go/config"
	"github.com/sabouaram/xinetd-go/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestParseFile_BasicServiceBlock(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
service echo {
	socket_type = stream
	wait = no
	user = nobody
	server = /usr/sbin/in.echod
	server_args = -v
	port = 7
}
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	require.Len(t, res.Services, 1)

	s := res.Services[0]
	assert.Equal(t, "echo", s.Name)
	assert.Equal(t, service.SocketStream, s.Socket)
	assert.Equal(t, service.WaitMulti, s.Wait)
	assert.Equal(t, "nobody", s.Identity.User)
	assert.Equal(t, []string{"/usr/sbin/in.echod", "-v"}, s.Argv)
	assert.Equal(t, 7, s.Port)
}

func TestParseFile_DefaultsInheritanceAndOverride(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
defaults {
	instances = 40
	per_source = 10
	only_from = 10.0.0.0/8
}

service echo {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.echod
}

service chargen {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.chargend
	instances = 5
}
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	require.Len(t, res.Services, 2)

	byName := map[string]*service.Service{}
	for _, s := range res.Services {
		byName[s.Name] = s
	}

	assert.Equal(t, 40, byName["echo"].MaxChild)
	assert.Equal(t, 10, byName["echo"].MaxPerSource)
	assert.NotNil(t, byName["echo"].NetACL)

	assert.Equal(t, 5, byName["chargen"].MaxChild)
}

func TestParseFile_DisableYesDropsService(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
service echo {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.echod
	disable = yes
}
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	assert.Empty(t, res.Services)
}

func TestParseFile_EnabledWhitelistExcludesUnlistedService(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
defaults {
	enabled = echo
}

service echo {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.echod
}

service chargen {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.chargend
}
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	require.Len(t, res.Services, 1)
	assert.Equal(t, "echo", res.Services[0].Name)
}

func TestParseFile_LocalDisableNoOverridesWhitelist(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
defaults {
	enabled = echo
}

service chargen {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.chargend
	disable = no
}
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	require.Len(t, res.Services, 1)
	assert.Equal(t, "chargen", res.Services[0].Name)
}

func TestParseFile_VariableExpansion(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
defaults {
	login_class = daemon
}

service echo {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.echod
	login_class = $(login_class)
}
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	require.Len(t, res.Services, 1)
	assert.Equal(t, "daemon", res.Services[0].Identity.LoginClass)
}

func TestParseFile_IncludeDirective(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "echo.xconf", `
service echo {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.echod
}
`)
	p := writeFile(t, dir, "main.xconf", `
include echo.xconf
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	require.Len(t, res.Services, 1)
	assert.Equal(t, "echo", res.Services[0].Name)
}

func TestParseFile_DuplicateServiceNameIsAnError(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
service echo {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.echod
}

service echo {
	socket_type = dgram
	wait = no
	server = /usr/sbin/in.echod2
}
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	require.Len(t, res.Services, 1)
	require.NotNil(t, res.Errors)
	assert.Greater(t, res.Errors.Len(), 0)
}

func TestParseFile_MultipleDefaultsBlocksIsAnError(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
defaults {
	instances = 10
}
defaults {
	instances = 20
}
service echo {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.echod
}
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	require.NotNil(t, res.Errors)
	assert.Greater(t, res.Errors.Len(), 0)
}

func TestParseFile_UnixBindPath(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
service echo {
	socket_type = stream
	wait = no
	server = /usr/sbin/in.echod
	bind_path = /var/run/echo.sock
}
`)

	res, err := config.ParseFile(p)
	require.NoError(t, err)
	require.Len(t, res.Services, 1)
	assert.Equal(t, service.FamilyUnix, res.Services[0].Family)
	assert.Equal(t, "/var/run/echo.sock", res.Services[0].BindPath)
}

func TestParseFile_AllFatalWithNoServices(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "main.xconf", `
service broken {
	socket_type = stream
}
`)

	res, err := config.ParseFile(p)
	require.Error(t, err)
	assert.Empty(t, res.Services)
}
