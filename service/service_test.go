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

package service_test

import (
	"testing"

	"github.com/sabouaram/xinetd-go/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validService() service.Service {
	return service.Service{
		Name:       "echo",
		Family:     service.FamilyIPv4,
		Protocol:   "tcp",
		ServerPath: "/usr/sbin/in.echod",
		Argv:       []string{"in.echod"},
	}
}

func TestValidate_OK(t *testing.T) {
	s := validService()
	require.NoError(t, s.Validate())
}

func TestValidate_MissingHandler(t *testing.T) {
	s := validService()
	s.ServerPath = ""
	require.Error(t, s.Validate())
}

func TestValidate_AmbiguousHandler(t *testing.T) {
	s := validService()
	s.Builtin = "echo"
	require.Error(t, s.Validate())
}

func TestValidate_UnixPortMustBeZero(t *testing.T) {
	s := validService()
	s.Family = service.FamilyUnix
	s.BindPath = "/var/run/echo.sock"
	s.Port = 7
	require.Error(t, s.Validate())
}

func TestValidate_UnixRequiresBindPath(t *testing.T) {
	s := validService()
	s.Family = service.FamilyUnix
	require.Error(t, s.Validate())
}

func TestValidate_UnixOK(t *testing.T) {
	s := validService()
	s.Family = service.FamilyUnix
	s.BindPath = "/var/run/echo.sock"
	require.NoError(t, s.Validate())
}

func TestValidate_NegativeLimitRejected(t *testing.T) {
	s := validService()
	s.MaxChild = -1
	require.Error(t, s.Validate())
}

func TestValidate_ArgvEmptyRejected(t *testing.T) {
	s := validService()
	s.Argv = nil
	require.Error(t, s.Validate())
}

func TestValidate_ArgvTooLongRejected(t *testing.T) {
	s := validService()
	s.Argv = make([]string, 21)
	for i := range s.Argv {
		s.Argv[i] = "x"
	}
	require.Error(t, s.Validate())
}

func TestValidate_BuiltinSkipsArgvCheck(t *testing.T) {
	s := validService()
	s.ServerPath = ""
	s.Argv = nil
	s.Builtin = "echo"
	require.NoError(t, s.Validate())
}

func TestIdentityTuple(t *testing.T) {
	s := validService()
	s.RPC = true
	tup := s.IdentityTuple()
	assert.Equal(t, service.IdentityTuple{
		Name:     "echo",
		Protocol: "tcp",
		Socket:   service.SocketStream,
		Family:   service.FamilyIPv4,
		RPC:      true,
	}, tup)
}

func TestVerdict_UnsetDefaultsToAllow(t *testing.T) {
	var v service.Verdict
	assert.True(t, v.Allow())
}

func TestVerdict_DenyAll(t *testing.T) {
	assert.False(t, service.VerdictDenyAll.Allow())
}

func TestVerdict_AllowAll(t *testing.T) {
	assert.True(t, service.VerdictAllowAll.Allow())
}

func TestIntern_ReturnsSamePointerForSameName(t *testing.T) {
	a := service.Intern("echo")
	b := service.Intern("echo")
	assert.Same(t, a, b)
}

func TestIntern_DifferentNamesDifferentPointers(t *testing.T) {
	a := service.Intern("echo-distinct-1")
	b := service.Intern("echo-distinct-2")
	assert.NotSame(t, a, b)
}
