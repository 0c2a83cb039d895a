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

package geoacl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// These exercise matchRules directly since Open needs a real MMDB file on
// disk, which this suite does not have access to.

func TestMatchRules_CountryAllow(t *testing.T) {
	rules := []Rule{{Field: FieldCountry, Spec: "FR", Allow: true}}

	verdict, matched := matchRules(rules, "EU", "FR", "", "")
	assert.True(t, matched)
	assert.True(t, verdict)
}

func TestMatchRules_CaseInsensitive(t *testing.T) {
	rules := []Rule{{Field: FieldCountry, Spec: "fr", Allow: true}}

	verdict, matched := matchRules(rules, "EU", "FR", "", "")
	assert.True(t, matched)
	assert.True(t, verdict)
}

func TestMatchRules_FirstMatchWins(t *testing.T) {
	rules := []Rule{
		{Field: FieldCountry, Spec: "FR", Allow: false},
		{Field: FieldContinent, Spec: "EU", Allow: true},
	}

	verdict, matched := matchRules(rules, "EU", "FR", "", "")
	assert.True(t, matched)
	assert.False(t, verdict)
}

func TestMatchRules_NoMatch(t *testing.T) {
	rules := []Rule{{Field: FieldCountry, Spec: "DE", Allow: true}}

	_, matched := matchRules(rules, "EU", "FR", "", "")
	assert.False(t, matched)
}

func TestMatchRules_TimeZoneAndCity(t *testing.T) {
	rules := []Rule{{Field: FieldCity, Spec: "Paris", Allow: false}}

	verdict, matched := matchRules(rules, "EU", "FR", "Europe/Paris", "Paris")
	assert.True(t, matched)
	assert.False(t, verdict)

	rules = []Rule{{Field: FieldTimeZone, Spec: "Europe/Paris", Allow: true}}
	verdict, matched = matchRules(rules, "EU", "FR", "Europe/Paris", "Paris")
	assert.True(t, matched)
	assert.True(t, verdict)
}

func TestMatchRules_EmptyResolvedValueNeverMatches(t *testing.T) {
	rules := []Rule{{Field: FieldCity, Spec: "Paris", Allow: true}}

	_, matched := matchRules(rules, "EU", "FR", "", "")
	assert.False(t, matched)
}

func TestACL_NilOrEmptyAllowsEverything(t *testing.T) {
	var a *ACL
	ok, err := a.Allowed(nil)
	assert.NoError(t, err)
	assert.True(t, ok)

	a = &ACL{}
	ok, err = a.Allowed(nil)
	assert.NoError(t, err)
	assert.True(t, ok)
}
