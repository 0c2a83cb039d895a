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

// Package geoacl restricts service availability by the geographic location
// of the connecting address, resolved against a MaxMind GeoIP2/GeoLite2
// database. A rule matches a continent code, ISO country code, IANA
// timezone name or city name; the first matching rule in registration
// order decides the verdict, falling back to a configured default when
// nothing matches.
package geoacl

import (
	"net"
	"strings"

	geoip2 "github.com/oschwald/geoip2-golang"
)

// Field selects which resolved attribute of the looked-up record a Rule's
// Spec is matched against.
type Field int

const (
	FieldNone Field = iota
	FieldContinent
	FieldCountry
	FieldTimeZone
	FieldCity
)

// Rule matches a resolved geo attribute against Spec, case-insensitively.
// Continent and country specs are ISO codes (e.g. "EU", "FR"); timezone is
// the IANA zone name (e.g. "Europe/Paris"); city is the English city name.
type Rule struct {
	Field Field
	Spec  string
	Allow bool
}

// ACL wraps an open GeoIP2/GeoLite2 database together with the ordered
// rule set matched against each lookup.
type ACL struct {
	db           *geoip2.Reader
	rules        []Rule
	defaultAllow bool
}

// Open opens the MaxMind database at databasePath and compiles rules into
// an ACL. A rule set with FieldCity or FieldTimeZone entries triggers the
// richer City lookup; otherwise the cheaper Country lookup is used,
// mirroring the original implementation's two-tier MMDB_get_value path
// (country.iso_code, falling back to registered_country.iso_code).
func Open(databasePath string, rules []Rule, defaultAllow bool) (*ACL, error) {
	for _, r := range rules {
		if r.Field == FieldNone || r.Spec == "" {
			return nil, ErrInvalidRule.Error(nil)
		}
	}

	db, err := geoip2.Open(databasePath)
	if err != nil {
		return nil, ErrInvalidDatabase.Error(err)
	}

	return &ACL{db: db, rules: rules, defaultAllow: defaultAllow}, nil
}

// Close releases the underlying database handle.
func (a *ACL) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *ACL) needsCity() bool {
	for _, r := range a.rules {
		if r.Field == FieldCity || r.Field == FieldTimeZone {
			return true
		}
	}
	return false
}

// Allowed resolves ip against the database and matches it against the
// compiled rules. An ACL with no rules allows everything, mirroring
// geoips::empty().
func (a *ACL) Allowed(ip net.IP) (bool, error) {
	if a == nil || len(a.rules) == 0 {
		return true, nil
	}

	var continentCode, countryCode, timezone, city string

	if a.needsCity() {
		rec, err := a.db.City(ip)
		if err != nil {
			return false, ErrLookupFailed.Error(err)
		}
		continentCode = rec.Continent.Code
		countryCode = rec.Country.IsoCode
		if countryCode == "" {
			countryCode = rec.RegisteredCountry.IsoCode
		}
		timezone = rec.Location.TimeZone
		city = rec.City.Names["en"]
	} else {
		rec, err := a.db.Country(ip)
		if err != nil {
			return false, ErrLookupFailed.Error(err)
		}
		continentCode = rec.Continent.Code
		countryCode = rec.Country.IsoCode
		if countryCode == "" {
			countryCode = rec.RegisteredCountry.IsoCode
		}
	}

	verdict, matched := matchRules(a.rules, continentCode, countryCode, timezone, city)
	if matched {
		return verdict, nil
	}
	return a.defaultAllow, nil
}

// matchRules holds the pure matching logic, kept separate from the MMDB
// I/O above so it can be exercised without an open database.
func matchRules(rules []Rule, continentCode, countryCode, timezone, city string) (verdict bool, matched bool) {
	for _, r := range rules {
		var value string
		switch r.Field {
		case FieldContinent:
			value = continentCode
		case FieldCountry:
			value = countryCode
		case FieldTimeZone:
			value = timezone
		case FieldCity:
			value = city
		default:
			continue
		}

		if value != "" && strings.EqualFold(value, r.Spec) {
			return r.Allow, true
		}
	}

	return false, false
}
