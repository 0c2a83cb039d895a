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

// Package timeacl restricts service availability to one or more
// minute-of-day windows, e.g. "08:00-18:00". An empty window set means
// unrestricted access.
package timeacl

import (
	"fmt"
	"sort"
	"time"
)

// maxRanges mirrors the original implementation's fixed MAXACCESSV slots.
const maxRanges = 10

// Window is a half-open [Start, End) range expressed in minutes since
// midnight (0-1440).
type Window struct {
	Start int
	End   int
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}

func toMinutes(hh, mm int) (int, error) {
	if mm < 0 || mm > 59 || hh < 0 || (mm > 0 && hh > 23) || (mm == 0 && hh > 24) {
		return 0, ErrInvalidRange.Error(nil)
	}
	return hh*60 + mm, nil
}

// Parse converts "HH:MM-HH:MM" into a Window.
func Parse(s string) (Window, error) {
	var shh, smm, ehh, emm int

	if n, err := fmt.Sscanf(s, "%2d:%2d-%2d:%2d", &shh, &smm, &ehh, &emm); err != nil || n != 4 {
		return Window{}, ErrInvalidRange.Error(err)
	}

	start, err := toMinutes(shh, smm)
	if err != nil {
		return Window{}, err
	}

	end, err := toMinutes(ehh, emm)
	if err != nil {
		return Window{}, err
	}

	if start >= end {
		return Window{}, ErrInvalidRange.Error(nil)
	}

	return Window{Start: start, End: end}, nil
}

// ACL holds a bounded set of access windows. A zero-value ACL (no windows)
// allows access at any time.
type ACL struct {
	windows []Window
}

// Build compiles a set of "HH:MM-HH:MM" strings into an ACL. Ranges that
// are fully contained within an already-registered range are folded away;
// a range that contains an existing one replaces it, mirroring
// access_times::push's subsumption rule from the original implementation.
func Build(ranges []string) (*ACL, error) {
	a := &ACL{windows: make([]Window, 0, len(ranges))}

	for _, r := range ranges {
		w, err := Parse(r)
		if err != nil {
			return nil, err
		}
		if err = a.push(w); err != nil {
			return nil, err
		}
	}

	sort.Slice(a.windows, func(i, j int) bool {
		return a.windows[i].Start < a.windows[j].Start
	})

	return a, nil
}

func (a *ACL) push(w Window) error {
	for i, existing := range a.windows {
		if existing.Start >= w.Start && existing.End <= w.End {
			a.windows[i] = w
			return nil
		}
		if w.Start >= existing.Start && w.End <= existing.End {
			return nil
		}
	}

	if len(a.windows) >= maxRanges {
		return ErrTooManyRanges.Error(nil)
	}

	a.windows = append(a.windows, w)
	return nil
}

// Windows returns the compiled, sorted window set.
func (a *ACL) Windows() []Window {
	if a == nil {
		return nil
	}
	return a.windows
}

// Empty reports whether no windows are configured, i.e. access is
// unrestricted.
func (a *ACL) Empty() bool {
	return a == nil || len(a.windows) == 0
}

// Allowed reports whether now falls within any configured window, using
// now's local wall-clock hour and minute.
func (a *ACL) Allowed(now time.Time) bool {
	if a.Empty() {
		return true
	}

	minute := now.Hour()*60 + now.Minute()

	for _, w := range a.windows {
		if minute >= w.Start && minute < w.End {
			return true
		}
	}

	return false
}
