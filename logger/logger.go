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

// Package logger is the structured-logging adapter every long-running
// component takes a handle to: one logrus.Logger per process, fields
// attached per call site rather than per logger, matching the
// teacher's entry/fields split distilled down to what this daemon
// actually needs.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the concrete type every package above this one logs
// through; dispatch.Logger and reaper.Logger only require the subset of
// methods they call, so a *Logger satisfies both without this package
// importing either.
type Logger = logrus.Logger

// New returns a Logger writing JSON lines to stderr at level, falling
// back to info when level is empty; an unrecognized level name returns
// ErrInvalidLevel.
func New(level string) (*Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		if level != "" {
			return nil, ErrInvalidLevel.Error(err)
		}
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l, nil
}

// WithService returns an entry carrying a "service" field, the
// dimension nearly every log line in this daemon is keyed on.
func WithService(l *Logger, name string) *logrus.Entry {
	return l.WithField("service", name)
}
