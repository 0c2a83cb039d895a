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

package config

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokLBrace
	tokRBrace
	tokOpSet
	tokOpAppend
	tokOpRemove
)

type token struct {
	kind tokenKind
	text string
	line int
}

// lex splits one source file's content into tokens, stripping comments
// and blank lines and honoring single/double quoting with backslash
// escapes limited to the quote character and backslash itself.
func lex(content string) ([]token, error) {
	var toks []token
	line := 1

	runes := []rune(content)
	i := 0
	n := len(runes)

	for i < n {
		c := runes[i]

		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			for i < n && runes[i] != '\n' {
				i++
			}
		case c == '{':
			toks = append(toks, token{tokLBrace, "{", line})
			i++
		case c == '}':
			toks = append(toks, token{tokRBrace, "}", line})
			i++
		case c == '=':
			toks = append(toks, token{tokOpSet, "=", line})
			i++
		case c == '+' && i+1 < n && runes[i+1] == '=':
			toks = append(toks, token{tokOpAppend, "+=", line})
			i += 2
		case c == '-' && i+1 < n && runes[i+1] == '=':
			toks = append(toks, token{tokOpRemove, "-=", line})
			i += 2
		case c == '"' || c == '\'':
			quote := c
			startLine := line
			i++
			var sb strings.Builder
			closed := false
			for i < n {
				if runes[i] == '\\' && i+1 < n && (runes[i+1] == quote || runes[i+1] == '\\') {
					sb.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if runes[i] == quote {
					i++
					closed = true
					break
				}
				if runes[i] == '\n' {
					line++
				}
				sb.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, ErrSyntax.Error(fmt.Errorf("unterminated quote at line %d", startLine))
			}
			toks = append(toks, token{tokWord, sb.String(), startLine})
		default:
			start := i
			startLine := line
			for i < n && !isDelim(runes[i]) {
				i++
			}
			if i == start {
				return nil, ErrSyntax.Error(fmt.Errorf("unexpected character %q at line %d", c, line))
			}
			toks = append(toks, token{tokWord, string(runes[start:i]), startLine})
		}
	}

	toks = append(toks, token{tokEOF, "", line})
	return toks, nil
}

func isDelim(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '{', '}', '#', '"', '\'':
		return true
	default:
		return false
	}
}
