// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package jsdoc

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokString
	tokNumber
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokLAngle
	tokRAngle
	tokDotLAngle
	tokPipe
	tokComma
	tokColon
	tokQuestion
	tokBang
	tokEquals
	tokStar
	tokEllipsis
)

var tokenNames = map[tokenKind]string{
	tokEOF:       "end of expression",
	tokName:      "name",
	tokString:    "string literal",
	tokNumber:    "number literal",
	tokLParen:    "'('",
	tokRParen:    "')'",
	tokLBrace:    "'{'",
	tokRBrace:    "'}'",
	tokLBracket:  "'['",
	tokRBracket:  "']'",
	tokLAngle:    "'<'",
	tokRAngle:    "'>'",
	tokDotLAngle: "'.<'",
	tokPipe:      "'|'",
	tokComma:     "','",
	tokColon:     "':'",
	tokQuestion:  "'?'",
	tokBang:      "'!'",
	tokEquals:    "'='",
	tokStar:      "'*'",
	tokEllipsis:  "'...'",
}

func (k tokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return "token"
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

var punct = map[byte]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	'{': tokLBrace,
	'}': tokRBrace,
	'[': tokLBracket,
	']': tokRBracket,
	'<': tokLAngle,
	'>': tokRAngle,
	'|': tokPipe,
	',': tokComma,
	':': tokColon,
	'?': tokQuestion,
	'!': tokBang,
	'=': tokEquals,
	'*': tokStar,
}

// lexTypeExpr splits a type expression into tokens. The final token is
// always tokEOF.
func lexTypeExpr(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '.' && i+1 < len(src) && src[i+1] == '<':
			toks = append(toks, token{kind: tokDotLAngle, text: ".<", pos: i})
			i += 2
		case c == '.' && i+2 < len(src) && src[i+1] == '.' && src[i+2] == '.':
			toks = append(toks, token{kind: tokEllipsis, text: "...", pos: i})
			i += 3
		case c == '"' || c == '\'':
			end, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: src[i:end], pos: i})
			i = end
		case c >= '0' && c <= '9' || c == '-' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9':
			start := i
			i++
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], pos: start})
		default:
			if kind, ok := punct[c]; ok {
				toks = append(toks, token{kind: kind, text: string(c), pos: i})
				i++
				continue
			}
			r, _ := utf8.DecodeRuneInString(src[i:])
			if !isNameStart(r) {
				return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrTypeSyntax, r, i)
			}
			end := scanName(src, i)
			toks = append(toks, token{kind: tokName, text: src[i:end], pos: i})
			i = end
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func scanString(src string, start int) (int, error) {
	quote := src[start]
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: unterminated string at offset %d", ErrTypeSyntax, start)
}

// scanName returns the end of a namepath starting at start. Namepaths may
// contain ".", "~" and "#" separators; "module:" paths may also contain "/"
// and "-". A "." directly followed by "<" ends the name.
func scanName(src string, start int) int {
	i := start
	module := false
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case isNameChar(r):
		case r == '.' && i+1 < len(src) && src[i+1] == '<':
			return i
		case r == '.' || r == '~' || r == '#':
		case r == ':' && !module && src[start:i] == "module":
			module = true
		case module && (r == '/' || r == '-' || r == '@'):
		default:
			return i
		}
		i += size
	}
	return i
}

func isNameStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r)
}
