// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package comment cleans documentation comment blocks.
//
// A block such as
//
//	/**
//	 * Adds two numbers.
//	 * @param {number} a
//	 */
//
// normalizes to
//
//	Adds two numbers.
//	@param {number} a
package comment

import (
	"regexp"
	"strings"
)

var (
	lineBreakRe   = regexp.MustCompile(`\r\n?|\n`)
	leadingDecoRe = regexp.MustCompile(`^[\s*]*`)
)

// SplitLines splits text on \n, \r\n and \r.
func SplitLines(text string) []string {
	return lineBreakRe.Split(text, -1)
}

// Strip removes comment decoration from a block's lines.
//
// Description:
//
//	Computes the longest run of whitespace and "*" shared by every line after
//	the first. Lines made only of whitespace and "*" do not constrain that
//	prefix. The prefix is removed from every line after the first; the first
//	line is aligned against a suffix of the prefix when possible, otherwise
//	only its own leading whitespace/"*" run is removed. Trailing whitespace
//	is trimmed and leading/trailing blank lines are dropped.
//
// Inputs:
//
//	lines - The block split into lines. Not modified.
//
// Outputs:
//
//	[]string - The cleaned lines. Empty when the block has no text.
//
// Thread Safety: Safe for concurrent use.
func Strip(lines []string) []string {
	head, haveHead := commonHead(lines, 1)

	out := make([]string, len(lines))
	for i, line := range lines {
		line = strings.TrimRightFunc(line, isSpace)
		switch {
		case i == 0 && haveHead:
			out[i] = alignFirst(line, head)
		case !haveHead || i == 0:
			out[i] = leadingDecoRe.ReplaceAllString(line, "")
		case len(line) < len(head):
			out[i] = ""
		default:
			out[i] = line[len(head):]
		}
	}

	return trimBlank(out)
}

// stripIndent removes the whitespace and "*" prefix shared by every line,
// the first included. Text without comment delimiters goes through here so
// that indentation kept by an earlier pass survives.
func stripIndent(lines []string) []string {
	head, _ := commonHead(lines, 0)
	out := make([]string, len(lines))
	for i, line := range lines {
		line = strings.TrimRightFunc(line, isSpace)
		if len(line) < len(head) {
			continue
		}
		out[i] = line[len(head):]
	}
	return trimBlank(out)
}

func trimBlank(out []string) []string {
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	return out
}

// commonHead computes the shared decoration prefix of lines[from:]. Lines
// made only of whitespace and "*" are ignored.
func commonHead(lines []string, from int) (string, bool) {
	var head string
	haveHead := false
	for i := from; i < len(lines); i++ {
		line := lines[i]
		lineHead := leadingDecoRe.FindString(line)
		if lineHead == line {
			continue
		}
		if !haveHead {
			head, haveHead = lineHead, true
			continue
		}
		same := 0
		for same < len(head) && same < len(lineHead) && head[same] == lineHead[same] {
			same++
		}
		head = head[:same]
	}
	return head, haveHead
}

// alignFirst strips the first line against a suffix of head. "/**  * text"
// style openers leave the text aligned with the following lines.
func alignFirst(line, head string) string {
	for j := 0; j < len(head); j++ {
		if strings.HasPrefix(line, head[j:]) {
			return line[len(head)-j:]
		}
	}
	return leadingDecoRe.ReplaceAllString(line, "")
}

// Normalize cleans a raw comment block and joins it back with "\n".
//
// Normalizing already-normalized text returns it unchanged.
func Normalize(raw string) string {
	if !delimited(raw) {
		return strings.Join(stripIndent(SplitLines(raw)), "\n")
	}
	return strings.Join(Strip(SplitLines(Unwrap(raw))), "\n")
}

func delimited(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), "/*")
}

// Unwrap removes the "/**" or "/*" opener and the "*/" closer of a block
// comment. Text without delimiters is returned as is.
func Unwrap(raw string) string {
	if !delimited(raw) {
		return raw
	}
	s := strings.TrimPrefix(strings.TrimSpace(raw), "/*")
	s = strings.TrimLeft(s, "*")
	s = strings.TrimSuffix(s, "*/")
	return s
}

// Latest returns the normalized text of the most recent block that is not
// empty after normalization.
//
// Inputs:
//
//	blocks - Raw comment blocks, oldest first.
//
// Outputs:
//
//	string - The normalized text.
//	bool   - False if every block normalized to empty text.
func Latest(blocks []string) (string, bool) {
	for i := len(blocks) - 1; i >= 0; i-- {
		if text := Normalize(blocks[i]); text != "" {
			return text, true
		}
	}
	return "", false
}

// Summary returns the leading description paragraph of normalized text: the
// lines before the first blank line or the first "@tag" line.
func Summary(text string) string {
	lines := SplitLines(text)
	end := len(lines)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "@") {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[:end], "\n"))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}
