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
	"strings"

	"github.com/AleutianAI/doctype/services/doctype/comment"
)

// Parse parses a documentation comment into its description and tags.
//
// Description:
//
//	The text is normalized first, so both raw "/** ... */" blocks and already
//	cleaned text are accepted. A tag starts at a line whose first non-blank
//	character is "@" followed by a title; following lines up to the next tag
//	belong to it.
//
//	Recognised tag shapes:
//
//	  @param {Type} name description       (also @arg, @argument)
//	  @param {Type} [name] description     optional parameter
//	  @param {Type} [name=default] ...     optional with default
//	  @param {Type} opts.size ...          property of a documented parameter
//	  @property {Type} name ...            (also @prop)
//	  @returns {Type} description          (also @return)
//	  @type {Type}
//	  @typedef {Type} Name
//	  @callback Name
//	  @this {Type}
//	  @class / @constructor
//
//	Any other title is kept with its text as the description.
//
// Inputs:
//
//	text - The comment text, with or without delimiters.
//
// Outputs:
//
//	*Doc - The parsed comment. Never nil. Malformed tags and types are
//	       recorded on Tag.Err and collected in Doc.Errors.
//
// Thread Safety: Safe for concurrent use.
func Parse(text string) *Doc {
	lines := comment.SplitLines(comment.Normalize(text))
	doc := &Doc{}

	var desc []string
	var body []string
	inTag := false
	flush := func() {
		if !inTag {
			return
		}
		tag := parseTag(strings.TrimRight(strings.Join(body, "\n"), " \t\n"))
		if tag == nil {
			return
		}
		doc.Tags = append(doc.Tags, tag)
		if tag.Err != nil {
			doc.Errors = append(doc.Errors, tag.Err)
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if startsTag(trimmed) {
			flush()
			body = []string{trimmed}
			inTag = true
			continue
		}
		if inTag {
			body = append(body, line)
		} else {
			desc = append(desc, line)
		}
	}
	flush()

	doc.Description = strings.TrimSpace(strings.Join(desc, "\n"))
	return doc
}

func startsTag(line string) bool {
	return len(line) > 1 && line[0] == '@' && isTitleChar(line[1])
}

func isTitleChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// parseTag parses one tag body starting at "@". Returns nil for a body
// without a title.
func parseTag(body string) *Tag {
	end := 1
	for end < len(body) && isTitleChar(body[end]) {
		end++
	}
	title := body[1:end]
	if title == "" {
		return nil
	}
	tag := &Tag{Title: title, Kind: KindOf(title)}
	rest := strings.TrimLeft(body[end:], " \t\n")

	switch tag.Kind {
	case TagParam, TagProperty:
		rest = readType(tag, rest)
		rest = readName(tag, rest)
		if tag.Name == "" && tag.Err == nil {
			tag.Err = fmt.Errorf("%w: @%s without a name", ErrTagSyntax, title)
		}
	case TagReturns:
		rest = readType(tag, rest)
	case TagType, TagThis:
		rest = readType(tag, rest)
		if !tag.HasType && tag.Err == nil {
			// "@this Widget" names the type without braces.
			var word string
			word, rest = readWord(rest)
			if word != "" {
				tag.Name = word
				tag.setType(word)
			}
		}
	case TagTypedef:
		rest = readType(tag, rest)
		tag.Name, rest = readWord(rest)
	case TagCallback:
		tag.Name, rest = readWord(rest)
	case TagClass:
		rest = readType(tag, rest)
		if word, after := readWord(rest); word != "" && !strings.HasPrefix(word, "-") {
			tag.Name, rest = word, after
		}
	}

	tag.Description = cleanDescription(rest)
	return tag
}

// setType records raw as the tag's type and parses it.
func (t *Tag) setType(raw string) {
	t.Type = raw
	t.HasType = true
	expr, err := ParseTypeExpr(raw)
	if err != nil {
		t.Err = err
		return
	}
	t.Expr = expr
}

// readType consumes a leading "{...}" type, honouring nested braces and
// quoted strings.
func readType(tag *Tag, rest string) string {
	if !strings.HasPrefix(rest, "{") {
		return rest
	}
	depth := 0
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '"', '\'':
			if end := strings.IndexByte(rest[i+1:], rest[i]); end >= 0 {
				i += end + 1
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				raw := strings.TrimSpace(rest[1:i])
				remaining := strings.TrimLeft(rest[i+1:], " \t\n")
				if raw == "" {
					tag.Err = fmt.Errorf("%w: @%s has an empty type", ErrTagSyntax, tag.Title)
					return remaining
				}
				tag.setType(raw)
				return remaining
			}
		}
	}
	tag.Err = fmt.Errorf("%w: @%s has unbalanced braces", ErrTagSyntax, tag.Title)
	return ""
}

// readName consumes "name", "[name]" or "[name=default]".
func readName(tag *Tag, rest string) string {
	rest = strings.TrimLeft(rest, " \t\n")
	if !strings.HasPrefix(rest, "[") {
		var word string
		word, rest = readWord(rest)
		tag.Name = word
		return rest
	}

	depth := 0
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '"', '\'':
			if end := strings.IndexByte(rest[i+1:], rest[i]); end >= 0 {
				i += end + 1
			}
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				inner := rest[1:i]
				tag.Optional = true
				if eq := topLevelIndex(inner, '='); eq >= 0 {
					tag.Name = strings.TrimSpace(inner[:eq])
					tag.Default = strings.TrimSpace(inner[eq+1:])
					tag.HasDefault = true
				} else {
					tag.Name = strings.TrimSpace(inner)
				}
				return rest[i+1:]
			}
		}
	}
	if tag.Err == nil {
		tag.Err = fmt.Errorf("%w: @%s has an unclosed '['", ErrTagSyntax, tag.Title)
	}
	return ""
}

// topLevelIndex finds c outside of "[...]" pairs, so "[a[].b=1]" splits at
// the "=".
func topLevelIndex(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case c:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// readWord returns the first whitespace-delimited word and the text after it.
func readWord(rest string) (string, string) {
	rest = strings.TrimLeft(rest, " \t\n")
	end := strings.IndexAny(rest, " \t\n")
	if end < 0 {
		return rest, ""
	}
	return rest[:end], rest[end:]
}

// cleanDescription trims the text and drops a leading "-" separator.
func cleanDescription(rest string) string {
	rest = strings.TrimSpace(rest)
	if rest == "-" {
		return ""
	}
	if strings.HasPrefix(rest, "- ") || strings.HasPrefix(rest, "-\n") || strings.HasPrefix(rest, "-\t") {
		rest = strings.TrimSpace(rest[1:])
	}
	return rest
}
