// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package jsdoc parses JSDoc-style documentation comments.
//
// Parse splits a comment into its free-text description and an ordered list
// of tags. Each tag's "{...}" type is parsed by ParseTypeExpr into an Expr.
// Parsing is tolerant: a malformed tag or type is recorded as an error on the
// tag and the remaining tags are still parsed.
package jsdoc

import "strings"

// TagKind classifies a tag title, folding synonyms together.
type TagKind int

const (
	TagOther TagKind = iota
	TagParam
	TagReturns
	TagType
	TagTypedef
	TagProperty
	TagThis
	TagClass
	TagCallback
)

var tagKinds = map[string]TagKind{
	"param":       TagParam,
	"arg":         TagParam,
	"argument":    TagParam,
	"returns":     TagReturns,
	"return":      TagReturns,
	"type":        TagType,
	"typedef":     TagTypedef,
	"property":    TagProperty,
	"prop":        TagProperty,
	"this":        TagThis,
	"class":       TagClass,
	"constructor": TagClass,
	"callback":    TagCallback,
}

// KindOf returns the kind of a tag title ("param", "arg", ...).
func KindOf(title string) TagKind {
	return tagKinds[strings.ToLower(title)]
}

// String returns the canonical title of the kind.
func (k TagKind) String() string {
	switch k {
	case TagParam:
		return "param"
	case TagReturns:
		return "returns"
	case TagType:
		return "type"
	case TagTypedef:
		return "typedef"
	case TagProperty:
		return "property"
	case TagThis:
		return "this"
	case TagClass:
		return "class"
	case TagCallback:
		return "callback"
	default:
		return "other"
	}
}

// Tag is one "@title ..." entry of a comment.
type Tag struct {
	// Title is the tag title as written, without "@".
	Title string

	// Kind is the classified title.
	Kind TagKind

	// Type is the raw text between the tag's braces.
	Type string

	// HasType is set when the tag carried a "{...}" type.
	HasType bool

	// Expr is the parsed type. Nil when the tag has no type or the type did
	// not parse.
	Expr Expr

	// Name is the documented name: "x", "opts.size", "items[].id".
	Name string

	// Optional is set by the "[name]" syntax.
	Optional bool

	// Default is the default value from "[name=default]".
	Default string

	// HasDefault is set when a default value was given.
	HasDefault bool

	// Description is the free text after the name.
	Description string

	// Err is the parse error of the tag or its type, if any.
	Err error
}

// Doc is a parsed comment.
type Doc struct {
	// Description is the text before the first tag.
	Description string

	// Tags are the tags in written order.
	Tags []*Tag

	// Errors collects the errors of all tags, in order.
	Errors []error
}

// Cursor walks a Doc's tags in a single forward pass.
type Cursor struct {
	tags []*Tag
	pos  int
}

// Cursor returns a cursor positioned on the first tag.
func (d *Doc) Cursor() *Cursor {
	return &Cursor{tags: d.Tags}
}

// Current returns the tag under the cursor, or nil when done.
func (c *Cursor) Current() *Tag {
	if c.pos >= len(c.tags) {
		return nil
	}
	return c.tags[c.pos]
}

// Next advances the cursor and returns the new current tag.
func (c *Cursor) Next() *Tag {
	if c.pos < len(c.tags) {
		c.pos++
	}
	return c.Current()
}

// Done reports whether every tag has been consumed.
func (c *Cursor) Done() bool {
	return c.pos >= len(c.tags)
}

// HasTag reports whether the comment contains a tag of the given kind.
func (d *Doc) HasTag(kind TagKind) bool {
	for _, t := range d.Tags {
		if t.Kind == kind {
			return true
		}
	}
	return false
}
