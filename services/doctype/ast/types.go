// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts documentable declarations from JavaScript source.
//
// The parser is built on tree-sitter. It reports every module-level
// declaration together with the raw comment blocks that precede it, the
// declared parameter names and a coarse classification of the assigned
// value, which is what the doc comment pipeline needs to seed and annotate
// the type graph.
package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Sentinel errors for parsing.
var (
	// ErrFileTooLarge is returned when content exceeds the configured size.
	ErrFileTooLarge = errors.New("file exceeds maximum parse size")

	// ErrInvalidContent is returned for content that is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")
)

// DeclKind is the syntactic kind of a declaration.
type DeclKind int

const (
	// DeclFunction is "function f() {}".
	DeclFunction DeclKind = iota

	// DeclVariable is one declarator of var, let or const.
	DeclVariable

	// DeclAssignment is "a.b = value" at statement level.
	DeclAssignment

	// DeclClass is "class C {}".
	DeclClass

	// DeclMethod is a class method, including the constructor.
	DeclMethod

	// DeclField is a class field.
	DeclField

	// DeclProperty is a property of an object literal.
	DeclProperty

	// DeclDefineProperty is Object.defineProperty(obj, "name", descriptor).
	DeclDefineProperty

	// DeclClosure is an anonymous function expression that is not the value
	// of a declaration, such as an IIFE or a UMD factory. It has no name;
	// only its Params and Body matter.
	DeclClosure
)

// String returns the kind name.
func (k DeclKind) String() string {
	switch k {
	case DeclFunction:
		return "function"
	case DeclVariable:
		return "variable"
	case DeclAssignment:
		return "assignment"
	case DeclClass:
		return "class"
	case DeclMethod:
		return "method"
	case DeclField:
		return "field"
	case DeclProperty:
		return "property"
	case DeclDefineProperty:
		return "define_property"
	case DeclClosure:
		return "closure"
	default:
		return "unknown"
	}
}

// ValueKind classifies the value a declaration assigns.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueFunction
	ValueClass
	ValueObject
	ValueArray
	ValueString
	ValueNumber
	ValueBool
	ValueNull
	// ValueNew is "new Ctor(...)"; Declaration.ValueRef names Ctor.
	ValueNew
	// ValueRef is a plain or dotted reference; Declaration.ValueRef names it.
	ValueRef
)

// String returns the value kind name.
func (v ValueKind) String() string {
	switch v {
	case ValueFunction:
		return "function"
	case ValueClass:
		return "class"
	case ValueObject:
		return "object"
	case ValueArray:
		return "array"
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	case ValueBool:
		return "bool"
	case ValueNull:
		return "null"
	case ValueNew:
		return "new"
	case ValueRef:
		return "ref"
	default:
		return "none"
	}
}

// Declaration is one documentable declaration.
type Declaration struct {
	// ID is a stable identifier derived from file, line and path.
	ID string `json:"id"`

	// Kind is the syntactic kind.
	Kind DeclKind `json:"kind"`

	// Name is the declared name: the identifier, the property key or the
	// last segment of an assignment target.
	Name string `json:"name"`

	// Path is the dotted path the declaration defines ("Widget.prototype.render",
	// "config.options"). Equal to Name for plain identifiers.
	Path string `json:"path"`

	// Owner is the class name for methods and fields, the object path for
	// properties and the target object for defineProperty calls.
	Owner string `json:"owner,omitempty"`

	// Params are the declared parameter names of a function value, or of the
	// constructor for classes.
	Params []string `json:"params,omitempty"`

	// Value classifies the assigned value.
	Value ValueKind `json:"value"`

	// ValueRef names the constructor of ValueNew or the referenced path of
	// ValueRef.
	ValueRef string `json:"value_ref,omitempty"`

	// Static marks static class members.
	Static bool `json:"static,omitempty"`

	// Exported marks declarations inside an export statement.
	Exported bool `json:"exported,omitempty"`

	// Comments are the raw comment blocks directly preceding the
	// declaration, oldest first.
	Comments []string `json:"comments,omitempty"`

	// StartLine and EndLine are 1-indexed.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// Members are class members or object literal properties.
	Members []*Declaration `json:"members,omitempty"`

	// Body are the declarations inside the function body of this
	// declaration's value, in source order.
	Body []*Declaration `json:"body,omitempty"`
}

// IsFunction reports whether the declaration defines a function.
func (d *Declaration) IsFunction() bool {
	return d.Kind == DeclFunction || d.Kind == DeclMethod || d.Kind == DeclClosure || d.Value == ValueFunction
}

// Walk calls fn for d, every nested member and every body declaration,
// depth first.
func (d *Declaration) Walk(fn func(*Declaration)) {
	fn(d)
	for _, m := range d.Members {
		m.Walk(fn)
	}
	for _, b := range d.Body {
		b.Walk(fn)
	}
}

// ParseResult is the outcome of parsing one file.
type ParseResult struct {
	// FilePath is the path the file was parsed under.
	FilePath string `json:"file_path"`

	// Hash is the SHA-256 of the content, hex encoded.
	Hash string `json:"hash"`

	// ParsedAtMilli is the parse time in Unix milliseconds.
	ParsedAtMilli int64 `json:"parsed_at_milli"`

	// Declarations are the module-level declarations in source order.
	// Declarations nested in function bodies hang off Declaration.Body.
	Declarations []*Declaration `json:"declarations"`

	// Errors are non-fatal problems, such as syntax error regions.
	Errors []string `json:"errors,omitempty"`
}

// Count returns the number of declarations including nested members.
func (r *ParseResult) Count() int {
	n := 0
	for _, d := range r.Declarations {
		d.Walk(func(*Declaration) { n++ })
	}
	return n
}

// GenerateID returns a stable identifier for a declaration.
func GenerateID(filePath string, line int, path string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", filePath, line, path)))
	return hex.EncodeToString(sum[:8])
}
