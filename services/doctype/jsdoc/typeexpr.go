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

import "strings"

// ExprKind identifies the variant of a type expression.
type ExprKind int

const (
	ExprName ExprKind = iota
	ExprUnion
	ExprOptional
	ExprNullable
	ExprNonNullable
	ExprRecord
	ExprArray
	ExprGeneric
	ExprNullLiteral
)

// String returns the kind name.
func (k ExprKind) String() string {
	switch k {
	case ExprName:
		return "name"
	case ExprUnion:
		return "union"
	case ExprOptional:
		return "optional"
	case ExprNullable:
		return "nullable"
	case ExprNonNullable:
		return "non-nullable"
	case ExprRecord:
		return "record"
	case ExprArray:
		return "array"
	case ExprGeneric:
		return "generic"
	case ExprNullLiteral:
		return "null"
	default:
		return "unknown"
	}
}

// Expr is a parsed type expression.
//
// The set of implementations is closed: NameExpr, UnionExpr, OptionalExpr,
// NullableExpr, NonNullableExpr, RecordExpr, ArrayExpr, GenericExpr and
// NullLiteralExpr.
type Expr interface {
	Kind() ExprKind
	isExpr()
}

// NameExpr is a plain or dotted type name ("string", "ns.Widget").
type NameExpr struct {
	Path string
}

// UnionExpr is "A|B|C". Nested unions are flattened.
type UnionExpr struct {
	Elements []Expr
}

// OptionalExpr is "T=" or "T?": the value may be absent.
type OptionalExpr struct {
	Inner Expr
}

// NullableExpr is "?T": the value may be null.
type NullableExpr struct {
	Inner Expr
}

// NonNullableExpr is "!T".
type NonNullableExpr struct {
	Inner Expr
}

// RecordField is one "key: T" entry of a record. Value is nil when the field
// has no type ("{key}").
type RecordField struct {
	Key   string
	Value Expr
}

// RecordExpr is an anonymous structural object "{a: T, b: U}".
type RecordExpr struct {
	Fields []RecordField
}

// ArrayExpr is a tuple-like array literal "[A, B]".
type ArrayExpr struct {
	Elements []Expr
}

// GenericExpr is a type application: "Array<T>", "Object.<K, V>" and "T[]"
// (which is Array<T>).
type GenericExpr struct {
	Base Expr
	Args []Expr
}

// NullLiteralExpr is "null".
type NullLiteralExpr struct{}

func (*NameExpr) Kind() ExprKind        { return ExprName }
func (*UnionExpr) Kind() ExprKind       { return ExprUnion }
func (*OptionalExpr) Kind() ExprKind    { return ExprOptional }
func (*NullableExpr) Kind() ExprKind    { return ExprNullable }
func (*NonNullableExpr) Kind() ExprKind { return ExprNonNullable }
func (*RecordExpr) Kind() ExprKind      { return ExprRecord }
func (*ArrayExpr) Kind() ExprKind       { return ExprArray }
func (*GenericExpr) Kind() ExprKind     { return ExprGeneric }
func (*NullLiteralExpr) Kind() ExprKind { return ExprNullLiteral }

func (*NameExpr) isExpr()        {}
func (*UnionExpr) isExpr()       {}
func (*OptionalExpr) isExpr()    {}
func (*NullableExpr) isExpr()    {}
func (*NonNullableExpr) isExpr() {}
func (*RecordExpr) isExpr()      {}
func (*ArrayExpr) isExpr()       {}
func (*GenericExpr) isExpr()     {}
func (*NullLiteralExpr) isExpr() {}

// Format renders an expression in canonical form.
//
// Unions are parenthesised, "T[]" renders as "Array<T>" and optional types
// use the "T=" suffix.
func Format(e Expr) string {
	var sb strings.Builder
	format(&sb, e)
	return sb.String()
}

func format(sb *strings.Builder, e Expr) {
	switch v := e.(type) {
	case nil:
		sb.WriteString("?")
	case *NameExpr:
		sb.WriteString(v.Path)
	case *UnionExpr:
		sb.WriteString("(")
		formatList(sb, v.Elements, "|")
		sb.WriteString(")")
	case *OptionalExpr:
		format(sb, v.Inner)
		sb.WriteString("=")
	case *NullableExpr:
		sb.WriteString("?")
		format(sb, v.Inner)
	case *NonNullableExpr:
		sb.WriteString("!")
		format(sb, v.Inner)
	case *RecordExpr:
		sb.WriteString("{")
		for i, f := range v.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Key)
			if f.Value != nil {
				sb.WriteString(": ")
				format(sb, f.Value)
			}
		}
		sb.WriteString("}")
	case *ArrayExpr:
		sb.WriteString("[")
		formatList(sb, v.Elements, ", ")
		sb.WriteString("]")
	case *GenericExpr:
		format(sb, v.Base)
		sb.WriteString("<")
		formatList(sb, v.Args, ", ")
		sb.WriteString(">")
	case *NullLiteralExpr:
		sb.WriteString("null")
	}
}

func formatList(sb *strings.Builder, list []Expr, sep string) {
	for i, e := range list {
		if i > 0 {
			sb.WriteString(sep)
		}
		format(sb, e)
	}
}
