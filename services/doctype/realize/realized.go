// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package realize

import "github.com/AleutianAI/doctype/services/doctype/typegraph"

// Kind is the closed set of realized type shapes. It is decided once, when a
// type expression is realized, so that later stages switch on it instead of
// probing graph nodes.
type Kind int

const (
	KindPrimitive Kind = iota
	KindNull
	KindObject
	KindArray
	KindFunction
	KindUnion
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindNull:
		return "null"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindUnion:
		return "union"
	default:
		return "unknown"
	}
}

// RealizedType is a type expression translated into a type graph node.
type RealizedType struct {
	// Node is the graph node: a Type, or an AVal merge point for unions.
	Node typegraph.Node

	// Kind is the shape of Node.
	Kind Kind

	// MadeUp is set when a name could not be resolved and a placeholder was
	// synthesized somewhere in the expression.
	MadeUp bool

	// IsOptional is set for optional and nullable types and for "[name]"
	// tags.
	IsOptional bool

	// Default is the documented default value from "[name=default]".
	Default string

	// HasDefault is set when Default was given.
	HasDefault bool
}

// Obj returns the object node. Valid when Kind is KindObject.
func (r *RealizedType) Obj() *typegraph.Obj {
	o, _ := r.Node.(*typegraph.Obj)
	return o
}

// Arr returns the array node. Valid when Kind is KindArray.
func (r *RealizedType) Arr() *typegraph.Arr {
	a, _ := r.Node.(*typegraph.Arr)
	return a
}

// Fn returns the function node. Valid when Kind is KindFunction.
func (r *RealizedType) Fn() *typegraph.Fn {
	f, _ := r.Node.(*typegraph.Fn)
	return f
}

// Union returns the merge point. Valid when Kind is KindUnion.
func (r *RealizedType) Union() *typegraph.AVal {
	a, _ := r.Node.(*typegraph.AVal)
	return a
}

// Weight returns the propagation weight for r: strong when requested,
// WeightMadeUp for placeholder-backed types, else the engine default.
func (r *RealizedType) Weight(strong bool) int {
	switch {
	case strong:
		return typegraph.WeightStrong
	case r.MadeUp:
		return typegraph.WeightMadeUp
	default:
		return typegraph.WeightDefault
	}
}

// clone returns a shallow copy so that callers can adjust flags without
// touching a registered typedef.
func (r *RealizedType) clone() *RealizedType {
	c := *r
	return &c
}

// kindOf maps a graph type to its realized kind.
func kindOf(t typegraph.Type) Kind {
	switch t.Kind() {
	case typegraph.KindNull:
		return KindNull
	case typegraph.KindObject:
		return KindObject
	case typegraph.KindArray:
		return KindArray
	case typegraph.KindFunction:
		return KindFunction
	default:
		return KindPrimitive
	}
}

// FromType wraps a graph type as a resolved RealizedType.
func FromType(t typegraph.Type) *RealizedType {
	return &RealizedType{Node: t, Kind: kindOf(t)}
}
