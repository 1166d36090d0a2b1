// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package typegraph provides the type vocabulary of the inference engine that
// doc comment annotations are merged into.
//
// The graph is made of two kinds of nodes:
//
//   - Types (Prim, Null, Obj, Arr, Fn) describe a concrete shape.
//   - Abstract values (AVal) accumulate the set of types something may hold.
//
// Types flow into abstract values through Propagate, which carries a weight.
// A higher weight means the type is more trustworthy; the engine default is
// WeightDefault.
package typegraph

// Propagation weights.
const (
	// WeightMadeUp is used for types synthesized from names that could not be
	// resolved.
	WeightMadeUp = 1

	// WeightDefault is the engine's default confidence.
	WeightDefault = 100

	// WeightStrong marks annotations that must override inferred types.
	WeightStrong = 101
)

// Kind identifies the variant of a Type.
type Kind int

const (
	KindPrim Kind = iota
	KindNull
	KindObject
	KindArray
	KindFunction
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPrim:
		return "primitive"
	case KindNull:
		return "null"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Node is anything that can be propagated into an abstract value.
type Node interface {
	// Propagate makes the node's type(s) flow into target with the given
	// weight. A weight of zero means WeightDefault.
	Propagate(target *AVal, weight int)
}

// Type is a concrete node of the type graph.
type Type interface {
	Node

	// Kind returns the variant of the type.
	Kind() Kind

	// Doc returns the documentation attached to the type.
	Doc() string

	// SetDoc attaches documentation to the type.
	SetDoc(doc string)
}

// docHolder implements the documentation part of Type.
type docHolder struct {
	doc string
}

func (d *docHolder) Doc() string       { return d.doc }
func (d *docHolder) SetDoc(doc string) { d.doc = doc }

// Prim is a primitive type. The engine keeps one instance per primitive, see
// Bool, Num and Str.
type Prim struct {
	docHolder
	name string
}

// Primitive singletons.
var (
	Bool = &Prim{name: "bool"}
	Num  = &Prim{name: "number"}
	Str  = &Prim{name: "string"}
)

// Name returns the primitive name.
func (p *Prim) Name() string { return p.name }

// Kind returns KindPrim.
func (p *Prim) Kind() Kind { return KindPrim }

// Propagate adds the primitive to target.
func (p *Prim) Propagate(target *AVal, weight int) { target.AddType(p, weight) }

// nullType is the type of null and undefined.
type nullType struct {
	docHolder
}

// Null is the null-type singleton.
var Null Type = &nullType{}

func (n *nullType) Kind() Kind { return KindNull }

// Propagate is a no-op: null carries no information for the target.
func (n *nullType) Propagate(target *AVal, weight int) {}

// normWeight maps the zero weight to WeightDefault.
func normWeight(weight int) int {
	if weight <= 0 {
		return WeightDefault
	}
	return weight
}
