// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typegraph

// AVal is an abstract value: a mutable slot accumulating the set of types
// something may hold.
//
// Description:
//
//	Types are added with a weight. Adding a type that is already present only
//	raises its weight, so merging the same annotation twice is a no-op and
//	propagation through cyclic forward edges terminates.
//
// Thread Safety:
//
//	Not safe for concurrent use. The graph is mutated by a single analysis
//	pass at a time.
type AVal struct {
	types   []Type
	weights map[Type]int
	forward []forwardEdge

	// Doc is the documentation attached to the value.
	Doc string

	// Default is a documented default value, kept as metadata only.
	Default string

	// Initializer is set for record fields and object literal properties.
	Initializer bool

	// Optional is set for properties documented as optional.
	Optional bool
}

type forwardEdge struct {
	target *AVal
	weight int
}

// NewAVal creates an empty abstract value.
func NewAVal() *AVal {
	return &AVal{weights: make(map[Type]int)}
}

// AddType adds t to the value with the given weight.
//
// Returns true if the type set or a weight changed.
func (a *AVal) AddType(t Type, weight int) bool {
	if t == nil {
		return false
	}
	if a.weights == nil {
		a.weights = make(map[Type]int)
	}
	weight = normWeight(weight)
	if old, ok := a.weights[t]; ok {
		if old >= weight {
			return false
		}
		a.weights[t] = weight
	} else {
		a.types = append(a.types, t)
		a.weights[t] = weight
	}
	for _, e := range a.forward {
		e.target.AddType(t, minWeight(weight, e.weight))
	}
	return true
}

// Propagate adds a forward edge from a to target: every type a holds now or
// later also flows into target.
func (a *AVal) Propagate(target *AVal, weight int) {
	if target == nil || target == a {
		return
	}
	weight = normWeight(weight)
	for i, e := range a.forward {
		if e.target == target {
			if e.weight >= weight {
				return
			}
			a.forward[i].weight = weight
			break
		}
	}
	if !a.hasForward(target) {
		a.forward = append(a.forward, forwardEdge{target: target, weight: weight})
	}
	for _, t := range a.types {
		target.AddType(t, minWeight(a.weights[t], weight))
	}
}

func (a *AVal) hasForward(target *AVal) bool {
	for _, e := range a.forward {
		if e.target == target {
			return true
		}
	}
	return false
}

// Types returns the types held by the value in insertion order.
func (a *AVal) Types() []Type {
	return a.types
}

// Weight returns the weight of t in the value, or 0 if absent.
func (a *AVal) Weight(t Type) int {
	return a.weights[t]
}

// IsEmpty reports whether the value holds no types.
func (a *AVal) IsEmpty() bool {
	return len(a.types) == 0
}

// HasType reports whether t is held by the value.
func (a *AVal) HasType(t Type) bool {
	_, ok := a.weights[t]
	return ok
}

// ObjType returns the heaviest object-like type (object, array or function)
// the value holds, preferring the most recently added on ties.
func (a *AVal) ObjType() Type {
	var best Type
	bestWeight := -1
	for _, t := range a.types {
		switch t.Kind() {
		case KindObject, KindArray, KindFunction:
			if w := a.weights[t]; w >= bestWeight {
				best, bestWeight = t, w
			}
		}
	}
	return best
}

// PrimaryType returns the heaviest type of the value, or nil when empty.
func (a *AVal) PrimaryType() Type {
	var best Type
	bestWeight := -1
	for _, t := range a.types {
		if w := a.weights[t]; w > bestWeight {
			best, bestWeight = t, w
		}
	}
	return best
}

func minWeight(a, b int) int {
	if a < b {
		return a
	}
	return b
}
