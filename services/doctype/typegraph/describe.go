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

import "strings"

// describeDepth bounds rendering of nested and cyclic types.
const describeDepth = 3

// Describe renders a node as a short type string.
//
// Examples:
//
//	number
//	string|number
//	{left: number, right: number}
//	[string]
//	fn(name: string, opts?: Options) -> bool
//
// Named objects render as their name; anonymous objects render their
// properties up to a fixed depth. An empty abstract value renders as "?".
func Describe(n Node) string {
	var sb strings.Builder
	describe(&sb, n, describeDepth)
	return sb.String()
}

func describe(sb *strings.Builder, n Node, depth int) {
	switch v := n.(type) {
	case nil:
		sb.WriteString("?")
	case *AVal:
		describeAVal(sb, v, depth)
	case *Prim:
		sb.WriteString(v.name)
	case *nullType:
		sb.WriteString("null")
	case *Obj:
		describeObj(sb, v, depth)
	case *Arr:
		sb.WriteString("[")
		describeAVal(sb, v.elem, depth-1)
		sb.WriteString("]")
	case *Fn:
		describeFn(sb, v, depth)
	default:
		sb.WriteString("?")
	}
}

func describeAVal(sb *strings.Builder, a *AVal, depth int) {
	if a == nil || len(a.types) == 0 {
		sb.WriteString("?")
		return
	}
	if depth <= 0 {
		sb.WriteString("?")
		return
	}
	for i, t := range a.types {
		if i > 0 {
			sb.WriteString("|")
		}
		describe(sb, t, depth)
	}
}

func describeObj(sb *strings.Builder, o *Obj, depth int) {
	if o.Name != "" {
		sb.WriteString(o.Name)
		return
	}
	if depth <= 0 || len(o.order) == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString("{")
	for i, name := range o.order {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		if o.props[name].Optional {
			sb.WriteString("?")
		}
		sb.WriteString(": ")
		describeAVal(sb, o.props[name], depth-1)
	}
	sb.WriteString("}")
}

func describeFn(sb *strings.Builder, f *Fn, depth int) {
	sb.WriteString("fn(")
	for i, name := range f.ArgNames {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		describeAVal(sb, f.Args[i], depth-1)
	}
	sb.WriteString(")")
	if f.Ret != nil && !f.Ret.IsEmpty() {
		sb.WriteString(" -> ")
		describeAVal(sb, f.Ret, depth-1)
	}
}
