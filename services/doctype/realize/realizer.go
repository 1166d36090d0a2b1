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

import (
	"strings"

	"github.com/AleutianAI/doctype/services/doctype/jsdoc"
	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

// Realize translates a type expression into a graph node.
//
// Description:
//
//	Names resolve through, in order: the primitive table, the typedef
//	registry, a dotted lookup in the context scope and finally an interned
//	placeholder object (MadeUp). Unions realize to a fresh merge point that
//	every member flows into. Records realize to a fresh open object. Array
//	literals and generic applications realize to an array whose element is
//	the union of the arguments.
//
// Inputs:
//
//	expr - The parsed expression. May be nil.
//
// Outputs:
//
//	*RealizedType - The realized type. A fresh value on every call.
//	bool - False when expr is nil or cannot be realized.
func (c *Context) Realize(expr jsdoc.Expr) (*RealizedType, bool) {
	rt := c.realize(expr)
	return rt, rt != nil
}

// RealizeTag realizes the type of a tag and applies the tag-level flags:
// "[name]" and "[name=default]" make the result optional and carry the
// default. Returns false when the tag has no usable type.
func (c *Context) RealizeTag(tag *jsdoc.Tag) (*RealizedType, bool) {
	if tag == nil || tag.Expr == nil {
		return nil, false
	}
	rt := c.realize(tag.Expr)
	if rt == nil {
		return nil, false
	}
	if tag.Optional || tag.HasDefault {
		rt.IsOptional = true
	}
	if tag.HasDefault {
		rt.Default = tag.Default
		rt.HasDefault = true
	}
	return rt, true
}

func (c *Context) realize(expr jsdoc.Expr) *RealizedType {
	switch e := expr.(type) {
	case *jsdoc.NameExpr:
		return c.realizeName(e.Path)

	case *jsdoc.NullLiteralExpr:
		return &RealizedType{Node: typegraph.Null, Kind: KindNull}

	case *jsdoc.UnionExpr:
		return c.realizeUnion(e.Elements)

	case *jsdoc.OptionalExpr:
		rt := c.realize(e.Inner)
		if rt != nil {
			rt.IsOptional = true
		}
		return rt

	case *jsdoc.NullableExpr:
		rt := c.realize(e.Inner)
		if rt != nil {
			rt.IsOptional = true
		}
		return rt

	case *jsdoc.NonNullableExpr:
		rt := c.realize(e.Inner)
		if rt != nil {
			rt.IsOptional = false
		}
		return rt

	case *jsdoc.RecordExpr:
		obj := typegraph.NewObj(true, "")
		obj.Origin = c.Origin
		rt := &RealizedType{Node: obj, Kind: KindObject}
		for _, f := range e.Fields {
			prop := obj.DefProp(f.Key)
			prop.Initializer = true
			if f.Value == nil {
				continue
			}
			inner := c.realize(f.Value)
			if inner == nil {
				continue
			}
			inner.Node.Propagate(prop, 0)
			prop.Optional = inner.IsOptional
			rt.MadeUp = rt.MadeUp || inner.MadeUp
		}
		return rt

	case *jsdoc.ArrayExpr:
		return c.realizeArray(e.Elements)

	case *jsdoc.GenericExpr:
		return c.realizeArray(e.Args)

	default:
		return nil
	}
}

func (c *Context) realizeName(path string) *RealizedType {
	switch strings.ToLower(path) {
	case "bool", "boolean":
		return &RealizedType{Node: typegraph.Bool, Kind: KindPrimitive}
	case "number", "integer":
		return &RealizedType{Node: typegraph.Num, Kind: KindPrimitive}
	case "string":
		return &RealizedType{Node: typegraph.Str, Kind: KindPrimitive}
	case "null", "undefined":
		return &RealizedType{Node: typegraph.Null, Kind: KindNull}
	case "object":
		obj := typegraph.NewObj(true, "")
		obj.Origin = c.Origin
		return &RealizedType{Node: obj, Kind: KindObject}
	case "array":
		return &RealizedType{Node: typegraph.NewArr(nil), Kind: KindArray}
	}

	if td, ok := c.typedefs[path]; ok {
		if c.refs != nil {
			*c.refs = append(*c.refs, path)
		}
		rt := td.clone()
		rt.IsOptional = false
		rt.Default, rt.HasDefault = "", false
		return rt
	}
	if c.Scope != nil {
		if t, ok := c.Scope.LookupPath(path); ok {
			return FromType(MaybeInstance(t, path))
		}
	}
	return &RealizedType{Node: c.placeholder(path), Kind: KindObject, MadeUp: true}
}

func (c *Context) realizeUnion(elems []jsdoc.Expr) *RealizedType {
	av := typegraph.NewAVal()
	rt := &RealizedType{Node: av, Kind: KindUnion}
	for _, el := range elems {
		inner := c.realize(el)
		if inner == nil {
			continue
		}
		inner.Node.Propagate(av, 0)
		rt.MadeUp = rt.MadeUp || inner.MadeUp
		rt.IsOptional = rt.IsOptional || inner.IsOptional
	}
	return rt
}

func (c *Context) realizeArray(elems []jsdoc.Expr) *RealizedType {
	if len(elems) == 0 {
		return &RealizedType{Node: typegraph.NewArr(nil), Kind: KindArray}
	}
	elem := c.realizeUnion(elems)
	return &RealizedType{
		Node:   typegraph.NewArr(elem.Node),
		Kind:   KindArray,
		MadeUp: elem.MadeUp,
	}
}
