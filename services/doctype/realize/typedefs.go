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
	"regexp"
	"strings"

	"github.com/AleutianAI/doctype/services/doctype/jsdoc"
	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

var docBlock = regexp.MustCompile(`(?s)/\*\*.*?\*/`)

// declared is a typedef whose node exists but is not filled yet.
type declared struct {
	name string
	head *jsdoc.Tag
	tags []*jsdoc.Tag
	slot *RealizedType
	refs []string
}

// PrepassTypedefs registers every @typedef and @callback found in src.
//
// Description:
//
//	Doc blocks are located textually, so a typedef may appear anywhere in
//	the file, before or after its uses. Registration happens in two phases.
//	First every alias is declared with a stable node: an open object for
//	Object, record or omitted base types, a function for @callback, and an
//	empty merge point otherwise. Then each node is filled: the base type
//	flows into the merge point and the tags after the head define
//	properties, parameters, receiver and return type. Forward and self
//	references therefore resolve to the node being filled. A final pass
//	marks a union alias MadeUp when any alias it names is placeholder-backed,
//	including aliases filled after it.
//
// Inputs:
//
//	src - The full source text.
//
// Outputs:
//
//	[]string - The registered names in source order.
func (c *Context) PrepassTypedefs(src string) []string {
	var pending []*declared
	for _, block := range docBlock.FindAllString(src, -1) {
		if !strings.Contains(block, "@typedef") && !strings.Contains(block, "@callback") {
			continue
		}
		if d := c.declare(jsdoc.Parse(block)); d != nil {
			pending = append(pending, d)
		}
	}

	names := make([]string, 0, len(pending))
	for _, d := range pending {
		c.fill(d)
		names = append(names, d.name)
	}
	c.settleMadeUp(pending)
	return names
}

// settleMadeUp propagates MadeUp through the aliases each union alias
// referenced until nothing changes.
func (c *Context) settleMadeUp(pending []*declared) {
	for changed := true; changed; {
		changed = false
		for _, d := range pending {
			if d.slot.MadeUp {
				continue
			}
			for _, name := range d.refs {
				if td, ok := c.typedefs[name]; ok && td.MadeUp {
					d.slot.MadeUp = true
					changed = true
					break
				}
			}
		}
	}
}

func (c *Context) declare(doc *jsdoc.Doc) *declared {
	idx := -1
	for i, t := range doc.Tags {
		if t.Kind == jsdoc.TagTypedef || t.Kind == jsdoc.TagCallback {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	head := doc.Tags[idx]
	if head.Name == "" {
		c.Report(SeverityWarning, "@%s without a name", head.Title)
		return nil
	}

	var slot *RealizedType
	switch {
	case head.Kind == jsdoc.TagCallback:
		fn := typegraph.NewFn(head.Name, nil)
		fn.Origin = c.Origin
		slot = &RealizedType{Node: fn, Kind: KindFunction}
	case head.HasType && head.Expr == nil:
		c.Report(SeverityWarning, "typedef %s: %v", head.Name, head.Err)
		return nil
	case isObjectBase(head.Expr):
		obj := typegraph.NewObj(true, head.Name)
		obj.Origin = c.Origin
		slot = &RealizedType{Node: obj, Kind: KindObject}
	default:
		slot = &RealizedType{Node: typegraph.NewAVal(), Kind: KindUnion}
	}

	if doc.Description != "" {
		if t, ok := slot.Node.(typegraph.Type); ok {
			t.SetDoc(doc.Description)
		}
	}
	c.RegisterTypedef(head.Name, slot)
	return &declared{name: head.Name, head: head, tags: doc.Tags[idx+1:], slot: slot}
}

func isObjectBase(expr jsdoc.Expr) bool {
	switch e := expr.(type) {
	case nil:
		return true
	case *jsdoc.RecordExpr:
		return true
	case *jsdoc.NameExpr:
		return strings.EqualFold(e.Path, "object")
	default:
		return false
	}
}

func (c *Context) fill(d *declared) {
	switch d.slot.Kind {
	case KindFunction:
		c.fillCallback(d.slot.Fn(), d.tags)
		return
	case KindObject:
		if rec, ok := d.head.Expr.(*jsdoc.RecordExpr); ok {
			c.fillRecord(d.slot.Obj(), rec)
		}
	case KindUnion:
		c.refs = &d.refs
		base, ok := c.Realize(d.head.Expr)
		c.refs = nil
		if ok {
			base.Node.Propagate(d.slot.Union(), base.Weight(false))
			d.slot.MadeUp = base.MadeUp
		}
	}

	for _, tag := range d.tags {
		if tag.Name == "" || tag.Kind == jsdoc.TagTypedef || tag.Kind == jsdoc.TagCallback {
			continue
		}
		holder, ok := d.slot.Node.(typegraph.PropHolder)
		if !ok {
			c.Report(SeverityWarning, "typedef %s: property %s on a non-object type", d.name, tag.Name)
			continue
		}
		c.defineTagProp(holder, tag)
	}
}

func (c *Context) fillRecord(obj *typegraph.Obj, rec *jsdoc.RecordExpr) {
	for _, f := range rec.Fields {
		prop := obj.DefProp(f.Key)
		prop.Initializer = true
		if rt, ok := c.Realize(f.Value); ok {
			rt.Node.Propagate(prop, rt.Weight(false))
			prop.Optional = rt.IsOptional
		}
	}
}

// defineTagProp defines the property named by tag on holder and flows the
// tag's type into it.
func (c *Context) defineTagProp(holder typegraph.PropHolder, tag *jsdoc.Tag) {
	prop, ok := DefinePath(holder, tag.Name, c.Origin)
	if !ok {
		c.Report(SeverityWarning, "bad property path %q", tag.Name)
		return
	}
	prop.Doc = tag.Description
	if tag.HasDefault {
		prop.Default = tag.Default
	}
	prop.Optional = tag.Optional
	if rt, ok := c.RealizeTag(tag); ok {
		rt.Node.Propagate(prop, rt.Weight(false))
		prop.Optional = rt.IsOptional
	}
}

func (c *Context) fillCallback(fn *typegraph.Fn, tags []*jsdoc.Tag) {
	for _, tag := range tags {
		switch tag.Kind {
		case jsdoc.TagParam:
			if tag.Name == "" || strings.ContainsAny(tag.Name, ".[") {
				continue
			}
			rt, ok := c.RealizeTag(tag)
			name := tag.Name
			if tag.Optional || (ok && rt.IsOptional) {
				name += "?"
			}
			arg := fn.AddArg(name)
			arg.Doc = tag.Description
			if ok {
				rt.Node.Propagate(arg, rt.Weight(false))
			}
		case jsdoc.TagThis:
			if rt, ok := c.RealizeTag(tag); ok {
				rt.Node.Propagate(fn.Self, rt.Weight(false))
			}
		case jsdoc.TagReturns:
			if rt, ok := c.RealizeTag(tag); ok {
				if fn.Ret == nil {
					fn.Ret = typegraph.NewAVal()
				}
				rt.Node.Propagate(fn.Ret, rt.Weight(false))
			}
		}
	}
}

// DefinePath defines a dotted property path below holder and returns the
// final property.
//
// Description:
//
//	Intermediate segments resolve to an object held by the property,
//	created when missing. A segment ending in "[]" resolves to the element
//	object of an array held by the property, so "items[].id" defines "id"
//	on the elements of "items".
//
// Outputs:
//
//	*typegraph.AVal - The final property.
//	bool - False when the path has an empty segment.
func DefinePath(holder typegraph.PropHolder, path, origin string) (*typegraph.AVal, bool) {
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if strings.TrimSuffix(s, "[]") == "" {
			return nil, false
		}
	}

	cur := holder
	for _, seg := range segs[:len(segs)-1] {
		name := strings.TrimSuffix(seg, "[]")
		prop := cur.DefProp(name)
		if strings.HasSuffix(seg, "[]") {
			arr := ArrayIn(prop)
			cur = HolderIn(arr.Elem(), origin)
			continue
		}
		cur = HolderIn(prop, origin)
	}
	return cur.DefProp(strings.TrimSuffix(segs[len(segs)-1], "[]")), true
}

// HolderIn returns the first object or function held by av, adding a new
// open object when it holds none.
func HolderIn(av *typegraph.AVal, origin string) typegraph.PropHolder {
	for _, t := range av.Types() {
		if h, ok := t.(typegraph.PropHolder); ok {
			return h
		}
	}
	obj := typegraph.NewObj(true, "")
	obj.Origin = origin
	av.AddType(obj, 0)
	return obj
}

// ArrayIn returns the first array held by av, adding an empty one when it
// holds none.
func ArrayIn(av *typegraph.AVal) *typegraph.Arr {
	for _, t := range av.Types() {
		if a, ok := t.(*typegraph.Arr); ok {
			return a
		}
	}
	arr := typegraph.NewArr(nil)
	av.AddType(arr, 0)
	return arr
}
