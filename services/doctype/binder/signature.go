// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package binder

import (
	"strings"

	"github.com/AleutianAI/doctype/services/doctype/jsdoc"
	"github.com/AleutianAI/doctype/services/doctype/realize"
	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

// Signature is what the tags of one declaration say about it. It is built
// for a single Bind call and discarded afterwards.
type Signature struct {
	// Args maps documented parameter names to their types. Optional
	// parameters carry a "?" suffix.
	Args map[string]*realize.RealizedType

	// Order lists the keys of Args in tag order.
	Order []string

	// Ret is the @returns type.
	Ret *realize.RealizedType

	// Type is the @type type.
	Type *realize.RealizedType

	// Self is the @this type.
	Self *realize.RealizedType

	// SelfIsInstance is set by @class and @constructor: the receiver is an
	// instance of the documented function.
	SelfIsInstance bool

	// Found is set when at least one tag contributed a type.
	Found bool
}

// Collect scans the tags of the given comment blocks once, oldest block
// first, and gathers receiver, parameter, return and value types.
//
// Description:
//
//	A "name.sub" parameter whose base was already collected as an object
//	defines "sub" on that object, and "name[].sub" defines it on the
//	element object of a collected array parameter. When no such base
//	exists the dotted name is kept as an independent parameter.
func (b *Binder) Collect(comments []string) *Signature {
	sig := &Signature{Args: make(map[string]*realize.RealizedType)}
	for _, raw := range comments {
		doc := jsdoc.Parse(raw)
		for _, err := range doc.Errors {
			b.cx.Report(realize.SeverityWarning, "%v", err)
		}
		for c := doc.Cursor(); !c.Done(); c.Next() {
			b.collectTag(sig, c.Current())
		}
	}
	return sig
}

func (b *Binder) collectTag(sig *Signature, tag *jsdoc.Tag) {
	switch tag.Kind {
	case jsdoc.TagClass:
		sig.Self, sig.SelfIsInstance = nil, true
		sig.Found = true
		return
	case jsdoc.TagThis:
		if rt, ok := b.cx.RealizeTag(tag); ok {
			sig.Self, sig.SelfIsInstance = rt, false
			sig.Found = true
		}
		return
	}

	rt, ok := b.cx.RealizeTag(tag)
	if !ok {
		return
	}
	sig.Found = true

	switch tag.Kind {
	case jsdoc.TagReturns:
		sig.Ret = rt
	case jsdoc.TagType:
		sig.Type = rt
	case jsdoc.TagParam:
		if tag.Name == "" {
			return
		}
		name := tag.Name
		if rt.IsOptional {
			name += "?"
		}
		if base, rest, dotted := strings.Cut(name, "."); dotted && b.redirect(sig, base, rest, rt, tag) {
			return
		}
		if _, seen := sig.Args[name]; !seen {
			sig.Order = append(sig.Order, name)
		}
		sig.Args[name] = rt
	}
}

// redirect defines rest as a property of the collected parameter base.
// Returns false when base names no collected object or array parameter.
//
// When base was documented with a typedef the property lands on the shared
// typedef object, so every other use of that typedef sees it too.
func (b *Binder) redirect(sig *Signature, base, rest string, rt *realize.RealizedType, tag *jsdoc.Tag) bool {
	for _, key := range sig.Order {
		known := sig.Args[key]
		key = strings.TrimSuffix(key, "?")

		switch {
		case key == base && known.Kind == realize.KindObject:
			b.defineParamProp(known.Obj(), rest, rt, tag)
			return true
		case key+"[]" == base && known.Kind == realize.KindArray:
			elem := realize.HolderIn(known.Arr().Elem(), b.cx.Origin)
			b.defineParamProp(elem, rest, rt, tag)
			return true
		}
	}
	return false
}

func (b *Binder) defineParamProp(holder typegraph.PropHolder, path string, rt *realize.RealizedType, tag *jsdoc.Tag) {
	prop, ok := realize.DefinePath(holder, strings.TrimSuffix(path, "?"), b.cx.Origin)
	if !ok {
		b.cx.Report(realize.SeverityWarning, "bad parameter path %q", tag.Name)
		return
	}
	prop.Optional = rt.IsOptional
	if tag.Description != "" {
		prop.Doc = tag.Description
	}
	if rt.HasDefault {
		prop.Default = rt.Default
	}
	rt.Node.Propagate(prop, b.weight(rt))
}
