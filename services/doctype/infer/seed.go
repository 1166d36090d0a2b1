// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package infer seeds the type graph from extracted declarations.
//
// Seeding is a deliberately shallow structural inference: functions get a
// function type with one argument slot per declared parameter, classes a
// constructor with a prototype, object literals an object with their
// properties and literals their primitive type. It runs before doc
// comments are interpreted so that annotations refine existing nodes
// instead of creating them.
package infer

import (
	"strings"

	"github.com/AleutianAI/doctype/services/doctype/ast"
	"github.com/AleutianAI/doctype/services/doctype/binder"
	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

// Seeder builds graph nodes for the declarations of one source unit.
type Seeder struct {
	scope  *typegraph.Scope
	origin string
	fns    map[*ast.Declaration]*typegraph.Fn
}

// NewSeeder creates a seeder defining names in scope. Created objects and
// functions carry origin.
func NewSeeder(scope *typegraph.Scope, origin string) *Seeder {
	return &Seeder{scope: scope, origin: origin, fns: make(map[*ast.Declaration]*typegraph.Fn)}
}

// Seed defines every declaration in the graph and returns one binder
// target per declaration that carries comments, in source order.
//
// Description:
//
//	Functions, classes and variables are defined first so that references
//	and "new" expressions resolve regardless of order. Values are then
//	seeded in source order. Declarations inside a function body are seeded
//	in a scope nested in the enclosing one, with the function's parameters
//	bound to its argument values; their targets follow the function's own.
func (s *Seeder) Seed(decls []*ast.Declaration) []binder.Target {
	for _, d := range decls {
		switch d.Kind {
		case ast.DeclFunction, ast.DeclClass:
			s.scope.Define(d.Name).AddType(s.fnFor(d), 0)
		case ast.DeclVariable:
			s.scope.Define(d.Name)
		}
	}

	var targets []binder.Target
	for _, d := range decls {
		targets = s.seed(d, targets)
	}
	return targets
}

func (s *Seeder) seed(d *ast.Declaration, targets []binder.Target) []binder.Target {
	switch d.Kind {
	case ast.DeclFunction:
		fn := s.fnFor(d)
		av, _ := s.scope.Lookup(d.Name)
		kind := binder.KindFunctionLike
		if d.Exported {
			kind = binder.KindReexport
		}
		targets = s.target(targets, d, kind, av, fn, fn)
		return s.body(d, fn, targets)

	case ast.DeclClass:
		fn := s.fnFor(d)
		av, _ := s.scope.Lookup(d.Name)
		targets = s.target(targets, d, binder.KindClassLike, av, fn, fn)
		return s.classMembers(d, fn, targets)

	case ast.DeclVariable:
		av := s.scope.Define(d.Name)
		return s.value(d, av, targets)

	case ast.DeclAssignment:
		av := s.resolve(d.Path)
		if av == nil {
			return targets
		}
		return s.value(d, av, targets)

	case ast.DeclDefineProperty:
		owner := s.resolve(d.Owner)
		if owner == nil {
			return targets
		}
		holder := holderIn(owner, s.origin)
		prop := holder.DefProp(d.Name)
		s.seedValue(d, prop)
		return s.target(targets, d, binder.KindDefinePropertyCall, prop, nil, nil)

	case ast.DeclClosure:
		return s.body(d, s.fnFor(d), targets)
	}
	return targets
}

// body seeds the declarations inside d's function body.
func (s *Seeder) body(d *ast.Declaration, fn *typegraph.Fn, targets []binder.Target) []binder.Target {
	if len(d.Body) == 0 {
		return targets
	}
	inner := &Seeder{scope: typegraph.NewScope(s.scope), origin: s.origin, fns: s.fns}
	if fn != nil {
		for i, name := range fn.ArgNames {
			if name != "?" && i < len(fn.Args) {
				inner.scope.Bind(name, fn.Args[i])
			}
		}
	}
	return append(targets, inner.Seed(d.Body)...)
}

// value seeds av from d's value and records d as a target.
func (s *Seeder) value(d *ast.Declaration, av *typegraph.AVal, targets []binder.Target) []binder.Target {
	fn := s.seedValue(d, av)
	kind := binder.KindSimpleValue
	switch {
	case d.Value == ast.ValueClass:
		kind = binder.KindClassLike
	case fn != nil:
		kind = binder.KindFunctionLike
	}
	targets = s.target(targets, d, kind, av, fn, nil)

	switch d.Value {
	case ast.ValueObject:
		if obj, ok := av.ObjType().(*typegraph.Obj); ok {
			targets = s.properties(d, obj, targets)
		}
	case ast.ValueClass:
		targets = s.classMembers(d, fn, targets)
	case ast.ValueFunction:
		targets = s.body(d, fn, targets)
	}
	return targets
}

// seedValue adds the structural type of d's value to av and returns the
// function type when the value is a function or class.
func (s *Seeder) seedValue(d *ast.Declaration, av *typegraph.AVal) *typegraph.Fn {
	switch d.Value {
	case ast.ValueFunction, ast.ValueClass:
		fn := s.fnFor(d)
		av.AddType(fn, 0)
		return fn
	case ast.ValueObject:
		obj := typegraph.NewObj(true, "")
		obj.Origin = s.origin
		av.AddType(obj, 0)
	case ast.ValueArray:
		av.AddType(typegraph.NewArr(nil), 0)
	case ast.ValueString:
		av.AddType(typegraph.Str, 0)
	case ast.ValueNumber:
		av.AddType(typegraph.Num, 0)
	case ast.ValueBool:
		av.AddType(typegraph.Bool, 0)
	case ast.ValueNew:
		if t, ok := s.scope.LookupPath(d.ValueRef); ok {
			if fn, ok := t.(*typegraph.Fn); ok {
				av.AddType(typegraph.Instance(fn.Prototype()), 0)
			}
		}
	case ast.ValueRef:
		if src := s.lookupValue(d.ValueRef); src != nil && src != av {
			src.Propagate(av, 0)
		}
	}
	return nil
}

func (s *Seeder) properties(d *ast.Declaration, obj *typegraph.Obj, targets []binder.Target) []binder.Target {
	for _, m := range d.Members {
		prop := obj.DefProp(m.Name)
		prop.Initializer = true
		fn := s.seedValue(m, prop)
		kind := binder.KindObjectProperty
		if fn != nil {
			kind = binder.KindFunctionLike
		}
		targets = s.target(targets, m, kind, prop, fn, nil)
		if m.Value == ast.ValueObject {
			if inner, ok := prop.ObjType().(*typegraph.Obj); ok {
				targets = s.properties(m, inner, targets)
			}
		}
		targets = s.body(m, fn, targets)
	}
	return targets
}

func (s *Seeder) classMembers(d *ast.Declaration, cls *typegraph.Fn, targets []binder.Target) []binder.Target {
	proto := cls.Prototype()
	for _, m := range d.Members {
		if m.Kind == ast.DeclMethod && m.Name == "constructor" {
			targets = s.target(targets, m, binder.KindFunctionLike, nil, cls, nil)
			targets = s.body(m, cls, targets)
			continue
		}
		var holder typegraph.PropHolder = proto
		if m.Static {
			holder = cls
		}
		prop := holder.DefProp(m.Name)
		fn := s.seedValue(m, prop)
		if m.Kind == ast.DeclMethod {
			fn = s.fnFor(m)
			prop.AddType(fn, 0)
		}
		kind := binder.KindObjectProperty
		if fn != nil {
			kind = binder.KindFunctionLike
		}
		targets = s.target(targets, m, kind, prop, fn, nil)
		targets = s.body(m, fn, targets)
	}
	return targets
}

func (s *Seeder) target(targets []binder.Target, d *ast.Declaration, kind binder.Kind, av *typegraph.AVal, fn *typegraph.Fn, typ typegraph.Type) []binder.Target {
	if len(d.Comments) == 0 {
		return targets
	}
	return append(targets, binder.Target{
		Kind:     kind,
		Name:     d.Path,
		Value:    av,
		Fn:       fn,
		Type:     typ,
		Comments: d.Comments,
		Line:     d.StartLine,
	})
}

// fnFor returns the function type of d, creating it once.
func (s *Seeder) fnFor(d *ast.Declaration) *typegraph.Fn {
	if fn, ok := s.fns[d]; ok {
		return fn
	}
	fn := typegraph.NewFn(d.Path, d.Params)
	fn.Origin = s.origin
	s.fns[d] = fn
	return fn
}

// lookupValue returns the abstract value a dotted reference denotes.
func (s *Seeder) lookupValue(path string) *typegraph.AVal {
	parts := strings.Split(path, ".")
	av, ok := s.scope.Lookup(parts[0])
	if !ok {
		return nil
	}
	for _, part := range parts[1:] {
		holder, ok := av.ObjType().(typegraph.PropHolder)
		if !ok {
			return nil
		}
		if av, ok = holder.GetProp(part); !ok {
			return nil
		}
	}
	return av
}

// resolve returns the abstract value an assignment target denotes,
// defining missing roots as globals and missing properties along the way.
// Paths rooted at "this" are not resolved.
func (s *Seeder) resolve(path string) *typegraph.AVal {
	parts := strings.Split(path, ".")
	if parts[0] == "" || parts[0] == "this" {
		return nil
	}
	av, ok := s.scope.Lookup(parts[0])
	if !ok {
		av = s.scope.Global().Define(parts[0])
	}
	for _, part := range parts[1:] {
		holder := holderIn(av, s.origin)
		if fn, ok := holder.(*typegraph.Fn); ok && part == "prototype" {
			fn.Prototype()
		}
		av = holder.DefProp(part)
	}
	return av
}

func holderIn(av *typegraph.AVal, origin string) typegraph.PropHolder {
	if h, ok := av.ObjType().(typegraph.PropHolder); ok {
		return h
	}
	obj := typegraph.NewObj(true, "")
	obj.Origin = origin
	av.AddType(obj, 0)
	return obj
}

// Seed is shorthand for NewSeeder(scope, origin).Seed(decls).
func Seed(scope *typegraph.Scope, origin string, decls []*ast.Declaration) []binder.Target {
	return NewSeeder(scope, origin).Seed(decls)
}
