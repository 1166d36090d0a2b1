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

// Scope is a variable scope backed by an object whose properties are the
// variables.
type Scope struct {
	vars   *Obj
	parent *Scope
}

// NewScope creates a scope nested in parent (nil for the global scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{vars: NewObj(true, "<scope>"), parent: parent}
}

// Define returns the variable's abstract value, creating it in this scope.
func (s *Scope) Define(name string) *AVal {
	return s.vars.DefProp(name)
}

// Bind makes name a variable of this scope holding av, replacing any
// earlier binding. Function parameters are bound to their argument values
// this way.
func (s *Scope) Bind(name string, av *AVal) {
	if s.vars.props == nil {
		s.vars.props = make(map[string]*AVal)
	}
	if _, ok := s.vars.props[name]; !ok {
		s.vars.order = append(s.vars.order, name)
	}
	s.vars.props[name] = av
}

// Global returns the outermost scope.
func (s *Scope) Global() *Scope {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Lookup finds a variable in this scope or an enclosing one.
func (s *Scope) Lookup(name string) (*AVal, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if av, ok := cur.vars.GetProp(name); ok {
			return av, true
		}
	}
	return nil, false
}

// Names returns the variables defined directly in this scope.
func (s *Scope) Names() []string {
	return s.vars.OwnProps()
}

// LookupPath resolves a dotted path ("ns.Widget") to an object-like type.
//
// Description:
//
//	The first segment is looked up as a variable; each following segment is
//	a property of the previous segment's object type. "~" and "#" separators
//	used by JSDoc namepaths are treated like ".".
//
// Outputs:
//
//	Type - The object, array or function type found. Nil when not found.
//	bool - True if the full path resolved to an object-like type.
func (s *Scope) LookupPath(path string) (Type, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}
	av, ok := s.Lookup(parts[0])
	if !ok {
		return nil, false
	}
	cur := av.ObjType()
	for _, part := range parts[1:] {
		if cur == nil {
			return nil, false
		}
		holder, ok := cur.(PropHolder)
		if !ok {
			return nil, false
		}
		next, ok := holder.GetProp(part)
		if !ok {
			return nil, false
		}
		cur = next.ObjType()
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '.' || r == '~' || r == '#'
	})
}
