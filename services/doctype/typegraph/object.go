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

// ElementProp is the pseudo-property holding an array's element type.
const ElementProp = "<i>"

// Obj is an object type with named properties.
//
// Description:
//
//	An open Obj may gain properties after creation; placeholder and record
//	types are open. Properties are kept in definition order so that rendering
//	is deterministic.
type Obj struct {
	docHolder

	// Name is the display name ("Point", "Config.options"), empty for
	// anonymous objects.
	Name string

	// Origin identifies the source unit that created the object.
	Origin string

	// Open marks objects whose property set is not closed.
	Open bool

	// Proto is the prototype object, if any.
	Proto *Obj

	props    map[string]*AVal
	order    []string
	instance *Obj
	ctor     *Fn
}

// NewObj creates an object type.
func NewObj(open bool, name string) *Obj {
	return &Obj{Open: open, Name: name, props: make(map[string]*AVal)}
}

// Kind returns KindObject.
func (o *Obj) Kind() Kind { return KindObject }

// Propagate adds the object to target.
func (o *Obj) Propagate(target *AVal, weight int) { target.AddType(o, weight) }

// DefProp returns the named property, creating it when missing.
func (o *Obj) DefProp(name string) *AVal {
	return defProp(&o.props, &o.order, name)
}

// GetProp returns the named property, searching the prototype chain.
func (o *Obj) GetProp(name string) (*AVal, bool) {
	seen := 0
	for cur := o; cur != nil && seen < maxProtoDepth; cur = cur.Proto {
		if p, ok := cur.props[name]; ok {
			return p, true
		}
		seen++
	}
	return nil, false
}

// OwnProps returns the names of the object's own properties in definition
// order.
func (o *Obj) OwnProps() []string {
	return o.order
}

// Constructor returns the function whose prototype this object is, if known.
func (o *Obj) Constructor() *Fn {
	return o.ctor
}

const maxProtoDepth = 64

// Instance returns the instance type of the given prototype object.
//
// The instance is created once per prototype and reused, so every reference
// to "an instance of X" shares one node.
func Instance(proto *Obj) *Obj {
	if proto.instance == nil {
		name := proto.Name
		if ctor := proto.ctor; ctor != nil && ctor.Name != "" {
			name = ctor.Name
		}
		name = strings.TrimSuffix(name, ".prototype")
		inst := NewObj(true, name)
		inst.Proto = proto
		inst.Origin = proto.Origin
		proto.instance = inst
	}
	return proto.instance
}

// Arr is an array type.
type Arr struct {
	docHolder
	elem *AVal
}

// NewArr creates an array type whose element holds the given node, if any.
func NewArr(elem Node) *Arr {
	a := &Arr{elem: NewAVal()}
	if elem != nil {
		elem.Propagate(a.elem, 0)
	}
	return a
}

// Kind returns KindArray.
func (a *Arr) Kind() Kind { return KindArray }

// Propagate adds the array to target.
func (a *Arr) Propagate(target *AVal, weight int) { target.AddType(a, weight) }

// Elem returns the element abstract value.
func (a *Arr) Elem() *AVal { return a.elem }

// Fn is a function type.
type Fn struct {
	docHolder

	// Name is the function name, empty for anonymous functions.
	Name string

	// Origin identifies the source unit that created the function.
	Origin string

	// ArgNames holds the declared parameter names. A trailing "?" marks an
	// optional parameter.
	ArgNames []string

	// Args holds one abstract value per declared parameter.
	Args []*AVal

	// Self is the receiver ("this") abstract value.
	Self *AVal

	// Ret is the return value. Nil until something is known about it.
	Ret *AVal

	props map[string]*AVal
	order []string
}

// NewFn creates a function type with one argument slot per name.
func NewFn(name string, argNames []string) *Fn {
	f := &Fn{
		Name:     name,
		ArgNames: append([]string(nil), argNames...),
		Self:     NewAVal(),
		props:    make(map[string]*AVal),
	}
	f.Args = make([]*AVal, len(argNames))
	for i := range f.Args {
		f.Args[i] = NewAVal()
	}
	return f
}

// Kind returns KindFunction.
func (f *Fn) Kind() Kind { return KindFunction }

// Propagate adds the function to target.
func (f *Fn) Propagate(target *AVal, weight int) { target.AddType(f, weight) }

// DefProp returns the named property of the function object.
func (f *Fn) DefProp(name string) *AVal {
	return defProp(&f.props, &f.order, name)
}

// GetProp returns the named property of the function object.
func (f *Fn) GetProp(name string) (*AVal, bool) {
	p, ok := f.props[name]
	return p, ok
}

// OwnProps returns the names of the function's own properties in definition
// order.
func (f *Fn) OwnProps() []string {
	return f.order
}

// Prototype returns the object held by the function's "prototype" property,
// creating it when the function has none yet.
func (f *Fn) Prototype() *Obj {
	p := f.DefProp("prototype")
	for _, t := range p.Types() {
		if o, ok := t.(*Obj); ok {
			return o
		}
	}
	name := "prototype"
	if f.Name != "" {
		name = f.Name + ".prototype"
	}
	proto := NewObj(true, name)
	proto.Origin = f.Origin
	proto.ctor = f
	p.AddType(proto, 0)
	return proto
}

// AddArg appends a parameter slot. Used when a signature is built from doc
// comments rather than from source.
func (f *Fn) AddArg(name string) *AVal {
	av := NewAVal()
	f.ArgNames = append(f.ArgNames, name)
	f.Args = append(f.Args, av)
	return av
}

// PropHolder is implemented by types that carry named properties.
type PropHolder interface {
	Type
	DefProp(name string) *AVal
	GetProp(name string) (*AVal, bool)
	OwnProps() []string
}

var (
	_ PropHolder = (*Obj)(nil)
	_ PropHolder = (*Fn)(nil)
)

func defProp(props *map[string]*AVal, order *[]string, name string) *AVal {
	if *props == nil {
		*props = make(map[string]*AVal)
	}
	if p, ok := (*props)[name]; ok {
		return p
	}
	p := NewAVal()
	(*props)[name] = p
	*order = append(*order, name)
	return p
}
