// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package defs loads type definition files.
//
// A definition file is YAML (or JSON) describing globals and type aliases
// that source files reference without declaring them:
//
//	"!name": browser
//	"!typedef":
//	  Handler: "Element|string"
//	Element:
//	  "!args": [{name: tag, type: string}]
//	  prototype:
//	    id: {"!type": string}
//
// Keys starting with "!" are directives; every other key defines a global
// or a property. An entry with "!args" or "!returns" is a function whose
// "prototype" key describes its instances.
package defs

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/doctype/services/doctype/jsdoc"
	"github.com/AleutianAI/doctype/services/doctype/realize"
	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

var tracer = otel.Tracer("aleutian.doctype.defs")

//go:embed ecmascript.yaml
var builtinYAML []byte

// MaxFileSize bounds definition files.
const MaxFileSize = 4 << 20

// ErrEmptyDefinition is returned for definition data with no content.
var ErrEmptyDefinition = errors.New("empty definition data")

// Definition is one parsed definition file.
type Definition struct {
	// Name identifies the file in origins and logs.
	Name string `yaml:"!name"`

	// Typedefs maps alias names to JSDoc type expressions.
	Typedefs map[string]string `yaml:"!typedef"`

	// Globals are the defined global names.
	Globals map[string]*Entry `yaml:",inline"`
}

// Entry describes one global or property.
type Entry struct {
	// Type is a JSDoc type expression for the value.
	Type string `yaml:"!type"`

	// Doc is attached to the defined value.
	Doc string `yaml:"!doc"`

	// Args makes the entry a function with these parameters.
	Args []Arg `yaml:"!args"`

	// Returns is the JSDoc return type of a function entry.
	Returns string `yaml:"!returns"`

	// Props are nested properties.
	Props map[string]*Entry `yaml:",inline"`
}

// Arg is one function parameter of a definition entry.
type Arg struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// UnmarshalYAML accepts a bare scalar as shorthand for {"!type": scalar}.
func (e *Entry) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		e.Type = n.Value
		return nil
	}
	type plain Entry
	return n.Decode((*plain)(e))
}

func (e *Entry) isFunction() bool {
	if e.Args != nil || e.Returns != "" {
		return true
	}
	_, ok := e.Props["prototype"]
	return ok
}

// Load parses a definition file.
func Load(data []byte) (*Definition, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDefinition
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("defs.Load: data exceeds maximum size (%d > %d)", len(data), MaxFileSize)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("defs.Load: parsing: %w", err)
	}
	if def.Name == "" {
		def.Name = "defs"
	}
	for name := range def.Typedefs {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("defs.Load: %s: empty typedef name", def.Name)
		}
	}
	return &def, nil
}

// LoadFile reads and parses the definition file at path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("defs.LoadFile: %w", err)
	}
	def, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Builtin returns the embedded ECMAScript definitions.
func Builtin() *Definition {
	def, err := Load(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("defs: embedded definitions are invalid: %v", err))
	}
	return def
}

// Apply defines the file's globals in the context scope and registers its
// typedefs.
//
// Description:
//
//	Globals are defined first, in name order, so that typedef expressions
//	can name them.
//	Typedefs naming constructor-like functions register the instance type.
//	Expressions that fail to parse are reported on the context and skipped.
//	Must be called again after every Context.Reset.
//
// Outputs:
//
//	[]string - The registered typedef names, sorted.
func (d *Definition) Apply(ctx context.Context, cx *realize.Context) []string {
	_, span := tracer.Start(ctx, "defs.Definition.Apply")
	defer span.End()

	origin := "def:" + d.Name
	saved := cx.Origin
	cx.Origin = origin
	defer func() { cx.Origin = saved }()

	if cx.Scope != nil {
		for _, name := range sortedKeys(d.Globals) {
			if strings.HasPrefix(name, "!") || d.Globals[name] == nil {
				continue
			}
			d.define(cx, cx.Scope.Define(name), name, d.Globals[name])
		}
	}

	var registered []string
	for _, name := range sortedKeys(d.Typedefs) {
		rt, ok := d.realize(cx, name, d.Typedefs[name])
		if !ok {
			continue
		}
		if t, isType := rt.Node.(typegraph.Type); isType {
			cx.RegisterExternal(name, t)
		} else {
			cx.RegisterTypedef(name, rt)
		}
		registered = append(registered, name)
	}

	span.SetAttributes(
		attribute.String("defs.name", d.Name),
		attribute.Int("defs.globals", len(d.Globals)),
		attribute.Int("defs.typedefs", len(registered)),
	)
	slog.Debug("definitions applied",
		slog.String("name", d.Name),
		slog.Int("globals", len(d.Globals)),
		slog.Int("typedefs", len(registered)),
	)
	return registered
}

func (d *Definition) define(cx *realize.Context, av *typegraph.AVal, path string, e *Entry) {
	if e.Doc != "" {
		av.Doc = e.Doc
	}

	var holder typegraph.PropHolder
	switch {
	case e.isFunction():
		names := make([]string, len(e.Args))
		for i, a := range e.Args {
			names[i] = a.Name
		}
		fn := typegraph.NewFn(path, names)
		fn.Origin = cx.Origin
		for i, a := range e.Args {
			if rt, ok := d.realize(cx, path+"("+a.Name+")", a.Type); ok {
				rt.Node.Propagate(fn.Args[i], 0)
			}
		}
		if e.Returns != "" {
			if rt, ok := d.realize(cx, path+"()", e.Returns); ok {
				fn.Ret = typegraph.NewAVal()
				rt.Node.Propagate(fn.Ret, 0)
			}
		}
		if e.Doc != "" {
			fn.SetDoc(e.Doc)
		}
		av.AddType(fn, 0)
		holder = fn

	case e.Type != "":
		if rt, ok := d.realize(cx, path, e.Type); ok {
			rt.Node.Propagate(av, 0)
		}
	}

	if len(e.Props) == 0 {
		return
	}
	if holder == nil {
		obj := typegraph.NewObj(true, path)
		obj.Origin = cx.Origin
		if e.Doc != "" {
			obj.SetDoc(e.Doc)
		}
		av.AddType(obj, 0)
		holder = obj
	}
	for _, name := range sortedKeys(e.Props) {
		sub := e.Props[name]
		if strings.HasPrefix(name, "!") || sub == nil {
			continue
		}
		if fn, ok := holder.(*typegraph.Fn); ok && name == "prototype" {
			proto := fn.Prototype()
			for _, pname := range sortedKeys(sub.Props) {
				if psub := sub.Props[pname]; psub != nil && !strings.HasPrefix(pname, "!") {
					d.define(cx, proto.DefProp(pname), path+".prototype."+pname, psub)
				}
			}
			continue
		}
		d.define(cx, holder.DefProp(name), path+"."+name, sub)
	}
}

// realize parses and realizes one type expression, reporting failures.
func (d *Definition) realize(cx *realize.Context, what, src string) (*realize.RealizedType, bool) {
	expr, err := jsdoc.ParseTypeExpr(src)
	if err != nil {
		cx.Report(realize.SeverityWarning, "%s: %s: %v", d.Name, what, err)
		return nil, false
	}
	return cx.Realize(expr)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
