// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package binder applies the types documented in doc comments to the type
// graph.
//
// A Binder receives one Target per documented declaration: the abstract
// value the declaration defines, its function type when it has one, and the
// raw comment blocks that precede it. It collects a Signature from the tags,
// propagates the realized types into the graph with a confidence weight and
// attaches the latest description as documentation.
package binder

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/doctype/services/doctype/comment"
	"github.com/AleutianAI/doctype/services/doctype/realize"
	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

var tracer = otel.Tracer("aleutian.doctype.binder")

// Kind is the syntactic kind of a documented declaration.
type Kind int

const (
	// KindSimpleValue is a variable or assignment whose value is not a
	// function.
	KindSimpleValue Kind = iota

	// KindFunctionLike is a function declaration, or a variable, assignment
	// or method whose value is a function.
	KindFunctionLike

	// KindClassLike is a class declaration.
	KindClassLike

	// KindObjectProperty is a property of an object literal.
	KindObjectProperty

	// KindDefinePropertyCall is Object.defineProperty(obj, "name", desc).
	KindDefinePropertyCall

	// KindReexport is an exported declaration.
	KindReexport
)

// String returns the kind name used in reports and metric labels.
func (k Kind) String() string {
	switch k {
	case KindSimpleValue:
		return "value"
	case KindFunctionLike:
		return "function"
	case KindClassLike:
		return "class"
	case KindObjectProperty:
		return "property"
	case KindDefinePropertyCall:
		return "define_property"
	case KindReexport:
		return "export"
	default:
		return "unknown"
	}
}

// Target is one documented declaration.
type Target struct {
	// Kind is the syntactic kind of the declaration.
	Kind Kind

	// Name is the declared name, for reporting.
	Name string

	// Value is the abstract value the declaration defines. May be nil.
	Value *typegraph.AVal

	// Fn is the declaration's function type, for function-like and class
	// declarations. May be nil.
	Fn *typegraph.Fn

	// Type is the type that receives the documentation. When nil, the last
	// object-like type of Value created in the current file is used.
	Type typegraph.Type

	// Comments are the raw comment blocks preceding the declaration, oldest
	// first.
	Comments []string

	// Line is the declaration's start line, for reporting.
	Line int
}

// Config controls binding.
type Config struct {
	// Strong propagates every documented type with WeightStrong so that
	// annotations override inferred types.
	Strong bool

	// SummaryOnly keeps only the leading paragraph of a comment as
	// documentation. The zero value keeps the whole normalized comment.
	SummaryOnly bool
}

// Propagation records one type flowing into the graph.
type Propagation struct {
	// Slot names the receiving value: "value", "return", "self" or
	// "arg:<name>".
	Slot string `json:"slot"`

	// Type is the rendered type.
	Type string `json:"type"`

	// Weight is the propagation weight.
	Weight int `json:"weight"`

	// MadeUp is set when the type is placeholder-backed.
	MadeUp bool `json:"made_up,omitempty"`
}

// Result reports what Bind did for one target.
type Result struct {
	Target       string               `json:"target"`
	Kind         string               `json:"kind"`
	Doc          string               `json:"doc,omitempty"`
	Propagations []Propagation        `json:"propagations,omitempty"`
	Renamed      []string             `json:"renamed,omitempty"`
	Diagnostics  []realize.Diagnostic `json:"diagnostics,omitempty"`
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Binder binds doc comment annotations to the type graph.
//
// Thread Safety:
//
//	Not safe for concurrent use. A Binder shares its realize.Context and
//	mutates the type graph.
type Binder struct {
	cx     *realize.Context
	cfg    Config
	logger *slog.Logger
}

// New creates a binder realizing types in cx.
func New(cx *realize.Context, cfg Config, opts ...Option) *Binder {
	b := &Binder{cx: cx, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind applies the comments of one declaration.
//
// Description:
//
//	For a declaration with a function type and at least one parameter,
//	return or receiver annotation, documented parameters are matched to the
//	declared parameters by name. A documented "name?" marks the declared
//	"name" optional by renaming it. The return type flows into the return
//	value and the receiver into the function's self value; @class makes
//	the receiver an instance of the function. Otherwise @type, or @returns
//	for a declaration without a function type, flows into Value.
//
//	The latest non-empty comment block becomes the documentation of Value
//	and of the documented type.
//
// Inputs:
//
//	ctx - Context for tracing.
//	t - The declaration.
//
// Outputs:
//
//	Result - What was applied. Problems are reported as diagnostics and
//	         never abort binding.
func (b *Binder) Bind(ctx context.Context, t Target) Result {
	_, span := tracer.Start(ctx, "binder.Binder.Bind",
		trace.WithAttributes(
			attribute.String("target.name", t.Name),
			attribute.String("target.kind", t.Kind.String()),
			attribute.Int("comments.count", len(t.Comments)),
		),
	)
	defer span.End()
	start := time.Now()

	mark := len(b.cx.Diagnostics())
	res := Result{Target: t.Name, Kind: t.Kind.String()}

	sig := b.Collect(t.Comments)
	if sig.Found {
		b.apply(&res, t, sig)
	}
	b.attachDoc(&res, t)

	if diags := b.cx.Diagnostics(); len(diags) > mark {
		res.Diagnostics = append([]realize.Diagnostic(nil), diags[mark:]...)
	}

	span.SetAttributes(
		attribute.Int("propagations.count", len(res.Propagations)),
		attribute.Int("diagnostics.count", len(res.Diagnostics)),
	)
	bindsTotal.WithLabelValues(t.Kind.String()).Inc()
	bindDuration.Observe(time.Since(start).Seconds())
	b.logger.Debug("bound doc comment",
		slog.String("target", t.Name),
		slog.String("kind", t.Kind.String()),
		slog.Int("propagations", len(res.Propagations)),
		slog.Int("renamed", len(res.Renamed)),
	)
	return res
}

func (b *Binder) apply(res *Result, t Target, sig *Signature) {
	fn := t.Fn
	if fn != nil && (len(sig.Args) > 0 || sig.Ret != nil || sig.Self != nil || sig.SelfIsInstance) {
		for i, name := range fn.ArgNames {
			known, ok := sig.Args[name]
			if !ok {
				if known, ok = sig.Args[name+"?"]; ok {
					fn.ArgNames[i] = name + "?"
					res.Renamed = append(res.Renamed, name)
					renamedTotal.Inc()
				}
			}
			if ok {
				b.propagate(res, known, fn.Args[i], "arg:"+fn.ArgNames[i])
			}
		}
		if sig.Ret != nil {
			if fn.Ret == nil {
				fn.Ret = typegraph.NewAVal()
			}
			b.propagate(res, sig.Ret, fn.Ret, "return")
		}
		self := sig.Self
		if sig.SelfIsInstance {
			self = realize.FromType(typegraph.Instance(fn.Prototype()))
		}
		if self != nil {
			b.propagate(res, self, fn.Self, "self")
		}
		return
	}

	if t.Value == nil {
		return
	}
	switch {
	case sig.Type != nil:
		b.propagate(res, sig.Type, t.Value, "value")
	case fn == nil && sig.Ret != nil:
		b.propagate(res, sig.Ret, t.Value, "value")
	}
}

func (b *Binder) propagate(res *Result, rt *realize.RealizedType, target *typegraph.AVal, slot string) {
	w := b.weight(rt)
	rt.Node.Propagate(target, w)
	res.Propagations = append(res.Propagations, Propagation{
		Slot:   slot,
		Type:   typegraph.Describe(rt.Node),
		Weight: w,
		MadeUp: rt.MadeUp,
	})
	propagationsTotal.WithLabelValues(confidence(w)).Inc()
}

// weight picks the propagation weight for rt under the binder config.
func (b *Binder) weight(rt *realize.RealizedType) int {
	return rt.Weight(b.cfg.Strong)
}

func confidence(w int) string {
	switch w {
	case typegraph.WeightStrong:
		return "strong"
	case typegraph.WeightMadeUp:
		return "made_up"
	default:
		return "default"
	}
}

func (b *Binder) attachDoc(res *Result, t Target) {
	text, ok := comment.Latest(t.Comments)
	if !ok {
		return
	}
	if b.cfg.SummaryOnly {
		text = comment.Summary(text)
		if text == "" {
			return
		}
	}

	if t.Value != nil {
		t.Value.Doc = text
	}
	typ := t.Type
	if typ == nil && t.Value != nil {
		typ = b.ownedType(t.Value)
	}
	if typ != nil {
		typ.SetDoc(text)
	}
	res.Doc = text
}

// ownedType returns the last type of av when it is an object or function
// created in the current file that has no documentation yet.
func (b *Binder) ownedType(av *typegraph.AVal) typegraph.Type {
	types := av.Types()
	if len(types) == 0 {
		return nil
	}
	last := types[len(types)-1]
	var origin string
	switch v := last.(type) {
	case *typegraph.Obj:
		origin = v.Origin
	case *typegraph.Fn:
		origin = v.Origin
	default:
		return nil
	}
	if origin != b.cx.Origin || last.Doc() != "" {
		return nil
	}
	return last
}
