// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package realize turns parsed JSDoc type expressions into type graph nodes.
//
// A Context carries everything realization needs: the scope used to resolve
// dotted names, the typedef registry filled by the comment pre-pass and the
// interning table for placeholder types. Contexts are plain values owned by
// one analysis; nothing in this package is global except metrics.
package realize

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

// Severity grades a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a non-fatal problem found while interpreting comments.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Origin   string   `json:"origin,omitempty"`
	Message  string   `json:"message"`
}

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	if d.Origin != "" {
		return fmt.Sprintf("%s: %s: %s", d.Origin, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLogger sets the logger used for diagnostics. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Context is the per-analysis state for type realization.
//
// Description:
//
//	Holds the typedef registry, the placeholder table and the scope used for
//	name lookups. Reset starts a new generation: both tables are rebuilt and
//	a fresh generation ID is issued, so types from a previous analysis are
//	never returned again.
//
// Thread Safety:
//
//	Not safe for concurrent use. One analysis owns one Context.
type Context struct {
	// Scope resolves dotted names. May be nil.
	Scope *typegraph.Scope

	// Origin names the source unit currently being analyzed. Objects created
	// during realization carry it.
	Origin string

	generation   string
	typedefs     map[string]*RealizedType
	placeholders map[string]*typegraph.Obj
	reported     map[string]bool
	diagnostics  []Diagnostic
	logger       *slog.Logger

	// refs collects the typedef names resolved while it is non-nil.
	refs *[]string
}

// NewContext creates a context that resolves names in scope.
func NewContext(scope *typegraph.Scope, opts ...ContextOption) *Context {
	c := &Context{Scope: scope, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Reset discards every typedef, placeholder and diagnostic and rotates the
// generation ID. The scope is kept.
func (c *Context) Reset() {
	c.generation = uuid.NewString()
	c.typedefs = make(map[string]*RealizedType)
	c.placeholders = make(map[string]*typegraph.Obj)
	c.reported = make(map[string]bool)
	c.diagnostics = nil
}

// Generation returns the ID of the current generation.
func (c *Context) Generation() string {
	return c.generation
}

// RegisterTypedef binds name to rt, replacing any earlier binding.
func (c *Context) RegisterTypedef(name string, rt *RealizedType) {
	if name == "" || rt == nil {
		return
	}
	c.typedefs[name] = rt
	typedefsRegisteredTotal.Inc()
}

// RegisterExternal binds name to a type supplied by a definition file.
// Constructor-like functions are registered as instances of their prototype.
func (c *Context) RegisterExternal(name string, t typegraph.Type) {
	if name == "" || t == nil {
		return
	}
	c.RegisterTypedef(name, FromType(MaybeInstance(t, name)))
}

// Typedef returns the registered typedef for name.
func (c *Context) Typedef(name string) (*RealizedType, bool) {
	rt, ok := c.typedefs[name]
	return rt, ok
}

// TypedefNames returns the registered typedef names, sorted.
func (c *Context) TypedefNames() []string {
	names := make([]string, 0, len(c.typedefs))
	for n := range c.typedefs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PlaceholderCount returns how many placeholder types were synthesized in
// this generation.
func (c *Context) PlaceholderCount() int {
	return len(c.placeholders)
}

// Diagnostics returns the diagnostics collected in this generation.
func (c *Context) Diagnostics() []Diagnostic {
	return c.diagnostics
}

// Report records a diagnostic. Identical messages are logged only once per
// generation but every occurrence is kept.
func (c *Context) Report(sev Severity, format string, args ...any) {
	d := Diagnostic{Severity: sev, Origin: c.Origin, Message: fmt.Sprintf(format, args...)}
	c.diagnostics = append(c.diagnostics, d)
	if c.reported[d.Message] {
		return
	}
	c.reported[d.Message] = true
	diagnosticsTotal.WithLabelValues(string(sev)).Inc()
	c.logger.Warn("doc comment diagnostic",
		slog.String("severity", string(sev)),
		slog.String("origin", c.Origin),
		slog.String("message", d.Message),
	)
}

// placeholder returns the interned placeholder object for path.
func (c *Context) placeholder(path string) *typegraph.Obj {
	if obj, ok := c.placeholders[path]; ok {
		return obj
	}
	obj := typegraph.NewObj(true, path)
	obj.Origin = c.Origin
	c.placeholders[path] = obj
	placeholdersTotal.Inc()
	c.Report(SeverityWarning, "unknown type %q, using a placeholder", path)
	return obj
}

var constructorName = regexp.MustCompile(`(?:^|\.)[A-Z][^.]*$`)

// MaybeInstance maps a constructor-like function to the instance type of its
// prototype. A function is constructor-like when the last segment of the
// path it was found under starts with an uppercase letter. Anything else is
// returned unchanged.
func MaybeInstance(t typegraph.Type, path string) typegraph.Type {
	fn, ok := t.(*typegraph.Fn)
	if !ok || !constructorName.MatchString(path) {
		return t
	}
	return typegraph.Instance(fn.Prototype())
}
