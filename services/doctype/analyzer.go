// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package doctype interprets JSDoc comments of JavaScript sources and merges
// the types they describe into a type inference graph.
//
// An Analyzer runs the pipeline for each file: declarations are extracted
// with tree-sitter, seeded into the graph, typedef comments are registered
// and finally every documented declaration is bound. Analysis state lives in
// one generation until Reset.
package doctype

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/doctype/services/doctype/ast"
	"github.com/AleutianAI/doctype/services/doctype/binder"
	"github.com/AleutianAI/doctype/services/doctype/config"
	"github.com/AleutianAI/doctype/services/doctype/defs"
	"github.com/AleutianAI/doctype/services/doctype/infer"
	"github.com/AleutianAI/doctype/services/doctype/realize"
	"github.com/AleutianAI/doctype/services/doctype/report"
	"github.com/AleutianAI/doctype/services/doctype/typegraph"
)

var tracer = otel.Tracer("aleutian.doctype")

// Source is one file to analyze.
type Source struct {
	Path    string
	Content []byte
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithProjectRoot sets the root recorded in reports.
func WithProjectRoot(root string) Option {
	return func(a *Analyzer) { a.projectRoot = root }
}

// WithDefinitions adds definition files applied after every reset.
func WithDefinitions(d ...*defs.Definition) Option {
	return func(a *Analyzer) { a.defs = append(a.defs, d...) }
}

// WithoutBuiltins skips the embedded ECMAScript definitions.
func WithoutBuiltins() Option {
	return func(a *Analyzer) { a.noBuiltins = true }
}

// Analyzer runs doc comment interpretation over JavaScript sources.
//
// Description:
//
//	Owns the type graph scope, the realization context and the binder of
//	the current generation. Files analyzed in one generation share the
//	graph, so a typedef or constructor declared in one file is visible to
//	the files bound after it.
//
// Thread Safety:
//
//	Safe for concurrent use. Analysis is serialized by an internal mutex;
//	only parsing in AnalyzeFiles runs concurrently.
type Analyzer struct {
	mu          sync.Mutex
	cfg         *config.Config
	logger      *slog.Logger
	parser      *ast.JavaScriptParser
	projectRoot string
	defs        []*defs.Definition
	noBuiltins  bool

	scope    *typegraph.Scope
	cx       *realize.Context
	binder   *binder.Binder
	defDiags []realize.Diagnostic
}

// New creates an analyzer. A nil cfg uses config.Default(); zero fields of
// a non-nil cfg take their defaults.
func New(cfg *config.Config, opts ...Option) *Analyzer {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg = cfg.WithDefaults()
	a := &Analyzer{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if !a.noBuiltins {
		a.defs = append([]*defs.Definition{defs.Builtin()}, a.defs...)
	}
	a.parser = ast.NewJavaScriptParser(
		ast.WithJSMaxFileSize(cfg.Parser.MaxFileSize),
		ast.WithJSLineComments(cfg.Parser.LineComments),
	)
	a.reset(context.Background())
	return a
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() *config.Config {
	return a.cfg
}

// Reset starts a new generation.
//
// Description:
//
//	Discards the type graph, typedefs and placeholders of the previous
//	generation and re-applies the definition files, so nothing realized
//	before the reset can be returned afterwards.
func (a *Analyzer) Reset(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset(ctx)
}

func (a *Analyzer) reset(ctx context.Context) {
	a.scope = typegraph.NewScope(nil)
	if a.cx == nil {
		a.cx = realize.NewContext(a.scope, realize.WithLogger(a.logger))
	} else {
		a.cx.Scope = a.scope
		a.cx.Reset()
	}
	a.binder = binder.New(a.cx, binder.Config{
		Strong:      a.cfg.Strong,
		SummaryOnly: !a.cfg.FullDocs,
	}, binder.WithLogger(a.logger))

	for _, d := range a.defs {
		d.Apply(ctx, a.cx)
	}
	a.defDiags = append([]realize.Diagnostic(nil), a.cx.Diagnostics()...)
	resetsTotal.Inc()
	a.logger.Debug("analysis reset",
		slog.String("generation", a.cx.Generation()),
		slog.Int("definitions", len(a.defs)),
	)
}

// Generation returns the current generation ID.
func (a *Analyzer) Generation() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cx.Generation()
}

// LoadDefinitions parses a definition file, applies it to the current
// generation and keeps it for later resets.
func (a *Analyzer) LoadDefinitions(ctx context.Context, data []byte) error {
	d, err := defs.Load(data)
	if err != nil {
		return fmt.Errorf("loading definitions: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defs = append(a.defs, d)
	mark := len(a.cx.Diagnostics())
	d.Apply(ctx, a.cx)
	a.defDiags = append(a.defDiags, a.cx.Diagnostics()[mark:]...)
	return nil
}

// LoadDefinitionFile reads and loads the definition file at path.
func (a *Analyzer) LoadDefinitionFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading definitions: %w", err)
	}
	if err := a.LoadDefinitions(ctx, data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// AnalyzeFile parses and binds one file in the current generation.
//
// Outputs:
//
//	*report.File - The bound declarations. Problems in comments are
//	               reported as diagnostics, not errors.
//	[]realize.Diagnostic - Typedef pre-pass diagnostics of the file.
//	error - Non-nil if the file could not be parsed.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string, src []byte) (*report.File, []realize.Diagnostic, error) {
	parsed, err := a.parser.Parse(ctx, src, path)
	if err != nil {
		filesAnalyzedTotal.WithLabelValues("parse_error").Inc()
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	file, diags := a.analyzeParsed(ctx, parsed, src)
	return file, diags, nil
}

// analyzeParsed seeds, pre-passes typedefs and binds one parsed file.
// Caller holds a.mu.
func (a *Analyzer) analyzeParsed(ctx context.Context, parsed *ast.ParseResult, src []byte) (*report.File, []realize.Diagnostic) {
	ctx, span := tracer.Start(ctx, "doctype.Analyzer.analyzeParsed",
		trace.WithAttributes(
			attribute.String("file.path", parsed.FilePath),
			attribute.Int("declarations.count", parsed.Count()),
		),
	)
	defer span.End()
	start := time.Now()

	a.cx.Origin = parsed.FilePath
	targets := infer.Seed(a.scope, parsed.FilePath, parsed.Declarations)

	mark := len(a.cx.Diagnostics())
	typedefs := a.cx.PrepassTypedefs(string(src))
	prepassDiags := append([]realize.Diagnostic(nil), a.cx.Diagnostics()[mark:]...)

	file := &report.File{
		Path:   parsed.FilePath,
		Hash:   parsed.Hash,
		Errors: parsed.Errors,
	}
	for _, t := range targets {
		res := a.binder.Bind(ctx, t)
		file.Declarations = append(file.Declarations, &report.Declaration{
			Result: res,
			Line:   t.Line,
			Type:   describeTarget(t),
		})
	}

	span.SetAttributes(
		attribute.Int("targets.count", len(targets)),
		attribute.Int("typedefs.count", len(typedefs)),
	)
	filesAnalyzedTotal.WithLabelValues("ok").Inc()
	analyzeDuration.Observe(time.Since(start).Seconds())
	a.logger.Info("file analyzed",
		slog.String("path", parsed.FilePath),
		slog.Int("declarations", len(file.Declarations)),
		slog.Int("typedefs", len(typedefs)),
		slog.Duration("duration", time.Since(start)),
	)
	return file, prepassDiags
}

func describeTarget(t binder.Target) string {
	switch {
	case t.Value != nil:
		return typegraph.Describe(t.Value)
	case t.Fn != nil:
		return typegraph.Describe(t.Fn)
	}
	return ""
}

// AnalyzeFiles analyzes sources in one generation and reports them.
//
// Description:
//
//	Sources are parsed concurrently, bounded by the configured parse
//	concurrency, then seeded and bound sequentially in input order so the
//	result does not depend on scheduling. A file that fails to parse is
//	reported with its error and skipped.
//
// Outputs:
//
//	*report.Report - The report of all files.
//	error - Non-nil only if ctx is done.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, sources []Source) (*report.Report, error) {
	ctx, span := tracer.Start(ctx, "doctype.Analyzer.AnalyzeFiles",
		trace.WithAttributes(attribute.Int("files.count", len(sources))),
	)
	defer span.End()

	parsed := make([]*ast.ParseResult, len(sources))
	parseErrs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Analysis.ParseConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i], parseErrs[i] = a.parser.Parse(gctx, src.Content, src.Path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse canceled")
		return nil, fmt.Errorf("analyzing files: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analyzing files: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	r := &report.Report{
		ProjectRoot:    a.projectRoot,
		Generation:     a.cx.Generation(),
		CreatedAtMilli: time.Now().UnixMilli(),
		SchemaVersion:  report.SchemaVersion,
		Diagnostics:    append([]realize.Diagnostic(nil), a.defDiags...),
	}
	for i, src := range sources {
		if parseErrs[i] != nil {
			filesAnalyzedTotal.WithLabelValues("parse_error").Inc()
			a.logger.Warn("file skipped",
				slog.String("path", src.Path),
				slog.String("error", parseErrs[i].Error()),
			)
			r.Files = append(r.Files, &report.File{
				Path:   src.Path,
				Errors: []string{parseErrs[i].Error()},
			})
			continue
		}
		file, diags := a.analyzeParsed(ctx, parsed[i], src.Content)
		r.Files = append(r.Files, file)
		r.Diagnostics = append(r.Diagnostics, diags...)
	}
	r.Typedefs = a.typedefTable()

	span.SetAttributes(attribute.Int("typedefs.count", len(r.Typedefs)))
	return r, nil
}

// AnalyzeDir analyzes every file under root with a configured extension.
// Hidden directories and node_modules are skipped.
func (a *Analyzer) AnalyzeDir(ctx context.Context, root string) (*report.Report, error) {
	sources, err := a.CollectSources(root)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeFiles(ctx, sources)
}

// CollectSources reads the analyzable files under root in lexical order.
func (a *Analyzer) CollectSources(root string) ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !a.cfg.HasExtension(path) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sources = append(sources, Source{Path: path, Content: content})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting sources under %s: %w", root, err)
	}
	return sources, nil
}

// Typedefs returns the typedef table of the current generation.
func (a *Analyzer) Typedefs() []report.Typedef {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.typedefTable()
}

func (a *Analyzer) typedefTable() []report.Typedef {
	names := a.cx.TypedefNames()
	out := make([]report.Typedef, 0, len(names))
	for _, name := range names {
		rt, _ := a.cx.Typedef(name)
		td := report.Typedef{
			Name: name,
			Type: typegraph.Describe(rt.Node),
			Kind: rt.Kind.String(),
		}
		switch n := rt.Node.(type) {
		case typegraph.Type:
			td.Doc = n.Doc()
		case *typegraph.AVal:
			td.Doc = n.Doc
		}
		out = append(out, td)
	}
	return out
}

// Lookup renders the type of a dotted global path in the current
// generation, for inspection and tests.
func (a *Analyzer) Lookup(path string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	parts := strings.Split(path, ".")
	av, ok := a.scope.Lookup(parts[0])
	if !ok {
		return "", false
	}
	for _, part := range parts[1:] {
		holder, ok := av.ObjType().(typegraph.PropHolder)
		if !ok {
			return "", false
		}
		if av, ok = holder.GetProp(part); !ok {
			return "", false
		}
	}
	return typegraph.Describe(av), true
}
