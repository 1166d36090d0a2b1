// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("aleutian.doctype.ast")

// Tree-sitter JavaScript node types.
const (
	jsNodeProgram               = "program"
	jsNodeComment               = "comment"
	jsNodeFunctionDeclaration   = "function_declaration"
	jsNodeGeneratorFunctionDecl = "generator_function_declaration"
	jsNodeClassDeclaration      = "class_declaration"
	jsNodeClass                 = "class"
	jsNodeMethodDefinition      = "method_definition"
	jsNodeFieldDefinition       = "field_definition"
	jsNodeLexicalDeclaration    = "lexical_declaration"
	jsNodeVariableDeclaration   = "variable_declaration"
	jsNodeVariableDeclarator    = "variable_declarator"
	jsNodeExpressionStatement   = "expression_statement"
	jsNodeAssignmentExpression  = "assignment_expression"
	jsNodeCallExpression        = "call_expression"
	jsNodeMemberExpression      = "member_expression"
	jsNodeNewExpression         = "new_expression"
	jsNodeExportStatement       = "export_statement"
	jsNodeObject                = "object"
	jsNodePair                  = "pair"
	jsNodeArray                 = "array"
	jsNodeIdentifier            = "identifier"
	jsNodePropertyIdentifier    = "property_identifier"
	jsNodePrivatePropertyIdent  = "private_property_identifier"
	jsNodeShorthandProperty     = "shorthand_property_identifier"
	jsNodeString                = "string"
	jsNodeTemplateString        = "template_string"
	jsNodeNumber                = "number"
	jsNodeTrue                  = "true"
	jsNodeFalse                 = "false"
	jsNodeNull                  = "null"
	jsNodeUndefined             = "undefined"
	jsNodeFunctionExpression    = "function_expression"
	jsNodeFunction              = "function"
	jsNodeArrowFunction         = "arrow_function"
	jsNodeGeneratorFunction     = "generator_function"
	jsNodeFormalParameters      = "formal_parameters"
	jsNodeAssignmentPattern     = "assignment_pattern"
	jsNodeRestPattern           = "rest_pattern"
	jsNodeParenthesized         = "parenthesized_expression"
	jsNodeThis                  = "this"
	jsNodeStatic                = "static"
	jsNodeStatementBlock        = "statement_block"
	jsNodeReturnStatement       = "return_statement"
)

// JavaScriptParser extracts documentable declarations from JavaScript.
//
// Thread Safety:
//
//	Safe for concurrent use. Each Parse call creates its own tree-sitter
//	parser instance.
//
// Example:
//
//	parser := NewJavaScriptParser()
//	result, err := parser.Parse(ctx, content, "app.js")
//	if err != nil {
//	    return fmt.Errorf("parse: %w", err)
//	}
//	for _, d := range result.Declarations {
//	    fmt.Println(d.Kind, d.Path, len(d.Comments))
//	}
type JavaScriptParser struct {
	options JavaScriptParserOptions
}

// JavaScriptParserOptions configures JavaScriptParser behavior.
type JavaScriptParserOptions struct {
	// MaxFileSize is the maximum file size in bytes to parse.
	// Files larger than this return ErrFileTooLarge.
	// Default: 10MB
	MaxFileSize int

	// IncludeLineComments includes "//" comments in Declaration.Comments.
	// Default: true
	IncludeLineComments bool
}

// DefaultJavaScriptParserOptions returns the default options.
func DefaultJavaScriptParserOptions() JavaScriptParserOptions {
	return JavaScriptParserOptions{
		MaxFileSize:         10 * 1024 * 1024, // 10MB
		IncludeLineComments: true,
	}
}

// JavaScriptParserOption is a functional option for configuring JavaScriptParser.
type JavaScriptParserOption func(*JavaScriptParserOptions)

// WithJSMaxFileSize sets the maximum file size for parsing.
func WithJSMaxFileSize(size int) JavaScriptParserOption {
	return func(o *JavaScriptParserOptions) {
		o.MaxFileSize = size
	}
}

// WithJSLineComments sets whether "//" comments are collected.
func WithJSLineComments(include bool) JavaScriptParserOption {
	return func(o *JavaScriptParserOptions) {
		o.IncludeLineComments = include
	}
}

// NewJavaScriptParser creates a new JavaScriptParser with the given options.
func NewJavaScriptParser(opts ...JavaScriptParserOption) *JavaScriptParser {
	options := DefaultJavaScriptParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &JavaScriptParser{options: options}
}

// Extensions returns the file extensions this parser handles.
func (p *JavaScriptParser) Extensions() []string {
	return []string{".js", ".mjs", ".cjs", ".jsx"}
}

// Parse extracts declarations from JavaScript source code.
//
// Description:
//
//	Reports function, class, variable, assignment and
//	Object.defineProperty declarations, class members and object literal
//	properties. Statements nested in blocks and control flow are visited.
//	Declarations inside a function body are attached to the declaration
//	whose value is that function; function expressions that are not a
//	declaration's value (IIFEs, UMD factories, callbacks) become
//	DeclClosure entries. Every declaration carries the comment blocks
//	directly preceding it.
//
// Inputs:
//
//	ctx      - Context for cancellation. Checked before and after parsing.
//	content  - Raw JavaScript source bytes. Must be valid UTF-8.
//	filePath - Path to the file, used for IDs.
//
// Outputs:
//
//	*ParseResult - Extracted declarations. Never nil on success.
//	error        - Non-nil only for complete failures (invalid UTF-8, too large).
func (p *JavaScriptParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := tracer.Start(ctx, "ast.JavaScriptParser.Parse",
		trace.WithAttributes(
			attribute.String("file", filePath),
			attribute.Int("bytes", len(content)),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript parse canceled before start: %w", err)
	}
	if len(content) > p.options.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}

	hash := sha256.Sum256(content)
	result := &ParseResult{
		FilePath:      filePath,
		Hash:          hex.EncodeToString(hash[:]),
		ParsedAtMilli: time.Now().UnixMilli(),
		Declarations:  make([]*Declaration, 0),
	}

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		result.Errors = append(result.Errors, "source contains syntax errors; affected regions skipped")
	}

	w := &walker{p: p, content: content, filePath: filePath}
	if root.Type() == jsNodeProgram {
		result.Declarations = append(result.Declarations, w.block(root)...)
	}

	span.SetAttributes(attribute.Int("declarations.count", result.Count()))
	return result, nil
}

// walker holds the per-file state of one Parse call.
type walker struct {
	p        *JavaScriptParser
	content  []byte
	filePath string
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *walker) newDecl(n *sitter.Node, kind DeclKind, name, path string) *Declaration {
	line := int(n.StartPoint().Row) + 1
	return &Declaration{
		ID:        GenerateID(w.filePath, line, path),
		Kind:      kind,
		Name:      name,
		Path:      path,
		StartLine: line,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

func (w *walker) statement(n *sitter.Node, exported bool) []*Declaration {
	if n == nil {
		return nil
	}
	var decls []*Declaration

	switch n.Type() {
	case jsNodeFunctionDeclaration, jsNodeGeneratorFunctionDecl:
		name := w.text(n.ChildByFieldName("name"))
		if name == "" {
			return nil
		}
		d := w.newDecl(n, DeclFunction, name, name)
		d.Value = ValueFunction
		d.Params = w.params(n)
		d.Body = w.body(n)
		d.Comments = w.comments(n)
		decls = append(decls, d)

	case jsNodeClassDeclaration:
		name := w.text(n.ChildByFieldName("name"))
		if name == "" {
			return nil
		}
		d := w.class(n, name)
		d.Comments = w.comments(n)
		decls = append(decls, d)

	case jsNodeLexicalDeclaration, jsNodeVariableDeclaration:
		comments := w.comments(n)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			decl := n.NamedChild(i)
			if decl.Type() != jsNodeVariableDeclarator {
				continue
			}
			nameNode := decl.ChildByFieldName("name")
			if nameNode == nil || nameNode.Type() != jsNodeIdentifier {
				continue
			}
			name := w.text(nameNode)
			d := w.newDecl(decl, DeclVariable, name, name)
			value := decl.ChildByFieldName("value")
			w.classify(d, value)
			if len(decls) == 0 {
				d.Comments = comments
			}
			decls = append(decls, d)
			if opaque(d) && value != nil {
				decls = append(decls, w.closures(value)...)
			}
		}

	case jsNodeExpressionStatement:
		d := w.expression(n)
		if d != nil {
			decls = append(decls, d)
		}
		if d == nil || opaque(d) {
			decls = append(decls, w.closures(n)...)
		}

	case jsNodeReturnStatement:
		decls = append(decls, w.closures(n)...)

	case jsNodeExportStatement:
		inner := w.statement(n.ChildByFieldName("declaration"), true)
		if len(inner) > 0 && len(inner[0].Comments) == 0 {
			inner[0].Comments = w.comments(n)
		}
		decls = append(decls, inner...)

	default:
		if nestsStatements(n.Type()) {
			decls = append(decls, w.block(n)...)
		}
	}

	for _, d := range decls {
		d.Exported = d.Exported || exported
	}
	return decls
}

// expression handles assignments and Object.defineProperty calls at
// statement level.
func (w *walker) expression(stmt *sitter.Node) *Declaration {
	if stmt.NamedChildCount() == 0 {
		return nil
	}
	expr := stmt.NamedChild(0)

	switch expr.Type() {
	case jsNodeAssignmentExpression:
		path := w.path(expr.ChildByFieldName("left"))
		if path == "" {
			return nil
		}
		name := path[strings.LastIndex(path, ".")+1:]
		d := w.newDecl(stmt, DeclAssignment, name, path)
		if i := strings.LastIndex(path, "."); i >= 0 {
			d.Owner = path[:i]
		}
		w.classify(d, expr.ChildByFieldName("right"))
		d.Comments = w.comments(stmt)
		return d

	case jsNodeCallExpression:
		args, ok := w.definePropertyArgs(expr)
		if !ok {
			return nil
		}
		owner := w.path(args[0])
		if owner == "" {
			return nil
		}
		name := unquote(w.text(args[1]))
		d := w.newDecl(stmt, DeclDefineProperty, name, owner+"."+name)
		d.Owner = owner
		if args[2].Type() == jsNodeObject {
			if v := w.objectValue(args[2], "value"); v != nil {
				w.classify(d, v)
			}
		}
		d.Comments = w.comments(stmt)
		return d
	}
	return nil
}

// definePropertyArgs matches Object.defineProperty(obj, "name", desc).
func (w *walker) definePropertyArgs(call *sitter.Node) ([]*sitter.Node, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != jsNodeMemberExpression {
		return nil, false
	}
	if w.text(fn.ChildByFieldName("object")) != "Object" || w.text(fn.ChildByFieldName("property")) != "defineProperty" {
		return nil, false
	}
	argList := call.ChildByFieldName("arguments")
	if argList == nil || argList.NamedChildCount() < 3 {
		return nil, false
	}
	args := []*sitter.Node{argList.NamedChild(0), argList.NamedChild(1), argList.NamedChild(2)}
	if args[1].Type() != jsNodeString {
		return nil, false
	}
	return args, true
}

func (w *walker) objectValue(obj *sitter.Node, key string) *sitter.Node {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		c := obj.NamedChild(i)
		if c.Type() == jsNodePair && unquote(w.text(c.ChildByFieldName("key"))) == key {
			return c.ChildByFieldName("value")
		}
	}
	return nil
}

func (w *walker) class(n *sitter.Node, name string) *Declaration {
	d := w.newDecl(n, DeclClass, name, name)
	d.Value = ValueClass
	body := n.ChildByFieldName("body")
	if body == nil {
		return d
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		switch m.Type() {
		case jsNodeMethodDefinition, jsNodeFieldDefinition:
		default:
			continue
		}
		nameField := "name"
		if m.Type() == jsNodeFieldDefinition {
			nameField = "property"
		}
		nameNode := m.ChildByFieldName(nameField)
		if nameNode == nil {
			continue
		}
		switch nameNode.Type() {
		case jsNodePropertyIdentifier, jsNodePrivatePropertyIdent, jsNodeString:
		default:
			continue
		}
		memberName := unquote(w.text(nameNode))
		static := hasChildType(m, jsNodeStatic)

		kind := DeclMethod
		if m.Type() == jsNodeFieldDefinition {
			kind = DeclField
		}
		path := name + ".prototype." + memberName
		switch {
		case kind == DeclMethod && memberName == "constructor":
			path = name
		case static:
			path = name + "." + memberName
		}

		member := w.newDecl(m, kind, memberName, path)
		member.Owner = name
		member.Static = static
		member.Comments = w.comments(m)
		if kind == DeclMethod {
			member.Value = ValueFunction
			member.Params = w.params(m)
			member.Body = w.body(m)
			if memberName == "constructor" {
				d.Params = member.Params
			}
		} else {
			w.classify(member, m.ChildByFieldName("value"))
		}
		d.Members = append(d.Members, member)
	}
	return d
}

// classify records what kind of value v is, its parameters when it is a
// function and its properties when it is an object literal.
func (w *walker) classify(d *Declaration, v *sitter.Node) {
	for v != nil && v.Type() == jsNodeParenthesized && v.NamedChildCount() > 0 {
		v = v.NamedChild(0)
	}
	if v == nil {
		return
	}
	switch v.Type() {
	case jsNodeFunctionExpression, jsNodeFunction, jsNodeArrowFunction, jsNodeGeneratorFunction:
		d.Value = ValueFunction
		d.Params = w.params(v)
		d.Body = w.body(v)
	case jsNodeClass:
		d.Value = ValueClass
		cls := w.class(v, d.Path)
		d.Params = cls.Params
		d.Members = cls.Members
	case jsNodeObject:
		d.Value = ValueObject
		d.Members = w.object(v, d.Path)
	case jsNodeArray:
		d.Value = ValueArray
	case jsNodeString, jsNodeTemplateString:
		d.Value = ValueString
	case jsNodeNumber:
		d.Value = ValueNumber
	case jsNodeTrue, jsNodeFalse:
		d.Value = ValueBool
	case jsNodeNull, jsNodeUndefined:
		d.Value = ValueNull
	case jsNodeNewExpression:
		d.Value = ValueNew
		d.ValueRef = w.path(v.ChildByFieldName("constructor"))
	case jsNodeIdentifier, jsNodeMemberExpression:
		if v.Type() == jsNodeIdentifier && w.text(v) == "undefined" {
			d.Value = ValueNull
			return
		}
		if ref := w.path(v); ref != "" {
			d.Value = ValueRef
			d.ValueRef = ref
		}
	}
}

func (w *walker) object(obj *sitter.Node, owner string) []*Declaration {
	var props []*Declaration
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		c := obj.NamedChild(i)
		var d *Declaration
		switch c.Type() {
		case jsNodePair:
			key := c.ChildByFieldName("key")
			if key == nil {
				continue
			}
			switch key.Type() {
			case jsNodePropertyIdentifier, jsNodeString, jsNodeNumber:
			default:
				continue
			}
			name := unquote(w.text(key))
			d = w.newDecl(c, DeclProperty, name, owner+"."+name)
			w.classify(d, c.ChildByFieldName("value"))
		case jsNodeMethodDefinition:
			name := unquote(w.text(c.ChildByFieldName("name")))
			if name == "" {
				continue
			}
			d = w.newDecl(c, DeclProperty, name, owner+"."+name)
			d.Value = ValueFunction
			d.Params = w.params(c)
			d.Body = w.body(c)
		case jsNodeShorthandProperty:
			name := w.text(c)
			d = w.newDecl(c, DeclProperty, name, owner+"."+name)
			d.Value = ValueRef
			d.ValueRef = name
		default:
			continue
		}
		d.Owner = owner
		d.Comments = w.comments(c)
		props = append(props, d)
	}
	return props
}

// block returns the declarations of the statements directly in n.
func (w *walker) block(n *sitter.Node) []*Declaration {
	var decls []*Declaration
	for i := 0; i < int(n.NamedChildCount()); i++ {
		decls = append(decls, w.statement(n.NamedChild(i), false)...)
	}
	return decls
}

// body returns the declarations in a function's block body. Arrow
// functions with an expression body have none.
func (w *walker) body(fn *sitter.Node) []*Declaration {
	b := fn.ChildByFieldName("body")
	if b == nil || b.Type() != jsNodeStatementBlock {
		return nil
	}
	return w.block(b)
}

// closures returns a DeclClosure for every function expression in n that
// is not nested in another function and declares something in its body.
func (w *walker) closures(n *sitter.Node) []*Declaration {
	var out []*Declaration
	var visit func(c *sitter.Node)
	visit = func(c *sitter.Node) {
		switch c.Type() {
		case jsNodeFunctionExpression, jsNodeFunction, jsNodeArrowFunction, jsNodeGeneratorFunction:
			d := w.newDecl(c, DeclClosure, "", "")
			d.Value = ValueFunction
			d.Params = w.params(c)
			d.Body = w.body(c)
			if len(d.Body) > 0 {
				out = append(out, d)
			}
			return
		case jsNodeClass:
			return
		}
		for i := 0; i < int(c.NamedChildCount()); i++ {
			visit(c.NamedChild(i))
		}
	}
	visit(n)
	return out
}

// opaque reports whether d's value is not a function, class or object
// literal, whose function expressions are reached through d itself.
func opaque(d *Declaration) bool {
	switch d.Value {
	case ValueFunction, ValueClass, ValueObject:
		return false
	}
	return true
}

// nestsStatements reports whether a node of type typ holds statements
// that belong to the enclosing scope.
func nestsStatements(typ string) bool {
	switch typ {
	case jsNodeStatementBlock, "if_statement", "else_clause", "for_statement",
		"for_in_statement", "while_statement", "do_statement", "try_statement",
		"catch_clause", "finally_clause", "switch_statement", "switch_body",
		"switch_case", "switch_default", "labeled_statement", "with_statement":
		return true
	}
	return false
}

// params returns the declared parameter names of a function-like node.
// Destructuring patterns are reported as "?".
func (w *walker) params(fn *sitter.Node) []string {
	if single := fn.ChildByFieldName("parameter"); single != nil {
		return []string{w.text(single)}
	}
	list := fn.ChildByFieldName("parameters")
	if list == nil || list.Type() != jsNodeFormalParameters {
		return nil
	}
	params := make([]string, 0, list.NamedChildCount())
	for i := 0; i < int(list.NamedChildCount()); i++ {
		c := list.NamedChild(i)
		switch c.Type() {
		case jsNodeIdentifier:
			params = append(params, w.text(c))
		case jsNodeAssignmentPattern:
			left := c.ChildByFieldName("left")
			if left != nil && left.Type() == jsNodeIdentifier {
				params = append(params, w.text(left))
			} else {
				params = append(params, "?")
			}
		case jsNodeRestPattern:
			name := "?"
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if gc := c.NamedChild(j); gc.Type() == jsNodeIdentifier {
					name = w.text(gc)
					break
				}
			}
			params = append(params, name)
		case jsNodeComment:
		default:
			params = append(params, "?")
		}
	}
	return params
}

// path renders an identifier or a chain of static member accesses as a
// dotted path. Returns "" for anything else.
func (w *walker) path(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case jsNodeIdentifier, jsNodeThis:
		return w.text(n)
	case jsNodeMemberExpression:
		obj := w.path(n.ChildByFieldName("object"))
		prop := n.ChildByFieldName("property")
		if obj == "" || prop == nil || prop.Type() != jsNodePropertyIdentifier {
			return ""
		}
		return obj + "." + w.text(prop)
	}
	return ""
}

// comments returns the comment blocks directly preceding n, oldest first.
// Runs of "//" comments on consecutive lines form one block.
func (w *walker) comments(n *sitter.Node) []string {
	var nodes []*sitter.Node
	for prev := n.PrevSibling(); prev != nil && prev.Type() == jsNodeComment; prev = prev.PrevSibling() {
		nodes = append(nodes, prev)
	}

	var out []string
	lastLine := -2
	for i := len(nodes) - 1; i >= 0; i-- {
		c := nodes[i]
		text := w.text(c)
		if !strings.HasPrefix(text, "//") {
			out = append(out, text)
			lastLine = -2
			continue
		}
		if !w.p.options.IncludeLineComments {
			continue
		}
		text = strings.TrimPrefix(text, "//")
		row := int(c.StartPoint().Row)
		if lastLine >= 0 && row == lastLine+1 && len(out) > 0 {
			out[len(out)-1] += "\n" + text
		} else {
			out = append(out, text)
		}
		lastLine = row
	}
	return out
}

func hasChildType(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
