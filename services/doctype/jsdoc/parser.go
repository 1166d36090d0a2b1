// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package jsdoc

import (
	"fmt"
	"strings"
)

// maxExprDepth bounds nesting so that hostile input cannot exhaust the stack.
const maxExprDepth = 64

// ParseTypeExpr parses the text between a tag's braces into an Expr.
//
// Description:
//
//	Grammar, loosest binding first:
//
//	  union    := prefix ("|" prefix)*
//	  prefix   := "?" prefix | "!" prefix | postfix
//	  postfix  := primary ("[]" | "=" | "?" | "!")*
//	  primary  := "(" union ")" | record | tuple | name generic?
//	  record   := "{" (key (":" union)? ("," key (":" union)?)*)? "}"
//	  tuple    := "[" (union ("," union)*)? "]"
//	  generic  := ("<" | ".<") union ("," union)* ">"
//
//	"null" parses to NullLiteralExpr. Function types, "*", "?" on its own,
//	"...T" and literal types are reported as ErrUnsupportedType.
//
// Inputs:
//
//	src - The type expression without the surrounding braces.
//
// Outputs:
//
//	Expr  - The parsed expression. Nil on error.
//	error - Wraps ErrTypeSyntax or ErrUnsupportedType.
//
// Thread Safety: Safe for concurrent use.
func ParseTypeExpr(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: empty type", ErrTypeSyntax)
	}
	toks, err := lexTypeExpr(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	e, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %s", tok.kind)
	}
	return e, nil
}

// MustParseTypeExpr is like ParseTypeExpr but panics on error. For tests and
// static tables.
func MustParseTypeExpr(src string) Expr {
	e, err := ParseTypeExpr(src)
	if err != nil {
		panic(err)
	}
	return e
}

type exprParser struct {
	toks  []token
	pos   int
	depth int
}

func (p *exprParser) peek() token {
	return p.toks[p.pos]
}

func (p *exprParser) peekAt(offset int) token {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+offset]
}

func (p *exprParser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *exprParser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, p.errorf(tok, "expected %s, found %s", kind, tok.kind)
	}
	return tok, nil
}

func (p *exprParser) errorf(tok token, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrTypeSyntax, tok.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) unsupported(tok token, what string) error {
	return fmt.Errorf("%w at offset %d: %s", ErrUnsupportedType, tok.pos, what)
}

func (p *exprParser) enter() error {
	p.depth++
	if p.depth > maxExprDepth {
		return p.errorf(p.peek(), "expression nested too deeply")
	}
	return nil
}

func (p *exprParser) leave() { p.depth-- }

func (p *exprParser) parseUnion() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	first, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokPipe {
		return first, nil
	}
	var elems []Expr
	elems = appendFlat(elems, first)
	for p.peek().kind == tokPipe {
		p.next()
		e, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}
		elems = appendFlat(elems, e)
	}
	return &UnionExpr{Elements: elems}, nil
}

// appendFlat appends e, splicing in the members of a nested union.
func appendFlat(elems []Expr, e Expr) []Expr {
	if u, ok := e.(*UnionExpr); ok {
		return append(elems, u.Elements...)
	}
	return append(elems, e)
}

func (p *exprParser) parsePrefix() (Expr, error) {
	tok := p.peek()
	switch tok.kind {
	case tokQuestion:
		p.next()
		if !p.startsType() {
			return nil, p.unsupported(tok, "unknown type '?'")
		}
		inner, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}
		return &NullableExpr{Inner: inner}, nil
	case tokBang:
		p.next()
		inner, err := p.parsePrefix()
		if err != nil {
			return nil, err
		}
		return &NonNullableExpr{Inner: inner}, nil
	case tokEllipsis:
		return nil, p.unsupported(tok, "rest type")
	}
	return p.parsePostfix()
}

// startsType reports whether the next token can begin a type.
func (p *exprParser) startsType() bool {
	switch p.peek().kind {
	case tokName, tokLParen, tokLBrace, tokLBracket, tokQuestion, tokBang, tokStar, tokString, tokNumber:
		return true
	}
	return false
}

func (p *exprParser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokLBracket:
			if p.peekAt(1).kind != tokRBracket {
				return e, nil
			}
			p.next()
			p.next()
			e = &GenericExpr{Base: &NameExpr{Path: "Array"}, Args: []Expr{e}}
		case tokEquals, tokQuestion:
			p.next()
			e = &OptionalExpr{Inner: e}
		case tokBang:
			p.next()
			e = &NonNullableExpr{Inner: e}
		default:
			return e, nil
		}
	}
}

func (p *exprParser) parsePrimary() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok := p.next()
	switch tok.kind {
	case tokLParen:
		e, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	case tokLBrace:
		return p.parseRecord()
	case tokLBracket:
		return p.parseTuple()
	case tokName:
		return p.parseName(tok)
	case tokStar:
		return nil, p.unsupported(tok, "any type '*'")
	case tokString, tokNumber:
		return nil, p.unsupported(tok, "literal type "+tok.text)
	case tokEOF:
		return nil, p.errorf(tok, "missing type")
	default:
		return nil, p.errorf(tok, "unexpected %s", tok.kind)
	}
}

func (p *exprParser) parseName(tok token) (Expr, error) {
	switch tok.text {
	case "null":
		return &NullLiteralExpr{}, nil
	case "function":
		if p.peek().kind == tokLParen {
			return nil, p.unsupported(tok, "function type")
		}
	}
	base := &NameExpr{Path: tok.text}
	switch p.peek().kind {
	case tokLAngle, tokDotLAngle:
		p.next()
	default:
		return base, nil
	}
	var args []Expr
	for {
		arg, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(tokRAngle); err != nil {
		return nil, err
	}
	return &GenericExpr{Base: base, Args: args}, nil
}

func (p *exprParser) parseRecord() (Expr, error) {
	rec := &RecordExpr{}
	if p.peek().kind == tokRBrace {
		p.next()
		return rec, nil
	}
	for {
		keyTok := p.next()
		var key string
		switch keyTok.kind {
		case tokName:
			key = keyTok.text
		case tokString:
			key = keyTok.text[1 : len(keyTok.text)-1]
		case tokNumber:
			key = keyTok.text
		default:
			return nil, p.errorf(keyTok, "expected record key, found %s", keyTok.kind)
		}
		field := RecordField{Key: key}
		if p.peek().kind == tokColon {
			p.next()
			val, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			field.Value = val
		}
		rec.Fields = append(rec.Fields, field)

		sep := p.next()
		switch sep.kind {
		case tokComma:
			continue
		case tokRBrace:
			return rec, nil
		default:
			return nil, p.errorf(sep, "expected ',' or '}' in record, found %s", sep.kind)
		}
	}
}

func (p *exprParser) parseTuple() (Expr, error) {
	arr := &ArrayExpr{}
	if p.peek().kind == tokRBracket {
		p.next()
		return arr, nil
	}
	for {
		e, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		arr.Elements = append(arr.Elements, e)
		sep := p.next()
		switch sep.kind {
		case tokComma:
			continue
		case tokRBracket:
			return arr, nil
		default:
			return nil, p.errorf(sep, "expected ',' or ']' in array, found %s", sep.kind)
		}
	}
}
