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

import "errors"

var (
	// ErrTypeSyntax indicates a type expression that does not follow the
	// grammar. The tag's type contribution is dropped.
	ErrTypeSyntax = errors.New("type expression syntax error")

	// ErrUnsupportedType indicates a well-formed type expression of a kind
	// that is not interpreted (function types, "*", rest types, literal
	// types).
	ErrUnsupportedType = errors.New("unsupported type expression")

	// ErrTagSyntax indicates a malformed tag, such as an unbalanced "{" or an
	// empty type.
	ErrTagSyntax = errors.New("malformed tag")
)
