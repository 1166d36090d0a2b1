// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report defines the serializable outcome of an analysis.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/AleutianAI/doctype/services/doctype/binder"
	"github.com/AleutianAI/doctype/services/doctype/realize"
)

// SchemaVersion is the report serialization version.
const SchemaVersion = "1"

// Report is the outcome of analyzing a set of files in one generation.
type Report struct {
	// ProjectRoot is the directory the files were analyzed under.
	ProjectRoot string `json:"project_root"`

	// Generation is the analysis context generation ID.
	Generation string `json:"generation"`

	// CreatedAtMilli is the report time in Unix milliseconds UTC.
	CreatedAtMilli int64 `json:"created_at_milli"`

	// SchemaVersion is the serialization version.
	SchemaVersion string `json:"schema_version"`

	Files    []*File   `json:"files"`
	Typedefs []Typedef `json:"typedefs,omitempty"`

	// Diagnostics are reported outside any declaration, such as typedef
	// pre-pass and definition file problems.
	Diagnostics []realize.Diagnostic `json:"diagnostics,omitempty"`
}

// File is the outcome for one source file.
type File struct {
	Path         string         `json:"path"`
	Hash         string         `json:"hash"`
	Declarations []*Declaration `json:"declarations"`

	// Errors are parse problems such as syntax error regions.
	Errors []string `json:"errors,omitempty"`
}

// Declaration is the outcome for one documented declaration.
type Declaration struct {
	binder.Result

	// Line is the 1-indexed start line.
	Line int `json:"line"`

	// Type is the rendered type of the declaration after binding.
	Type string `json:"type,omitempty"`
}

// Typedef is one registered alias.
type Typedef struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Kind string `json:"kind"`
	Doc  string `json:"doc,omitempty"`
}

// Summary counts the contents of a report.
type Summary struct {
	Files        int `json:"files"`
	Declarations int `json:"declarations"`
	Documented   int `json:"documented"`
	Propagations int `json:"propagations"`
	MadeUp       int `json:"made_up"`
	Renamed      int `json:"renamed"`
	Typedefs     int `json:"typedefs"`
	Diagnostics  int `json:"diagnostics"`
}

// Summary returns the report's counts.
func (r *Report) Summary() Summary {
	s := Summary{
		Files:       len(r.Files),
		Typedefs:    len(r.Typedefs),
		Diagnostics: len(r.Diagnostics),
	}
	for _, f := range r.Files {
		for _, d := range f.Declarations {
			s.Declarations++
			if d.Doc != "" {
				s.Documented++
			}
			s.Propagations += len(d.Propagations)
			for _, p := range d.Propagations {
				if p.MadeUp {
					s.MadeUp++
				}
			}
			s.Renamed += len(d.Renamed)
			s.Diagnostics += len(d.Diagnostics)
		}
	}
	return s
}

// AllDiagnostics returns the report-level diagnostics followed by those of
// every declaration, in file order.
func (r *Report) AllDiagnostics() []realize.Diagnostic {
	out := append([]realize.Diagnostic(nil), r.Diagnostics...)
	for _, f := range r.Files {
		for _, d := range f.Declarations {
			out = append(out, d.Diagnostics...)
		}
	}
	return out
}

// Hash is a deterministic digest of the analysis content. Generation and
// creation time are excluded so that re-analyzing unchanged sources yields
// the same hash.
func (r *Report) Hash() string {
	stable := struct {
		Files    []*File   `json:"files"`
		Typedefs []Typedef `json:"typedefs"`
	}{r.Files, r.Typedefs}
	data, err := json.Marshal(stable)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
