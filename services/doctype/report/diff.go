// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"sort"
)

// Change kinds of a modified declaration or typedef.
const (
	ChangeType = "type_changed"
	ChangeDoc  = "doc_changed"
)

// Diff contains the differences between two reports.
type Diff struct {
	BaseID   string `json:"base_id"`
	TargetID string `json:"target_id"`

	// Added are keys ("file#target") present in target but not in base.
	Added []string `json:"added"`

	// Removed are keys present in base but not in target.
	Removed []string `json:"removed"`

	// Modified are declarations present in both with different output.
	Modified []DeclarationDiff `json:"modified"`

	// TypedefsChanged names typedefs added, removed or retyped.
	TypedefsChanged []string `json:"typedefs_changed"`

	Summary DiffSummary `json:"summary"`
}

// DeclarationDiff describes how one declaration changed.
type DeclarationDiff struct {
	Key    string `json:"key"`
	Change string `json:"change"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// DiffSummary contains aggregate statistics about a diff.
type DiffSummary struct {
	TotalChanges  int     `json:"total_changes"`
	FilesAffected int     `json:"files_affected"`
	ChangeRatio   float64 `json:"change_ratio"`
}

type keyed struct {
	file string
	decl *Declaration
}

// DiffReports compares two reports declaration by declaration.
//
// Description:
//
//	Declarations are matched by file path and target name. A declaration
//	whose rendered type differs is "type_changed"; one whose type matches
//	but documentation differs is "doc_changed". Line moves alone are not
//	changes. Output slices are sorted for deterministic output.
//
// Outputs:
//
//	*Diff - The computed differences.
//	error - Non-nil if either report is nil.
func DiffReports(base, target *Report, baseID, targetID string) (*Diff, error) {
	if base == nil {
		return nil, fmt.Errorf("base report must not be nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target report must not be nil")
	}

	diff := &Diff{
		BaseID:          baseID,
		TargetID:        targetID,
		Added:           []string{},
		Removed:         []string{},
		Modified:        []DeclarationDiff{},
		TypedefsChanged: []string{},
	}
	baseDecls := index(base)
	targetDecls := index(target)
	affected := make(map[string]bool)

	for key, t := range targetDecls {
		b, ok := baseDecls[key]
		if !ok {
			diff.Added = append(diff.Added, key)
			affected[t.file] = true
			continue
		}
		switch {
		case b.decl.Type != t.decl.Type:
			diff.Modified = append(diff.Modified, DeclarationDiff{Key: key, Change: ChangeType, Before: b.decl.Type, After: t.decl.Type})
		case b.decl.Doc != t.decl.Doc:
			diff.Modified = append(diff.Modified, DeclarationDiff{Key: key, Change: ChangeDoc, Before: b.decl.Doc, After: t.decl.Doc})
		default:
			continue
		}
		affected[t.file] = true
	}
	for key, b := range baseDecls {
		if _, ok := targetDecls[key]; !ok {
			diff.Removed = append(diff.Removed, key)
			affected[b.file] = true
		}
	}

	baseDefs := make(map[string]string, len(base.Typedefs))
	for _, td := range base.Typedefs {
		baseDefs[td.Name] = td.Type
	}
	seen := make(map[string]bool, len(target.Typedefs))
	for _, td := range target.Typedefs {
		seen[td.Name] = true
		if before, ok := baseDefs[td.Name]; !ok || before != td.Type {
			diff.TypedefsChanged = append(diff.TypedefsChanged, td.Name)
		}
	}
	for name := range baseDefs {
		if !seen[name] {
			diff.TypedefsChanged = append(diff.TypedefsChanged, name)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.TypedefsChanged)
	sort.Slice(diff.Modified, func(i, j int) bool {
		return diff.Modified[i].Key < diff.Modified[j].Key
	})

	total := max(len(baseDecls), len(targetDecls))
	changed := len(diff.Added) + len(diff.Removed) + len(diff.Modified)
	ratio := 0.0
	if total > 0 {
		ratio = float64(changed) / float64(total)
	}
	diff.Summary = DiffSummary{
		TotalChanges:  changed + len(diff.TypedefsChanged),
		FilesAffected: len(affected),
		ChangeRatio:   ratio,
	}
	return diff, nil
}

// Empty reports whether the diff has no changes.
func (d *Diff) Empty() bool {
	return d.Summary.TotalChanges == 0
}

func index(r *Report) map[string]keyed {
	out := make(map[string]keyed)
	for _, f := range r.Files {
		for _, d := range f.Declarations {
			out[f.Path+"#"+d.Target] = keyed{file: f.Path, decl: d}
		}
	}
	return out
}
