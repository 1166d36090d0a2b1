// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/doctype/services/doctype/realize"
	"github.com/AleutianAI/doctype/services/doctype/report"
	"github.com/AleutianAI/doctype/services/doctype/snapshot"
)

// renderer formats reports as text, styled when writing to a terminal.
type renderer struct {
	styled bool

	title    lipgloss.Style
	name     lipgloss.Style
	typ      lipgloss.Style
	dim      lipgloss.Style
	warning  lipgloss.Style
	errStyle lipgloss.Style
}

func newRenderer(w io.Writer) *renderer {
	r := &renderer{styled: isTerminal(w)}
	if r.styled {
		r.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
		r.name = lipgloss.NewStyle().Bold(true)
		r.typ = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
		r.dim = lipgloss.NewStyle().Faint(true)
		r.warning = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
		r.errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	}
	return r
}

// isTerminal honors NO_COLOR, then checks whether w is a terminal.
func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *renderer) render(style lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return style.Render(s)
}

// Report renders every file, the typedef table and a summary line.
func (r *renderer) Report(rep *report.Report) string {
	var sb strings.Builder
	for _, f := range rep.Files {
		sb.WriteString(r.render(r.title, f.Path))
		sb.WriteString("\n")
		for _, e := range f.Errors {
			fmt.Fprintf(&sb, "  %s\n", r.render(r.errStyle, "error: "+e))
		}
		for _, d := range f.Declarations {
			fmt.Fprintf(&sb, "  %s %s %s",
				r.render(r.dim, fmt.Sprintf("%4d", d.Line)),
				r.render(r.name, d.Target),
				r.render(r.typ, d.Type),
			)
			if len(d.Renamed) > 0 {
				sb.WriteString(r.render(r.dim, " (optional: "+strings.Join(d.Renamed, ", ")+")"))
			}
			sb.WriteString("\n")
			if d.Doc != "" {
				first, _, _ := strings.Cut(d.Doc, "\n")
				fmt.Fprintf(&sb, "       %s\n", r.render(r.dim, first))
			}
			for _, diag := range d.Diagnostics {
				fmt.Fprintf(&sb, "       %s\n", r.diagnostic(diag))
			}
		}
	}

	if len(rep.Typedefs) > 0 {
		sb.WriteString(r.render(r.title, "typedefs"))
		sb.WriteString("\n")
		for _, td := range rep.Typedefs {
			fmt.Fprintf(&sb, "  %s %s\n", r.render(r.name, td.Name), r.render(r.typ, td.Type))
		}
	}
	for _, diag := range rep.Diagnostics {
		fmt.Fprintf(&sb, "%s\n", r.diagnostic(diag))
	}

	s := rep.Summary()
	fmt.Fprintf(&sb, "%d files, %d declarations (%d documented), %d propagations (%d low confidence), %d typedefs, %d diagnostics\n",
		s.Files, s.Declarations, s.Documented, s.Propagations, s.MadeUp, s.Typedefs, s.Diagnostics)
	return sb.String()
}

func (r *renderer) diagnostic(d realize.Diagnostic) string {
	style := r.warning
	if d.Severity == realize.SeverityError {
		style = r.errStyle
	}
	return r.render(style, d.String())
}

// Snapshots renders snapshot metadata one per line.
func (r *renderer) Snapshots(metas []*snapshot.Metadata) string {
	if len(metas) == 0 {
		return "no snapshots\n"
	}
	var sb strings.Builder
	for _, m := range metas {
		created := time.UnixMilli(m.CreatedAtMilli).UTC().Format(time.RFC3339)
		fmt.Fprintf(&sb, "%s  %s  %s  %d declarations",
			r.render(r.name, m.SnapshotID),
			r.render(r.dim, created),
			m.ProjectRoot,
			m.Summary.Declarations,
		)
		if m.Label != "" {
			fmt.Fprintf(&sb, "  %s", r.render(r.typ, m.Label))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Diff renders added, removed and modified declarations.
func (r *renderer) Diff(d *report.Diff) string {
	if d.Empty() {
		return "no changes\n"
	}
	var sb strings.Builder
	for _, key := range d.Added {
		fmt.Fprintf(&sb, "%s %s\n", r.render(r.typ, "+"), key)
	}
	for _, key := range d.Removed {
		fmt.Fprintf(&sb, "%s %s\n", r.render(r.errStyle, "-"), key)
	}
	for _, m := range d.Modified {
		fmt.Fprintf(&sb, "%s %s %s: %q -> %q\n", r.render(r.warning, "~"), m.Key, r.render(r.dim, m.Change), m.Before, m.After)
	}
	if len(d.TypedefsChanged) > 0 {
		fmt.Fprintf(&sb, "typedefs changed: %s\n", strings.Join(d.TypedefsChanged, ", "))
	}
	fmt.Fprintf(&sb, "%d changes in %d files\n", d.Summary.TotalChanges, d.Summary.FilesAffected)
	return sb.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
