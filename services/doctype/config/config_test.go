// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Embedded(t *testing.T) {
	cfg := Default()

	if cfg.Strong {
		t.Error("expected strong = false")
	}
	if !cfg.FullDocs {
		t.Error("expected full_docs = true")
	}
	if cfg.Parser.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("expected max_file_size = %d, got %d", DefaultMaxFileSize, cfg.Parser.MaxFileSize)
	}
	if !cfg.Parser.LineComments {
		t.Error("expected line_comments = true")
	}
	if len(cfg.Parser.Extensions) != 3 {
		t.Errorf("expected 3 extensions, got %v", cfg.Parser.Extensions)
	}
	if cfg.Analysis.ParseConcurrency != DefaultParseConcurrency {
		t.Errorf("expected parse_concurrency = %d, got %d", DefaultParseConcurrency, cfg.Analysis.ParseConcurrency)
	}
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), []byte(`
strong: true
full_docs: false
definitions: [browser.yaml]
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Strong || cfg.FullDocs {
		t.Errorf("overrides not applied: strong=%v full_docs=%v", cfg.Strong, cfg.FullDocs)
	}
	if len(cfg.Definitions) != 1 || cfg.Definitions[0] != "browser.yaml" {
		t.Errorf("unexpected definitions %v", cfg.Definitions)
	}
	if cfg.Watch.DebounceMs != DefaultDebounceMs {
		t.Errorf("expected default debounce, got %d", cfg.Watch.DebounceMs)
	}
}

func TestLoad_NonPositiveValuesDefault(t *testing.T) {
	cfg, err := Load(context.Background(), []byte(`
parser:
  max_file_size: -1
  extensions: []
analysis:
  parse_concurrency: 0
snapshot:
  retain: 0
log_level: ""
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Parser.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("max_file_size = %d", cfg.Parser.MaxFileSize)
	}
	if len(cfg.Parser.Extensions) != len(DefaultExtensions) {
		t.Errorf("extensions = %v", cfg.Parser.Extensions)
	}
	if cfg.Analysis.ParseConcurrency != DefaultParseConcurrency {
		t.Errorf("parse_concurrency = %d", cfg.Analysis.ParseConcurrency)
	}
	if cfg.Snapshot.Retain != DefaultSnapshotRetain {
		t.Errorf("retain = %d", cfg.Snapshot.Retain)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("log_level = %q", cfg.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad extension", "parser:\n  extensions: [js]\n", "must start with '.'"},
		{"empty definition", "definitions: ['  ']\n", "must not be empty"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"bad yaml", "strong: [\n", "parsing YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), []byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_TooLarge(t *testing.T) {
	data := make([]byte, MaxYAMLFileSize+1)
	if _, err := Load(context.Background(), data); err == nil {
		t.Fatal("expected size error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doctype.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	level, err := cfg.Level()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("level = %v, err = %v", level, err)
	}

	if _, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHasExtension(t *testing.T) {
	cfg := Default()
	if !cfg.HasExtension("src/app.mjs") {
		t.Error("expected .mjs to match")
	}
	if cfg.HasExtension("src/app.ts") {
		t.Error("expected .ts not to match")
	}
}

func TestWithDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{Analysis: AnalysisConfig{ParseConcurrency: 0}}
	got := cfg.WithDefaults()

	if got.Analysis.ParseConcurrency != DefaultParseConcurrency {
		t.Errorf("parse_concurrency = %d, want %d", got.Analysis.ParseConcurrency, DefaultParseConcurrency)
	}
	if got.Parser.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("max_file_size = %d, want %d", got.Parser.MaxFileSize, DefaultMaxFileSize)
	}
	if !got.HasExtension("a.js") {
		t.Error("expected default extensions")
	}
	if cfg.Analysis.ParseConcurrency != 0 {
		t.Error("WithDefaults modified its receiver")
	}
}
