// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads doctype settings from YAML.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

var tracer = otel.Tracer("aleutian.doctype.config")

// =============================================================================
// Embedded Default Configuration
// =============================================================================

//go:embed doctype.yaml
var defaultYAML []byte

// MaxYAMLFileSize bounds configuration and definition files.
const MaxYAMLFileSize = 1 << 20

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the complete doctype configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	// Strong propagates documented types with the strong weight.
	Strong bool `yaml:"strong"`

	// FullDocs keeps the whole normalized comment instead of its summary.
	FullDocs bool `yaml:"full_docs"`

	Parser   ParserConfig   `yaml:"parser"`
	Analysis AnalysisConfig `yaml:"analysis"`

	// Definitions are definition file paths applied after every reset.
	Definitions []string `yaml:"definitions"`

	Snapshot SnapshotConfig `yaml:"snapshot"`
	Watch    WatchConfig    `yaml:"watch"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// ParserConfig controls declaration extraction.
type ParserConfig struct {
	// MaxFileSize is the largest file parsed, in bytes.
	MaxFileSize int `yaml:"max_file_size"`

	// LineComments includes "//" comments in declaration comment blocks.
	LineComments bool `yaml:"line_comments"`

	// Extensions are the file extensions analyzed by directory walks and
	// the watcher.
	Extensions []string `yaml:"extensions"`
}

// AnalysisConfig controls multi-file analysis.
type AnalysisConfig struct {
	// ParseConcurrency bounds concurrent parsing in AnalyzeFiles.
	ParseConcurrency int `yaml:"parse_concurrency"`
}

// SnapshotConfig controls the report snapshot store.
type SnapshotConfig struct {
	// Dir is the badger directory. Empty disables snapshots.
	Dir string `yaml:"dir"`

	// Retain is the number of snapshots kept per project.
	Retain int `yaml:"retain"`
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	// DebounceMs coalesces change bursts.
	DebounceMs int `yaml:"debounce_ms"`
}

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultMaxFileSize      = 10 * 1024 * 1024
	DefaultParseConcurrency = 4
	DefaultSnapshotRetain   = 20
	DefaultDebounceMs       = 200
	DefaultLogLevel         = "info"
)

// DefaultExtensions are analyzed when the configuration names none.
var DefaultExtensions = []string{".js", ".mjs", ".cjs"}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := Load(context.Background(), defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load parses, defaults and validates a configuration.
//
// Description:
//
//	Keys missing from data keep the embedded defaults, so a user file only
//	needs the settings it changes. Zero or negative numeric settings are
//	replaced with their defaults after parsing.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes. Empty data yields the defaults.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error - Non-nil if parsing or validation fails.
func Load(ctx context.Context, data []byte) (*Config, error) {
	_, span := tracer.Start(ctx, "config.Load")
	defer span.End()

	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("config.Load: YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)
	}

	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parsing defaults: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parsing YAML: %w", err)
		}
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("strong", cfg.Strong),
		attribute.Bool("full_docs", cfg.FullDocs),
		attribute.Int("definitions", len(cfg.Definitions)),
	)
	return &cfg, nil
}

// LoadFile reads and loads the configuration at path.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.LoadFile: %w", err)
	}
	cfg, err := Load(ctx, data)
	if err != nil {
		return nil, err
	}
	slog.Info("doctype config loaded",
		slog.String("path", path),
		slog.Bool("strong", cfg.Strong),
		slog.Int("definitions", len(cfg.Definitions)),
	)
	return cfg, nil
}

// WithDefaults returns a copy of c with unset or non-positive fields
// replaced by their defaults. c is not modified.
func (c *Config) WithDefaults() *Config {
	out := *c
	out.applyDefaults()
	return &out
}

func (c *Config) applyDefaults() {
	if c.Parser.MaxFileSize <= 0 {
		c.Parser.MaxFileSize = DefaultMaxFileSize
	}
	if len(c.Parser.Extensions) == 0 {
		c.Parser.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if c.Analysis.ParseConcurrency <= 0 {
		c.Analysis.ParseConcurrency = DefaultParseConcurrency
	}
	if c.Snapshot.Retain <= 0 {
		c.Snapshot.Retain = DefaultSnapshotRetain
	}
	if c.Watch.DebounceMs <= 0 {
		c.Watch.DebounceMs = DefaultDebounceMs
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	for i, ext := range c.Parser.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("parser.extensions[%d]: %q must start with '.'", i, ext)
		}
	}
	for i, path := range c.Definitions {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("definitions[%d]: path must not be empty", i)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// HasExtension reports whether path ends in a configured extension.
func (c *Config) HasExtension(path string) bool {
	for _, ext := range c.Parser.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
