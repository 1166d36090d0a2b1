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
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/doctype/services/doctype"
	"github.com/AleutianAI/doctype/services/doctype/config"
	"github.com/AleutianAI/doctype/services/doctype/snapshot"
)

// globalOptions hold the persistent flag values shared by every command.
type globalOptions struct {
	configPath  string
	strong      bool
	fullDocs    bool
	defs        []string
	snapshotDir string
	logLevel    string
	trace       bool

	stopTracing func(context.Context) error
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "doctype",
		Short:         "Interpret JSDoc type annotations in JavaScript sources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.trace {
				return nil
			}
			stop, err := setupTracing(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.stopTracing = stop
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.stopTracing == nil {
				return nil
			}
			return opts.stopTracing(context.WithoutCancel(cmd.Context()))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a doctype.yaml configuration file")
	pf.BoolVar(&opts.strong, "strong", false, "let documented types override inferred types")
	pf.BoolVar(&opts.fullDocs, "full-docs", true, "keep whole comments instead of their first paragraph")
	pf.StringSliceVar(&opts.defs, "defs", nil, "definition files to load (repeatable)")
	pf.StringVar(&opts.snapshotDir, "snapshot-dir", "", "BadgerDB directory for report snapshots")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&opts.trace, "trace", false, "write OpenTelemetry spans to stderr")

	root.AddCommand(
		newAnnotateCmd(opts),
		newWatchCmd(opts),
		newSnapshotCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration file, if any, and applies flag
// overrides for the flags the user set explicitly.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadFile(cmd.Context(), o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("strong") {
		cfg.Strong = o.strong
	}
	if flags.Changed("full-docs") {
		cfg.FullDocs = o.fullDocs
	}
	cfg.Definitions = append(cfg.Definitions, o.defs...)
	if flags.Changed("snapshot-dir") {
		cfg.Snapshot.Dir = o.snapshotDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger returns a text logger on stderr at the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newAnalyzer builds an analyzer with the configured definition files.
func newAnalyzer(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, root string) (*doctype.Analyzer, error) {
	a := doctype.New(cfg, doctype.WithLogger(logger), doctype.WithProjectRoot(root))
	for _, path := range cfg.Definitions {
		if err := a.LoadDefinitionFile(cmd.Context(), path); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// openStore opens the snapshot store, or returns nil when none is configured.
func openStore(cfg *config.Config, logger *slog.Logger) (*snapshot.Store, error) {
	if cfg.Snapshot.Dir == "" {
		return nil, nil
	}
	return snapshot.Open(cfg.Snapshot.Dir, logger, snapshot.WithRetain(cfg.Snapshot.Retain))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the doctype version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "doctype %s\n", Version)
		},
	}
}
