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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/doctype/services/doctype"
	"github.com/AleutianAI/doctype/services/doctype/report"
)

type annotateOptions struct {
	json  bool
	label string
}

func newAnnotateCmd(g *globalOptions) *cobra.Command {
	opts := &annotateOptions{}
	cmd := &cobra.Command{
		Use:   "annotate [paths...]",
		Short: "Analyze files or directories and report documented types",
		Long: `Analyze JavaScript files and directories in one generation.

Directories are walked for files with a configured extension, skipping
hidden directories and node_modules. Files are bound in the order given,
so typedefs from earlier files are visible to later ones.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd, g, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&opts.label, "label", "", "label for the saved snapshot")
	return cmd
}

func runAnnotate(cmd *cobra.Command, g *globalOptions, opts *annotateOptions, args []string) error {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	a, err := newAnalyzer(cmd, cfg, logger, root)
	if err != nil {
		return err
	}

	sources, err := collect(a, args)
	if err != nil {
		return err
	}
	r, err := a.AnalyzeFiles(cmd.Context(), sources)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		meta, err := store.Save(cmd.Context(), r, opts.label)
		if err != nil {
			return err
		}
		logger.Info("report saved", slog.String("snapshot_id", meta.SnapshotID))
	}

	return writeReport(cmd.OutOrStdout(), r, opts.json)
}

// collect reads the files named by args, walking directories.
func collect(a *doctype.Analyzer, args []string) ([]doctype.Source, error) {
	var sources []doctype.Source
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := a.CollectSources(arg)
			if err != nil {
				return nil, err
			}
			sources = append(sources, found...)
			continue
		}
		content, err := os.ReadFile(arg)
		if err != nil {
			return nil, err
		}
		sources = append(sources, doctype.Source{Path: arg, Content: content})
	}
	return sources, nil
}

// projectRoot is the single directory argument, or the working directory.
func projectRoot(args []string) (string, error) {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			return filepath.Abs(args[0])
		}
	}
	return os.Getwd()
}

func writeReport(w io.Writer, r *report.Report, asJSON bool) error {
	if asJSON {
		return writeJSON(w, r)
	}
	_, err := fmt.Fprint(w, newRenderer(w).Report(r))
	return err
}
