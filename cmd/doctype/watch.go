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
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/doctype/services/doctype"
	"github.com/AleutianAI/doctype/services/doctype/config"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-analyze a directory whenever its sources change",
		Long: `Analyze a directory, then watch it. Every batch of changes to files with
a configured extension resets the analysis generation and re-analyzes the
whole directory, so stale typedefs never leak between runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			root, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			a, err := newAnalyzer(cmd, cfg, logger, root)
			if err != nil {
				return err
			}
			w := &watcher{
				analyzer: a,
				cfg:      cfg,
				root:     root,
				out:      cmd.OutOrStdout(),
				logger:   logger,
			}
			if metricsAddr != "" {
				serveMetrics(cmd.Context(), metricsAddr, logger)
			}
			return w.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
	return cmd
}

// watcher re-runs analysis of one directory tree on change.
type watcher struct {
	analyzer *doctype.Analyzer
	cfg      *config.Config
	root     string
	out      io.Writer
	logger   *slog.Logger
}

func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.analyze(ctx)

	debounce := time.Duration(w.cfg.Watch.DebounceMs) * time.Millisecond
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.logger.Warn("watch: adding directory failed", slog.String("path", ev.Name), slog.Any("error", err))
					}
					continue
				}
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("watch: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.analyzer.Reset(ctx)
			w.analyze(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch: error", slog.Any("error", err))
		}
	}
}

func (w *watcher) relevant(ev fsnotify.Event) bool {
	if !w.cfg.HasExtension(ev.Name) {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func (w *watcher) analyze(ctx context.Context) {
	r, err := w.analyzer.AnalyzeDir(ctx, w.root)
	if err != nil {
		w.logger.Error("watch: analysis failed", slog.Any("error", err))
		return
	}
	fmt.Fprint(w.out, newRenderer(w.out).Report(r))
}

// addTree watches dir and its subdirectories, skipping hidden directories
// and node_modules.
func (w *watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
