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
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/doctype/services/doctype/report"
	"github.com/AleutianAI/doctype/services/doctype/snapshot"
)

var errNoSnapshotDir = errors.New("no snapshot directory: set --snapshot-dir or snapshot.dir")

func newSnapshotCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect saved analysis reports",
	}

	var project string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := g.store(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			if project != "" {
				if project, err = filepath.Abs(project); err != nil {
					return err
				}
			}
			metas, err := store.List(cmd.Context(), project, limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), newRenderer(cmd.OutOrStdout()).Snapshots(metas))
			return nil
		},
	}
	list.Flags().StringVar(&project, "project", "", "only list reports of this project root")
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of reports")

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <snapshot-id>",
		Short: "Print a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.store(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			r, _, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), r, asJSON)
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	var diffJSON bool
	diff := &cobra.Command{
		Use:   "diff <base-id> <target-id>",
		Short: "Compare two saved reports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.store(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			base, _, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			target, _, err := store.Load(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			d, err := report.DiffReports(base, target, args[0], args[1])
			if err != nil {
				return err
			}
			if diffJSON {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			fmt.Fprint(cmd.OutOrStdout(), newRenderer(cmd.OutOrStdout()).Diff(d))
			return nil
		},
	}
	diff.Flags().BoolVar(&diffJSON, "json", false, "print the diff as JSON")

	del := &cobra.Command{
		Use:   "delete <snapshot-id>",
		Short: "Delete a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.store(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Delete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list, show, diff, del)
	return cmd
}

// store opens the configured snapshot store, which must exist.
func (o *globalOptions) store(cmd *cobra.Command) (*snapshot.Store, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Snapshot.Dir == "" {
		return nil, errNoSnapshotDir
	}
	return openStore(cfg, newLogger(cfg))
}
