// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command doctype interprets JSDoc comments in JavaScript sources and
// reports the types they contribute.
//
// Usage:
//
//	doctype annotate ./src
//	doctype annotate --strong --json lib/a.js lib/b.js
//	doctype annotate --snapshot-dir .doctype ./src
//	doctype watch ./src
//	doctype snapshot list --snapshot-dir .doctype
//	doctype snapshot show --snapshot-dir .doctype <snapshot-id>
//	doctype snapshot diff --snapshot-dir .doctype <base-id> <target-id>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
