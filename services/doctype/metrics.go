// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package doctype

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// filesAnalyzedTotal counts analyzed files by outcome.
	// Labels: status (ok, parse_error)
	filesAnalyzedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doctype",
		Subsystem: "analyzer",
		Name:      "files_total",
		Help:      "Total files analyzed, by outcome",
	}, []string{"status"})

	resetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "doctype",
		Subsystem: "analyzer",
		Name:      "resets_total",
		Help:      "Total analysis context resets",
	})

	analyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "doctype",
		Subsystem: "analyzer",
		Name:      "file_duration_seconds",
		Help:      "Time to seed and bind one parsed file",
		Buckets:   prometheus.DefBuckets,
	})
)
