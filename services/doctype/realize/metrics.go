// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package realize

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// placeholdersTotal counts placeholder types synthesized for unknown names.
	placeholdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "doctype",
		Subsystem: "realize",
		Name:      "placeholders_total",
		Help:      "Total placeholder types synthesized for unresolved names",
	})

	// typedefsRegisteredTotal counts typedef registrations, including
	// definition-file types.
	typedefsRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "doctype",
		Subsystem: "realize",
		Name:      "typedefs_registered_total",
		Help:      "Total typedef registrations",
	})

	// diagnosticsTotal counts distinct diagnostics by severity.
	// Labels: severity (warning, error)
	diagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doctype",
		Subsystem: "realize",
		Name:      "diagnostics_total",
		Help:      "Distinct comment diagnostics by severity",
	}, []string{"severity"})
)
