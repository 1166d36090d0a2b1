// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package binder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// bindsTotal counts bound declarations by kind.
	// Labels: kind (value, function, class, property, define_property, export)
	bindsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doctype",
		Subsystem: "binder",
		Name:      "binds_total",
		Help:      "Total documented declarations bound, by kind",
	}, []string{"kind"})

	// propagationsTotal counts annotation propagations by confidence.
	// Labels: confidence (strong, default, made_up)
	propagationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doctype",
		Subsystem: "binder",
		Name:      "propagations_total",
		Help:      "Total annotation propagations into the type graph, by confidence",
	}, []string{"confidence"})

	// renamedTotal counts parameters marked optional by a doc comment.
	renamedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "doctype",
		Subsystem: "binder",
		Name:      "optional_renames_total",
		Help:      "Total declared parameters renamed with an optional marker",
	})

	bindDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "doctype",
		Subsystem: "binder",
		Name:      "bind_duration_seconds",
		Help:      "Time to bind one declaration",
		Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	})
)
