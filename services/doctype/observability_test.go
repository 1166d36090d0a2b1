package doctype

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestAnalyzeFiles_SpansCreated(t *testing.T) {
	exporter := setupTestTracer(t)
	a := newTestAnalyzer(t, nil)

	analyze(t, a, "span.js", "/** @param {string} s */\nfunction f(s) {}\n")

	names := make(map[string]bool)
	for _, s := range exporter.GetSpans() {
		names[s.Name] = true
	}
	assert.True(t, names["doctype.Analyzer.AnalyzeFiles"])
	assert.True(t, names["doctype.Analyzer.analyzeParsed"])
	assert.True(t, names["binder.Binder.Bind"])
}

func TestAnalyzeFiles_CountsFiles(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	ok := filesAnalyzedTotal.WithLabelValues("ok")
	before := testutil.ToFloat64(ok)

	analyze(t, a, "one.js", "var x;\n", "two.js", "var y;\n")

	assert.Equal(t, before+2, testutil.ToFloat64(ok))
}

func TestReset_CountsResets(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	before := testutil.ToFloat64(resetsTotal)
	a.Reset(context.Background())
	require.Equal(t, before+1, testutil.ToFloat64(resetsTotal))
}
