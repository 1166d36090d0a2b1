package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/doctype/services/doctype/binder"
	"github.com/AleutianAI/doctype/services/doctype/realize"
)

func sample() *Report {
	return &Report{
		ProjectRoot: "/p",
		Generation:  "g1",
		Files: []*File{{
			Path: "a.js",
			Declarations: []*Declaration{
				{Result: binder.Result{
					Target: "on",
					Doc:    "Registers.",
					Propagations: []binder.Propagation{
						{Slot: "arg:x?", Type: "string", Weight: 100},
						{Slot: "return", Type: "Mystery", Weight: 1, MadeUp: true},
					},
					Renamed:     []string{"x"},
					Diagnostics: []realize.Diagnostic{{Severity: realize.SeverityWarning, Message: "m"}},
				}},
				{Result: binder.Result{Target: "plain"}},
			},
		}},
		Typedefs:    []Typedef{{Name: "Box", Type: "{left?: number}", Kind: "object"}},
		Diagnostics: []realize.Diagnostic{{Severity: realize.SeverityError, Message: "top"}},
	}
}

func TestSummary(t *testing.T) {
	s := sample().Summary()
	assert.Equal(t, Summary{
		Files:        1,
		Declarations: 2,
		Documented:   1,
		Propagations: 2,
		MadeUp:       1,
		Renamed:      1,
		Typedefs:     1,
		Diagnostics:  2,
	}, s)
}

func TestAllDiagnostics(t *testing.T) {
	diags := sample().AllDiagnostics()
	assert.Len(t, diags, 2)
	assert.Equal(t, "top", diags[0].Message)
}

func TestHash_IgnoresGeneration(t *testing.T) {
	a, b := sample(), sample()
	b.Generation = "g2"
	b.CreatedAtMilli = 42
	assert.Equal(t, a.Hash(), b.Hash())

	b.Files[0].Declarations[1].Doc = "changed"
	assert.NotEqual(t, a.Hash(), b.Hash())
}
