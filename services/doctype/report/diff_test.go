package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/doctype/services/doctype/binder"
)

func decl(target, typ, doc string, line int) *Declaration {
	return &Declaration{Result: binder.Result{Target: target, Doc: doc}, Type: typ, Line: line}
}

func TestDiffReports(t *testing.T) {
	base := &Report{
		Files: []*File{
			{Path: "a.js", Declarations: []*Declaration{
				decl("keep", "number", "Same.", 1),
				decl("retype", "string", "", 2),
				decl("redoc", "number", "Old.", 3),
				decl("gone", "bool", "", 4),
			}},
		},
		Typedefs: []Typedef{{Name: "Box", Type: "{w: number}"}, {Name: "Old", Type: "string"}},
	}
	target := &Report{
		Files: []*File{
			{Path: "a.js", Declarations: []*Declaration{
				decl("keep", "number", "Same.", 10),
				decl("retype", "number", "", 2),
				decl("redoc", "number", "New.", 3),
			}},
			{Path: "b.js", Declarations: []*Declaration{decl("fresh", "string", "", 1)}},
		},
		Typedefs: []Typedef{{Name: "Box", Type: "{w: number, h: number}"}},
	}

	d, err := DiffReports(base, target, "base", "target")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.js#fresh"}, d.Added)
	assert.Equal(t, []string{"a.js#gone"}, d.Removed)
	assert.Equal(t, []DeclarationDiff{
		{Key: "a.js#redoc", Change: ChangeDoc, Before: "Old.", After: "New."},
		{Key: "a.js#retype", Change: ChangeType, Before: "string", After: "number"},
	}, d.Modified)
	assert.Equal(t, []string{"Box", "Old"}, d.TypedefsChanged)
	assert.Equal(t, 6, d.Summary.TotalChanges)
	assert.Equal(t, 2, d.Summary.FilesAffected)
	assert.InDelta(t, 1.0, d.Summary.ChangeRatio, 1e-9)
	assert.False(t, d.Empty())
}

func TestDiffReports_Identical(t *testing.T) {
	r := sample()
	d, err := DiffReports(r, r, "a", "a")
	require.NoError(t, err)
	assert.True(t, d.Empty())
	assert.Empty(t, d.Modified)
}

func TestDiffReports_Nil(t *testing.T) {
	_, err := DiffReports(nil, &Report{}, "", "")
	assert.Error(t, err)
	_, err = DiffReports(&Report{}, nil, "", "")
	assert.Error(t, err)
}
