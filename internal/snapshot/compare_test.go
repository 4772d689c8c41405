package snapshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		actual    int
		wantErr   bool
	}{
		{"exact match with zero threshold", 0, 100, false},
		{"one byte over zero threshold", 0, 101, true},
		{"at threshold", 10, 110, false},
		{"one past threshold", 10, 111, true},
		{"shrink at threshold", 10, 90, false},
		{"shrink past threshold", 10, 89, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expected := Record{Bundled: 100, Minified: 100, Gzipped: 100}
			actual := Record{Bundled: 100, Minified: 100, Gzipped: tt.actual}

			err := Compare("main.js", expected, actual, tt.threshold)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCompare_ReportsFailingLeaves(t *testing.T) {
	expected := Record{Bundled: 500, Minified: 200, Gzipped: 100}
	actual := Record{Bundled: 500, Minified: 200, Gzipped: 105}

	err := Compare("main.js", expected, actual, 0)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "main.js", mismatch.Key)
	require.Len(t, mismatch.Leaves, 1)
	assert.Equal(t, "gzipped", mismatch.Leaves[0].Path)
	assert.Equal(t, 5, mismatch.Leaves[0].Delta())
	assert.Equal(t, expected, mismatch.Expected)
	assert.Equal(t, actual, mismatch.Actual)
	assert.Contains(t, err.Error(), "gzipped 100 -> 105 (+5)")
}

func TestCompare_WalksTreeshakenLeaves(t *testing.T) {
	expected := Record{Treeshaken: &Treeshaken{
		ESM: ModuleSize{Code: 50, ImportStatements: 10},
		CJS: BundleSize{Code: 70},
	}}
	actual := Record{Treeshaken: &Treeshaken{
		ESM: ModuleSize{Code: 50, ImportStatements: 4},
		CJS: BundleSize{Code: 90},
	}}

	err := Compare("lib.mjs", expected, actual, 5)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	paths := make([]string, 0, len(mismatch.Leaves))
	for _, l := range mismatch.Leaves {
		paths = append(paths, l.Path)
	}
	assert.Equal(t, []string{"treeshaked.esm.import_statements", "treeshaked.cjs.code"}, paths)
	assert.Equal(t, -6, mismatch.Leaves[0].Delta())
}

func TestCompare_MissingTreeshakenReadsAsZero(t *testing.T) {
	zero := Record{Bundled: 1, Treeshaken: &Treeshaken{}}
	bare := Record{Bundled: 1}

	assert.NoError(t, Compare("a.js", zero, bare, 0))
	assert.NoError(t, Compare("a.js", bare, zero, 0))
}

func TestMismatchError_Diff(t *testing.T) {
	err := &MismatchError{
		Key:      "main.js",
		Expected: Record{Bundled: 500, Minified: 200, Gzipped: 100},
		Actual:   Record{Bundled: 500, Minified: 200, Gzipped: 105},
	}

	diff := err.Diff()
	assert.Contains(t, diff, "--- snapshot")
	assert.Contains(t, diff, "+++ current")
	assert.Contains(t, diff, "-  \"gzipped\": 100")
	assert.Contains(t, diff, "+  \"gzipped\": 105")
}
