package sizes_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/bundlesize/internal/sizes"
	"github.com/fluxbase-eu/bundlesize/internal/testutil"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\nb\n", sizes.Normalize("a\r\nb\r\n"))
	assert.Equal(t, "ab", sizes.Normalize("a\rb"))
	assert.Equal(t, "plain", sizes.Normalize("plain"))
}

func TestMeasure_UsesCollaborators(t *testing.T) {
	minifier := &testutil.MockMinifier{
		OnMinify: func(ctx context.Context, code string) (string, error) {
			return "min", nil
		},
	}
	gzip := &testutil.MockGzipCodec{
		OnGzipSize: func(data []byte) (int, error) { return 42, nil },
	}

	rec, err := sizes.NewMeasurer(minifier, gzip).Measure(context.Background(), "const a = 1;\r\n")
	require.NoError(t, err)

	assert.Equal(t, len("const a = 1;\n"), rec.Bundled)
	assert.Equal(t, 3, rec.Minified)
	assert.Equal(t, 42, rec.Gzipped)
	assert.Nil(t, rec.Treeshaken)
	assert.Equal(t, []string{"min"}, gzip.Inputs(), "gzip must measure the minified text")
}

func TestMeasure_MinifierReceivesNormalizedSource(t *testing.T) {
	var seen string
	minifier := &testutil.MockMinifier{
		OnMinify: func(ctx context.Context, code string) (string, error) {
			seen = code
			return code, nil
		},
	}

	_, err := sizes.NewMeasurer(minifier, &testutil.MockGzipCodec{}).Measure(context.Background(), "a\r\nb")
	require.NoError(t, err)
	assert.Equal(t, "a\nb", seen)
}

func TestMeasure_CRLFAndLFMeasureTheSame(t *testing.T) {
	m := sizes.NewDefaultMeasurer()

	lf, err := m.Measure(context.Background(), "export const a = 1;\nexport const b = 2;\n")
	require.NoError(t, err)
	crlf, err := m.Measure(context.Background(), "export const a = 1;\r\nexport const b = 2;\r\n")
	require.NoError(t, err)

	assert.Equal(t, lf, crlf)
}

func TestMeasure_MinificationFailure(t *testing.T) {
	minifier := &testutil.MockMinifier{
		OnMinify: func(ctx context.Context, code string) (string, error) {
			return "", testutil.ErrMockFailure
		},
	}
	gzip := &testutil.MockGzipCodec{}

	_, err := sizes.NewMeasurer(minifier, gzip).Measure(context.Background(), "x")

	var minErr *sizes.MinificationError
	require.True(t, errors.As(err, &minErr))
	assert.ErrorIs(t, err, testutil.ErrMockFailure)
	assert.Empty(t, gzip.Inputs(), "no gzip step after a failed minification")
}

func TestMeasure_EmptyMinifiedOutputIsValid(t *testing.T) {
	minifier := &testutil.MockMinifier{
		OnMinify: func(ctx context.Context, code string) (string, error) {
			return "", nil
		},
	}

	rec, err := sizes.NewMeasurer(minifier, sizes.NewGzipCodec()).Measure(context.Background(), "// only a comment\n")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Minified)
	assert.Equal(t, len("// only a comment\n"), rec.Bundled)
}

func TestMeasure_IsDeterministic(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "export function add%d(first, second) { return first + second + %d; }\n", i, i)
	}
	source := sb.String()
	m := sizes.NewDefaultMeasurer()

	first, err := m.Measure(context.Background(), source)
	require.NoError(t, err)
	second, err := m.Measure(context.Background(), source)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Less(t, first.Minified, first.Bundled)
	assert.Less(t, first.Gzipped, first.Minified)
}

func TestEsbuildMinifier(t *testing.T) {
	m := sizes.NewEsbuildMinifier()

	t.Run("minifies valid source", func(t *testing.T) {
		out, err := m.Minify(context.Background(), "const answer = 40 + 2;\nexport { answer };\n")
		require.NoError(t, err)
		assert.NotEmpty(t, out)
		assert.False(t, strings.HasSuffix(out, "\n"))
		assert.NotContains(t, out, "40 + 2")
	})

	t.Run("reports syntax errors", func(t *testing.T) {
		_, err := m.Minify(context.Background(), "const = ;")
		require.Error(t, err)
	})

	t.Run("empty source", func(t *testing.T) {
		out, err := m.Minify(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestGzipCodec(t *testing.T) {
	codec := sizes.NewGzipCodec()

	empty, err := codec.GzipSize(nil)
	require.NoError(t, err)
	assert.Positive(t, empty, "gzip header and trailer are always written")

	repeated, err := codec.GzipSize([]byte(strings.Repeat("a", 10000)))
	require.NoError(t, err)
	assert.Less(t, repeated, 200)
}
