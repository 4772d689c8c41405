// Package sizes measures the bundled, minified and gzipped size of a chunk.
package sizes

import (
	"context"
	"fmt"
	"strings"

	"github.com/fluxbase-eu/bundlesize/internal/snapshot"
)

// Minifier turns source text into minified text. An empty result is a
// valid minification, failures are reported through the error.
type Minifier interface {
	Minify(ctx context.Context, code string) (string, error)
}

// GzipCodec reports the compressed size of data.
type GzipCodec interface {
	GzipSize(data []byte) (int, error)
}

// MinificationError is returned when the minifier fails for a chunk.
type MinificationError struct {
	Err error
}

func (e *MinificationError) Error() string {
	return "minification failed: " + e.Err.Error()
}

func (e *MinificationError) Unwrap() error {
	return e.Err
}

// Measurer computes size records without tree-shaking.
type Measurer struct {
	minifier Minifier
	gzip     GzipCodec
}

// NewMeasurer creates a measurer from its two collaborators.
func NewMeasurer(minifier Minifier, gzip GzipCodec) *Measurer {
	return &Measurer{minifier: minifier, gzip: gzip}
}

// NewDefaultMeasurer uses esbuild for minification and gzip at best compression.
func NewDefaultMeasurer() *Measurer {
	return NewMeasurer(NewEsbuildMinifier(), NewGzipCodec())
}

// Normalize strips carriage returns so identical content measures the
// same on every platform.
func Normalize(source string) string {
	return strings.ReplaceAll(source, "\r", "")
}

// Measure returns the bundled, minified and gzipped sizes of source.
// The gzip size is taken over the minified text.
func (m *Measurer) Measure(ctx context.Context, source string) (snapshot.Record, error) {
	source = Normalize(source)

	minified, err := m.minifier.Minify(ctx, source)
	if err != nil {
		return snapshot.Record{}, &MinificationError{Err: err}
	}

	gzipped, err := m.gzip.GzipSize([]byte(minified))
	if err != nil {
		return snapshot.Record{}, fmt.Errorf("failed to compute gzip size: %w", err)
	}

	return snapshot.Record{
		Bundled:  len(source),
		Minified: len(minified),
		Gzipped:  gzipped,
	}, nil
}
