package sizes

import (
	"context"
	"errors"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// EsbuildMinifier minifies JavaScript with esbuild's transform API.
type EsbuildMinifier struct {
	target api.Target
}

// NewEsbuildMinifier creates a minifier targeting ESNext.
func NewEsbuildMinifier() *EsbuildMinifier {
	return &EsbuildMinifier{target: api.ESNext}
}

// Minify implements Minifier.
func (m *EsbuildMinifier) Minify(ctx context.Context, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result := api.Transform(code, api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            m.target,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsNone,
	})

	if len(result.Errors) > 0 {
		return "", errors.New(joinMessages(result.Errors))
	}

	// esbuild always terminates non-empty output with a newline
	return strings.TrimSuffix(string(result.Code), "\n"), nil
}

func joinMessages(msgs []api.Message) string {
	texts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		text := msg.Text
		if msg.Location != nil {
			text = msg.Location.LineText + ": " + text
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, "; ")
}
