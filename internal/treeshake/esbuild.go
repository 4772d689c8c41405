package treeshake

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
)

// inputPath is the specifier the virtual entry imports the chunk from.
const inputPath = "bundlesize:input"

const inputNamespace = "bundlesize-input"

// importDecl matches one static import declaration of minified ESM
// output, including an optional import attributes clause.
var importDecl = regexp.MustCompile(`import\s*(?:[\w$*{},\s]+?\s*from\s*)?(?:"[^"]*"|'[^']*')(?:\s*(?:with|assert)\s*\{[^}]*\})?(?:\s*;)?`)

// importStatementBytes sums the bytes of every top-level import
// declaration in out. esbuild does not always place them first, e.g.
// re-exports are emitted after the export helpers.
func importStatementBytes(out string) int {
	total := 0
	for _, loc := range importDecl.FindAllStringIndex(out, -1) {
		if loc[0] > 0 && !strings.ContainsRune(";}\n", rune(out[loc[0]-1])) {
			continue
		}
		total += loc[1] - loc[0]
	}
	return total
}

// ModuleEngine tree-shakes to minified ES module output in production
// mode and separates the retained import declarations from the logic.
type ModuleEngine struct{}

// NewModuleEngine creates the ES module engine.
func NewModuleEngine() *ModuleEngine {
	return &ModuleEngine{}
}

// Treeshake implements Engine.
func (e *ModuleEngine) Treeshake(ctx context.Context, code string) (EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return EngineResult{}, err
	}

	out, err := buildEntry(code, api.FormatESModule)
	if err != nil {
		return EngineResult{}, err
	}

	return EngineResult{
		Code:             len(out),
		ImportStatements: importStatementBytes(out),
	}, nil
}

// BundleEngine tree-shakes to minified CommonJS output in production mode.
// The bytes the bundle format adds for an empty module are subtracted so
// only code attributable to the chunk is counted.
type BundleEngine struct {
	baselineOnce sync.Once
	baseline     int
	baselineErr  error
}

// NewBundleEngine creates the CommonJS bundle engine.
func NewBundleEngine() *BundleEngine {
	return &BundleEngine{}
}

// Treeshake implements Engine.
func (e *BundleEngine) Treeshake(ctx context.Context, code string) (EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return EngineResult{}, err
	}

	e.baselineOnce.Do(func() {
		out, err := buildEntry("", api.FormatCommonJS)
		e.baseline, e.baselineErr = len(out), err
	})
	if e.baselineErr != nil {
		return EngineResult{}, fmt.Errorf("failed to build empty bundle: %w", e.baselineErr)
	}

	out, err := buildEntry(code, api.FormatCommonJS)
	if err != nil {
		return EngineResult{}, err
	}

	size := len(out) - e.baseline
	if size < 0 {
		size = 0
	}
	return EngineResult{Code: size}, nil
}

// buildEntry bundles a virtual entry that imports code for side effects
// only, so every unused export is dropped. All other imports stay external.
func buildEntry(code string, format api.Format) (string, error) {
	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   fmt.Sprintf("import {} from %q;\n", inputPath),
			Sourcefile: "entry.js",
			Loader:     api.LoaderJS,
		},
		Bundle:            true,
		Write:             false,
		Format:            format,
		Platform:          api.PlatformNeutral,
		Target:            api.ESNext,
		TreeShaking:       api.TreeShakingTrue,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsNone,
		Define: map[string]string{
			"process.env.NODE_ENV": `"production"`,
		},
		Plugins: []api.Plugin{inputPlugin(code)},
	})

	if len(result.Errors) > 0 {
		var errMsgs []string
		for _, msg := range result.Errors {
			errMsgs = append(errMsgs, msg.Text)
		}
		return "", errors.New(strings.Join(errMsgs, "; "))
	}

	var out strings.Builder
	for _, file := range result.OutputFiles {
		out.Write(file.Contents)
	}
	return strings.TrimSuffix(out.String(), "\n"), nil
}

// inputPlugin serves code under inputPath and marks every other import
// as external.
func inputPlugin(code string) api.Plugin {
	return api.Plugin{
		Name: "bundlesize-input",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + regexp.QuoteMeta(inputPath) + "$"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:      inputPath,
						Namespace: inputNamespace,
					}, nil
				})

			build.OnResolve(api.OnResolveOptions{Filter: ".*"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:     args.Path,
						External: true,
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: inputNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					return api.OnLoadResult{
						Contents: &code,
						Loader:   api.LoaderJS,
					}, nil
				})
		},
	}
}
