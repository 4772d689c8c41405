// Package treeshake measures how much of a module-formatted chunk survives
// tree-shaking by two independent engines.
package treeshake

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/fluxbase-eu/bundlesize/internal/snapshot"
)

// EngineResult is the size a single engine retained. ImportStatements is
// only reported by engines that separate imports from logic.
type EngineResult struct {
	Code             int
	ImportStatements int
}

// Engine tree-shakes source text and reports the retained size.
type Engine interface {
	Treeshake(ctx context.Context, code string) (EngineResult, error)
}

// EngineError is returned when one of the engines fails.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return "treeshake with " + e.Engine + " failed: " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsModuleFormat reports whether format denotes ES module output.
func IsModuleFormat(format string) bool {
	return format == "es" || format == "esm"
}

// Placeholder is the zero-filled result used for formats that are not
// tree-shaken.
func Placeholder() snapshot.Treeshaken {
	return snapshot.Treeshaken{}
}

// Adapter runs the module and bundle engines side by side.
type Adapter struct {
	module Engine
	bundle Engine
}

// NewAdapter creates an adapter from the module engine (which separates
// import statements) and the bundle engine.
func NewAdapter(module, bundle Engine) *Adapter {
	return &Adapter{module: module, bundle: bundle}
}

// NewDefaultAdapter wires both esbuild engines.
func NewDefaultAdapter() *Adapter {
	return NewAdapter(NewModuleEngine(), NewBundleEngine())
}

// Treeshake runs both engines on the unminified source concurrently and
// combines their results once both have finished.
func (a *Adapter) Treeshake(ctx context.Context, code string) (*snapshot.Treeshaken, error) {
	var moduleResult, bundleResult EngineResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.module.Treeshake(gctx, code)
		if err != nil {
			return &EngineError{Engine: "esm", Err: err}
		}
		moduleResult = res
		return nil
	})
	g.Go(func() error {
		res, err := a.bundle.Treeshake(gctx, code)
		if err != nil {
			return &EngineError{Engine: "cjs", Err: err}
		}
		bundleResult = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &snapshot.Treeshaken{
		ESM: snapshot.ModuleSize{
			Code:             moduleResult.Code,
			ImportStatements: moduleResult.ImportStatements,
		},
		CJS: snapshot.BundleSize{Code: bundleResult.Code},
	}, nil
}
