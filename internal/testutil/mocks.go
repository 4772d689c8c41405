// Package testutil provides shared test doubles for the measurement pipeline.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fluxbase-eu/bundlesize/internal/treeshake"
)

// ErrMockFailure is a generic failure returned by mocks configured to fail.
var ErrMockFailure = errors.New("mock failure")

// MockMinifier implements sizes.Minifier.
type MockMinifier struct {
	// OnMinify overrides the default behaviour of returning the input unchanged.
	OnMinify func(ctx context.Context, code string) (string, error)

	calls atomic.Int32
}

// Minify records the call and delegates to OnMinify.
func (m *MockMinifier) Minify(ctx context.Context, code string) (string, error) {
	m.calls.Add(1)
	if m.OnMinify != nil {
		return m.OnMinify(ctx, code)
	}
	return code, nil
}

// Calls returns how many times Minify was invoked.
func (m *MockMinifier) Calls() int {
	return int(m.calls.Load())
}

// MockGzipCodec implements sizes.GzipCodec.
type MockGzipCodec struct {
	// OnGzipSize overrides the default of reporting len(data).
	OnGzipSize func(data []byte) (int, error)

	mu     sync.Mutex
	inputs []string
}

// GzipSize records the input and delegates to OnGzipSize.
func (m *MockGzipCodec) GzipSize(data []byte) (int, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, string(data))
	m.mu.Unlock()

	if m.OnGzipSize != nil {
		return m.OnGzipSize(data)
	}
	return len(data), nil
}

// Inputs returns every payload passed to GzipSize.
func (m *MockGzipCodec) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inputs...)
}

// MockEngine implements treeshake.Engine.
type MockEngine struct {
	Result treeshake.EngineResult

	// OnTreeshake overrides the default of returning Result.
	OnTreeshake func(ctx context.Context, code string) (treeshake.EngineResult, error)

	mu     sync.Mutex
	inputs []string
}

// Treeshake records the input and delegates to OnTreeshake.
func (m *MockEngine) Treeshake(ctx context.Context, code string) (treeshake.EngineResult, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, code)
	m.mu.Unlock()

	if m.OnTreeshake != nil {
		return m.OnTreeshake(ctx, code)
	}
	return m.Result, nil
}

// Calls returns how many times Treeshake was invoked.
func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// Inputs returns every source passed to Treeshake.
func (m *MockEngine) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inputs...)
}
