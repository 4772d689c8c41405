// Package pipeline measures one output chunk at a time and records or
// matches its sizes against the snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fluxbase-eu/bundlesize/internal/config"
	"github.com/fluxbase-eu/bundlesize/internal/observability"
	"github.com/fluxbase-eu/bundlesize/internal/report"
	"github.com/fluxbase-eu/bundlesize/internal/sizes"
	"github.com/fluxbase-eu/bundlesize/internal/snapshot"
	"github.com/fluxbase-eu/bundlesize/internal/treeshake"
)

// ChunkInfo describes the chunk being rendered.
type ChunkInfo struct {
	FileName string
}

// OutputOptions are the output settings the chunk was produced with.
type OutputOptions struct {
	Format string
}

// Measurer produces the untreeshaken sizes of a chunk.
type Measurer interface {
	Measure(ctx context.Context, source string) (snapshot.Record, error)
}

// Treeshaker produces the tree-shaken sizes of a module chunk.
type Treeshaker interface {
	Treeshake(ctx context.Context, code string) (*snapshot.Treeshaken, error)
}

// Pipeline runs measurement and snapshot handling per chunk. It is safe
// for concurrent use; chunks are independent of each other.
type Pipeline struct {
	opts       config.Options
	store      *snapshot.Store
	measurer   Measurer
	treeshaker Treeshaker

	reportWriter io.Writer
	metrics      *observability.Metrics
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithReportWriter sets where size reports go (default os.Stdout)
func WithReportWriter(w io.Writer) Option {
	return func(p *Pipeline) {
		p.reportWriter = w
	}
}

// WithMetrics records sizes and outcomes on m
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a pipeline bound to store.
func New(opts config.Options, store *snapshot.Store, measurer Measurer, treeshaker Treeshaker, options ...Option) *Pipeline {
	p := &Pipeline{
		opts:         opts,
		store:        store,
		measurer:     measurer,
		treeshaker:   treeshaker,
		reportWriter: os.Stdout,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// NewDefault creates a pipeline with the esbuild-backed measurer and
// tree-shaking engines and an OS file system store at opts.SnapshotPath.
func NewDefault(opts config.Options, options ...Option) *Pipeline {
	return New(opts,
		snapshot.NewOSStore(opts.SnapshotPath),
		sizes.NewDefaultMeasurer(),
		treeshake.NewDefaultAdapter(),
		options...,
	)
}

// RenderChunk measures source and then either matches it against the
// snapshot entry for chunk.FileName or writes it as the new baseline.
func (p *Pipeline) RenderChunk(ctx context.Context, source string, chunk ChunkInfo, output OutputOptions) error {
	logger := log.With().Str("chunk", chunk.FileName).Str("format", output.Format).Logger()

	rec, err := p.measure(ctx, source, output.Format)
	if err != nil {
		p.recordOutcome("failed")
		return fmt.Errorf("chunk %q: %w", chunk.FileName, err)
	}

	logger.Debug().
		Int("bundled", rec.Bundled).
		Int("minified", rec.Minified).
		Int("gzipped", rec.Gzipped).
		Msg("Chunk measured")

	if p.metrics != nil {
		p.metrics.RecordSizes(chunk.FileName, rec)
	}

	if p.opts.MatchSnapshot {
		return p.match(chunk.FileName, rec)
	}
	return p.write(chunk, output, rec)
}

// measure runs the size measurement and, for module formats, both
// tree-shaking engines as concurrent tasks.
func (p *Pipeline) measure(ctx context.Context, source, format string) (snapshot.Record, error) {
	var (
		rec        snapshot.Record
		treeshaken *snapshot.Treeshaken
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = p.measurer.Measure(gctx, source)
		return err
	})
	if treeshake.IsModuleFormat(format) {
		g.Go(func() error {
			var err error
			treeshaken, err = p.treeshaker.Treeshake(gctx, sizes.Normalize(source))
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return snapshot.Record{}, err
	}

	rec.Treeshaken = treeshaken
	return rec, nil
}

func (p *Pipeline) match(key string, rec snapshot.Record) error {
	existing, ok, err := p.store.Get(key)
	if err != nil {
		p.recordOutcome("failed")
		return err
	}

	if !ok {
		log.Warn().
			Str("chunk", key).
			Str("snapshot", p.store.Path()).
			Msg("No snapshot entry to match, recording current sizes")
		if err := p.store.Upsert(key, rec); err != nil {
			p.recordOutcome("failed")
			return err
		}
		p.recordOutcome("adopted")
		return nil
	}

	if err := snapshot.Compare(key, existing, rec, p.opts.Threshold); err != nil {
		var mismatch *snapshot.MismatchError
		if p.metrics != nil && errors.As(err, &mismatch) {
			p.metrics.RecordMismatch(key)
		}
		p.recordOutcome("failed")
		return err
	}

	p.recordOutcome("matched")
	return nil
}

func (p *Pipeline) write(chunk ChunkInfo, output OutputOptions, rec snapshot.Record) error {
	if p.opts.PrintInfo {
		err := report.Render(p.reportWriter, report.Info{
			Name:   chunk.FileName,
			Format: output.Format,
			Record: rec,
		})
		if err != nil {
			log.Warn().Err(err).Str("chunk", chunk.FileName).Msg("Failed to print size report")
		}
	}

	if err := p.store.Upsert(chunk.FileName, rec); err != nil {
		p.recordOutcome("failed")
		return err
	}

	p.recordOutcome("written")
	return nil
}

func (p *Pipeline) recordOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.RecordOutcome(outcome)
	}
}
