package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/bundlesize/internal/config"
	"github.com/fluxbase-eu/bundlesize/internal/observability"
	"github.com/fluxbase-eu/bundlesize/internal/pipeline"
	"github.com/fluxbase-eu/bundlesize/internal/snapshot"
)

var (
	measureFormat       string
	measureName         string
	measureSnapshotPath string
	measureMatch        bool
	measureThreshold    int
	measurePrintInfo    bool
	measureMetricsFile  string
)

// measureFlagNames maps option keys to the measure command flags
var measureFlagNames = map[string]string{
	config.KeySnapshotPath:  "snapshot-path",
	config.KeyMatchSnapshot: "match",
	config.KeyThreshold:     "threshold",
	config.KeyPrintInfo:     "print-info",
}

var measureCmd = &cobra.Command{
	Use:   "measure [files...]",
	Short: "Measure chunks and record or match their sizes",
	Long: `Measure one or more compiled chunks.

By default the measured sizes are written to the snapshot file, replacing
the entry of each chunk. With --match the sizes are compared against the
snapshot instead and the command fails when any size moved by more than
--threshold bytes.

Chunks are named after their file name. Use "-" to read a single chunk
from stdin together with --name.

Examples:
  bundlesize measure dist/index.js dist/index.cjs --format es
  bundlesize measure --match --threshold 16 dist/index.js
  cat dist/index.js | bundlesize measure - --name index.js`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMeasure,
}

func init() {
	measureCmd.Flags().StringVarP(&measureFormat, "format", "f", "es",
		"output format the chunks were built with (es, esm, cjs, iife, umd, ...)")
	measureCmd.Flags().StringVar(&measureName, "name", "",
		"chunk name (required when reading from stdin, only valid for a single chunk)")
	measureCmd.Flags().StringVar(&measureSnapshotPath, "snapshot-path", "",
		"snapshot file (default is ./"+config.DefaultSnapshotFile+")")
	measureCmd.Flags().BoolVar(&measureMatch, "match", false,
		"match sizes against the snapshot instead of writing it")
	measureCmd.Flags().IntVar(&measureThreshold, "threshold", 0,
		"allowed size difference in bytes when matching")
	measureCmd.Flags().BoolVar(&measurePrintInfo, "print-info", true,
		"print a size report when writing the snapshot")
	measureCmd.Flags().StringVar(&measureMetricsFile, "metrics-file", "",
		"write Prometheus metrics to this file (textfile collector format)")
}

type chunkInput struct {
	name   string
	source string
}

func runMeasure(cmd *cobra.Command, args []string) error {
	chunks, err := readChunks(cmd.InOrStdin(), args, measureName)
	if err != nil {
		return err
	}

	opts, err := loadOptions(cmd, measureFlagNames)
	if err != nil {
		return err
	}

	reportWriter := cmd.OutOrStdout()
	if quiet {
		reportWriter = io.Discard
	}
	pipelineOpts := []pipeline.Option{pipeline.WithReportWriter(&syncWriter{w: reportWriter})}

	var metrics *observability.Metrics
	if measureMetricsFile != "" {
		metrics = observability.NewMetrics()
		pipelineOpts = append(pipelineOpts, pipeline.WithMetrics(metrics))
	}

	p := pipeline.NewDefault(*opts, pipelineOpts...)

	log.Debug().
		Str("snapshot", opts.SnapshotPath).
		Bool("match", opts.MatchSnapshot).
		Int("threshold", opts.Threshold).
		Int("chunks", len(chunks)).
		Msg("Measuring chunks")

	var (
		mu     sync.Mutex
		result *multierror.Error
		wg     sync.WaitGroup
	)
	for _, chunk := range chunks {
		wg.Add(1)
		go func(chunk chunkInput) {
			defer wg.Done()
			err := p.RenderChunk(cmd.Context(), chunk.source,
				pipeline.ChunkInfo{FileName: chunk.name},
				pipeline.OutputOptions{Format: measureFormat})
			if err == nil {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			var mismatch *snapshot.MismatchError
			if errors.As(err, &mismatch) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\n%s\n%s", mismatch.Error(), mismatch.Diff())
			}
			result = multierror.Append(result, err)
		}(chunk)
	}
	wg.Wait()

	if metrics != nil {
		if err := metrics.WriteTextfile(measureMetricsFile); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to write metrics: %w", err))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	if opts.MatchSnapshot {
		GetFormatter().PrintSuccess(fmt.Sprintf("%d chunk(s) match %s", len(chunks), opts.SnapshotPath))
	} else {
		log.Info().Str("snapshot", opts.SnapshotPath).Int("chunks", len(chunks)).Msg("Snapshot updated")
	}
	return nil
}

// readChunks loads every chunk named in args. "-" reads stdin and
// requires name.
func readChunks(stdin io.Reader, args []string, name string) ([]chunkInput, error) {
	if name != "" && len(args) > 1 {
		return nil, fmt.Errorf("--name can only be used with a single chunk")
	}

	chunks := make([]chunkInput, 0, len(args))
	seen := make(map[string]string, len(args))
	for _, arg := range args {
		var (
			data []byte
			err  error
		)
		chunkName := name

		if arg == "-" {
			if name == "" {
				return nil, fmt.Errorf("--name is required when reading from stdin")
			}
			data, err = io.ReadAll(stdin)
		} else {
			if chunkName == "" {
				chunkName = filepath.Base(arg)
			}
			data, err = os.ReadFile(arg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk %s: %w", arg, err)
		}

		if prev, ok := seen[chunkName]; ok {
			return nil, fmt.Errorf("chunk name %q used by both %s and %s", chunkName, prev, arg)
		}
		seen[chunkName] = arg

		chunks = append(chunks, chunkInput{name: chunkName, source: string(data)})
	}
	return chunks, nil
}

// syncWriter serializes reports of chunks measured in parallel.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
