// Package cmd provides the Cobra commands for the bundlesize CLI.
package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/bundlesize/cli/output"
	"github.com/fluxbase-eu/bundlesize/internal/config"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile   string
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool

	formatter *output.Formatter
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bundlesize",
	Short: "Track the size of compiled bundles across builds",
	Long: `bundlesize measures compiled JavaScript chunks and keeps their sizes in a
snapshot file so size regressions fail the build.

For every chunk it records:
  - the bundled size (as emitted by the bundler)
  - the minified size
  - the minified and gzipped size
  - for ES module chunks, the size left after tree-shaking

Get started:
  bundlesize measure dist/index.js             Record sizes in .size-snapshot.json
  bundlesize measure --match dist/index.js     Fail when sizes drift from the snapshot
  bundlesize --help                            Show available commands`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// cobra prints the returned error unless --quiet is used
		cmd.SilenceErrors = quiet
		initLogger(cmd)

		format, err := output.ParseFormat(outputFmt)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format, noHeaders, quiet)
		formatter.Writer = cmd.OutOrStdout()
		formatter.ErrWriter = cmd.ErrOrStderr()
		return nil
	},
}

// Execute runs the CLI. Commands stop measuring when ctx is cancelled.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"options file (default is .bundlesize.{yaml,yml,json,jsonc} in the working directory)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(measureCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func initLogger(cmd *cobra.Command) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})

	switch {
	case debug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := config.LoadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}
}

// configPath returns the options file to load: --config when given,
// otherwise the first options file found in the working directory.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return config.FindConfigFile(cwd)
}

// loadOptions resolves options from the options file, environment and
// the flags of cmd listed in flagNames.
func loadOptions(cmd *cobra.Command, flagNames map[string]string) (*config.Options, error) {
	loader := config.NewLoader()
	if err := loader.BindFlags(cmd.Flags(), flagNames); err != nil {
		return nil, err
	}

	path := configPath()
	if path != "" {
		log.Debug().Str("file", filepath.Clean(path)).Msg("Using options file")
	}
	return loader.Load(path)
}

// GetFormatter returns the output formatter (for use by subcommands)
func GetFormatter() *output.Formatter {
	if formatter == nil {
		format, _ := output.ParseFormat(outputFmt)
		formatter = output.NewFormatter(format, noHeaders, quiet)
	}
	return formatter
}
