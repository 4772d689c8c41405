// Package config loads and validates the size snapshot options.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultSnapshotFile is the snapshot file name used when no path is configured.
const DefaultSnapshotFile = ".size-snapshot.json"

// Option keys accepted in options files and maps.
const (
	KeySnapshotPath  = "snapshotPath"
	KeyMatchSnapshot = "matchSnapshot"
	KeyThreshold     = "threshold"
	KeyPrintInfo     = "printInfo"
)

var optionKeys = []string{KeySnapshotPath, KeyMatchSnapshot, KeyThreshold, KeyPrintInfo}

// envNames maps option keys to their environment variables.
var envNames = map[string]string{
	KeySnapshotPath:  "BUNDLESIZE_SNAPSHOT_PATH",
	KeyMatchSnapshot: "BUNDLESIZE_MATCH_SNAPSHOT",
	KeyThreshold:     "BUNDLESIZE_THRESHOLD",
	KeyPrintInfo:     "BUNDLESIZE_PRINT_INFO",
}

// ConfigFileNames are looked up, in order, by FindConfigFile.
var ConfigFileNames = []string{
	".bundlesize.yaml",
	".bundlesize.yml",
	".bundlesize.json",
	".bundlesize.jsonc",
}

// Options controls how chunk sizes are recorded or matched
type Options struct {
	// SnapshotPath is the snapshot file location
	SnapshotPath string `mapstructure:"snapshotPath" json:"snapshotPath" yaml:"snapshotPath"`

	// MatchSnapshot compares against the snapshot instead of writing it
	MatchSnapshot bool `mapstructure:"matchSnapshot" json:"matchSnapshot" yaml:"matchSnapshot"`

	// Threshold is the allowed absolute byte delta per size
	Threshold int `mapstructure:"threshold" json:"threshold" yaml:"threshold"`

	// PrintInfo renders a size report when writing the snapshot
	PrintInfo bool `mapstructure:"printInfo" json:"printInfo" yaml:"printInfo"`
}

// InvalidOptionError reports option keys that are not recognized.
type InvalidOptionError struct {
	Fields []string
}

func (e *InvalidOptionError) Error() string {
	quoted := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	if len(quoted) == 1 {
		return fmt.Sprintf("option %s is invalid", quoted[0])
	}
	return fmt.Sprintf("options %s are invalid", strings.Join(quoted, ", "))
}

// DefaultSnapshotPath returns DefaultSnapshotFile inside the working directory.
func DefaultSnapshotPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return DefaultSnapshotFile
	}
	return filepath.Join(cwd, DefaultSnapshotFile)
}

// Defaults returns the options used when nothing is configured.
func Defaults() Options {
	return Options{
		SnapshotPath: DefaultSnapshotPath(),
		PrintInfo:    true,
	}
}

// Validate validates the options
func (o *Options) Validate() error {
	if o.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", o.Threshold)
	}
	if o.SnapshotPath == "" {
		return fmt.Errorf("snapshot path cannot be empty")
	}
	return nil
}

// ValidateKeys fails with an InvalidOptionError naming every key of raw
// that is not a recognized option.
func ValidateKeys(raw map[string]any) error {
	var invalid []string
	for key := range raw {
		known := false
		for _, k := range optionKeys {
			if key == k {
				known = true
				break
			}
		}
		if !known {
			invalid = append(invalid, key)
		}
	}

	if len(invalid) == 0 {
		return nil
	}
	sort.Strings(invalid)
	return &InvalidOptionError{Fields: invalid}
}

// Decode parses an options payload. JSON payloads (ext ".json" or
// ".jsonc") may contain comments and trailing commas; anything else is
// read as YAML.
func Decode(data []byte, ext string) (map[string]any, error) {
	raw := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return raw, nil
	}

	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse options: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse options: %w", err)
		}
	}

	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// FromMap builds options from an untyped payload, rejecting unknown keys
// before anything else is looked at.
func FromMap(raw map[string]any) (*Options, error) {
	return NewLoader().load(raw)
}

// Loader layers options from defaults, an options file, environment
// variables and explicitly set flags, in increasing priority.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults and environment bindings.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v)

	for key, env := range envNames {
		_ = v.BindEnv(key, env)
	}

	return &Loader{v: v}
}

// BindFlags binds option keys to the flags in flagNames (option key to
// flag name). Flags only override when set on the command line.
func (l *Loader) BindFlags(flags *pflag.FlagSet, flagNames map[string]string) error {
	for key, name := range flagNames {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q for option %q", name, key)
		}
		if err := l.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Load reads the options file at path, if path is not empty, and returns
// the merged options.
func (l *Loader) Load(path string) (*Options, error) {
	raw := map[string]any{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read options file: %w", err)
		}
		raw, err = Decode(data, filepath.Ext(path))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		log.Debug().Str("file", path).Msg("Options file loaded")
	}

	return l.load(raw)
}

func (l *Loader) load(raw map[string]any) (*Options, error) {
	if err := ValidateKeys(raw); err != nil {
		return nil, err
	}

	if threshold, ok := raw[KeyThreshold].(float64); ok && threshold != math.Trunc(threshold) {
		return nil, fmt.Errorf("threshold must be an integer, got %v", threshold)
	}

	if err := l.v.MergeConfigMap(raw); err != nil {
		return nil, fmt.Errorf("failed to merge options: %w", err)
	}

	var opts Options
	if err := l.v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("unable to decode options: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	return &opts, nil
}

// setDefaults sets default option values
func setDefaults(v *viper.Viper) {
	defaults := Defaults()
	v.SetDefault(KeySnapshotPath, defaults.SnapshotPath)
	v.SetDefault(KeyMatchSnapshot, defaults.MatchSnapshot)
	v.SetDefault(KeyThreshold, defaults.Threshold)
	v.SetDefault(KeyPrintInfo, defaults.PrintInfo)
}

// FindConfigFile returns the first of ConfigFileNames present in dir, or
// an empty string.
func FindConfigFile(dir string) string {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadEnvFile loads environment variables from a .env file in the
// working directory, if one exists. Variables already set win.
func LoadEnvFile() error {
	locations := []string{
		".env",
		".env.local",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}
