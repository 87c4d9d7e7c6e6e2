// Package loader loads seriesstore configuration from YAML.
package loader

import (
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/seriesstore/config"
	"github.com/xtxerr/seriesstore/internal/errors"
)

// Config is the top-level configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Merge   MergeConfig   `yaml:"merge"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Summary SummaryConfig `yaml:"summary"`
	Types   []TypeConfig  `yaml:"types"`
	Feed    FeedConfig    `yaml:"feed"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON selects JSON output instead of human-readable text.
	JSON bool `yaml:"json"`
}

// MergeConfig configures the merge engine.
type MergeConfig struct {
	// ChunkThreshold is the union length above which the chunked merge
	// path runs. Zero disables chunking.
	ChunkThreshold int `yaml:"chunk_threshold"`

	// ChunkSize is the number of union positions per chunk.
	ChunkSize int `yaml:"chunk_size"`
}

// IngestConfig configures the ingest service.
type IngestConfig struct {
	// QueueSize is the capacity of the submission queue.
	QueueSize int `yaml:"queue_size"`
}

// SummaryConfig configures quicklook statistics.
type SummaryConfig struct {
	// Accuracy is the DDSketch relative accuracy (0.01 = 1% error).
	Accuracy float64 `yaml:"accuracy"`
}

// TypeConfig declares a data type registered at startup.
type TypeConfig struct {
	// Name is the canonical type identifier.
	Name string `yaml:"name"`

	// Aliases are alternate identifiers resolving to Name.
	Aliases []string `yaml:"aliases"`

	// Replace marks the type non-mergeable: each stash replaces the
	// stored record outright (static orbit/position tables).
	Replace bool `yaml:"replace"`
}

// FeedConfig configures the demo feeder binary.
type FeedConfig struct {
	// Producers is the number of concurrent synthetic producers.
	Producers int `yaml:"producers"`

	// Batches is the number of batches each producer submits.
	Batches int `yaml:"batches"`

	// BatchRows is the number of timestamps per batch.
	BatchRows int `yaml:"batch_rows"`

	// OverlapRows is how many trailing rows of each batch are repeated
	// at the head of the next, exercising the dedup/newest-wins path.
	OverlapRows int `yaml:"overlap_rows"`

	// StepMs is the spacing between consecutive timestamps.
	StepMs int64 `yaml:"step_ms"`
}

// DefaultConfig returns a configuration with documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Merge: MergeConfig{
			ChunkThreshold: config.DefaultChunkThreshold,
			ChunkSize:      config.DefaultChunkSize,
		},
		Ingest:  IngestConfig{QueueSize: config.DefaultQueueSize},
		Summary: SummaryConfig{Accuracy: config.DefaultSummaryAccuracy},
		Feed: FeedConfig{
			Producers:   4,
			Batches:     16,
			BatchRows:   256,
			OverlapRows: 32,
			StepMs:      1000,
		},
	}
}

// Load reads and parses a YAML config file, applying defaults for
// omitted values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Merge.ChunkSize < 0 || c.Merge.ChunkThreshold < 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "merge sizes must be non-negative")
	}
	if c.Ingest.QueueSize < 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "ingest queue size must be non-negative")
	}
	for _, t := range c.Types {
		if strings.TrimSpace(t.Name) == "" {
			return errors.Wrap(errors.ErrInvalidConfig, "type name must not be empty")
		}
	}
	return nil
}

// LogLevel parses the configured log level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
