package module

import (
	"time"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/adapters/dump"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/codec"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/config"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/validate"
)

// DefaultPrefix namespaces the extract options in the environment
const DefaultPrefix = "CORE_EXTRACT_"

// Options holds configuration settings for the extract module
type Options struct {
	// availability index
	IndexSource string `env:"INDEX_SOURCE" validate:"oneof=file pg"`
	IndexPath   string `env:"INDEX_PATH" validate:"required_if=IndexSource file"`

	// reduce output
	Features           []string `env:"FEATURES"`
	Delimiter          string   `env:"DELIMITER" validate:"oneof=comma tab"`
	AllowEmptyFeatures bool     `env:"ALLOW_EMPTY"`

	// codec and dump splitting
	CompressionLevel int    `env:"COMPRESSION_LEVEL" validate:"min=-2,max=9"`
	StartTag         string `env:"START_TAG" validate:"required"`
	EndTag           string `env:"END_TAG" validate:"required"`
	MaxRecord        int    `env:"MAX_RECORD" validate:"min=1024"`

	// local job
	Workers    int           `env:"WORKERS" validate:"min=0,max=1024"`
	Partitions int           `env:"PARTITIONS" validate:"min=1,max=4096"`
	JobTimeout time.Duration `env:"JOB_TIMEOUT" validate:"min=0"`
	Lease      bool          `env:"LEASE"`

	// sinks
	SinkPG           bool          `env:"SINK_PG"`
	SinkCH           bool          `env:"SINK_CH"`
	SinkBatch        int           `env:"SINK_BATCH" validate:"min=1"`
	PGChunk          int           `env:"PG_CHUNK" validate:"min=1,max=10000"`
	SinkTimeout      time.Duration `env:"SINK_TIMEOUT" validate:"min=0"`
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT" validate:"min=0"`
	EnsureSchema     bool          `env:"ENSURE_SCHEMA"`
}

// FromConfig reads the extract options below prefix
func FromConfig(cfg config.Conf, prefix string) Options {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ef := cfg.Prefix(prefix)
	return Options{
		IndexSource:        ef.MayString("INDEX_SOURCE", "file"),
		IndexPath:          ef.MayString("INDEX_PATH", ""),
		Features:           ef.MayCSV("FEATURES", nil),
		Delimiter:          ef.MayString("DELIMITER", "comma"),
		AllowEmptyFeatures: ef.MayBool("ALLOW_EMPTY", false),
		CompressionLevel:   ef.MayInt("COMPRESSION_LEVEL", codec.DefaultLevel),
		StartTag:           ef.MayString("START_TAG", dump.DefaultStartTag),
		EndTag:             ef.MayString("END_TAG", dump.DefaultEndTag),
		MaxRecord:          ef.MayInt("MAX_RECORD", dump.DefaultMaxRecord),
		Workers:            ef.MayInt("WORKERS", 0),
		Partitions:         ef.MayInt("PARTITIONS", 8),
		JobTimeout:         ef.MayDuration("JOB_TIMEOUT", 0),
		Lease:              ef.MayBool("LEASE", false),
		SinkPG:             ef.MayBool("SINK_PG", false),
		SinkCH:             ef.MayBool("SINK_CH", false),
		SinkBatch:          ef.MayInt("SINK_BATCH", 1000),
		PGChunk:            ef.MayInt("PG_CHUNK", 500),
		SinkTimeout:        ef.MayDuration("SINK_TIMEOUT", 2*time.Minute),
		StatementTimeout:   ef.MayDuration("STATEMENT_TIMEOUT", 30*time.Second),
		EnsureSchema:       ef.MayBool("ENSURE_SCHEMA", false),
	}
}

// Validate checks ranges and enums; the error names the offending env key
func (o Options) Validate() error { return validate.Struct(o) }

// DumpOptions turns the splitting options into dump reader options
func (o Options) DumpOptions() []dump.Option {
	return []dump.Option{dump.WithTags(o.StartTag, o.EndTag), dump.WithMaxRecord(o.MaxRecord)}
}
