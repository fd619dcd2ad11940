package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hupe1980/kmerdb"
	"github.com/hupe1980/kmerdb/blobstore"
	"github.com/hupe1980/kmerdb/blobstore/minio"
	"github.com/hupe1980/kmerdb/blobstore/s3"
	"github.com/hupe1980/kmerdb/resource"
)

// Prefix is the environment variable prefix.
const Prefix = "KMERDB"

// DefaultEnvFile is read by Load when no files are given and it exists.
const DefaultEnvFile = ".env"

// Storage backends.
const (
	StorageLocal  = "local"
	StorageMemory = "memory"
	StorageS3     = "s3"
	StorageMinIO  = "minio"
)

// Config validation errors
var (
	ErrInvalidStorage    = errors.New("storage must be local, memory, s3 or minio")
	ErrMissingBucket     = errors.New("bucket cannot be empty for s3 or minio storage")
	ErrMissingEndpoint   = errors.New("endpoint cannot be empty for minio storage")
	ErrInvalidLogFormat  = errors.New("log_format must be 'json' or 'text'")
	ErrInvalidLogLevel   = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidLoadFactor = errors.New("load_factor must be in (0, 1]")
)

// Config holds every setting kmerdb reads from the environment.
type Config struct {
	// Graph is the graph file name within the blob store, optionally with a
	// ":colours" suffix such as "graph.kdb:0,2-3".
	Graph string `envconfig:"GRAPH"`

	Storage  string `envconfig:"STORAGE" default:"local"`
	Root     string `envconfig:"ROOT" default:"."`
	Bucket   string `envconfig:"BUCKET"`
	Prefix   string `envconfig:"PREFIX"`
	Region   string `envconfig:"REGION"`
	Endpoint string `envconfig:"ENDPOINT"`
	UseSSL   bool   `envconfig:"USE_SSL" default:"true"`

	AccessKey string `envconfig:"ACCESS_KEY"`
	SecretKey string `envconfig:"SECRET_KEY"`

	KmerSize    int     `envconfig:"KMER_SIZE"`
	NumColors   int     `envconfig:"NUM_COLORS"`
	Colors      string  `envconfig:"COLORS"`
	Capacity    uint64  `envconfig:"CAPACITY"`
	LoadFactor  float64 `envconfig:"LOAD_FACTOR" default:"0.75"`
	Compression string  `envconfig:"COMPRESSION" default:"none"`

	MemoryLimit        int64 `envconfig:"MEMORY_LIMIT"`
	MaxConcurrentLoads int64 `envconfig:"MAX_CONCURRENT_LOADS" default:"1"`
	ReadRateLimit      int64 `envconfig:"READ_RATE_LIMIT"`
	WaitForMemory      bool  `envconfig:"WAIT_FOR_MEMORY"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the given .env files (DefaultEnvFile if none are given and it
// exists) without overriding variables already set, then processes the
// KMERDB_* environment into a validated Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageLocal, StorageMemory:
	case StorageS3:
		if c.Bucket == "" {
			return ErrMissingBucket
		}
	case StorageMinIO:
		if c.Bucket == "" {
			return ErrMissingBucket
		}
		if c.Endpoint == "" {
			return ErrMissingEndpoint
		}
	default:
		return ErrInvalidStorage
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return ErrInvalidLogFormat
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if c.LoadFactor <= 0 || c.LoadFactor > 1 {
		return ErrInvalidLoadFactor
	}
	if c.Colors != "" {
		if _, err := kmerdb.ParseColorList(c.Colors); err != nil {
			return err
		}
	}
	if _, err := kmerdb.ParseCompression(c.Compression); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return 0, ErrInvalidLogLevel
	}
	return l, nil
}

// Logger builds the logger selected by LogFormat and LogLevel.
func (c *Config) Logger() (*kmerdb.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	if c.LogFormat == "text" {
		return kmerdb.NewTextLogger(level), nil
	}
	return kmerdb.NewJSONLogger(level), nil
}

// ResourceController returns a controller for the configured limits, or nil
// when no limit is set.
func (c *Config) ResourceController() *resource.Controller {
	if c.MemoryLimit == 0 && c.ReadRateLimit == 0 && c.MaxConcurrentLoads <= 1 {
		return nil
	}
	return resource.NewController(resource.Config{
		MemoryLimitBytes:   c.MemoryLimit,
		MaxConcurrentLoads: c.MaxConcurrentLoads,
		IOLimitBytesPerSec: c.ReadRateLimit,
	})
}

// Options converts the configuration to load options.
func (c *Config) Options() ([]kmerdb.Option, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	opts := []kmerdb.Option{
		kmerdb.WithLogger(logger),
		kmerdb.WithExpectedKmerSize(c.KmerSize),
		kmerdb.WithExpectedColors(c.NumColors),
		kmerdb.WithLoadFactor(c.LoadFactor),
	}
	if c.Capacity > 0 {
		opts = append(opts, kmerdb.WithCapacity(c.Capacity))
	}
	if c.Colors != "" {
		colors, err := kmerdb.ParseColorList(c.Colors)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kmerdb.WithColors(colors...))
	}
	if rc := c.ResourceController(); rc != nil {
		opts = append(opts, kmerdb.WithResourceController(rc))
		if c.WaitForMemory {
			opts = append(opts, kmerdb.WithWaitForMemory())
		}
	}
	return opts, nil
}

// SaveOptions converts the configuration to save options.
func (c *Config) SaveOptions() ([]kmerdb.SaveOption, error) {
	comp, err := kmerdb.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}
	opts := []kmerdb.SaveOption{
		kmerdb.WithCompression(comp),
		kmerdb.WithSaveLogger(logger),
	}
	if rc := c.ResourceController(); rc != nil {
		opts = append(opts, kmerdb.WithWriteResourceController(rc))
	}
	return opts, nil
}

// BlobStore connects to the configured storage backend.
func (c *Config) BlobStore(ctx context.Context) (blobstore.BlobStore, error) {
	switch c.Storage {
	case StorageLocal:
		return blobstore.NewLocalStore(c.Root), nil
	case StorageMemory:
		return blobstore.NewMemoryStore(), nil
	case StorageS3:
		st, err := s3.NewFromConfig(ctx, c.Bucket, c.Prefix, func(o *s3.Options) {
			o.Region = c.Region
			o.Endpoint = c.Endpoint
			o.UsePathStyle = c.Endpoint != ""
		})
		if err != nil {
			return nil, fmt.Errorf("s3 store: %w", err)
		}
		return st, nil
	case StorageMinIO:
		st, err := minio.NewFromEndpoint(c.Endpoint, minio.Credentials{
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
		}, c.UseSSL, c.Bucket, c.Prefix)
		if err != nil {
			return nil, fmt.Errorf("minio store: %w", err)
		}
		return st, nil
	default:
		return nil, ErrInvalidStorage
	}
}

// Open connects to the blob store and loads Graph. A ":colours" suffix on
// Graph restricts the load to those colours, overriding Colors.
func (c *Config) Open(ctx context.Context, extra ...kmerdb.Option) (*kmerdb.Graph, error) {
	if c.Graph == "" {
		return nil, fmt.Errorf("%w: graph name is empty", kmerdb.ErrInvalidOption)
	}

	name, srcOpts, err := kmerdb.ParseSource(c.Graph)
	if err != nil {
		return nil, err
	}

	bs, err := c.BlobStore(ctx)
	if err != nil {
		return nil, err
	}

	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, srcOpts...)
	opts = append(opts, extra...)

	return kmerdb.OpenBlob(ctx, bs, name, opts...)
}
