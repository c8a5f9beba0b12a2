// Package config loads breedcore settings from an optional YAML file and
// BREEDCORE_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"breedcore/internal/blob"
	"breedcore/internal/core"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "BREEDCORE"

// Config holds all runtime configuration.
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Plan storage
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`
	PostgresDSN   string `mapstructure:"POSTGRES_DSN"`

	// Timeline export storage
	BlobDriver            string `mapstructure:"BLOB_DRIVER"`
	BlobFSRoot            string `mapstructure:"BLOB_FS_ROOT"`
	BlobS3Bucket          string `mapstructure:"BLOB_S3_BUCKET"`
	BlobS3Region          string `mapstructure:"BLOB_S3_REGION"`
	BlobS3Endpoint        string `mapstructure:"BLOB_S3_ENDPOINT"`
	BlobS3PathStyle       bool   `mapstructure:"BLOB_S3_PATH_STYLE"`
	BlobS3AccessKeyID     string `mapstructure:"BLOB_S3_ACCESS_KEY_ID"`
	BlobS3SecretAccessKey string `mapstructure:"BLOB_S3_SECRET_ACCESS_KEY"`

	// Forecasting and display
	SpeciesFile     string `mapstructure:"SPECIES_FILE"`
	PreferencesFile string `mapstructure:"PREFERENCES_FILE"`

	// Metrics: none|expvar|prometheus
	MetricsBackend string `mapstructure:"METRICS_BACKEND"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("STORAGE_DRIVER", string(core.StorageSQLite))
	v.SetDefault("SQLITE_PATH", "breedcore.db")
	v.SetDefault("POSTGRES_DSN", "")

	v.SetDefault("BLOB_DRIVER", string(blob.DriverFilesystem))
	v.SetDefault("BLOB_FS_ROOT", "./blobdata")
	v.SetDefault("BLOB_S3_BUCKET", "")
	v.SetDefault("BLOB_S3_REGION", "us-east-1")
	v.SetDefault("BLOB_S3_ENDPOINT", "")
	v.SetDefault("BLOB_S3_PATH_STYLE", false)
	v.SetDefault("BLOB_S3_ACCESS_KEY_ID", "")
	v.SetDefault("BLOB_S3_SECRET_ACCESS_KEY", "")

	v.SetDefault("SPECIES_FILE", "")
	v.SetDefault("PREFERENCES_FILE", "preferences.yaml")

	v.SetDefault("METRICS_BACKEND", "expvar")
}

// Load reads configuration. When file is empty, breedcore.yaml is looked up
// in "." and "./config" and may be absent. Environment variables win over
// file values.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("breedcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch core.StorageDriver(strings.ToLower(cfg.StorageDriver)) {
	case core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	switch blob.Driver(strings.ToLower(cfg.BlobDriver)) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if cfg.BlobS3Bucket == "" {
			return fmt.Errorf("BLOB_S3_BUCKET is required for the s3 blob driver")
		}
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", cfg.BlobDriver)
	}
	switch strings.ToLower(cfg.MetricsBackend) {
	case "", "none", "expvar", "prometheus":
	default:
		return fmt.Errorf("unknown METRICS_BACKEND %q", cfg.MetricsBackend)
	}
	return nil
}

// Storage maps the plan storage settings for core.OpenPersistentStore.
func (c *Config) Storage() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(strings.ToLower(c.StorageDriver)),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
	}
}

// Blob maps the export storage settings for blob.Open.
func (c *Config) Blob() blob.Config {
	return blob.Config{
		Driver: blob.Driver(strings.ToLower(c.BlobDriver)),
		FSRoot: c.BlobFSRoot,
		S3: blob.S3Config{
			Bucket:          c.BlobS3Bucket,
			Region:          c.BlobS3Region,
			Endpoint:        c.BlobS3Endpoint,
			PathStyle:       c.BlobS3PathStyle,
			AccessKeyID:     c.BlobS3AccessKeyID,
			SecretAccessKey: c.BlobS3SecretAccessKey,
		},
	}
}
