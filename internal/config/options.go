package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ytget/yt-merger/internal/platform"
	"github.com/ytget/yt-merger/internal/selection"
)

// Configuration keys shared by the config file and the environment
const (
	KeyOutputDir       = "output_dir"
	KeyTempDir         = "temp_dir"
	KeyLogDir          = "log_dir"
	KeyLogLevel        = "log_level"
	KeyLogFile         = "log_file"
	KeyContainer       = "container"
	KeyResolution      = "resolution"
	KeyFFmpegPath      = "ffmpeg_path"
	KeyDownloadRetries = "download_retries"
	KeyRetryBackoff    = "retry_backoff"
	KeyRateLimit       = "rate_limit"
	KeyMaxParallel     = "max_parallel"
	KeyFetchTimeout    = "fetch_timeout"
)

// Config file lookup
const (
	EnvPrefix       = "YTMERGER"
	ConfigName      = "yt-merger"
	ConfigDirName   = "yt-merger"
	LogSubdirName   = "logs"
	DefaultLogLevel = "info"
)

// Defaults for Options
const (
	DefaultFFmpegPath   = "ffmpeg"
	DefaultRetryBackoff = 2 * time.Second
	DefaultFetchTimeout = 60 * time.Second
)

// Options holds the run configuration for the CLI and GUI
type Options struct {
	OutputDir       string        `mapstructure:"output_dir"`
	TempDir         string        `mapstructure:"temp_dir"`
	LogDir          string        `mapstructure:"log_dir"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFile         string        `mapstructure:"log_file"`
	Container       string        `mapstructure:"container"`
	Resolution      int           `mapstructure:"resolution"`
	FFmpegPath      string        `mapstructure:"ffmpeg_path"`
	DownloadRetries int           `mapstructure:"download_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	RateLimit       int           `mapstructure:"rate_limit"`
	MaxParallel     int           `mapstructure:"max_parallel"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
}

// DefaultOptions returns the built-in configuration
func DefaultOptions() *Options {
	outputDir := platform.DefaultOutputDir()
	return &Options{
		OutputDir:    outputDir,
		LogDir:       filepath.Join(outputDir, LogSubdirName),
		LogLevel:     DefaultLogLevel,
		Container:    selection.DefaultContainer,
		FFmpegPath:   DefaultFFmpegPath,
		RetryBackoff: DefaultRetryBackoff,
		MaxParallel:  DefaultMaxParallel,
		FetchTimeout: DefaultFetchTimeout,
	}
}

// Load reads configuration from path (or yt-merger.{yaml,json,toml} in the
// working directory and the user config directory when path is empty),
// then applies YTMERGER_* environment overrides.
func Load(path string) (*Options, error) {
	v := viper.New()
	defaults := DefaultOptions()

	v.SetDefault(KeyOutputDir, defaults.OutputDir)
	v.SetDefault(KeyTempDir, "")
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyContainer, defaults.Container)
	v.SetDefault(KeyResolution, 0)
	v.SetDefault(KeyFFmpegPath, defaults.FFmpegPath)
	v.SetDefault(KeyDownloadRetries, 0)
	v.SetDefault(KeyRetryBackoff, defaults.RetryBackoff)
	v.SetDefault(KeyRateLimit, 0)
	v.SetDefault(KeyMaxParallel, defaults.MaxParallel)
	v.SetDefault(KeyFetchTimeout, defaults.FetchTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// log_dir has no default so IsSet can tell "unset" from "disabled"
	if err := v.BindEnv(KeyLogDir); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, ConfigDirName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	opts := &Options{}
	if err := v.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if !v.IsSet(KeyLogDir) {
		opts.LogDir = filepath.Join(opts.OutputDir, LogSubdirName)
	}
	return opts, nil
}

// Validate checks the options for values no run could use
func (o *Options) Validate() error {
	if o.OutputDir == "" {
		return fmt.Errorf("%s must not be empty", KeyOutputDir)
	}
	if o.Container == "" {
		return fmt.Errorf("%s must not be empty", KeyContainer)
	}
	if o.Resolution < 0 {
		return fmt.Errorf("%s must not be negative", KeyResolution)
	}
	if o.DownloadRetries < 0 {
		return fmt.Errorf("%s must not be negative", KeyDownloadRetries)
	}
	if o.RetryBackoff < 0 {
		return fmt.Errorf("%s must not be negative", KeyRetryBackoff)
	}
	if o.RateLimit < 0 {
		return fmt.Errorf("%s must not be negative", KeyRateLimit)
	}
	if o.MaxParallel < 1 {
		return fmt.Errorf("%s must be at least 1", KeyMaxParallel)
	}
	if o.FetchTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyFetchTimeout)
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}
	return nil
}

// Policy returns the stream selection policy
func (o *Options) Policy() selection.Policy {
	return selection.Policy{Container: o.Container, Resolution: o.Resolution}
}

// EffectiveTempDir returns TempDir, or OutputDir when unset
func (o *Options) EffectiveTempDir() string {
	if o.TempDir == "" {
		return o.OutputDir
	}
	return o.TempDir
}
