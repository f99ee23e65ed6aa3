package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/rmathena79/breaker-bot/internal/charset"
)

// Config captures the breakerbot configuration resolved from defaults,
// optional files, and environment overrides.
type Config struct {
	Charset     string            `yaml:"charset" toml:"charset"`
	ChunkSize   int               `yaml:"chunk_size" toml:"chunk_size"`
	Lenient     bool              `yaml:"lenient" toml:"lenient"`
	ScalerPath  string            `yaml:"scaler_path" toml:"scaler_path"`
	DataDir     string            `yaml:"data_dir" toml:"data_dir"`
	LogLevel    string            `yaml:"log_level" toml:"log_level"`
	LogFormat   string            `yaml:"log_format" toml:"log_format"`
	Aggregation AggregationConfig `yaml:"aggregation" toml:"aggregation"`
	Predictor   PredictorConfig   `yaml:"predictor" toml:"predictor"`
	Store       StoreConfig       `yaml:"store" toml:"store"`
	Keygen      KeygenConfig      `yaml:"keygen" toml:"keygen"`
}

// AggregationConfig controls how chunk predictions are combined.
type AggregationConfig struct {
	TextPolicy        string `yaml:"text_policy" toml:"text_policy"`
	TolerateMalformed bool   `yaml:"tolerate_malformed" toml:"tolerate_malformed"`
	Parallelism       int    `yaml:"parallelism" toml:"parallelism"`
}

// PredictorConfig points at a remote predictor. An empty Addr selects the
// built-in frequency predictor.
type PredictorConfig struct {
	Addr    string        `yaml:"addr" toml:"addr"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

type StoreConfig struct {
	Path string `yaml:"path" toml:"path"`
}

type KeygenConfig struct {
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Charset:   charset.DefaultSymbols,
		ChunkSize: 64,
		DataDir:   "data",
		LogLevel:  "info",
		LogFormat: "console",
		Aggregation: AggregationConfig{
			TextPolicy:  "trim",
			Parallelism: 0,
		},
		Predictor: PredictorConfig{
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Path: filepath.Join("data", "breakerbot.db"),
		},
		Keygen: KeygenConfig{
			MaxAttempts: 1000,
		},
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are applied in this order, later ones winning:
//  1. ~/.breakerbot/config.toml (TOML)
//  2. ./breakerbot.yml (YAML)
//
// Environment variables prefixed with BREAKER_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile resolves the configuration from defaults, the file at path and
// environment overrides. The format follows the extension: .toml or
// .yml/.yaml.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	format, err := formatFor(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(&cfg, data, format); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if _, err := charset.New(c.Charset); err != nil {
		return fmt.Errorf("charset: %w", err)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.Aggregation.TextPolicy {
	case "trim", "naive":
	default:
		return fmt.Errorf("aggregation.text_policy must be trim or naive, got %q", c.Aggregation.TextPolicy)
	}
	if c.Aggregation.Parallelism < 0 {
		return fmt.Errorf("aggregation.parallelism must not be negative, got %d", c.Aggregation.Parallelism)
	}
	if c.Predictor.Timeout <= 0 {
		return fmt.Errorf("predictor.timeout must be positive, got %s", c.Predictor.Timeout)
	}
	if c.Keygen.MaxAttempts < 1 {
		return fmt.Errorf("keygen.max_attempts must be positive, got %d", c.Keygen.MaxAttempts)
	}
	return nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}
	return loadOptional(cfg, filepath.Join(home, ".breakerbot", "config.toml"), "toml")
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	return loadOptional(cfg, filepath.Join(wd, "breakerbot.yml"), "yaml")
}

func loadOptional(cfg *Config, path, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data, format); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func formatFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml", nil
	case ".yml", ".yaml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

type fileConfig struct {
	Charset     *string                `yaml:"charset" toml:"charset"`
	ChunkSize   *int                   `yaml:"chunk_size" toml:"chunk_size"`
	Lenient     *bool                  `yaml:"lenient" toml:"lenient"`
	ScalerPath  *string                `yaml:"scaler_path" toml:"scaler_path"`
	DataDir     *string                `yaml:"data_dir" toml:"data_dir"`
	LogLevel    *string                `yaml:"log_level" toml:"log_level"`
	LogFormat   *string                `yaml:"log_format" toml:"log_format"`
	Aggregation *fileAggregationConfig `yaml:"aggregation" toml:"aggregation"`
	Predictor   *filePredictorConfig   `yaml:"predictor" toml:"predictor"`
	Store       *fileStoreConfig       `yaml:"store" toml:"store"`
	Keygen      *fileKeygenConfig      `yaml:"keygen" toml:"keygen"`
}

type fileAggregationConfig struct {
	TextPolicy        *string `yaml:"text_policy" toml:"text_policy"`
	TolerateMalformed *bool   `yaml:"tolerate_malformed" toml:"tolerate_malformed"`
	Parallelism       *int    `yaml:"parallelism" toml:"parallelism"`
}

type filePredictorConfig struct {
	Addr    *string `yaml:"addr" toml:"addr"`
	Timeout *string `yaml:"timeout" toml:"timeout"`
}

type fileStoreConfig struct {
	Path *string `yaml:"path" toml:"path"`
}

type fileKeygenConfig struct {
	MaxAttempts *int `yaml:"max_attempts" toml:"max_attempts"`
}

func applyFileConfig(cfg *Config, data []byte, format string) error {
	var fc fileConfig
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	case "toml":
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	// charset is taken verbatim: spaces and newlines are symbols
	if fc.Charset != nil {
		cfg.Charset = *fc.Charset
	}
	if fc.ChunkSize != nil {
		cfg.ChunkSize = *fc.ChunkSize
	}
	if fc.Lenient != nil {
		cfg.Lenient = *fc.Lenient
	}
	setString(&cfg.ScalerPath, fc.ScalerPath)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)

	if a := fc.Aggregation; a != nil {
		setString(&cfg.Aggregation.TextPolicy, a.TextPolicy)
		if a.TolerateMalformed != nil {
			cfg.Aggregation.TolerateMalformed = *a.TolerateMalformed
		}
		if a.Parallelism != nil {
			cfg.Aggregation.Parallelism = *a.Parallelism
		}
	}
	if p := fc.Predictor; p != nil {
		setString(&cfg.Predictor.Addr, p.Addr)
		if p.Timeout != nil {
			d, err := time.ParseDuration(strings.TrimSpace(*p.Timeout))
			if err != nil {
				return fmt.Errorf("predictor.timeout: %w", err)
			}
			cfg.Predictor.Timeout = d
		}
	}
	if s := fc.Store; s != nil {
		setString(&cfg.Store.Path, s.Path)
	}
	if k := fc.Keygen; k != nil && k.MaxAttempts != nil {
		cfg.Keygen.MaxAttempts = *k.MaxAttempts
	}
	return nil
}

func setString(dst *string, val *string) {
	if val != nil {
		*dst = strings.TrimSpace(*val)
	}
}

func applyEnvOverrides(cfg *Config) error {
	if val, ok := os.LookupEnv("BREAKER_CHARSET"); ok && val != "" {
		cfg.Charset = val
	}
	if val := env("BREAKER_CHUNK_SIZE"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("BREAKER_CHUNK_SIZE: %w", err)
		}
		cfg.ChunkSize = n
	}
	if val := env("BREAKER_LENIENT"); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("BREAKER_LENIENT: %w", err)
		}
		cfg.Lenient = parsed
	}
	if val := env("BREAKER_SCALER"); val != "" {
		cfg.ScalerPath = val
	}
	if val := env("BREAKER_DATA_DIR"); val != "" {
		cfg.DataDir = val
	}
	if val := env("BREAKER_LOG_LEVEL"); val != "" {
		cfg.LogLevel = strings.ToLower(val)
	}
	if val := env("BREAKER_LOG_FORMAT"); val != "" {
		cfg.LogFormat = strings.ToLower(val)
	}
	if val := env("BREAKER_TEXT_POLICY"); val != "" {
		cfg.Aggregation.TextPolicy = val
	}
	if val := env("BREAKER_TOLERATE_MALFORMED"); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("BREAKER_TOLERATE_MALFORMED: %w", err)
		}
		cfg.Aggregation.TolerateMalformed = parsed
	}
	if val := env("BREAKER_PARALLELISM"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("BREAKER_PARALLELISM: %w", err)
		}
		cfg.Aggregation.Parallelism = n
	}
	if val := env("BREAKER_PREDICTOR"); val != "" {
		cfg.Predictor.Addr = val
	}
	if val := env("BREAKER_PREDICTOR_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("BREAKER_PREDICTOR_TIMEOUT: %w", err)
		}
		cfg.Predictor.Timeout = d
	}
	if val := env("BREAKER_STORE"); val != "" {
		cfg.Store.Path = val
	}
	if val := env("BREAKER_KEYGEN_MAX_ATTEMPTS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("BREAKER_KEYGEN_MAX_ATTEMPTS: %w", err)
		}
		cfg.Keygen.MaxAttempts = n
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}
