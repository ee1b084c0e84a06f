// Package config loads the meetscribe configuration from a YAML file, an
// optional .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// OutputFormat defines the supported output formats for command results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultAPIURL       = "http://localhost:5000/api"
	DefaultTimeout      = 30 * time.Second
	DefaultDownloadDir  = "transcripts"
	DefaultHTTPAddr     = "127.0.0.1:8080"
	DefaultMetricsAddr  = ":9090"
	DefaultOutputFormat = OutputFormatText
	DefaultConfigDir    = ".config/meetscribe"
	DefaultConfigFile   = "config.yaml"
	DefaultEnvFile      = ".env"
)

// Environment variable names.
const (
	EnvConfigDir   = "MEETSCRIBE_CONFIG_DIR"
	EnvAPIURL      = "MEETSCRIBE_API_URL"
	EnvTimeout     = "MEETSCRIBE_TIMEOUT"
	EnvDownloadDir = "MEETSCRIBE_DOWNLOAD_DIR"
	EnvHTTPAddr    = "MEETSCRIBE_HTTP_ADDR"
	EnvMetricsAddr = "MEETSCRIBE_METRICS_ADDR"
	EnvDebug       = "MEETSCRIBE_DEBUG"
	EnvOutput      = "MEETSCRIBE_OUTPUT"
)

// Config holds the effective settings.
type Config struct {
	// APIURL is the backend root, e.g. http://localhost:5000/api.
	APIURL string

	// Timeout bounds each backend JSON request.
	Timeout time.Duration

	// DownloadDir is where transcripts are saved.
	DownloadDir string

	// HTTPAddr is the listen address of the web front-end.
	HTTPAddr string

	// MetricsAddr is the listen address of the Prometheus endpoint.
	MetricsAddr string

	// Debug enables debug logging.
	Debug bool

	// OutputFormat is the default for list and show commands.
	OutputFormat OutputFormat `yaml:"output_format" json:"output_format"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		APIURL:       DefaultAPIURL,
		Timeout:      DefaultTimeout,
		DownloadDir:  DefaultDownloadDir,
		HTTPAddr:     DefaultHTTPAddr,
		MetricsAddr:  DefaultMetricsAddr,
		OutputFormat: DefaultOutputFormat,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $MEETSCRIBE_CONFIG_DIR if set, otherwise ~/.config/meetscribe.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// ConfigFile overrides ConfigPath().
	ConfigFile string
	// CreateMissing accepts a ConfigFile that does not exist yet.
	CreateMissing bool
	// EnvFile is loaded into the environment when it exists. Variables
	// already set are not overwritten. Defaults to ".env".
	EnvFile string
}

// Load builds the configuration. Later sources override earlier:
//  1. Default values
//  2. Config file
//  3. .env file
//  4. Environment variables
//
// Command-line flags are applied by the caller, followed by Validate.
func Load(opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()

	path := opts.ConfigFile
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("getting config path: %w", err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	} else if opts.ConfigFile != "" && !(opts.CreateMissing && errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// File is the on-disk form of Config, with the timeout as a duration
// string. It is also what `config show` prints.
type File struct {
	APIURL       string       `yaml:"api_url" json:"api_url"`
	Timeout      string       `yaml:"timeout" json:"timeout"`
	DownloadDir  string       `yaml:"download_dir" json:"download_dir"`
	HTTPAddr     string       `yaml:"http_addr" json:"http_addr"`
	MetricsAddr  string       `yaml:"metrics_addr" json:"metrics_addr"`
	Debug        bool         `yaml:"debug" json:"debug"`
	OutputFormat OutputFormat `yaml:"output_format" json:"output_format"`
}

// File returns the on-disk form of c.
func (c *Config) File() File {
	return File{
		APIURL:       c.APIURL,
		Timeout:      c.Timeout.String(),
		DownloadDir:  c.DownloadDir,
		HTTPAddr:     c.HTTPAddr,
		MetricsAddr:  c.MetricsAddr,
		Debug:        c.Debug,
		OutputFormat: c.OutputFormat,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fileCfg File
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.APIURL != "" {
		cfg.APIURL = fileCfg.APIURL
	}
	if fileCfg.Timeout != "" {
		timeout, err := time.ParseDuration(fileCfg.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fileCfg.DownloadDir != "" {
		cfg.DownloadDir = fileCfg.DownloadDir
	}
	if fileCfg.HTTPAddr != "" {
		cfg.HTTPAddr = fileCfg.HTTPAddr
	}
	if fileCfg.MetricsAddr != "" {
		cfg.MetricsAddr = fileCfg.MetricsAddr
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	cfg.Debug = fileCfg.Debug

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.APIURL = v
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = timeout
	}

	if v := os.Getenv(EnvDownloadDir); v != "" {
		cfg.DownloadDir = v
	}

	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}

	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}

	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvDebug, err)
		}
		cfg.Debug = debug
	}

	if v := os.Getenv(EnvOutput); v != "" {
		cfg.OutputFormat = OutputFormat(strings.ToLower(v))
	}

	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api_url %q: scheme must be http or https", c.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api_url %q: host is required", c.APIURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir is required")
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig writes cfg to path, creating its directory. An empty path
// means ConfigPath().
func SaveConfig(cfg *Config, path string) (string, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg.File())
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}
