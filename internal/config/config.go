package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when -c is not given.
const DefaultPath = "sitebuilder.yaml"

// DefaultMaxRetries applies when watch.retry.max_retries is not set.
const DefaultMaxRetries = 2

// Config is the host configuration. The site's own settings come from
// siteconfig and are not configurable here.
type Config struct {
	// Root is the project root that holds the input directories.
	Root string `yaml:"root"`
	// Clean removes the output directory before a full build. Defaults to true.
	Clean *bool `yaml:"clean,omitempty"`
	// Manifest is where the build manifest is written, relative to Root unless absolute.
	// Empty disables the manifest.
	Manifest string        `yaml:"manifest"`
	Logging  LoggingConfig `yaml:"logging"`
	Watch    WatchConfig   `yaml:"watch"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Relink   RelinkConfig  `yaml:"relink"`

	// Path is the file the configuration was read from; empty when defaults were used.
	Path string `yaml:"-"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// WatchConfig tunes the rebuild loop.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	// ResyncInterval schedules periodic full rebuilds; zero disables them.
	ResyncInterval time.Duration `yaml:"resync_interval"`
	Retry          RetryConfig   `yaml:"retry"`
}

// RetryConfig controls how often a rebuild that failed on a transient
// filesystem error is retried.
type RetryConfig struct {
	Backoff RetryBackoffMode `yaml:"backoff"`
	Initial time.Duration    `yaml:"initial"`
	Max     time.Duration    `yaml:"max"`
	// MaxRetries is a pointer so an explicit 0 disables retries.
	MaxRetries *int `yaml:"max_retries"`
}

// MetricsConfig enables the Prometheus endpoint in watch mode.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// RelinkConfig controls the relative link rewriter.
type RelinkConfig struct {
	// ExtraRoots are added to the built-in list of local URL prefixes.
	ExtraRoots []string `yaml:"extra_roots,omitempty"`
}

// ShouldClean reports the effective clean setting.
func (c *Config) ShouldClean() bool {
	return c.Clean == nil || *c.Clean
}

// ManifestPath resolves Manifest against root, or against Root when root is empty.
func (c *Config) ManifestPath(root string) string {
	if c.Manifest == "" || filepath.IsAbs(c.Manifest) {
		return c.Manifest
	}
	if root == "" {
		root = c.Root
	}
	return filepath.Join(root, c.Manifest)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configPath. A missing file yields defaults. .env files next to it
// are loaded first so ${VAR} references can be expanded.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(filepath.Dir(configPath)); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to load .env file").
			UserAction().
			Build()
	}

	data, err := os.ReadFile(configPath)
	if stderrors.Is(err, fs.ErrNotExist) {
		return finish(Default())
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").
			WithContext("path", configPath).
			Build()
	}
	cfg.Path = configPath
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML after environment expansion and applies defaults.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	rc := &cfg.Watch.Retry
	if rc.Backoff == "" {
		rc.Backoff = RetryBackoffLinear
	}
	if rc.Initial == 0 {
		rc.Initial = 200 * time.Millisecond
	}
	if rc.Max == 0 {
		rc.Max = 2 * time.Second
	}
	if rc.MaxRetries == nil {
		n := DefaultMaxRetries
		rc.MaxRetries = &n
	}
}

// Validate checks field values and normalizes enums in place.
func (c *Config) Validate() error {
	level, err := logLevelNormalizer.NormalizeWithError(string(c.Logging.Level))
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid logging.level").Build()
	}
	c.Logging.Level = level

	format, err := logFormatNormalizer.NormalizeWithError(string(c.Logging.Format))
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid logging.format").Build()
	}
	c.Logging.Format = format

	if c.Watch.Debounce < 0 {
		return errors.ConfigError("watch.debounce must not be negative").
			WithContext("value", c.Watch.Debounce.String()).
			Build()
	}
	if c.Watch.ResyncInterval < 0 || (c.Watch.ResyncInterval > 0 && c.Watch.ResyncInterval < time.Second) {
		return errors.ConfigError("watch.resync_interval must be zero or at least 1s").
			WithContext("value", c.Watch.ResyncInterval.String()).
			Build()
	}
	backoff, err := retryBackoffNormalizer.NormalizeWithError(string(c.Watch.Retry.Backoff))
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid watch.retry.backoff").Build()
	}
	c.Watch.Retry.Backoff = backoff
	if c.Watch.Retry.Initial < 0 || c.Watch.Retry.Max < 0 ||
		(c.Watch.Retry.MaxRetries != nil && *c.Watch.Retry.MaxRetries < 0) {
		return errors.ConfigError("watch.retry values must not be negative").Build()
	}

	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid metrics.listen address").
				WithContext("value", c.Metrics.Listen).
				Build()
		}
	}
	for _, r := range c.Relink.ExtraRoots {
		if r == "" || r[0] == '/' {
			return errors.ConfigError(fmt.Sprintf("relink.extra_roots entry %q must be a non-empty relative prefix", r)).Build()
		}
	}
	return nil
}
