package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the httpipe configuration. JSON files are read with the
// YAML decoder, so both formats share the yaml tags.
type Config struct {
	DefaultEnvironment string            `yaml:"defaultEnvironment,omitempty"`
	Timeout            string            `yaml:"timeout,omitempty"` // duration, empty means none
	FollowRedirects    *bool             `yaml:"followRedirects,omitempty"`
	MaxRedirects       int               `yaml:"maxRedirects,omitempty"`
	ValidateSSL        *bool             `yaml:"validateSSL,omitempty"`
	Proxy              string            `yaml:"proxy,omitempty"`
	Headers            map[string]string `yaml:"headers,omitempty"` // Default headers for all requests
	RateLimit          float64           `yaml:"rateLimit,omitempty"` // requests per second, 0 disables pacing
	LogLevel           string            `yaml:"logLevel,omitempty"`
	Output             string            `yaml:"output,omitempty"`
	Verbose            *bool             `yaml:"verbose,omitempty"`
	NoColor            *bool             `yaml:"noColor,omitempty"`
	Strict             *bool             `yaml:"strict,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

func (c *Config) GetStrict() bool {
	return getBool(c.Strict, false)
}

// GetTimeout parses Timeout. An empty value means no timeout.
func (c *Config) GetTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", c.Timeout)
	}
	return d, nil
}

// ConfigFilenames contains the possible config file names, in lookup order
var ConfigFilenames = []string{
	".httpipe.yaml",
	"httpipe.yaml",
	".httpipe.json",
	"httpipe.config.json",
}

// LoadConfig loads configuration from path when given, otherwise from the
// first config file found in dirs.
func LoadConfig(path string, dirs ...string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		cfg, found, err := FindAndLoadConfig(dir)
		if err != nil || found {
			return cfg, err
		}
	}
	return DefaultConfig(), nil
}

// FindAndLoadConfig searches for a config file in dir. found is false when
// none exists, in which case the defaults are returned.
func FindAndLoadConfig(dir string) (cfg *Config, found bool, err error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			cfg, err := loadConfigFromFile(configPath)
			return cfg, true, err
		}
	}
	return DefaultConfig(), false, nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if _, err := config.GetTimeout(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if config.RateLimit < 0 {
		return nil, fmt.Errorf("config %s: rateLimit must not be negative", path)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.Timeout != "" {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.Output != "" {
		result.Output = other.Output
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.Strict != nil {
		result.Strict = other.Strict
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

// SaveConfig writes the configuration as YAML
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
