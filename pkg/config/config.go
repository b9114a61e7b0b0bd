package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultIndexDocument is the default website index document.
	DefaultIndexDocument = "index.html"

	// DefaultErrorDocument is the default website error document.
	DefaultErrorDocument = "error.html"

	// DefaultRegion is the default AWS region.
	DefaultRegion = "us-east-1"

	// DefaultConcurrency is the default upload fan-out limit.
	DefaultConcurrency = 8
)

// Config is the root configuration for deployoor.
type Config struct {
	Global GlobalConfig `yaml:"global"`
	Site   SiteConfig   `yaml:"site"`
	AWS    AWSConfig    `yaml:"aws"`
	Upload UploadConfig `yaml:"upload"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// SiteConfig describes the site being deployed. The site name is used as
// both the bucket name and the distribution alias.
type SiteConfig struct {
	Name          string `yaml:"name"`
	SourceDir     string `yaml:"source_dir"`
	IndexDocument string `yaml:"index_document"`
	ErrorDocument string `yaml:"error_document"`
}

// AWSConfig contains AWS client settings. Static credentials are optional;
// when absent the default AWS credential chain is used.
type AWSConfig struct {
	Region          string `yaml:"region"`
	EndpointURL     string `yaml:"endpoint_url,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty"`
}

// UploadConfig contains upload behavior settings.
type UploadConfig struct {
	Concurrency int     `yaml:"concurrency"`
	RateLimit   float64 `yaml:"rate_limit,omitempty"`
	Preflight   bool    `yaml:"preflight,omitempty"`
}

// Load reads and parses a configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Site.IndexDocument == "" {
		c.Site.IndexDocument = DefaultIndexDocument
	}

	if c.Site.ErrorDocument == "" {
		c.Site.ErrorDocument = DefaultErrorDocument
	}

	if c.AWS.Region == "" {
		c.AWS.Region = DefaultRegion
	}

	if c.Upload.Concurrency == 0 {
		c.Upload.Concurrency = DefaultConcurrency
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Site.Name == "" {
		return fmt.Errorf("site.name is required")
	}

	if c.Site.SourceDir == "" {
		return fmt.Errorf("site.source_dir is required")
	}

	info, err := os.Stat(c.Site.SourceDir)
	if err != nil {
		return fmt.Errorf("site.source_dir: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("site.source_dir %q is not a directory", c.Site.SourceDir)
	}

	if c.Upload.Concurrency < 1 {
		return fmt.Errorf("upload.concurrency must be at least 1, got %d", c.Upload.Concurrency)
	}

	if c.Upload.RateLimit < 0 {
		return fmt.Errorf("upload.rate_limit must not be negative, got %v", c.Upload.RateLimit)
	}

	return nil
}
