// Package config loads the ffgraph TOML configuration file.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig returns an annotated configuration file with every default.
func SampleConfig() string { return sampleConfig }

// FFmpeg configures how compiled graphs are executed.
type FFmpeg struct {
	Binary     string `toml:"binary"`
	Overwrite  bool   `toml:"overwrite"`   // add -y to every command
	HideBanner bool   `toml:"hide_banner"` // add -hide_banner to every command
	TempDir    string `toml:"temp_dir"`
}

// Server configures the HTTP API.
type Server struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Addr is the listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIKey is a statically provisioned API key.
type APIKey struct {
	Key    string `toml:"key"`
	UserID string `toml:"user_id"`
	Name   string `toml:"name"`
}

// Auth configures API authentication.
type Auth struct {
	Enabled   bool     `toml:"enabled"`
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl"`
	APIKeys   []APIKey `toml:"api_keys"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console, json or auto
}

// Storage configures remote storage backends.
type Storage struct {
	S3Enabled         bool   `toml:"s3_enabled"`
	S3Region          string `toml:"s3_region"`
	S3Endpoint        string `toml:"s3_endpoint"`
	S3AccessKeyID     string `toml:"s3_access_key_id"`
	S3SecretAccessKey string `toml:"s3_secret_access_key"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style"`
}

// Config encapsulates all configuration values for ffgraph.
type Config struct {
	FFmpeg  FFmpeg  `toml:"ffmpeg"`
	Server  Server  `toml:"server"`
	Auth    Auth    `toml:"auth"`
	Logging Logging `toml:"logging"`
	Storage Storage `toml:"storage"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads path over the defaults and validates the result. An empty path
// or a missing file yields the defaults. The JWT secret may come from the
// FFGRAPH_JWT_SECRET environment variable.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := Parse(data, &cfg); err != nil {
				return nil, err
			}
		}
	}

	if secret := os.Getenv("FFGRAPH_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes TOML data over cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config: %s", strict.String())
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func (c *Config) normalize() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.FFmpeg.TempDir != "" {
		c.FFmpeg.TempDir = filepath.Clean(c.FFmpeg.TempDir)
	}
}
