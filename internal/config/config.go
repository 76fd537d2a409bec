package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables.
const (
	EnvInput     = "INPUT_PATH"
	EnvJournal   = "SETTLE_DB"
	EnvJitterMin = "SETTLE_JITTER_MIN_MS"
	EnvJitterMax = "SETTLE_JITTER_MAX_MS"
)

// Config is the resolved process configuration.
type Config struct {
	// Input is the batch file path.
	Input string `yaml:"input"`

	// Journal is the sqlite journal path. Empty disables journaling.
	Journal string `yaml:"journal"`

	// JitterMinMs and JitterMaxMs bound the pre-dispatch delay, inclusive.
	JitterMinMs int64 `yaml:"jitter_min_ms"`
	JitterMaxMs int64 `yaml:"jitter_max_ms"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		JitterMinMs: 0,
		JitterMaxMs: 1000,
	}
}

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load resolves defaults, then the YAML file at path (if non-empty), then
// the environment.
func Load(path string, lookup LookupFunc) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if lookup != nil {
		if err := cfg.applyEnv(lookup); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// LoadDotenv loads KEY=VALUE pairs from path into the process environment
// without overriding variables already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return &Error{Field: "dotenv", Message: "failed to load " + path, Err: err}
	}
	return nil
}

// mergeFile overlays the YAML file onto cfg. Unknown keys are rejected.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Field: "config", Message: "failed to read " + path, Err: err}
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Field: "config", Message: "invalid config file " + path, Err: err}
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	if v, ok := lookup(EnvInput); ok && v != "" {
		c.Input = v
	}
	if v, ok := lookup(EnvJournal); ok {
		c.Journal = v
	}
	for _, f := range []struct {
		key string
		dst *int64
	}{
		{EnvJitterMin, &c.JitterMinMs},
		{EnvJitterMax, &c.JitterMaxMs},
	} {
		v, ok := lookup(f.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &Error{Field: f.key, Message: fmt.Sprintf("not an integer: %q", v), Err: err}
		}
		*f.dst = n
	}
	return nil
}

// Validate checks that a run can start. The input must name an existing
// regular file; jitter bounds must be non-negative and ordered.
func (c Config) Validate() error {
	if c.Input == "" {
		return &Error{Field: "input", Message: "no input path (set --input or " + EnvInput + ")"}
	}
	info, err := os.Stat(c.Input)
	if err != nil {
		return &Error{Field: "input", Message: "cannot access " + c.Input, Err: err}
	}
	if info.IsDir() {
		return &Error{Field: "input", Message: c.Input + " is a directory"}
	}
	if c.JitterMinMs < 0 || c.JitterMaxMs < 0 {
		return &Error{Field: "jitter", Message: "jitter bounds must be non-negative"}
	}
	if c.JitterMinMs > c.JitterMaxMs {
		return &Error{Field: "jitter", Message: fmt.Sprintf("jitter min %dms exceeds max %dms", c.JitterMinMs, c.JitterMaxMs)}
	}
	return nil
}

// Jitter returns the jitter bounds as durations.
func (c Config) Jitter() (min, max time.Duration) {
	return time.Duration(c.JitterMinMs) * time.Millisecond, time.Duration(c.JitterMaxMs) * time.Millisecond
}
