// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the courier daemon's configuration.
//
// Configuration comes from a single YAML file named by an explicit
// path or the COURIER_CONFIG environment variable. There are no
// search paths and no automatic discovery: a daemon either runs on
// its built-in defaults or on exactly the file it was pointed at,
// which keeps deployed configuration auditable.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/courier/lib/digest"
)

// EnvVar names the environment variable consulted when Load is
// called without an explicit path.
const EnvVar = "COURIER_CONFIG"

// Config is the daemon configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Digest names the digest kind used for seeded files.
	Digest string `yaml:"digest"`

	// Seed lists file paths to serve at startup. Entries may be
	// globs, resolved relative to the working directory.
	Seed []string `yaml:"seed"`

	// Manifest is an optional path to a JSONC seed manifest with
	// additional files to serve.
	Manifest string `yaml:"manifest"`

	// PieceCache bounds the server's encoded-piece response cache
	// (entries, not bytes). Zero disables caching.
	PieceCache int `yaml:"piece_cache"`
}

// Default returns the built-in configuration: serve on :8080 at info
// level with SHA-256 and a 1024-entry piece cache, seeding nothing.
func Default() Config {
	return Config{
		Listen:     ":8080",
		LogLevel:   "info",
		Digest:     digest.SHA256.String(),
		PieceCache: 1024,
	}
}

// Load reads the configuration file at path. An empty path falls
// back to $COURIER_CONFIG; if that is also unset, the defaults are
// returned without touching the filesystem. A path that is set but
// unreadable is an error — a daemon silently ignoring the config it
// was given is worse than one that refuses to start.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}

	config := Default()
	if path == "" {
		return &config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &config, nil
}

// Validate checks field values. Load runs it on every file it parses;
// callers that assemble a Config by hand (flag overrides) should run
// it again before use.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := digest.ParseKind(c.Digest); err != nil {
		return fmt.Errorf("digest: %w", err)
	}
	if c.PieceCache < 0 {
		return fmt.Errorf("piece_cache is %d, want >= 0", c.PieceCache)
	}
	return nil
}

// Level parses the configured log level.
func (c *Config) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
}

// Kind returns the configured digest kind. Only meaningful after
// Validate has passed.
func (c *Config) Kind() digest.Kind {
	kind, err := digest.ParseKind(c.Digest)
	if err != nil {
		panic("config: Kind called on unvalidated config: " + err.Error())
	}
	return kind
}
