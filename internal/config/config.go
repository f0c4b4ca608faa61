// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package config loads otbmtool settings.
//
// Settings come from a single YAML file named by the --config flag or the
// OTBMTOOL_CONFIG environment variable. Without either, built-in defaults
// are used. Values in the file are merged over the defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	otbm "github.com/suprsokr/go-otbm"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "OTBMTOOL_CONFIG"

// CompressPolicy selects which nodes recompress stores compressed.
type CompressPolicy string

const (
	// CompressKeep preserves each node's flag from the input.
	CompressKeep CompressPolicy = "keep"
	// CompressAll compresses every node.
	CompressAll CompressPolicy = "all"
	// CompressNone stores every node uncompressed.
	CompressNone CompressPolicy = "none"
)

// Config holds otbmtool settings.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// CompressionLevel is the zlib level for compressed nodes, -2 to 9.
	CompressionLevel int `yaml:"compression_level"`

	// Compress is the recompress policy.
	Compress CompressPolicy `yaml:"compress"`

	// Identifier is written at the start of new files. See
	// otbm.ParseIdentifier for the accepted forms. Empty keeps the
	// identifier of the file being rewritten.
	Identifier string `yaml:"identifier"`

	// AcceptIdentifiers lists the identifiers accepted when reading.
	// Empty means the library default.
	AcceptIdentifiers []string `yaml:"accept_identifiers"`

	// MaxNodeSize bounds a single node's decoded attributes, in bytes.
	MaxNodeSize int `yaml:"max_node_size"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:         "warn",
		CompressionLevel: otbm.DefaultCompression,
		Compress:         CompressKeep,
		MaxNodeSize:      64 << 20,
	}
}

// Load reads the file at path, or the file named by OTBMTOOL_CONFIG when
// path is empty. With neither set it returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the YAML file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.CompressionLevel < -2 || c.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("compression_level %d out of range -2..9", c.CompressionLevel))
	}
	switch c.Compress {
	case CompressKeep, CompressAll, CompressNone:
	default:
		errs = append(errs, fmt.Errorf("compress %q: want keep, all or none", c.Compress))
	}
	if c.Identifier != "" {
		if _, err := otbm.ParseIdentifier(c.Identifier); err != nil {
			errs = append(errs, fmt.Errorf("identifier: %w", err))
		}
	}
	if _, err := c.AcceptedIdentifiers(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxNodeSize <= 0 {
		errs = append(errs, fmt.Errorf("max_node_size must be positive, got %d", c.MaxNodeSize))
	}

	return errors.Join(errs...)
}

// FileIdentifier returns the parsed Identifier, or fallback when none is
// configured.
func (c *Config) FileIdentifier(fallback otbm.Identifier) (otbm.Identifier, error) {
	if c.Identifier == "" {
		return fallback, nil
	}
	return otbm.ParseIdentifier(c.Identifier)
}

// AcceptedIdentifiers returns the parsed AcceptIdentifiers, or nil for the
// library default.
func (c *Config) AcceptedIdentifiers() ([]otbm.Identifier, error) {
	if len(c.AcceptIdentifiers) == 0 {
		return nil, nil
	}
	ids := make([]otbm.Identifier, 0, len(c.AcceptIdentifiers))
	for _, s := range c.AcceptIdentifiers {
		id, err := otbm.ParseIdentifier(s)
		if err != nil {
			return nil, fmt.Errorf("accept_identifiers: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level %q: want debug, info, warn or error", name)
	}
}
