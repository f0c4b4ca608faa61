// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	otbm "github.com/suprsokr/go-otbm"
	"github.com/suprsokr/go-otbm/internal/config"
)

// globalOptions holds the flags shared by every command and the settings
// resolved from them before a command runs.
type globalOptions struct {
	configPath string
	logLevel   string

	config *config.Config
	logger *slog.Logger
}

// AddFlags registers the shared flags.
func (o *globalOptions) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.configPath, "config", "", "path to a YAML config file (default $"+config.EnvVar+")")
	flagSet.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func (o *globalOptions) load(stderr io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	o.config = cfg
	o.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	}))
	return nil
}

func (o *globalOptions) readerOptions() ([]otbm.ReaderOption, error) {
	opts := []otbm.ReaderOption{
		otbm.WithMaxNodeSize(o.config.MaxNodeSize),
		otbm.WithReaderLogger(o.logger),
	}
	ids, err := o.config.AcceptedIdentifiers()
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		opts = append(opts, otbm.WithIdentifiers(ids...))
	}
	return opts, nil
}

// loadedMap is a fully decoded map file.
type loadedMap struct {
	identifier otbm.Identifier
	trees      []*otbm.Tree
	size       int64
}

func (o *globalOptions) readMap(path string) (*loadedMap, error) {
	opts, err := o.readerOptions()
	if err != nil {
		return nil, err
	}
	file, err := otbm.OpenFile(path, opts...)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	trees, err := otbm.ReadTree(file.Reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	o.logger.Debug("map decoded", "path", path, "top_level", len(trees), "bytes", file.Offset())

	return &loadedMap{
		identifier: file.Identifier(),
		trees:      trees,
		size:       file.Offset(),
	}, nil
}
