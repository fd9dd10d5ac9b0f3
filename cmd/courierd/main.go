// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/bureau-foundation/courier/lib/catalog"
	"github.com/bureau-foundation/courier/lib/config"
	"github.com/bureau-foundation/courier/lib/content"
	"github.com/bureau-foundation/courier/lib/digest"
	"github.com/bureau-foundation/courier/lib/httpapi"
	"github.com/bureau-foundation/courier/lib/seed"
	"github.com/bureau-foundation/courier/lib/service"
	"github.com/bureau-foundation/courier/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")

	var (
		configPath string
		listen     string
		digestName string
	)
	flag.StringVar(&configPath, "config", "", "path to YAML config file (default $"+config.EnvVar+")")
	flag.StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	flag.StringVar(&digestName, "digest", "", "digest algorithm for seeded files (overrides config)")
	flag.Parse()

	if showVersion {
		fmt.Printf("courierd %s\n", version.Info())
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if digestName != "" {
		cfg.Digest = digestName
	}
	// Positional arguments are extra seed paths on top of the config.
	cfg.Seed = append(cfg.Seed, flag.Args()...)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := service.NewLogger(level)

	paths, err := seedPaths(cfg)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Warn("no seed files configured, serving an empty catalog")
	}

	digester, err := digest.New(cfg.Kind())
	if err != nil {
		return err
	}
	fileCatalog, err := buildCatalog(logger, digester, paths)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: cfg.Listen,
		Handler: httpapi.NewServer(httpapi.ServerConfig{
			Catalog:        fileCatalog,
			Logger:         logger,
			PieceCacheSize: cfg.PieceCache,
		}),
		Logger: logger,
	})

	logger.Info("starting courierd",
		"version", version.Short(),
		"listen", cfg.Listen,
		"files", fileCatalog.Len(),
		"digest", cfg.Digest)
	return server.Serve(ctx)
}

// seedPaths collects the full seed list: config globs, the optional
// manifest, and any positional arguments (already merged into
// cfg.Seed). The result is de-duplicated in first-seen order.
func seedPaths(cfg *config.Config) ([]string, error) {
	var paths []string

	for _, pattern := range cfg.Seed {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad seed pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("seed pattern %q matched no files", pattern)
		}
		paths = append(paths, matches...)
	}

	if cfg.Manifest != "" {
		manifest, err := seed.ReadFile(cfg.Manifest)
		if err != nil {
			return nil, err
		}
		resolved, err := manifest.Resolve(filepath.Dir(cfg.Manifest))
		if err != nil {
			return nil, err
		}
		paths = append(paths, resolved...)
	}

	seen := make(map[string]bool, len(paths))
	unique := paths[:0]
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		unique = append(unique, path)
	}
	return unique, nil
}

// buildCatalog chunks and hashes every seed file, in parallel, and
// registers the results. Registration happens serially afterwards so
// the catalog itself needs no locking.
func buildCatalog(logger *slog.Logger, digester digest.Digester, paths []string) (*catalog.Catalog, error) {
	type seeded struct {
		file    *content.File
		elapsed time.Duration
	}
	results := make([]seeded, len(paths))

	builders := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0)).WithErrors()
	for i, path := range paths {
		builders.Go(func() error {
			start := time.Now()
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening seed file %s: %w", path, err)
			}
			defer f.Close()

			file, err := content.FromReader(digester, f)
			if err != nil {
				return fmt.Errorf("seeding %s: %w", path, err)
			}
			results[i] = seeded{file: file, elapsed: time.Since(start)}
			return nil
		})
	}
	if err := builders.Wait(); err != nil {
		return nil, err
	}

	fileCatalog := catalog.New()
	for i, result := range results {
		rootHex := fileCatalog.Add(result.file)
		logger.Info("seeded file",
			"path", paths[i],
			"root", rootHex,
			"pieces", result.file.ChunkCount(),
			"bytes", result.file.ContentLength(),
			"duration", result.elapsed)
	}
	return fileCatalog, nil
}
