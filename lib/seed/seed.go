// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package seed parses the daemon's seed manifest: a human-edited
// JSONC file (JSON extended with // line comments, /* block
// comments */, and trailing commas) listing the files to serve.
// Entries may be globs; Resolve expands them relative to the
// manifest's own directory, so a manifest can travel with the data
// it describes.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Manifest is a parsed seed manifest.
type Manifest struct {
	// Files lists the content to serve.
	Files []Entry `json:"files"`
}

// Entry is one manifest entry.
type Entry struct {
	// Path is a file path or glob, relative to the manifest's
	// directory unless absolute.
	Path string `json:"path"`
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals the result into a Manifest.
func Parse(data []byte) (*Manifest, error) {
	stripped := jsonc.ToJSON(data)

	var manifest Manifest
	if err := json.Unmarshal(stripped, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	return &manifest, nil
}

// ReadFile reads and parses a JSONC manifest from disk.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	manifest, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return manifest, nil
}

// Resolve expands every entry's glob relative to baseDir (the
// manifest's directory) and returns the matched paths in entry
// order, de-duplicated. An entry that matches nothing is an error: a
// manifest silently serving less than it promises is a
// misconfiguration, not an empty glob.
func (m *Manifest) Resolve(baseDir string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	for _, entry := range m.Files {
		if entry.Path == "" {
			return nil, fmt.Errorf("manifest entry has an empty path")
		}

		pattern := entry.Path
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", entry.Path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("entry %q matches no files", entry.Path)
		}

		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				paths = append(paths, match)
			}
		}
	}

	return paths, nil
}
