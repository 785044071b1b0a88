// Package manifest is the imperative shell around the pure manifest parser:
// it lists definition directories and reads their manifest files into a
// populated registry.
package manifest

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	coremanifest "github.com/defbuild/defbuild/internal/core/manifest"
	"github.com/defbuild/defbuild/internal/core/registry"
	"github.com/defbuild/defbuild/internal/core/tags"
)

// FileName is the manifest file expected inside each definition directory.
const FileName = "manifest.yaml"

// Loader reads definition manifests from a filesystem. Tests run it against
// an in-memory afero filesystem.
type Loader struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewLoader creates a loader over the given filesystem.
func NewLoader(fs afero.Fs, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fs: fs, logger: logger}
}

// ListDefinitions returns the definition ids (directory names) under root,
// sorted for deterministic registry order. Directories without a manifest
// file are skipped.
func (l *Loader) ListDefinitions(root string) ([]string, error) {
	entries, err := afero.ReadDir(l.fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions in %s: %w", root, err)
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifestPath := filepath.Join(root, entry.Name(), FileName)
		if ok, _ := afero.Exists(l.fs, manifestPath); !ok {
			l.logger.Debug("skipping directory without manifest", "dir", entry.Name())
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// Load populates a registry from every definition directory under root and
// builds the tag reverse-lookup index over the result. The registry is
// read-only once Load returns.
func (l *Loader) Load(root string) (*registry.Registry, *tags.Lookup, error) {
	ids, err := l.ListDefinitions(root)
	if err != nil {
		return nil, nil, err
	}

	reg := registry.New()
	for _, id := range ids {
		content, err := afero.ReadFile(l.fs, filepath.Join(root, id, FileName))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read manifest for %s: %w", id, err)
		}
		def, err := coremanifest.Parse(content)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse manifest for %s: %w", id, err)
		}
		if def.Deprecated {
			l.logger.Info("dropping deprecated definition", "id", id)
		}
		reg.Add(id, def)
	}

	l.logger.Info("registry populated", "definitions", len(reg.IDs()))
	return reg, tags.BuildLookup(reg), nil
}
