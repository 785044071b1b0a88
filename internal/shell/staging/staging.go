// Package staging copies definition directories into disposable staging
// folders for downstream packaging. Folders are tracked per Stager value so
// cleanup never depends on shared global state.
package staging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Stager creates and removes uuid-named staging folders under a root.
type Stager struct {
	fs     afero.Fs
	root   string
	logger *slog.Logger

	created []string
}

// NewStager creates a stager writing under root on the given filesystem.
func NewStager(fs afero.Fs, root string, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{fs: fs, root: root, logger: logger}
}

// Stage copies the definition directory into a fresh uuid-named folder and
// returns the folder path.
func (s *Stager) Stage(definitionDir string) (string, error) {
	info, err := s.fs.Stat(definitionDir)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", definitionDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", definitionDir)
	}

	dest := filepath.Join(s.root, uuid.New().String()[:8])
	if err := s.fs.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging folder: %w", err)
	}
	if err := s.copyTree(definitionDir, dest); err != nil {
		return "", err
	}

	s.created = append(s.created, dest)
	s.logger.Info("staged definition", "source", definitionDir, "staging", dest)
	return dest, nil
}

// Cleanup removes every staging folder this stager created.
func (s *Stager) Cleanup() error {
	var firstErr error
	for _, dir := range s.created {
		if err := s.fs.RemoveAll(dir); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove staging folder %s: %w", dir, err)
		}
	}
	s.created = nil
	return firstErr
}

// Folders returns the staging folders created so far.
func (s *Stager) Folders() []string {
	out := make([]string, len(s.created))
	copy(out, s.created)
	return out
}

func (s *Stager) copyTree(src, dest string) error {
	return afero.Walk(s.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return s.fs.MkdirAll(target, info.Mode().Perm())
		}
		content, err := afero.ReadFile(s.fs, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := afero.WriteFile(s.fs, target, content, info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		return nil
	})
}
