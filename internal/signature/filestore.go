// Package signature stores signature images on the local filesystem under a
// base directory. Stored paths are relative to that directory.
package signature

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/models"

	"github.com/google/uuid"
)

type FileStore struct {
	baseDir string
	logger  logger.Logger
}

func NewFileStore(baseDir string, log logger.Logger) (*FileStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("signature base directory is required")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve signature directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create signature directory: %w", err)
	}
	return &FileStore{
		baseDir: abs,
		logger:  log.WithFields(map[string]interface{}{"component": "signature"}),
	}, nil
}

// Save writes image as <applicationID>/<role>-<random>.<ext> and returns that path.
// The file appears atomically.
func (s *FileStore) Save(_ context.Context, applicationID string, role models.Role, image []byte, ext string) (string, error) {
	if !safeSegment(applicationID) || !safeSegment(string(role)) || !safeSegment(ext) {
		return "", fmt.Errorf("invalid signature location %q/%q.%q", applicationID, role, ext)
	}

	rel := filepath.Join(applicationID, fmt.Sprintf("%s-%s.%s", role, uuid.NewString()[:8], ext))
	full := filepath.Join(s.baseDir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create application directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write signature: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close signature: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("store signature: %w", err)
	}

	s.logger.Debug("signature stored", map[string]interface{}{
		"applicationId": applicationID,
		"role":          role,
		"bytes":         len(image),
	})
	return filepath.ToSlash(rel), nil
}

func (s *FileStore) Load(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Remove deletes a stored image; a missing file is not an error.
func (s *FileStore) Remove(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStore) resolve(path string) (string, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.baseDir, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(path) {
		return "", fmt.Errorf("signature path %q escapes the store", path)
	}
	return full, nil
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
