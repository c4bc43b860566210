package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"imageresizer/shared/log"
)

// LocalStore writes files below a root directory.
type LocalStore struct {
	root   string
	logger *zap.Logger
}

func NewLocalStore(root string, logger *zap.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve store root %s: %w", root, err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create store root %s: %w", abs, err)
	}

	return &LocalStore{root: abs, logger: logger}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

// Put returns a file:// URL.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	logger := log.LoggerWithTrace(ctx, s.logger)

	cleaned, err := cleanName(name)
	if err != nil {
		logger.Error(err.Error(), zap.String("name", name))
		return "", fmt.Errorf("%w: %s", err, name)
	}

	fullPath := filepath.Join(s.root, filepath.FromSlash(cleaned))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		logger.Error("Error creating directory", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("create directory for %s: %w", name, err)
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		logger.Error("Error writing file", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	logger.Debug("Stored file", zap.String("path", fullPath), zap.Int("bytes", len(data)))

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(fullPath)}).String(), nil
}
