// Package local stores attachment objects on the local filesystem. It has
// no directly-servable URL; bytes are streamed through the output endpoint.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"attachment-manager-api/config"
	"attachment-manager-api/internal/domain/attachment"
)

type Disk struct {
	logger   *zap.Logger
	basePath string
}

func New(logger *zap.Logger, cfg config.Storage) (*Disk, error) {
	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("local storage path is required")
	}
	if err := os.MkdirAll(cfg.LocalPath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	return &Disk{
		logger:   logger,
		basePath: cfg.LocalPath,
	}, nil
}

func (d *Disk) Put(_ context.Context, r io.Reader, _ int64, suggestedName string) (string, error) {
	key := filepath.ToSlash(filepath.Clean(suggestedName))
	if key == "." || strings.HasPrefix(key, "../") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: bad storage key %q", attachment.ErrInvalidArgument, suggestedName)
	}

	full := filepath.Join(d.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("%w: create dir: %v", attachment.ErrStorageFailure, err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("%w: create file: %v", attachment.ErrStorageFailure, err)
	}
	defer f.Close()

	if _, err = io.Copy(f, r); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("%w: write file: %v", attachment.ErrStorageFailure, err)
	}

	return key, nil
}

func (d *Disk) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.basePath, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", attachment.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: open file: %v", attachment.ErrStorageFailure, err)
	}
	return f, nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	full := filepath.Join(d.basePath, filepath.FromSlash(key))
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove file: %v", attachment.ErrStorageFailure, err)
	}
	// drop the per-attachment dir when it became empty
	_ = os.Remove(filepath.Dir(full))
	return nil
}

func (d *Disk) PublicURL(string) string { return "" }
