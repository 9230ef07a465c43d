// Package storage puts uploaded files somewhere they can be fetched by URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/nurpe/haulops/internal/config"
)

var ErrInvalidKey = errors.New("invalid storage key")

type Storage interface {
	// Put stores data under key and returns the URL it is served from.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// New builds the backend selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case config.StorageDriverLocal:
		return NewLocal(cfg.LocalDir, cfg.PublicURL)
	case config.StorageDriverS3:
		return NewS3(ctx, cfg.S3, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// cleanKey rejects absolute keys and keys escaping the storage root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
