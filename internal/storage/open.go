package storage

import (
	"context"
	"fmt"
	"strings"
)

// Config selects a BlobStore. Driver is "fs" (default) or "s3".
type Config struct {
	Driver  string
	Path    string
	BaseURL string
	S3      S3Options
}

func Open(ctx context.Context, cfg Config) (BlobStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "fs":
		return NewFileStore(cfg.Path, cfg.BaseURL)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
