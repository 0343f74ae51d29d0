package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidKey   = errors.New("storage: invalid key")
	ErrBlobNotFound = errors.New("storage: blob not found")
)

// BlobStore keeps uploaded and generated images and exposes them by URL.
type BlobStore interface {
	// Put writes data under key and returns the public URL of the object.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// KeyFromURL maps a public URL produced by Put back to its key.
	KeyFromURL(publicURL string) (string, bool)
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimLeft(strings.TrimPrefix(key, "./"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func keyFromURL(base, publicURL string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if base == "" || !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	key, err := sanitizeKey(strings.TrimPrefix(publicURL, prefix))
	if err != nil {
		return "", false
	}
	return key, true
}
