// Package storage keeps uploaded objects (property images, avatars) and hands
// out time-limited signed URLs for reading them.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/evcraddock/house-market/internal/errs"
)

// Store is an object store addressed by slash-separated keys.
type Store interface {
	// Upload writes r under key and returns the stored key.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// SignedURL returns a URL that grants read access to key until ttl elapses.
	SignedURL(key string, ttl time.Duration) (string, error)
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Open returns the object at key and its content type.
	Open(key string) (io.ReadCloser, string, error)
}

// CleanKey normalizes key and rejects anything that could escape the store.
func CleanKey(key string) (string, error) {
	if strings.ContainsRune(key, '\\') || strings.ContainsRune(key, 0) {
		return "", fmt.Errorf("%w: object key %q", errs.ErrInvalid, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: object key %q", errs.ErrInvalid, key)
		}
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: empty object key", errs.ErrInvalid)
	}
	return cleaned, nil
}

// SafeName reduces an uploaded file name to characters safe in a key.
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}

	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
