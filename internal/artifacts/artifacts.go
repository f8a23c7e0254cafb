// Package artifacts stores run reports in object storage.
package artifacts

import (
	"context"
	"io"
	"strings"
)

// Storage defines the interface for artifact storage operations.
type Storage interface {
	// Type returns the storage backend name
	Type() string

	// Save writes data under key, relative to the storage prefix
	Save(ctx context.Context, key string, contentType string, data io.Reader) error
}

// joinKey prefixes key with prefix, tolerating trailing and leading slashes.
func joinKey(prefix, key string) string {
	key = strings.TrimPrefix(key, "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
