package gcs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrObjectNotFound is returned when an object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore provides the object operations backups need, scoped to one
// bucket. It enables swapping Cloud Storage for an in-memory store in tests.
type ObjectStore interface {
	// Put writes data under name, replacing any existing object.
	Put(ctx context.Context, name, contentType string, data []byte) error

	// Get reads the object called name.
	Get(ctx context.Context, name string) ([]byte, error)

	// List returns the names of objects starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// URI returns the gs:// URI of name.
	URI(name string) string
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI extracts the last path element from a GCS URI.
// e.g., "gs://bucket/backups/u1/20240315T120000Z.json" → "20240315T120000Z.json"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}

	return path.Base(parts[1])
}
