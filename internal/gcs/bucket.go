package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Bucket is the Cloud Storage implementation of ObjectStore.
// It assumes Application Default Credentials are configured.
type Bucket struct {
	client *storage.Client
	name   string
}

// NewBucket creates a storage client bound to bucket name.
func NewBucket(ctx context.Context, name string) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("NewBucket: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewBucket: create storage client: %w", err)
	}
	return &Bucket{client: client, name: name}, nil
}

// Close closes the storage client.
func (b *Bucket) Close() error {
	return b.client.Close()
}

// Put implements ObjectStore.
func (b *Bucket) Put(ctx context.Context, name, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := b.client.Bucket(b.name).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("Put %s: copy to GCS writer: %w", name, err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("Put %s: finalize upload: %w", name, err)
	}
	return nil
}

// Get implements ObjectStore.
func (b *Bucket) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := b.client.Bucket(b.name).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("Get %s: %w", name, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get %s: open GCS object reader: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Get %s: read GCS object: %w", name, err)
	}
	return data, nil
}

// List implements ObjectStore.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.client.Bucket(b.name).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("List %s: iter next: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	sort.Strings(names)
	return names, nil
}

// URI implements ObjectStore.
func (b *Bucket) URI(name string) string {
	return "gs://" + b.name + "/" + name
}

var _ ObjectStore = (*Bucket)(nil)
