package gcs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://ledger/backups/u1/a.json", "ledger", "backups/u1/a.json", false},
		{"gs://ledger/a", "ledger", "a", false},
		{"gs://ledger", "", "", true},
		{"gs://ledger/", "", "", true},
		{"gs:///a", "", "", true},
		{"s3://ledger/a", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || object != tt.object {
				t.Errorf("ParseURI() = %q, %q", bucket, object)
			}
		})
	}
}

func TestFilenameFromURI(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/backups/u1/20240315T120000Z.json": "20240315T120000Z.json",
		"gs://bucket/file.json":                        "file.json",
		"gs://bucket":                                  "bucket",
	}
	for uri, want := range tests {
		if got := FilenameFromURI(uri); got != want {
			t.Errorf("FilenameFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("test")

	data := []byte(`{"a":1}`)
	for _, name := range []string{"b/2.json", "a/1.json", "b/1.json"} {
		if err := m.Put(ctx, name, "application/json", data); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	data[0] = 'X'

	got, err := m.Get(ctx, "a/1.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("Get() = %s; stored data was aliased", got)
	}

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Get missing error = %v", err)
	}

	names, err := m.List(ctx, "b/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"b/1.json", "b/2.json"}, names); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	if uri := m.URI("a/1.json"); uri != "gs://test/a/1.json" {
		t.Errorf("URI() = %q", uri)
	}
}
