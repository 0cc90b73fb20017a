package main

import (
	"io"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/google/go-cmp/cmp"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_transactions.sql", true, 1, "create_transactions"},
		{"0012_add_index.sql", true, 12, "add_index"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"0000_zero.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseFilename(tt.filename)
			if ok != tt.valid || version != tt.version || name != tt.name {
				t.Errorf("parseFilename(%q) = %d, %q, %v; want %d, %q, %v",
					tt.filename, version, name, ok, tt.version, tt.name, tt.valid)
			}
		})
	}
}

func TestChecksumIgnoresPlaceholders(t *testing.T) {
	a := []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.t` (id INT64);")
	b := []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.u` (id INT64);")

	if checksum(a) != checksum(a) {
		t.Error("checksum is not stable")
	}
	if checksum(a) == checksum(b) {
		t.Error("different content produced the same checksum")
	}
	if got := render(a, "p", "d"); got != "CREATE TABLE `p.d.t` (id INT64);" {
		t.Errorf("render() = %q", got)
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_second.sql": {Data: []byte("SELECT 2 FROM `{{DATASET_ID}}.x`")},
		"0001_first.sql":  {Data: []byte("SELECT 1")},
		"README.md":       {Data: []byte("notes")},
		"archive":         {Mode: fs.ModeDir | 0o755},
	}

	got, err := readMigrations(logger.NewWithWriter(io.Discard), fsys, "proj", "ds")
	if err != nil {
		t.Fatalf("readMigrations: %v", err)
	}

	var names []string
	for _, m := range got {
		names = append(names, m.Filename)
	}
	if diff := cmp.Diff([]string{"0001_first.sql", "0002_second.sql"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if got[1].SQL != "SELECT 2 FROM `ds.x`" {
		t.Errorf("SQL = %q", got[1].SQL)
	}
}

func TestReadMigrationsRejectsDuplicateVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1")},
		"0001_b.sql": {Data: []byte("SELECT 2")},
	}
	_, err := readMigrations(logger.NewWithWriter(io.Discard), fsys, "p", "d")
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("err = %v, want duplicate version error", err)
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}

	pending, err := pendingMigrations(all, []AppliedMigration{{Version: 1, Checksum: "c1"}, {Version: 2}})
	if err != nil {
		t.Fatalf("pendingMigrations: %v", err)
	}
	if len(pending) != 1 || pending[0].Version != 3 {
		t.Errorf("pending = %+v, want only version 3", pending)
	}

	if _, err := pendingMigrations(all, []AppliedMigration{{Version: 1, Checksum: "edited"}}); err == nil {
		t.Error("expected an error for a changed migration")
	}
}
