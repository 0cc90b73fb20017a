// Package sqlite stores documents as JSON rows in a single SQLite table and
// compiles docstore filters to json_extract expressions.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a docstore.Store backed by SQLite.
type Store struct {
	db       *sql.DB
	notifier *docstore.Notifier
	now      func() time.Time
}

// Open opens (creating if needed) the database at path and applies migrations.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("Open: database path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: sql open: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("Open: ping: %w", err)
	}
	if err := applyMigrations(ctx, db, migrationFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("Open: migrate: %w", err)
	}

	return &Store{
		db:       db,
		notifier: docstore.NewNotifier(),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Add implements docstore.Store.
func (s *Store) Add(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, collection, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

// Set implements docstore.Store.
func (s *Store) Set(ctx context.Context, collection, id string, data any, merge bool) error {
	b := s.Batch()
	b.Set(collection, id, data, merge)
	return b.Commit(ctx)
}

// Update implements docstore.Store.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	b := s.Batch()
	b.Update(collection, id, fields)
	return b.Commit(ctx)
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	b := s.Batch()
	b.Delete(collection, id)
	return b.Commit(ctx)
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, data, create_time, update_time FROM documents WHERE collection = ? AND id = ?`,
		collection, id)
	doc, err := scanDocument(row, collection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("Get %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Query implements docstore.Store.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := docstore.ValidateQuery(q); err != nil {
		return nil, err
	}
	nq, err := docstore.NormalizeQuery(q)
	if err != nil {
		return nil, err
	}
	stmt, args, err := buildSelect(nq)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("Query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var out []*docstore.Document
	for rows.Next() {
		doc, err := scanDocument(rows, q.Collection)
		if err != nil {
			return nil, fmt.Errorf("Query %s: scan: %w", q.Collection, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Query %s: rows: %w", q.Collection, err)
	}
	return out, nil
}

// Subscribe implements docstore.Store.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn func([]*docstore.Document)) (func(), error) {
	if err := docstore.ValidateQuery(q); err != nil {
		return nil, err
	}
	return s.notifier.Subscribe(ctx, q, s.Query, fn)
}

// Batch implements docstore.Store.
func (s *Store) Batch() docstore.Batch {
	return &batch{store: s}
}

// Close stops subscriptions and closes the database.
func (s *Store) Close() error {
	s.notifier.Close()
	return s.db.Close()
}

type batch struct {
	docstore.Writes
	store *Store
}

// Commit applies the queued writes in one SQL transaction.
func (b *batch) Commit(ctx context.Context) error {
	if err := b.Check(); err != nil {
		return err
	}
	if len(b.Ops) == 0 {
		return nil
	}

	s := b.store
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Commit: begin: %w", err)
	}
	now := s.now().UnixMilli()

	for _, op := range b.Ops {
		if err := applyWrite(ctx, tx, op, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Commit: %w", err)
	}

	s.notifier.Publish(b.Collections()...)
	return nil
}

func applyWrite(ctx context.Context, tx *sql.Tx, op docstore.Write, now int64) error {
	if op.Kind == docstore.WriteDelete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID); err != nil {
			return fmt.Errorf("Delete %s/%s: %w", op.Collection, op.ID, err)
		}
		return nil
	}

	var existing map[string]any
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID).Scan(&raw)
	found := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read %s/%s: %w", op.Collection, op.ID, err)
	}
	if found {
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			return fmt.Errorf("read %s/%s: decode: %w", op.Collection, op.ID, err)
		}
	}

	data := op.Fields
	switch op.Kind {
	case docstore.WriteMerge:
		if found {
			data = docstore.Merge(existing, op.Fields)
		}
	case docstore.WriteUpdate:
		if !found {
			return fmt.Errorf("Update %s/%s: %w", op.Collection, op.ID, docstore.ErrNotFound)
		}
		for k, v := range op.Fields {
			existing[k] = v
		}
		data = existing
	}
	if data == nil {
		data = map[string]any{}
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("write %s/%s: encode: %w", op.Collection, op.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, create_time, update_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			update_time = excluded.update_time`,
		op.Collection, op.ID, string(encoded), now, now,
	); err != nil {
		return fmt.Errorf("write %s/%s: %w", op.Collection, op.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner, collection string) (*docstore.Document, error) {
	var (
		id                 string
		raw                string
		createMS, updateMS int64
	)
	if err := sc.Scan(&id, &raw, &createMS, &updateMS); err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return &docstore.Document{
		ID:         id,
		Collection: collection,
		Data:       data,
		CreateTime: time.UnixMilli(createMS).UTC(),
		UpdateTime: time.UnixMilli(updateMS).UTC(),
	}, nil
}

// Ensure Store implements docstore.Store.
var _ docstore.Store = (*Store)(nil)
