package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of docstore.Store.
// It is safe for concurrent use. Data is lost when the process exits.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]map[string]*docstore.Document
	notifier *docstore.Notifier
	now      func() time.Time
}

// NewStore creates an empty in-memory document store.
func NewStore() *Store {
	return &Store{
		docs:     make(map[string]map[string]*docstore.Document),
		notifier: docstore.NewNotifier(),
		now:      func() time.Time { return time.Now().UTC() },
	}
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

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("Get %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return copyDoc(doc), nil
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

// Query implements docstore.Store.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := docstore.ValidateQuery(q); err != nil {
		return nil, err
	}
	nq, err := docstore.NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	all := make([]*docstore.Document, 0, len(s.docs[q.Collection]))
	for _, d := range s.docs[q.Collection] {
		all = append(all, copyDoc(d))
	}
	s.mu.RUnlock()

	return docstore.Apply(all, nq), nil
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

// Close stops all subscriptions.
func (s *Store) Close() error {
	s.notifier.Close()
	return nil
}

type batch struct {
	docstore.Writes
	store *Store
}

// Commit applies every queued write or none of them.
func (b *batch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.Check(); err != nil {
		return err
	}
	if len(b.Ops) == 0 {
		return nil
	}

	s := b.store
	s.mu.Lock()

	// Stage against a shadow view so a failing op leaves the store untouched.
	staged := make(map[string]map[string]*docstore.Document)
	lookup := func(coll, id string) (*docstore.Document, bool) {
		if c, ok := staged[coll]; ok {
			if d, ok := c[id]; ok {
				return d, d != nil
			}
		}
		d, ok := s.docs[coll][id]
		return d, ok
	}
	stage := func(coll, id string, d *docstore.Document) {
		if staged[coll] == nil {
			staged[coll] = make(map[string]*docstore.Document)
		}
		staged[coll][id] = d
	}

	now := s.now()
	for _, op := range b.Ops {
		existing, exists := lookup(op.Collection, op.ID)
		switch op.Kind {
		case docstore.WriteSet, docstore.WriteMerge:
			doc := &docstore.Document{ID: op.ID, Collection: op.Collection, CreateTime: now, UpdateTime: now}
			data := docstore.Clone(op.Fields)
			if exists {
				doc.CreateTime = existing.CreateTime
				if op.Kind == docstore.WriteMerge {
					data = docstore.Merge(docstore.Clone(existing.Data), data)
				}
			}
			doc.Data = data
			stage(op.Collection, op.ID, doc)
		case docstore.WriteUpdate:
			if !exists {
				s.mu.Unlock()
				return fmt.Errorf("Update %s/%s: %w", op.Collection, op.ID, docstore.ErrNotFound)
			}
			data := docstore.Clone(existing.Data)
			for k, v := range docstore.Clone(op.Fields) {
				data[k] = v
			}
			stage(op.Collection, op.ID, &docstore.Document{
				ID: op.ID, Collection: op.Collection, Data: data,
				CreateTime: existing.CreateTime, UpdateTime: now,
			})
		case docstore.WriteDelete:
			stage(op.Collection, op.ID, nil)
		}
	}

	for coll, docs := range staged {
		if s.docs[coll] == nil {
			s.docs[coll] = make(map[string]*docstore.Document)
		}
		for id, d := range docs {
			if d == nil {
				delete(s.docs[coll], id)
				continue
			}
			s.docs[coll][id] = d
		}
	}
	s.mu.Unlock()

	s.notifier.Publish(b.Collections()...)
	return nil
}

func copyDoc(d *docstore.Document) *docstore.Document {
	c := *d
	c.Data = docstore.Clone(d.Data)
	return &c
}

// Ensure Store implements docstore.Store.
var _ docstore.Store = (*Store)(nil)
