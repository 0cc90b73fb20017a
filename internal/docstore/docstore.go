// Package docstore defines a small document database: JSON documents in named
// collections with equality and range filters, ordering, limits, batched
// writes and live query subscriptions.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Op is a filter comparison operator.
type Op string

const (
	Eq  Op = "=="
	Ne  Op = "!="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

// Filter restricts a query to documents whose top-level Field compares to Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Order sorts query results by a top-level field.
type Order struct {
	Field string
	Desc  bool
}

// Asc and Desc build Orders.
func Asc(field string) Order  { return Order{Field: field} }
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// Query selects documents from one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    []Order
	Limit      int
}

// Document is a stored document. Data holds the decoded JSON object.
type Document struct {
	ID         string
	Collection string
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// Store is implemented by every backend.
type Store interface {
	// Add stores data under a new generated id and returns the id.
	Add(ctx context.Context, collection string, data any) (string, error)
	// Set writes data under id. With merge, fields are merged into an
	// existing document instead of replacing it.
	Set(ctx context.Context, collection, id string, data any, merge bool) error
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Update overwrites the given top-level fields of an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document; deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]*Document, error)
	Batch() Batch
	// Subscribe calls fn with the current result of q and again after every
	// write to q's collection until ctx ends or the returned cancel is called.
	Subscribe(ctx context.Context, q Query, fn func([]*Document)) (cancel func(), err error)
	Close() error
}

// Batch queues writes that are committed together.
type Batch interface {
	Set(collection, id string, data any, merge bool)
	Update(collection, id string, fields map[string]any)
	Delete(collection, id string)
	Commit(ctx context.Context) error
}

// WriteKind names a queued batch write.
type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteMerge
	WriteUpdate
	WriteDelete
)

// Write is one queued batch operation. Backends share the queueing in Writes.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Fields     map[string]any
	Err        error
}

// Writes accumulates batch operations, converting data eagerly so that
// conversion errors surface at Commit.
type Writes struct {
	Ops []Write
}

func (w *Writes) Set(collection, id string, data any, merge bool) {
	fields, err := Fields(data)
	kind := WriteSet
	if merge {
		kind = WriteMerge
	}
	w.Ops = append(w.Ops, Write{Kind: kind, Collection: collection, ID: id, Fields: fields, Err: err})
}

func (w *Writes) Update(collection, id string, fields map[string]any) {
	f, err := Fields(fields)
	w.Ops = append(w.Ops, Write{Kind: WriteUpdate, Collection: collection, ID: id, Fields: f, Err: err})
}

func (w *Writes) Delete(collection, id string) {
	w.Ops = append(w.Ops, Write{Kind: WriteDelete, Collection: collection, ID: id})
}

// Check returns the first conversion or validation error among the queued writes.
func (w *Writes) Check() error {
	for _, op := range w.Ops {
		if op.Err != nil {
			return fmt.Errorf("batch %s/%s: %w", op.Collection, op.ID, op.Err)
		}
		if err := ValidateName(op.Collection, op.ID); err != nil {
			return err
		}
	}
	return nil
}

// Collections lists the distinct collections touched by the batch.
func (w *Writes) Collections() []string {
	seen := map[string]bool{}
	var out []string
	for _, op := range w.Ops {
		if !seen[op.Collection] {
			seen[op.Collection] = true
			out = append(out, op.Collection)
		}
	}
	return out
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField reports whether name can be used in filters and orderings.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// ValidateName rejects empty collection names and ids.
func ValidateName(collection, id string) error {
	if collection == "" {
		return fmt.Errorf("docstore: collection is required")
	}
	if id == "" {
		return fmt.Errorf("docstore: document id is required")
	}
	return nil
}

// ValidateQuery checks a query's collection and field names.
func ValidateQuery(q Query) error {
	if q.Collection == "" {
		return fmt.Errorf("docstore: collection is required")
	}
	for _, f := range q.Filters {
		if !ValidField(f.Field) {
			return fmt.Errorf("docstore: invalid filter field %q", f.Field)
		}
		switch f.Op {
		case Eq, Ne, Lt, Lte, Gt, Gte:
		default:
			return fmt.Errorf("docstore: invalid operator %q", f.Op)
		}
	}
	for _, o := range q.OrderBy {
		if !ValidField(o.Field) {
			return fmt.Errorf("docstore: invalid order field %q", o.Field)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("docstore: negative limit")
	}
	return nil
}
