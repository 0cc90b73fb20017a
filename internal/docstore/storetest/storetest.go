// Package storetest holds behaviour tests shared by every docstore backend.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/google/go-cmp/cmp"
)

// Factory returns a fresh, empty store. The test closes it.
type Factory func(t *testing.T) docstore.Store

// Run exercises the docstore.Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s docstore.Store)
	}{
		{"AddGet", testAddGet},
		{"SetReplaceAndMerge", testSetReplaceAndMerge},
		{"UpdateMissing", testUpdateMissing},
		{"DeleteIdempotent", testDeleteIdempotent},
		{"QueryFiltersOrderLimit", testQuery},
		{"QueryKinds", testQueryKinds},
		{"BatchAtomic", testBatchAtomic},
		{"Subscribe", testSubscribe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

type item struct {
	ID     string  `json:"id,omitempty"`
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Paid   bool    `json:"paid"`
}

func testAddGet(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	id, err := s.Add(ctx, "items", item{UserID: "u1", Name: "a", Amount: 1.5})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Fatal("Add returned empty id")
	}

	doc, err := s.Get(ctx, "items", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var got item
	if err := docstore.Decode(doc, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := item{ID: id, UserID: "u1", Name: "a", Amount: 1.5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("item mismatch (-want +got):\n%s", diff)
	}
	if doc.CreateTime.IsZero() || doc.UpdateTime.IsZero() {
		t.Errorf("timestamps not set: %+v", doc)
	}

	if _, err := s.Get(ctx, "items", "nope"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Get missing error = %v, want ErrNotFound", err)
	}
}

func testSetReplaceAndMerge(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	if err := s.Set(ctx, "users", "u1", map[string]any{
		"name":        "Ana",
		"preferences": map[string]any{"dark": true},
	}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "users", "u1", map[string]any{
		"preferences": map[string]any{"sound": false},
	}, true); err != nil {
		t.Fatalf("Set merge: %v", err)
	}
	doc, err := s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := map[string]any{"name": "Ana", "preferences": map[string]any{"dark": true, "sound": false}}
	if diff := cmp.Diff(want, doc.Data); diff != "" {
		t.Errorf("merged data mismatch (-want +got):\n%s", diff)
	}

	if err := s.Set(ctx, "users", "u1", map[string]any{"name": "Bia"}, false); err != nil {
		t.Fatalf("Set replace: %v", err)
	}
	doc, err = s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "Bia"}, doc.Data); diff != "" {
		t.Errorf("replaced data mismatch (-want +got):\n%s", diff)
	}
}

func testUpdateMissing(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	err := s.Update(ctx, "items", "missing", map[string]any{"name": "x"})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Update missing error = %v, want ErrNotFound", err)
	}

	id, err := s.Add(ctx, "items", item{Name: "a", Amount: 1})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Update(ctx, "items", id, map[string]any{"amount": 7}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	doc, err := s.Get(ctx, "items", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Data["amount"] != float64(7) || doc.Data["name"] != "a" {
		t.Errorf("unexpected data after update: %v", doc.Data)
	}
}

func testDeleteIdempotent(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	id, err := s.Add(ctx, "items", item{Name: "a"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Delete(ctx, "items", id); err != nil {
			t.Fatalf("Delete #%d: %v", i+1, err)
		}
	}
	if _, err := s.Get(ctx, "items", id); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}

func seed(t *testing.T, s docstore.Store, items map[string]item) {
	t.Helper()
	b := s.Batch()
	for id, it := range items {
		b.Set("items", id, it, false)
	}
	if err := b.Commit(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func ids(docs []*docstore.Document) []string {
	out := []string{}
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func testQuery(t *testing.T, s docstore.Store) {
	seed(t, s, map[string]item{
		"a": {UserID: "u1", Amount: 30, Date: "2024-03-10"},
		"b": {UserID: "u1", Amount: 10, Date: "2024-03-20"},
		"c": {UserID: "u1", Amount: 20, Date: "2024-02-28"},
		"d": {UserID: "u2", Amount: 99, Date: "2024-03-15"},
		"e": {UserID: "u1", Amount: 20, Date: "2024-03-01"},
	})

	tests := []struct {
		name string
		q    docstore.Query
		want []string
	}{
		{
			name: "owner ordered by date desc",
			q: docstore.Query{
				Filters: []docstore.Filter{docstore.Where("userId", docstore.Eq, "u1")},
				OrderBy: []docstore.Order{docstore.Desc("date")},
			},
			want: []string{"b", "a", "e", "c"},
		},
		{
			name: "month range",
			q: docstore.Query{
				Filters: []docstore.Filter{
					docstore.Where("userId", docstore.Eq, "u1"),
					docstore.Where("date", docstore.Gte, "2024-03-01"),
					docstore.Where("date", docstore.Lte, "2024-03-31"),
				},
				OrderBy: []docstore.Order{docstore.Asc("date")},
			},
			want: []string{"e", "a", "b"},
		},
		{
			name: "amount ties break by id",
			q: docstore.Query{
				Filters: []docstore.Filter{docstore.Where("amount", docstore.Eq, 20)},
				OrderBy: []docstore.Order{docstore.Asc("amount")},
			},
			want: []string{"c", "e"},
		},
		{
			name: "limit",
			q: docstore.Query{
				OrderBy: []docstore.Order{docstore.Desc("amount")},
				Limit:   2,
			},
			want: []string{"d", "a"},
		},
		{
			name: "not equal",
			q: docstore.Query{
				Filters: []docstore.Filter{docstore.Where("userId", docstore.Ne, "u1")},
			},
			want: []string{"d"},
		},
		{
			name: "greater than",
			q: docstore.Query{
				Filters: []docstore.Filter{docstore.Where("amount", docstore.Gt, 20)},
				OrderBy: []docstore.Order{docstore.Asc("amount")},
			},
			want: []string{"a", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.q.Collection = "items"
			docs, err := s.Query(context.Background(), tt.q)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(docs)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func testQueryKinds(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	b := s.Batch()
	b.Set("mixed", "num", map[string]any{"v": 5, "flag": true}, false)
	b.Set("mixed", "str", map[string]any{"v": "5", "flag": false}, false)
	b.Set("mixed", "nil", map[string]any{"v": nil}, false)
	b.Set("mixed", "none", map[string]any{"other": 1}, false)
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tests := []struct {
		name   string
		filter docstore.Filter
		want   []string
	}{
		{"number eq ignores string", docstore.Where("v", docstore.Eq, 5), []string{"num"}},
		{"string eq ignores number", docstore.Where("v", docstore.Eq, "5"), []string{"str"}},
		{"range same kind only", docstore.Where("v", docstore.Gte, 0), []string{"num"}},
		{"null eq", docstore.Where("v", docstore.Eq, nil), []string{"nil"}},
		{"ne skips missing field", docstore.Where("v", docstore.Ne, 5), []string{"nil", "str"}},
		{"bool eq", docstore.Where("flag", docstore.Eq, true), []string{"num"}},
		{"bool ne", docstore.Where("flag", docstore.Ne, true), []string{"str"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := s.Query(ctx, docstore.Query{Collection: "mixed", Filters: []docstore.Filter{tt.filter}})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(docs)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func testBatchAtomic(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	seed(t, s, map[string]item{"a": {Name: "a"}})

	b := s.Batch()
	b.Set("items", "b", item{Name: "b"}, false)
	b.Delete("items", "a")
	b.Update("items", "missing", map[string]any{"name": "x"})
	if err := b.Commit(ctx); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Commit error = %v, want ErrNotFound", err)
	}

	docs, err := s.Query(ctx, docstore.Query{Collection: "items"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, ids(docs)); diff != "" {
		t.Errorf("failed batch changed the store (-want +got):\n%s", diff)
	}

	b = s.Batch()
	b.Set("items", "b", item{Name: "b"}, false)
	b.Update("items", "a", map[string]any{"name": "A"})
	b.Set("other", "z", item{Name: "z"}, false)
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	doc, err := s.Get(ctx, "items", "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Data["name"] != "A" {
		t.Errorf("name = %v, want A", doc.Data["name"])
	}
	if _, err := s.Get(ctx, "other", "z"); err != nil {
		t.Errorf("Get other/z: %v", err)
	}
}

func testSubscribe(t *testing.T, s docstore.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var snapshots [][]string
	updates := make(chan struct{}, 16)

	stop, err := s.Subscribe(ctx, docstore.Query{
		Collection: "items",
		Filters:    []docstore.Filter{docstore.Where("userId", docstore.Eq, "u1")},
		OrderBy:    []docstore.Order{docstore.Asc("name")},
	}, func(docs []*docstore.Document) {
		mu.Lock()
		snapshots = append(snapshots, ids(docs))
		mu.Unlock()
		updates <- struct{}{}
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	wait := func() {
		t.Helper()
		select {
		case <-updates:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
	}
	wait()

	if err := s.Set(ctx, "items", "x", item{UserID: "u1", Name: "x"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	wait()

	stop()
	if err := s.Set(ctx, "items", "y", item{UserID: "u1", Name: "y"}, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	select {
	case <-updates:
		t.Error("snapshot delivered after cancel")
	case <-time.After(100 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	want := [][]string{{}, {"x"}}
	if diff := cmp.Diff(want, snapshots); diff != "" {
		t.Errorf("snapshots mismatch (-want +got):\n%s", diff)
	}
}
