// AngelaMos | 2026
// memory_test.go

package docstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hotdog/elotto/internal/core"
	"github.com/hotdog/elotto/internal/docstore"
)

func newMemoryStore(t *testing.T) *docstore.MemoryStore {
	t.Helper()
	store, err := docstore.NewMemoryStore()
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	return store
}

func TestMemoryStore_GetMissingReturnsNotFound(t *testing.T) {
	store := newMemoryStore(t)

	_, err := store.Get(context.Background(), "users", "nobody")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_PutOverwritesWholeDocument(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "users", "d1", json.RawMessage(`{"name":"a","email":"x"}`)); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := store.Put(ctx, "users", "d1", json.RawMessage(`{"name":"b"}`)); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := store.Get(ctx, "users", "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"name":"b"}` {
		t.Errorf("expected overwritten document, got %s", got)
	}
}

func TestMemoryStore_PutRejectsInvalidJSON(t *testing.T) {
	store := newMemoryStore(t)

	err := store.Put(context.Background(), "users", "d1", json.RawMessage(`{`))
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMemoryStore_DeleteMissingReturnsNotFound(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	if err := store.Delete(ctx, "users", "d1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, "users", "d1", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "users", "d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "users", "d1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected document gone, got %v", err)
	}
}

func TestMemoryStore_ListIsScopedOrderedAndPaged(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "e", "b", "d"} {
		if err := store.Put(ctx, "users", id, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	if err := store.Put(ctx, "notifications", "a", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("put notification: %v", err)
	}

	docs, total, err := store.List(ctx, "users", docstore.ListParams{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(docs) != 2 || docs[0].ID != "c" || docs[1].ID != "d" {
		t.Errorf("unexpected page: %+v", docs)
	}

	all, total, err := store.List(ctx, "users", docstore.AllPages())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 5 || len(all) != 5 {
		t.Errorf("expected all 5 documents, got %d/%d", len(all), total)
	}
}

func TestMemoryStore_ApplyIsAtomic(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "users", "old", json.RawMessage(`{"v":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	err := store.Apply(ctx, []docstore.Write{
		{Collection: "users", ID: "new", Data: json.RawMessage(`{"v":2}`)},
		{Collection: "users", ID: "old", Delete: true},
		{Collection: "users", ID: "broken", Data: json.RawMessage(`not json`)},
	})
	if err == nil {
		t.Fatal("expected batch with invalid document to fail")
	}

	if _, err := store.Get(ctx, "users", "new"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected no partial write, got %v", err)
	}
	if _, err := store.Get(ctx, "users", "old"); err != nil {
		t.Errorf("expected old document to survive failed batch, got %v", err)
	}

	err = store.Apply(ctx, []docstore.Write{
		{Collection: "users", ID: "new", Data: json.RawMessage(`{"v":2}`)},
		{Collection: "users", ID: "old", Delete: true},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := store.Get(ctx, "users", "old"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected old document deleted, got %v", err)
	}
}

type profile struct {
	Name string `json:"name"`
}

func TestCollection_TypedRoundTrip(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	profiles := docstore.NewCollection[profile](store, "profiles")

	for i := range 3 {
		p := &profile{Name: fmt.Sprintf("user-%d", i)}
		if err := profiles.Put(ctx, fmt.Sprintf("id-%d", i), p); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	got, err := profiles.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "user-1" {
		t.Errorf("expected user-1, got %q", got.Name)
	}

	entries, total, err := profiles.List(ctx, docstore.ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || entries[0].ID != "id-0" || entries[2].Value.Name != "user-2" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}
