// AngelaMos | 2026
// store.go

// Package docstore is the single-document backing store behind users and
// notification inboxes. Documents are opaque JSON values addressed by
// (collection, id) and always written whole.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Store interface {
	// Get returns core.ErrNotFound when no document exists.
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Put(ctx context.Context, collection, id string, data json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
	List(
		ctx context.Context,
		collection string,
		params ListParams,
	) ([]Document, int, error)
	// Apply commits every write or none of them.
	Apply(ctx context.Context, writes []Write) error
	Ping(ctx context.Context) error
}

type Document struct {
	Collection string
	ID         string
	Data       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Write is one element of an atomic batch. A Write with Delete set removes
// the document and ignores Data.
type Write struct {
	Collection string
	ID         string
	Data       json.RawMessage
	Delete     bool
}

type ListParams struct {
	Page     int
	PageSize int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// AllPages asks List for every document in one page. Only used for
// aggregate statistics over small collections.
func AllPages() ListParams {
	return ListParams{Page: 1, PageSize: -1}
}

func (p *ListParams) unbounded() bool {
	return p.PageSize < 0
}

// Collection gives typed JSON access to one collection of a Store.
type Collection[T any] struct {
	store Store
	name  string
}

type Entry[T any] struct {
	ID    string
	Value T
}

func NewCollection[T any](store Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	data, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}

	return &v, nil
}

func (c *Collection[T]) Put(ctx context.Context, id string, v *T) error {
	w, err := c.PutWrite(id, v)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, w.Collection, w.ID, w.Data)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

func (c *Collection[T]) List(
	ctx context.Context,
	params ListParams,
) ([]Entry[T], int, error) {
	docs, total, err := c.store.List(ctx, c.name, params)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]Entry[T], 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, 0, fmt.Errorf("decode %s/%s: %w", c.name, doc.ID, err)
		}
		entries = append(entries, Entry[T]{ID: doc.ID, Value: v})
	}

	return entries, total, nil
}

// PutWrite encodes v as a batch write for Store.Apply.
func (c *Collection[T]) PutWrite(id string, v *T) (Write, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Write{}, fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	return Write{Collection: c.name, ID: id, Data: data}, nil
}

func (c *Collection[T]) DeleteWrite(id string) Write {
	return Write{Collection: c.name, ID: id, Delete: true}
}
