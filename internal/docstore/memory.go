// AngelaMos | 2026
// memory.go

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/hotdog/elotto/internal/core"
)

const (
	documentsTable  = "documents"
	idIndex         = "id"
	collectionIndex = "collection"
)

type memoryRecord struct {
	Collection string
	ID         string
	Data       []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func memorySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			documentsTable: {
				Name: documentsTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:   idIndex,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Collection"},
								&memdb.StringFieldIndex{Field: "ID"},
							},
						},
					},
					collectionIndex: {
						Name:    collectionIndex,
						Indexer: &memdb.StringFieldIndex{Field: "Collection"},
					},
				},
			},
		},
	}
}

// MemoryStore keeps documents in an in-process go-memdb database. Used by
// the development profile and by tests.
type MemoryStore struct {
	db  *memdb.MemDB
	now func() time.Time
}

func NewMemoryStore() (*MemoryStore, error) {
	db, err := memdb.NewMemDB(memorySchema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &MemoryStore{db: db, now: time.Now}, nil
}

func (s *MemoryStore) Get(
	_ context.Context,
	collection, id string,
) (json.RawMessage, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(documentsTable, idIndex, collection, id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, core.ErrNotFound)
	}

	rec, _ := raw.(*memoryRecord) //nolint:errcheck // table only holds *memoryRecord
	return cloneBytes(rec.Data), nil
}

func (s *MemoryStore) Put(
	_ context.Context,
	collection, id string,
	data json.RawMessage,
) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := s.put(txn, collection, id, data); err != nil {
		return err
	}

	txn.Commit()
	return nil
}

func (s *MemoryStore) put(
	txn *memdb.Txn,
	collection, id string,
	data json.RawMessage,
) error {
	if !json.Valid(data) {
		return fmt.Errorf("put %s/%s: %w: invalid json", collection, id, core.ErrInvalidInput)
	}

	now := s.now()
	rec := &memoryRecord{
		Collection: collection,
		ID:         id,
		Data:       cloneBytes(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	existing, err := txn.First(documentsTable, idIndex, collection, id)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	if prev, ok := existing.(*memoryRecord); ok {
		rec.CreatedAt = prev.CreatedAt
	}

	if err := txn.Insert(documentsTable, rec); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	found, err := s.delete(txn, collection, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("delete %s/%s: %w", collection, id, core.ErrNotFound)
	}

	txn.Commit()
	return nil
}

func (s *MemoryStore) delete(txn *memdb.Txn, collection, id string) (bool, error) {
	existing, err := txn.First(documentsTable, idIndex, collection, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if existing == nil {
		return false, nil
	}

	if err := txn.Delete(documentsTable, existing); err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}

	return true, nil
}

func (s *MemoryStore) List(
	_ context.Context,
	collection string,
	params ListParams,
) ([]Document, int, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(documentsTable, collectionIndex, collection)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", collection, err)
	}

	// Non-unique memdb indexes suffix the primary key, so iteration is
	// already ordered by id.
	var all []Document
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rec, _ := raw.(*memoryRecord) //nolint:errcheck // table only holds *memoryRecord
		all = append(all, Document{
			Collection: rec.Collection,
			ID:         rec.ID,
			Data:       cloneBytes(rec.Data),
			CreatedAt:  rec.CreatedAt,
			UpdatedAt:  rec.UpdatedAt,
		})
	}

	total := len(all)
	if params.unbounded() {
		return all, total, nil
	}

	params.Normalize()
	start := params.Offset()
	if start >= total {
		return []Document{}, total, nil
	}
	end := min(start+params.PageSize, total)

	return all[start:end], total, nil
}

func (s *MemoryStore) Apply(_ context.Context, writes []Write) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	for _, w := range writes {
		if w.Delete {
			if _, err := s.delete(txn, w.Collection, w.ID); err != nil {
				return fmt.Errorf("apply batch: %w", err)
			}
			continue
		}
		if err := s.put(txn, w.Collection, w.ID, w.Data); err != nil {
			return fmt.Errorf("apply batch: %w", err)
		}
	}

	txn.Commit()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ Store = (*MemoryStore)(nil)
