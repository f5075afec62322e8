// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"fmt"

	"github.com/hotdog/elotto/internal/docstore"
)

const CollectionName = "users"

type Repository interface {
	GetByID(ctx context.Context, deviceID string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, deviceID string) error
	List(ctx context.Context, params docstore.ListParams) ([]Record, int, error)
	// ReplaceMerged writes target and deletes sourceID in one batch.
	ReplaceMerged(ctx context.Context, target *Record, sourceID string) error
}

type repository struct {
	store docstore.Store
	users *docstore.Collection[Record]
}

func NewRepository(store docstore.Store) Repository {
	return &repository{
		store: store,
		users: docstore.NewCollection[Record](store, CollectionName),
	}
}

func (r *repository) GetByID(ctx context.Context, deviceID string) (*Record, error) {
	rec, err := r.users.Get(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	rec.DeviceID = deviceID
	return rec, nil
}

func (r *repository) Put(ctx context.Context, rec *Record) error {
	if err := r.users.Put(ctx, rec.DeviceID, rec); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, deviceID string) error {
	if err := r.users.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *repository) List(
	ctx context.Context,
	params docstore.ListParams,
) ([]Record, int, error) {
	entries, total, err := r.users.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	recs := make([]Record, 0, len(entries))
	for _, e := range entries {
		rec := e.Value
		rec.DeviceID = e.ID
		recs = append(recs, rec)
	}

	return recs, total, nil
}

func (r *repository) ReplaceMerged(
	ctx context.Context,
	target *Record,
	sourceID string,
) error {
	put, err := r.users.PutWrite(target.DeviceID, target)
	if err != nil {
		return fmt.Errorf("merge users: %w", err)
	}

	writes := []docstore.Write{put, r.users.DeleteWrite(sourceID)}
	if err := r.store.Apply(ctx, writes); err != nil {
		return fmt.Errorf("merge users: %w", err)
	}

	return nil
}
