// AngelaMos | 2026
// device.go

package auth

import (
	"context"
	"fmt"

	"github.com/hotdog/elotto/internal/docstore"
)

const CollectionName = "devices"

// Device is the enrollment record for one installation. The install secret
// is stored only as an argon2id hash.
type Device struct {
	SecretHash string `json:"secretHash"`
	Platform   string `json:"platform,omitempty"`
	EnrolledAt int64  `json:"enrolledAt"`
	LastSeenAt int64  `json:"lastSeenAt"`
}

type DeviceRepository interface {
	Get(ctx context.Context, deviceID string) (*Device, error)
	Put(ctx context.Context, deviceID string, d *Device) error
	Delete(ctx context.Context, deviceID string) error
}

type deviceRepository struct {
	devices *docstore.Collection[Device]
}

func NewDeviceRepository(store docstore.Store) DeviceRepository {
	return &deviceRepository{
		devices: docstore.NewCollection[Device](store, CollectionName),
	}
}

func (r *deviceRepository) Get(ctx context.Context, deviceID string) (*Device, error) {
	d, err := r.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

func (r *deviceRepository) Put(ctx context.Context, deviceID string, d *Device) error {
	if err := r.devices.Put(ctx, deviceID, d); err != nil {
		return fmt.Errorf("put device: %w", err)
	}
	return nil
}

func (r *deviceRepository) Delete(ctx context.Context, deviceID string) error {
	if err := r.devices.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}
