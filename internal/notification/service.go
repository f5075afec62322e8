// AngelaMos | 2026
// service.go

package notification

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hotdog/elotto/internal/core"
	"github.com/hotdog/elotto/internal/docstore"
)

const maxInboxSize = 200

var ErrNotificationNotFound = fmt.Errorf("notification not found: %w", core.ErrNotFound)

type Service struct {
	inboxes *docstore.Collection[inbox]
	locks   core.KeyedMutex
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store docstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		inboxes: docstore.NewCollection[inbox](store, CollectionName),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) load(ctx context.Context, deviceID string) (*inbox, error) {
	in, err := s.inboxes.Get(ctx, deviceID)
	if errors.Is(err, core.ErrNotFound) {
		return &inbox{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load inbox: %w", err)
	}
	return in, nil
}

// List returns the inbox newest first.
func (s *Service) List(ctx context.Context, deviceID string) ([]Notification, error) {
	in, err := s.load(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return in.Notifications, nil
}

func (s *Service) UnreadCount(ctx context.Context, deviceID string) (int, error) {
	in, err := s.load(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, item := range in.Notifications {
		if !item.Read {
			n++
		}
	}
	return n, nil
}

// Add stores n at the head of the inbox, assigning an id and timestamp
// when missing. The oldest entries beyond the inbox cap are dropped.
func (s *Service) Add(ctx context.Context, deviceID string, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp == 0 {
		n.Timestamp = s.now().UnixMilli()
	}

	err := s.update(ctx, deviceID, func(in *inbox) error {
		in.Notifications = append(in.Notifications, n)
		slices.SortStableFunc(in.Notifications, func(a, b Notification) int {
			return cmp.Compare(b.Timestamp, a.Timestamp)
		})
		if len(in.Notifications) > maxInboxSize {
			in.Notifications = in.Notifications[:maxInboxSize]
		}
		return nil
	})
	if err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (s *Service) MarkRead(ctx context.Context, deviceID, id string) error {
	return s.update(ctx, deviceID, func(in *inbox) error {
		i := slices.IndexFunc(in.Notifications, func(n Notification) bool { return n.ID == id })
		if i < 0 {
			return fmt.Errorf("mark read %s: %w", id, ErrNotificationNotFound)
		}
		in.Notifications[i].Read = true
		return nil
	})
}

func (s *Service) MarkAllRead(ctx context.Context, deviceID string) error {
	return s.update(ctx, deviceID, func(in *inbox) error {
		for i := range in.Notifications {
			in.Notifications[i].Read = true
		}
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, deviceID, id string) error {
	return s.update(ctx, deviceID, func(in *inbox) error {
		before := len(in.Notifications)
		in.Notifications = slices.DeleteFunc(in.Notifications, func(n Notification) bool {
			return n.ID == id
		})
		if len(in.Notifications) == before {
			return fmt.Errorf("delete %s: %w", id, ErrNotificationNotFound)
		}
		return nil
	})
}

// DeleteInbox removes the whole inbox document.
func (s *Service) DeleteInbox(ctx context.Context, deviceID string) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	if err := s.inboxes.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("delete inbox: %w", err)
	}
	return nil
}

func (s *Service) update(ctx context.Context, deviceID string, fn func(*inbox) error) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	in, err := s.load(ctx, deviceID)
	if err != nil {
		return err
	}
	if err := fn(in); err != nil {
		return err
	}

	if err := s.inboxes.Put(ctx, deviceID, in); err != nil {
		return fmt.Errorf("save inbox: %w", err)
	}
	return nil
}
