// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hotdog/elotto/internal/core"
	"github.com/hotdog/elotto/internal/docstore"
	"github.com/hotdog/elotto/internal/events"
)

// Flusher waits for pending background writes.
type Flusher interface {
	Flush(ctx context.Context) error
}

// InboxRemover deletes whatever per-user data outlives the user document.
type InboxRemover interface {
	DeleteInbox(ctx context.Context, deviceID string) error
}

// selfServiceStatuses are the outcomes an entrant may record on their own
// registration. Everything else is set by organizers.
var selfServiceStatuses = []Status{
	StatusAccepted,
	StatusDeclined,
	StatusWithdrawn,
}

type ServiceConfig struct {
	Resolver *Resolver
	Repo     Repository
	Writer   Flusher
	Events   events.Publisher
	Inbox    InboxRemover
	Logger   *slog.Logger
}

type Service struct {
	resolver *Resolver
	repo     Repository
	writer   Flusher
	events   events.Publisher
	inbox    InboxRemover
	logger   *slog.Logger
	locks    core.KeyedMutex
	now      func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		resolver: cfg.Resolver,
		repo:     cfg.Repo,
		writer:   cfg.Writer,
		events:   cfg.Events,
		inbox:    cfg.Inbox,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) GetMe(ctx context.Context, deviceID string) (*User, error) {
	u, err := s.resolver.Resolve(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !u.Exists() {
		return nil, fmt.Errorf("get user %s: %w", deviceID, core.ErrNotFound)
	}
	return u, nil
}

// RoleOf returns the token role for a device. Devices without a profile
// are entrants.
func (s *Service) RoleOf(ctx context.Context, deviceID string) (string, error) {
	u, err := s.resolver.Resolve(ctx, deviceID)
	if err != nil {
		return "", err
	}
	return u.Type().Role(), nil
}

// UpdateMe creates or updates the caller's profile. Self-promotion to
// administrator is refused.
func (s *Service) UpdateMe(
	ctx context.Context,
	deviceID string,
	req UpdateMeRequest,
) (*User, error) {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	u, err := s.resolver.Resolve(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	profile := Profile{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if req.Type != nil {
		t, err := ParseType(*req.Type)
		if err != nil {
			return nil, err
		}
		if t == TypeAdministrator && u.Type() != TypeAdministrator {
			return nil, fmt.Errorf("update type: %w", core.ErrForbidden)
		}
		profile.Type = &t
	}
	if profile.Type == nil && u.Type() == TypeUnset {
		entrant := TypeEntrant
		profile.Type = &entrant
	}

	if err := u.UpdateProfile(profile); err != nil {
		return nil, err
	}
	s.flush(ctx)

	return u, nil
}

func (s *Service) DeleteMe(ctx context.Context, deviceID string) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	s.flush(ctx)

	if err := s.repo.Delete(ctx, deviceID); err != nil {
		return err
	}

	if s.inbox != nil {
		if err := s.inbox.DeleteInbox(ctx, deviceID); err != nil &&
			!errors.Is(err, core.ErrNotFound) {
			s.logger.Error("failed to delete inbox",
				"device_id", deviceID,
				"error", err,
			)
		}
	}

	s.publish(ctx, events.UserDeleted, events.UserDeletedEvent{
		DeviceID:  deviceID,
		DeletedAt: s.now().UTC(),
	})
	return nil
}

func (s *Service) ListRegistrations(
	ctx context.Context,
	deviceID string,
) ([]RegisteredEvent, error) {
	u, err := s.resolver.Resolve(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return u.Registrations(), nil
}

func (s *Service) GetRegistration(
	ctx context.Context,
	deviceID, eventID string,
) (RegisteredEvent, error) {
	u, err := s.resolver.Resolve(ctx, deviceID)
	if err != nil {
		return RegisteredEvent{}, err
	}

	reg, ok := u.Registration(eventID)
	if !ok {
		return RegisteredEvent{}, fmt.Errorf("get registration %q: %w", eventID, ErrRegistrationNotFound)
	}
	return reg, nil
}

// Register adds a Pending registration for eventID. A device registering
// before it has a profile becomes an entrant.
func (s *Service) Register(
	ctx context.Context,
	deviceID, eventID string,
) (RegisteredEvent, error) {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	u, err := s.resolver.Resolve(ctx, deviceID)
	if err != nil {
		return RegisteredEvent{}, err
	}
	if u.Type() == TypeUnset {
		u.userType = TypeEntrant
	}

	if err := u.Register(eventID); err != nil {
		return RegisteredEvent{}, err
	}
	s.flush(ctx)

	reg, _ := u.Registration(eventID)
	s.publish(ctx, events.RegistrationCreated, events.RegistrationCreatedEvent{
		DeviceID:     deviceID,
		EventID:      eventID,
		RegisteredAt: reg.RegisteredAt.UTC(),
	})
	return reg, nil
}

// SetOwnStatus records an entrant's response to their own registration.
func (s *Service) SetOwnStatus(
	ctx context.Context,
	deviceID, eventID string,
	status Status,
) (RegisteredEvent, error) {
	if !slices.Contains(selfServiceStatuses, status) {
		return RegisteredEvent{}, fmt.Errorf("set status %s: %w", status, core.ErrForbidden)
	}
	return s.SetStatus(ctx, deviceID, deviceID, eventID, status)
}

// SetStatus overwrites the status of deviceID's registration for eventID
// on behalf of actorID.
func (s *Service) SetStatus(
	ctx context.Context,
	actorID, deviceID, eventID string,
	status Status,
) (RegisteredEvent, error) {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	u, err := s.resolver.Resolve(ctx, deviceID)
	if err != nil {
		return RegisteredEvent{}, err
	}
	if !u.Exists() {
		return RegisteredEvent{}, fmt.Errorf("set status for %s: %w", deviceID, core.ErrNotFound)
	}

	prev, ok := u.Registration(eventID)
	if !ok {
		return RegisteredEvent{}, fmt.Errorf("set status %q: %w", eventID, ErrRegistrationNotFound)
	}

	if err := u.SetRegistrationStatus(eventID, status); err != nil {
		return RegisteredEvent{}, err
	}
	s.flush(ctx)

	reg, _ := u.Registration(eventID)
	s.publish(ctx, events.RegistrationStatusChanged, events.StatusChangedEvent{
		DeviceID:  deviceID,
		EventID:   eventID,
		Previous:  prev.Status.String(),
		Status:    status.String(),
		ChangedBy: actorID,
		ChangedAt: s.now().UTC(),
	})
	return reg, nil
}

func (s *Service) Withdraw(ctx context.Context, deviceID, eventID string) error {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	u, err := s.resolver.Resolve(ctx, deviceID)
	if err != nil {
		return err
	}

	if err := u.RemoveRegistration(eventID); err != nil {
		return err
	}
	s.flush(ctx)

	s.publish(ctx, events.RegistrationRemoved, events.RegistrationRemovedEvent{
		DeviceID:  deviceID,
		EventID:   eventID,
		RemovedAt: s.now().UTC(),
	})
	return nil
}

// ListUsers filters in memory; user counts stay small enough that the
// store's paging is applied after filtering.
func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]*User, int, error) {
	params.Normalize()

	var filterType *Type
	if params.Type != "" {
		t, err := ParseType(params.Type)
		if err != nil {
			return nil, 0, err
		}
		filterType = &t
	}

	s.flush(ctx)

	recs, _, err := s.repo.List(ctx, docstore.AllPages())
	if err != nil {
		return nil, 0, err
	}

	search := strings.ToLower(params.Search)
	matched := make([]*User, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		if filterType != nil && rec.Type != *filterType {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.Name), search) &&
			!strings.Contains(strings.ToLower(rec.Email), search) &&
			!strings.Contains(strings.ToLower(rec.DeviceID), search) {
			continue
		}
		matched = append(matched, FromRecord(rec, nil))
	}

	total := len(matched)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)

	return matched[start:end], total, nil
}

func (s *Service) GetUser(ctx context.Context, deviceID string) (*User, error) {
	return s.GetMe(ctx, deviceID)
}

func (s *Service) DeleteUser(ctx context.Context, deviceID string) error {
	return s.DeleteMe(ctx, deviceID)
}

func (s *Service) SetUserType(
	ctx context.Context,
	deviceID string,
	t Type,
) (*User, error) {
	unlock := s.locks.Lock(deviceID)
	defer unlock()

	u, err := s.resolver.Resolve(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !u.Exists() {
		return nil, fmt.Errorf("set type for %s: %w", deviceID, core.ErrNotFound)
	}

	if err := u.UpdateType(t); err != nil {
		return nil, err
	}
	s.flush(ctx)

	return u, nil
}

// MergeUsers folds sourceID into targetID and removes the source document
// in the same batch.
func (s *Service) MergeUsers(
	ctx context.Context,
	targetID, sourceID string,
) (*User, error) {
	if targetID == sourceID {
		return nil, fmt.Errorf("merge %s into itself: %w", targetID, core.ErrInvalidInput)
	}

	first, second := targetID, sourceID
	if second < first {
		first, second = second, first
	}
	unlockFirst := s.locks.Lock(first)
	defer unlockFirst()
	unlockSecond := s.locks.Lock(second)
	defer unlockSecond()

	s.flush(ctx)

	targetRec, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	sourceRec, err := s.repo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	target := FromRecord(targetRec, nil)
	source := FromRecord(sourceRec, nil)
	target.Merge(source)

	merged := target.Snapshot()
	if err := s.repo.ReplaceMerged(ctx, &merged, sourceID); err != nil {
		return nil, err
	}

	s.logger.Info("users merged",
		"target", targetID,
		"source", sourceID,
		"registrations", len(merged.Registrations),
	)
	return target, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	recs, total, err := s.repo.List(ctx, docstore.AllPages())
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalUsers:            total,
		UsersByType:           make(map[string]int),
		RegistrationsByStatus: make(map[string]int),
	}
	for _, rec := range recs {
		name := rec.Type.String()
		if rec.Type == TypeUnset {
			name = "Unset"
		}
		stats.UsersByType[name]++

		for _, rr := range rec.Registrations {
			stats.TotalRegistrations++
			stats.RegistrationsByStatus[rr.Status.String()]++
		}
	}

	return stats, nil
}

func (s *Service) flush(ctx context.Context) {
	if s.writer == nil {
		return
	}
	if err := s.writer.Flush(ctx); err != nil {
		s.logger.Warn("user writer flush interrupted", "error", err)
	}
}

func (s *Service) publish(ctx context.Context, subject string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, subject, data); err != nil {
		s.logger.Error("failed to publish event",
			"subject", subject,
			"error", err,
		)
	}
}
