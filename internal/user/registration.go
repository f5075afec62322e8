// AngelaMos | 2026
// registration.go

package user

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hotdog/elotto/internal/core"
)

type Status uint8

const (
	StatusPending Status = iota
	StatusSelected
	StatusAccepted
	StatusDeclined
	StatusWaitlisted
	StatusWithdrawn
	StatusInvited
)

var statusNames = [...]string{
	StatusPending:    "Pending",
	StatusSelected:   "Selected",
	StatusAccepted:   "Accepted",
	StatusDeclined:   "Declined",
	StatusWaitlisted: "Waitlisted",
	StatusWithdrawn:  "Withdrawn",
	StatusInvited:    "Invited",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", s)
}

func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if strings.EqualFold(n, name) {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("parse status %q: %w", name, core.ErrInvalidInput)
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal status %d: %w", s, core.ErrInvalidInput)
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func AllStatuses() []Status {
	out := make([]Status, len(statusNames))
	for i := range statusNames {
		out[i] = Status(i)
	}
	return out
}

// RegisteredEvent is one entrant registration. RegisteredAt never changes
// after creation.
type RegisteredEvent struct {
	EventID      string
	Status       Status
	RegisteredAt time.Time
	SelectedAt   *time.Time
}

var (
	ErrDuplicateRegistration = fmt.Errorf("registration already exists: %w", core.ErrDuplicateKey)
	ErrRegistrationNotFound  = fmt.Errorf("registration not found: %w", core.ErrNotFound)
)

// Ledger holds a user's registrations sorted by event id, at most one per
// event. Lookups are binary searches; inserts go straight to their slot.
//
// A Ledger is not safe for concurrent use.
type Ledger struct {
	entries []RegisteredEvent
}

func compareEventID(e RegisteredEvent, eventID string) int {
	return strings.Compare(e.EventID, eventID)
}

func (l *Ledger) search(eventID string) (int, bool) {
	return slices.BinarySearchFunc(l.entries, eventID, compareEventID)
}

// Add inserts a Pending registration stamped at.
func (l *Ledger) Add(eventID string, at time.Time) error {
	if err := core.ValidateEventID(eventID); err != nil {
		return fmt.Errorf("add registration: %w", err)
	}

	i, found := l.search(eventID)
	if found {
		return fmt.Errorf("add registration %q: %w", eventID, ErrDuplicateRegistration)
	}

	l.entries = slices.Insert(l.entries, i, RegisteredEvent{
		EventID:      eventID,
		Status:       StatusPending,
		RegisteredAt: at,
	})
	return nil
}

// SetStatus overwrites the status of an existing registration. Any status
// may follow any other. SelectedAt is stamped on entry into Selected only,
// so repeating a call leaves the record unchanged.
func (l *Ledger) SetStatus(eventID string, status Status, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("set status %q: %w", eventID, core.ErrInvalidInput)
	}

	i, found := l.search(eventID)
	if !found {
		return fmt.Errorf("set status %q: %w", eventID, ErrRegistrationNotFound)
	}

	entry := &l.entries[i]
	if status == StatusSelected && entry.Status != StatusSelected {
		stamp := at
		entry.SelectedAt = &stamp
	}
	entry.Status = status

	return nil
}

func (l *Ledger) Remove(eventID string) error {
	i, found := l.search(eventID)
	if !found {
		return fmt.Errorf("remove registration %q: %w", eventID, ErrRegistrationNotFound)
	}

	l.entries = slices.Delete(l.entries, i, i+1)
	return nil
}

func (l *Ledger) Find(eventID string) (RegisteredEvent, bool) {
	i, found := l.search(eventID)
	if !found {
		return RegisteredEvent{}, false
	}
	return l.entries[i], true
}

func (l *Ledger) EventIDs() []string {
	ids := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		ids = append(ids, e.EventID)
	}
	return ids
}

// All returns a copy of the registrations in event id order.
func (l *Ledger) All() []RegisteredEvent {
	return slices.Clone(l.entries)
}

func (l *Ledger) Len() int {
	return len(l.entries)
}

// absorb adds every registration of other whose event is not already
// present. Existing records win.
func (l *Ledger) absorb(other *Ledger) {
	for _, e := range other.entries {
		i, found := l.search(e.EventID)
		if found {
			continue
		}
		l.entries = slices.Insert(l.entries, i, e)
	}
}

// load replaces the ledger from an unordered list, dropping duplicate ids
// (first occurrence wins).
func (l *Ledger) load(entries []RegisteredEvent) {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b RegisteredEvent) int {
		return strings.Compare(a.EventID, b.EventID)
	})
	l.entries = slices.CompactFunc(sorted, func(a, b RegisteredEvent) bool {
		return a.EventID == b.EventID
	})
}

func (l *Ledger) reset() {
	l.entries = nil
}
