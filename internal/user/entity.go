// AngelaMos | 2026
// entity.go

package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/hotdog/elotto/internal/core"
)

// Type is the account role. Higher values carry more privilege.
type Type uint8

const (
	TypeUnset Type = iota
	TypeEntrant
	TypeOrganizer
	TypeAdministrator
)

var typeNames = [...]string{
	TypeUnset:         "",
	TypeEntrant:       "Entrant",
	TypeOrganizer:     "Organizer",
	TypeAdministrator: "Administrator",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

func (t Type) Valid() bool {
	return int(t) < len(typeNames)
}

// Role is the lowercase claim value carried in access tokens.
func (t Type) Role() string {
	if t == TypeUnset {
		return "entrant"
	}
	return strings.ToLower(t.String())
}

func ParseType(name string) (Type, error) {
	if name == "" {
		return TypeUnset, nil
	}
	for i, n := range typeNames {
		if i > 0 && strings.EqualFold(n, name) {
			return Type(i), nil
		}
	}
	return TypeUnset, fmt.Errorf("parse user type %q: %w", name, core.ErrInvalidInput)
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal user type %d: %w", t, core.ErrInvalidInput)
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Presence records what the last resolution learned about the backing
// record.
type Presence uint8

const (
	PresenceUnknown Presence = iota
	PresenceExistent
	PresenceNonexistent
	PresenceError
)

func (p Presence) String() string {
	switch p {
	case PresenceExistent:
		return "existent"
	case PresenceNonexistent:
		return "nonexistent"
	case PresenceError:
		return "error"
	default:
		return "unknown"
	}
}

// Persister receives a snapshot after every mutation. Implementations must
// not block for the duration of a backend write.
type Persister interface {
	Persist(rec Record)
}

// User is the aggregate for one device. It is owned by a single goroutine;
// callers serialise access themselves.
type User struct {
	deviceID string
	name     string
	email    string
	phone    string
	userType Type
	ledger   Ledger
	presence Presence

	persister Persister
	now       func() time.Time
}

// New returns an empty user for deviceID without touching the backend.
// A nil persister keeps every mutation local.
func New(deviceID string, persister Persister) *User {
	return &User{
		deviceID:  deviceID,
		persister: persister,
		now:       time.Now,
	}
}

func (u *User) DeviceID() string   { return u.deviceID }
func (u *User) Name() string       { return u.name }
func (u *User) Email() string      { return u.email }
func (u *User) Phone() string      { return u.phone }
func (u *User) Type() Type         { return u.userType }
func (u *User) Presence() Presence { return u.presence }

// Exists reports whether the last resolution found a backing record.
func (u *User) Exists() bool {
	return u.presence == PresenceExistent
}

func (u *User) UpdateName(name string) {
	u.name = name
	u.persist()
}

func (u *User) UpdateEmail(email string) {
	u.email = email
	u.persist()
}

func (u *User) UpdatePhone(phone string) {
	u.phone = phone
	u.persist()
}

func (u *User) UpdateType(t Type) error {
	if !t.Valid() {
		return fmt.Errorf("update type %d: %w", t, core.ErrInvalidInput)
	}
	u.userType = t
	u.persist()
	return nil
}

// Profile is a partial profile update; nil fields are left alone.
type Profile struct {
	Name  *string
	Email *string
	Phone *string
	Type  *Type
}

// UpdateProfile applies every set field and persists once.
func (u *User) UpdateProfile(p Profile) error {
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("update profile: %w", core.ErrInvalidInput)
	}
	if p.Name != nil {
		u.name = *p.Name
	}
	if p.Email != nil {
		u.email = *p.Email
	}
	if p.Phone != nil {
		u.phone = *p.Phone
	}
	if p.Type != nil {
		u.userType = *p.Type
	}
	u.persist()
	return nil
}

func (u *User) Register(eventID string) error {
	if err := u.ledger.Add(eventID, u.now()); err != nil {
		return err
	}
	u.persist()
	return nil
}

func (u *User) SetRegistrationStatus(eventID string, status Status) error {
	if err := u.ledger.SetStatus(eventID, status, u.now()); err != nil {
		return err
	}
	u.persist()
	return nil
}

func (u *User) RemoveRegistration(eventID string) error {
	if err := u.ledger.Remove(eventID); err != nil {
		return err
	}
	u.persist()
	return nil
}

func (u *User) Registration(eventID string) (RegisteredEvent, bool) {
	return u.ledger.Find(eventID)
}

func (u *User) RegisteredEventIDs() []string {
	return u.ledger.EventIDs()
}

func (u *User) Registrations() []RegisteredEvent {
	return u.ledger.All()
}

// Merge folds old into u: ledgers are unioned with u's records winning,
// the more privileged type is kept, and old is wiped.
func (u *User) Merge(old *User) {
	u.ledger.absorb(&old.ledger)
	u.userType = max(u.userType, old.userType)
	if old.Exists() {
		u.presence = PresenceExistent
	}

	old.name, old.email, old.phone = "", "", ""
	old.userType = TypeUnset
	old.ledger.reset()

	u.persist()
}

// Apply folds a resolution into u. A found record replaces the profile and
// ledger. A missing record clears the profile only when u previously
// existed; a failed resolution changes nothing but the presence flag.
func (u *User) Apply(res Resolution) {
	wasExistent := u.Exists()
	u.presence = res.Presence

	switch res.Presence {
	case PresenceExistent:
		if res.Record != nil {
			u.fromRecord(res.Record)
		}
	case PresenceNonexistent:
		if wasExistent {
			u.name, u.email, u.phone = "", "", ""
			u.userType = TypeUnset
			u.ledger.reset()
		}
	}
}

// Snapshot returns the document form of u.
func (u *User) Snapshot() Record {
	return toRecord(u)
}

func (u *User) persist() {
	if u.persister == nil {
		return
	}
	u.persister.Persist(u.Snapshot())
}
