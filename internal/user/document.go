// AngelaMos | 2026
// document.go

package user

import (
	"time"
)

// Record is the stored form of a user. The device id is the document key
// and is not repeated in the body.
type Record struct {
	DeviceID      string               `json:"-"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	Phone         string               `json:"phone"`
	Type          Type                 `json:"type"`
	Registrations []RegistrationRecord `json:"regEvents"`
}

type RegistrationRecord struct {
	EventID        string `json:"eventId"`
	Status         Status `json:"status"`
	RegisteredDate int64  `json:"registeredDate"`
	SelectedDate   *int64 `json:"selectedDate,omitempty"`
}

func toRecord(u *User) Record {
	regs := make([]RegistrationRecord, 0, u.ledger.Len())
	for _, e := range u.ledger.entries {
		rr := RegistrationRecord{
			EventID:        e.EventID,
			Status:         e.Status,
			RegisteredDate: e.RegisteredAt.UnixMilli(),
		}
		if e.SelectedAt != nil {
			ms := e.SelectedAt.UnixMilli()
			rr.SelectedDate = &ms
		}
		regs = append(regs, rr)
	}

	return Record{
		DeviceID:      u.deviceID,
		Name:          u.name,
		Email:         u.email,
		Phone:         u.phone,
		Type:          u.userType,
		Registrations: regs,
	}
}

func (u *User) fromRecord(rec *Record) {
	u.name = rec.Name
	u.email = rec.Email
	u.phone = rec.Phone
	u.userType = rec.Type

	entries := make([]RegisteredEvent, 0, len(rec.Registrations))
	for _, rr := range rec.Registrations {
		e := RegisteredEvent{
			EventID:      rr.EventID,
			Status:       rr.Status,
			RegisteredAt: time.UnixMilli(rr.RegisteredDate),
		}
		if rr.SelectedDate != nil {
			t := time.UnixMilli(*rr.SelectedDate)
			e.SelectedAt = &t
		}
		entries = append(entries, e)
	}
	u.ledger.load(entries)
}

// FromRecord builds an existing user from its stored form.
func FromRecord(rec *Record, persister Persister) *User {
	u := New(rec.DeviceID, persister)
	u.presence = PresenceExistent
	u.fromRecord(rec)
	return u
}
