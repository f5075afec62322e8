// AngelaMos | 2026
// events.go

// Package events carries registration lifecycle events between the user
// service and its subscribers.
package events

import (
	"context"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type Bus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

const (
	RegistrationCreated       = "registration.created"
	RegistrationStatusChanged = "registration.status_changed"
	RegistrationRemoved       = "registration.removed"
	UserDeleted               = "user.deleted"
)

type RegistrationCreatedEvent struct {
	DeviceID     string    `json:"device_id"`
	EventID      string    `json:"event_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

type StatusChangedEvent struct {
	DeviceID  string    `json:"device_id"`
	EventID   string    `json:"event_id"`
	Previous  string    `json:"previous"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type RegistrationRemovedEvent struct {
	DeviceID  string    `json:"device_id"`
	EventID   string    `json:"event_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type UserDeletedEvent struct {
	DeviceID  string    `json:"device_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
