// AngelaMos | 2026
// subscriber.go

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hotdog/elotto/internal/events"
)

var statusMessages = map[string]struct{ title, message string }{
	"Selected": {
		title:   "You've been selected!",
		message: "You were drawn in the lottery. Accept or decline your spot.",
	},
	"Invited": {
		title:   "You're invited",
		message: "A spot opened up and the organizer has invited you to join.",
	},
	"Waitlisted": {
		title:   "You're on the waitlist",
		message: "You weren't drawn this time, but you'll be notified if a spot opens.",
	},
	"Declined": {
		title:   "Registration declined",
		message: "Your place for this event has been released.",
	},
}

// Subscriber turns registration status changes into inbox entries.
type Subscriber struct {
	service *Service
	logger  *slog.Logger
	timeout time.Duration
}

func NewSubscriber(service *Service, logger *slog.Logger) *Subscriber {
	return &Subscriber{service: service, logger: logger, timeout: 5 * time.Second}
}

// Start registers the handler. An empty queue subscribes every instance.
func (s *Subscriber) Start(sub events.Subscriber, queue string) error {
	var err error
	if queue == "" {
		err = sub.Subscribe(events.RegistrationStatusChanged, s.handle)
	} else {
		err = sub.QueueSubscribe(events.RegistrationStatusChanged, queue, s.handle)
	}
	if err != nil {
		return fmt.Errorf("start notification subscriber: %w", err)
	}
	return nil
}

func (s *Subscriber) handle(msg *events.Message) {
	var e events.StatusChangedEvent
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		s.logger.Warn("malformed status event", "id", msg.ID, "error", err)
		return
	}

	text, ok := statusMessages[e.Status]
	if !ok || e.Status == e.Previous {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.service.Add(ctx, e.DeviceID, Notification{
		EventID:   e.EventID,
		Title:     text.title,
		Message:   text.message,
		Timestamp: e.ChangedAt.UnixMilli(),
	})
	if err != nil {
		s.logger.Error("failed to add notification",
			"device_id", e.DeviceID,
			"event_id", e.EventID,
			"error", err,
		)
	}
}
