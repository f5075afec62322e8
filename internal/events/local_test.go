// AngelaMos | 2026
// local_test.go

package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
)

func newTestBus() *LocalBus {
	return NewLocalBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLocalBusDeliversJSON(t *testing.T) {
	bus := newTestBus()

	var got StatusChangedEvent
	calls := 0
	err := bus.Subscribe(RegistrationStatusChanged, func(msg *Message) {
		calls++
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Errorf("decode: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	want := StatusChangedEvent{DeviceID: "dev-1", EventID: "evt-1", Status: "Selected"}
	if err := bus.Publish(context.Background(), RegistrationStatusChanged, want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if got.DeviceID != want.DeviceID || got.Status != want.Status {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLocalBusQueueGroupDeliversOnce(t *testing.T) {
	bus := newTestBus()

	first, second := 0, 0
	_ = bus.QueueSubscribe(RegistrationCreated, "workers", func(*Message) { first++ })
	_ = bus.QueueSubscribe(RegistrationCreated, "workers", func(*Message) { second++ })

	_ = bus.Publish(context.Background(), RegistrationCreated, RegistrationCreatedEvent{})

	if first+second != 1 {
		t.Errorf("queue group deliveries = %d, want 1", first+second)
	}
}

func TestLocalBusIgnoresOtherSubjects(t *testing.T) {
	bus := newTestBus()

	calls := 0
	_ = bus.Subscribe(RegistrationRemoved, func(*Message) { calls++ })
	_ = bus.Publish(context.Background(), RegistrationCreated, RegistrationCreatedEvent{})

	if calls != 0 {
		t.Errorf("handler calls = %d, want 0", calls)
	}
}

func TestLocalBusClosedRejectsPublish(t *testing.T) {
	bus := newTestBus()
	_ = bus.Close()

	if err := bus.Publish(context.Background(), RegistrationCreated, struct{}{}); err == nil {
		t.Error("Publish() after Close error = nil, want error")
	}
}
