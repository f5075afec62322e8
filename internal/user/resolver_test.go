// AngelaMos | 2026
// resolver_test.go

package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hotdog/elotto/internal/core"
	"github.com/hotdog/elotto/internal/docstore"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubRepository struct {
	get   func(ctx context.Context, deviceID string) (*Record, error)
	calls atomic.Int32
}

func (s *stubRepository) GetByID(ctx context.Context, deviceID string) (*Record, error) {
	s.calls.Add(1)
	return s.get(ctx, deviceID)
}

func (s *stubRepository) Put(context.Context, *Record) error { return nil }
func (s *stubRepository) Delete(context.Context, string) error { return nil }
func (s *stubRepository) ReplaceMerged(context.Context, *Record, string) error {
	return nil
}

func (s *stubRepository) List(context.Context, docstore.ListParams) ([]Record, int, error) {
	return nil, 0, nil
}

func found(rec Record) *stubRepository {
	return &stubRepository{get: func(_ context.Context, id string) (*Record, error) {
		r := rec
		r.DeviceID = id
		return &r, nil
	}}
}

func failing(err error) *stubRepository {
	return &stubRepository{get: func(context.Context, string) (*Record, error) {
		return nil, err
	}}
}

func hanging() *stubRepository {
	return &stubRepository{get: func(ctx context.Context, _ string) (*Record, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
}

func TestResolveSuccessCopiesRecord(t *testing.T) {
	r := NewResolver(found(Record{
		Name:  "Ada",
		Email: "ada@example.com",
		Phone: "+15550100",
		Type:  TypeOrganizer,
	}), ResolverOptions{Logger: discard})

	u, err := r.Resolve(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if !u.Exists() {
		t.Fatal("Exists() = false")
	}
	if u.Name() != "Ada" || u.Email() != "ada@example.com" || u.Phone() != "+15550100" || u.Type() != TypeOrganizer {
		t.Errorf("profile = %q %q %q %v", u.Name(), u.Email(), u.Phone(), u.Type())
	}
}

func TestResolveFailureReturnsEmptyUser(t *testing.T) {
	r := NewResolver(failing(errors.New("connection reset")), ResolverOptions{Logger: discard})

	done := make(chan struct{})
	var (
		u   *User
		err error
	)
	go func() {
		u, err = r.Resolve(context.Background(), "dev-1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Resolve hung on backend failure")
	}

	if u == nil || u.Exists() {
		t.Fatalf("user = %+v, want non-existent", u)
	}
	if !errors.Is(err, core.ErrTransient) {
		t.Errorf("err = %v, want ErrTransient", err)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := NewResolver(failing(fmt.Errorf("get: %w", core.ErrNotFound)), ResolverOptions{Logger: discard})

	u, err := r.Resolve(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("Resolve error = %v, want nil", err)
	}
	if u.Presence() != PresenceNonexistent {
		t.Errorf("Presence() = %v, want nonexistent", u.Presence())
	}
}

func TestResolveTimeoutBecomesTransient(t *testing.T) {
	r := NewResolver(hanging(), ResolverOptions{Timeout: 20 * time.Millisecond, Logger: discard})

	start := time.Now()
	u, err := r.Resolve(context.Background(), "dev-1")

	if time.Since(start) > time.Second {
		t.Fatal("Resolve ignored its timeout")
	}
	if !errors.Is(err, core.ErrTransient) {
		t.Errorf("err = %v, want ErrTransient", err)
	}
	if u.Exists() || u.Presence() != PresenceError {
		t.Errorf("Presence() = %v, want error", u.Presence())
	}
}

func TestResolveAsyncCompletionFiresOnce(t *testing.T) {
	tests := []struct {
		name         string
		repo         *stubRepository
		wantResolved int32
		wantFailed   int32
		wantMessage  string
	}{
		{name: "found", repo: found(Record{Name: "Ada"}), wantResolved: 1},
		{name: "not found", repo: failing(core.ErrNotFound), wantFailed: 1, wantMessage: notFoundMessage},
		{name: "backend error", repo: failing(errors.New("boom")), wantFailed: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.repo, ResolverOptions{Logger: discard})

			var resolved, failed atomic.Int32
			messages := make(chan string, 2)
			fired := make(chan struct{}, 2)

			p := r.ResolveAsync(context.Background(), "dev-1", Completion{
				OnResolved: func(u *User) {
					resolved.Add(1)
					if u.Name() != "Ada" {
						t.Errorf("OnResolved user name = %q", u.Name())
					}
					fired <- struct{}{}
				},
				OnFailed: func(msg string) {
					failed.Add(1)
					messages <- msg
					fired <- struct{}{}
				},
			})

			select {
			case <-fired:
			case <-time.After(2 * time.Second):
				t.Fatal("completion never fired")
			}
			<-p.Done()

			if resolved.Load() != tt.wantResolved || failed.Load() != tt.wantFailed {
				t.Errorf("resolved=%d failed=%d", resolved.Load(), failed.Load())
			}
			if tt.wantMessage != "" {
				if msg := <-messages; msg != tt.wantMessage {
					t.Errorf("message = %q, want %q", msg, tt.wantMessage)
				}
			}
		})
	}
}

func TestPendingFirstCompletionWins(t *testing.T) {
	p := newPending("dev-1")

	if !p.complete(Resolution{Presence: PresenceExistent}) {
		t.Fatal("first complete lost")
	}
	if p.complete(Resolution{Presence: PresenceError}) {
		t.Fatal("second complete won")
	}

	res, ok := p.Result()
	if !ok || res.Presence != PresenceExistent {
		t.Errorf("Result() = %+v, %v", res, ok)
	}
}

func TestPendingResultBeforeDone(t *testing.T) {
	p := newPending("dev-1")
	if _, ok := p.Result(); ok {
		t.Error("Result() ready before completion")
	}
}

func TestReloadAsyncAppliedByOwner(t *testing.T) {
	r := NewResolver(found(Record{Name: "remote"}), ResolverOptions{Logger: discard})
	u := New("dev-1", nil)

	p := r.ReloadAsync(context.Background(), u)
	if u.Exists() {
		t.Fatal("user mutated before owner applied the result")
	}

	res, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait error = %v", err)
	}
	u.Apply(res)

	if !u.Exists() || u.Name() != "remote" {
		t.Errorf("after Apply: exists=%v name=%q", u.Exists(), u.Name())
	}
}

func TestReload(t *testing.T) {
	repo := found(Record{Name: "first"})
	r := NewResolver(repo, ResolverOptions{Logger: discard})

	u, _ := r.Resolve(context.Background(), "dev-1")
	if err := r.Reload(context.Background(), u); err != nil {
		t.Fatalf("Reload error = %v", err)
	}
	if repo.calls.Load() != 2 {
		t.Errorf("backend calls = %d, want 2", repo.calls.Load())
	}
}
