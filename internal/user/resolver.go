// AngelaMos | 2026
// resolver.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hotdog/elotto/internal/core"
)

const notFoundMessage = "user not found"

// Resolution is the outcome of one lookup. Record is set only when
// Presence is PresenceExistent; Err only when it is PresenceError.
type Resolution struct {
	DeviceID string
	Record   *Record
	Presence Presence
	Err      error
}

// Completion is the callback pair of a non-blocking resolution. Exactly one
// of the two runs, on the resolver's goroutine. The User passed to
// OnResolved belongs to the callback.
type Completion struct {
	OnResolved func(u *User)
	OnFailed   func(message string)
}

// Pending is a one-shot handle on an in-flight resolution. The first
// completion wins and later ones are dropped.
type Pending struct {
	deviceID string
	once     sync.Once
	done     chan struct{}
	result   Resolution
}

func newPending(deviceID string) *Pending {
	return &Pending{deviceID: deviceID, done: make(chan struct{})}
}

func (p *Pending) complete(res Resolution) bool {
	won := false
	p.once.Do(func() {
		p.result = res
		close(p.done)
		won = true
	})
	return won
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the resolution once Done is closed.
func (p *Pending) Result() (Resolution, bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return Resolution{}, false
	}
}

func (p *Pending) Wait(ctx context.Context) (Resolution, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	}
}

type ResolverOptions struct {
	// Timeout bounds a blocking resolution. Zero waits as long as ctx.
	Timeout   time.Duration
	Persister Persister
	Logger    *slog.Logger
}

// Resolver turns device ids into users backed by the repository.
type Resolver struct {
	repo      Repository
	persister Persister
	timeout   time.Duration
	logger    *slog.Logger
}

func NewResolver(repo Repository, opts ResolverOptions) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		repo:      repo,
		persister: opts.Persister,
		timeout:   opts.Timeout,
		logger:    logger,
	}
}

func (r *Resolver) fetch(ctx context.Context, deviceID string) Resolution {
	rec, err := r.repo.GetByID(ctx, deviceID)
	switch {
	case err == nil:
		return Resolution{DeviceID: deviceID, Record: rec, Presence: PresenceExistent}
	case errors.Is(err, core.ErrNotFound):
		return Resolution{DeviceID: deviceID, Presence: PresenceNonexistent}
	default:
		if !errors.Is(err, core.ErrTransient) {
			err = fmt.Errorf("%w: %w", core.ErrTransient, err)
		}
		return Resolution{
			DeviceID: deviceID,
			Presence: PresenceError,
			Err:      fmt.Errorf("resolve %s: %w", deviceID, err),
		}
	}
}

func (r *Resolver) dispatch(ctx context.Context, deviceID string, done func(Resolution)) *Pending {
	p := newPending(deviceID)
	go func() {
		res := r.fetch(ctx, deviceID)
		if !p.complete(res) {
			r.logger.Debug("late resolution dropped", "device_id", deviceID)
			return
		}
		if done != nil {
			done(res)
		}
	}()
	return p
}

// ResolveAsync starts a lookup and returns immediately. An optional
// Completion is notified when the lookup finishes.
func (r *Resolver) ResolveAsync(
	ctx context.Context,
	deviceID string,
	cb ...Completion,
) *Pending {
	var done func(Resolution)
	if len(cb) > 0 {
		c := cb[0]
		done = func(res Resolution) {
			r.notify(res, c)
		}
	}
	return r.dispatch(ctx, deviceID, done)
}

func (r *Resolver) notify(res Resolution, c Completion) {
	if res.Presence == PresenceExistent {
		if c.OnResolved != nil {
			u := New(res.DeviceID, r.persister)
			u.Apply(res)
			c.OnResolved(u)
		}
		return
	}

	if c.OnFailed == nil {
		return
	}
	if res.Err != nil {
		c.OnFailed(res.Err.Error())
		return
	}
	c.OnFailed(notFoundMessage)
}

// Resolve blocks until the lookup for deviceID completes or the timeout
// expires. The returned user is always usable; err is non-nil only for a
// backend failure or timeout, in which case Presence is PresenceError.
func (r *Resolver) Resolve(ctx context.Context, deviceID string) (*User, error) {
	u := New(deviceID, r.persister)
	res := r.await(ctx, deviceID)
	u.Apply(res)
	return u, res.Err
}

// Reload refreshes u from the backend on the caller's goroutine.
func (r *Resolver) Reload(ctx context.Context, u *User) error {
	res := r.await(ctx, u.deviceID)
	u.Apply(res)
	return res.Err
}

// ReloadAsync starts a refresh of u. The caller applies the result with
// u.Apply once the handle is done; u itself is never touched from another
// goroutine.
func (r *Resolver) ReloadAsync(ctx context.Context, u *User) *Pending {
	return r.dispatch(ctx, u.deviceID, nil)
}

func (r *Resolver) await(ctx context.Context, deviceID string) Resolution {
	waitCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	p := r.dispatch(waitCtx, deviceID, nil)

	res, err := p.Wait(waitCtx)
	if err == nil {
		return res
	}

	expired := Resolution{
		DeviceID: deviceID,
		Presence: PresenceError,
		Err:      fmt.Errorf("resolve %s: %w: %w", deviceID, core.ErrTransient, err),
	}
	if p.complete(expired) {
		r.logger.Warn("resolution timed out",
			"device_id", deviceID,
			"timeout", r.timeout,
		)
		return expired
	}

	return p.result
}
