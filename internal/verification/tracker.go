// Package verification enforces correct, rate-limited use of one-time codes
// per delivery channel: one outstanding attempt per channel, lazy expiry from
// stored timestamps, and lockout after repeated mismatches.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yfi-bank/backend/internal/verification/domain"
)

// Sentinel errors for the code lifecycle; the HTTP handler maps them to status codes.
var (
	ErrRateLimited        = errors.New("resend not yet available")
	ErrChannelUnavailable = errors.New("verification channel unavailable")
	ErrNoActiveAttempt    = errors.New("no active verification attempt")
	ErrExpired            = errors.New("verification code expired")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrTooManyAttempts    = errors.New("too many verification attempts")
)

// Channel delivers a code to a target and checks a submitted code against it.
// Implementations own code generation and matching; the tracker owns lifecycle.
type Channel interface {
	// Send delivers a fresh code to target. A prior outstanding code for the
	// same target is superseded.
	Send(ctx context.Context, target string) error
	// Check reports whether code matches the outstanding code for target.
	// A non-nil error means the channel could not be consulted, not a mismatch.
	Check(ctx context.Context, target, code string) (bool, error)
}

// AttemptStore persists the single attempt per (session, channel).
// Put overwrites any stored attempt for the same key.
type AttemptStore interface {
	Get(ctx context.Context, sessionID string, channel domain.ChannelKind) (*domain.Attempt, error)
	Put(ctx context.Context, a *domain.Attempt) error
}

// SendLimiter bounds total sends per target over a window, on top of the
// per-attempt cooldown. May be nil (no windowed limit).
type SendLimiter interface {
	Allow(ctx context.Context, target string) error
}

// Tracker is the code lifecycle state machine for one set of channels.
type Tracker struct {
	store     AttemptStore
	channels  map[domain.ChannelKind]Channel
	limiter   SendLimiter
	ttl       time.Duration
	cooldown  time.Duration
	maxChecks int
	nowF      func() time.Time
}

// NewTracker returns a Tracker using the given store and channel adapters.
// limiter may be nil. ttl and cooldown must be positive.
func NewTracker(
	store AttemptStore,
	channels map[domain.ChannelKind]Channel,
	limiter SendLimiter,
	ttl, cooldown time.Duration,
	maxChecks int,
) *Tracker {
	return &Tracker{
		store:     store,
		channels:  channels,
		limiter:   limiter,
		ttl:       ttl,
		cooldown:  cooldown,
		maxChecks: maxChecks,
		nowF:      time.Now,
	}
}

func (t *Tracker) channel(kind domain.ChannelKind) (Channel, error) {
	ch, ok := t.channels[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for channel %q", ErrChannelUnavailable, kind)
	}
	return ch, nil
}

// Issue starts a new attempt for the given channel, sending a code to target.
// Returns ErrRateLimited if a pending attempt exists whose resend cooldown has
// not elapsed, or if the windowed send limit is exceeded. If the channel send
// fails, no attempt is created and ErrChannelUnavailable is returned.
func (t *Tracker) Issue(ctx context.Context, sessionID string, kind domain.ChannelKind, target string) (*domain.Attempt, error) {
	ch, err := t.channel(kind)
	if err != nil {
		return nil, err
	}

	prior, err := t.store.Get(ctx, sessionID, kind)
	if err != nil {
		return nil, err
	}
	now := t.nowF()
	if prior != nil && !prior.ResendableAt(now) {
		return nil, fmt.Errorf("%w: wait %s", ErrRateLimited, t.cooldownLeft(prior, now).Round(time.Second))
	}
	if t.limiter != nil {
		if err := t.limiter.Allow(ctx, target); err != nil {
			return nil, err
		}
	}

	if err := ch.Send(ctx, target); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}

	a := &domain.Attempt{
		SessionID:         sessionID,
		Channel:           kind,
		Target:            target,
		IssuedAt:          now,
		ExpiresAt:         now.Add(t.ttl),
		ResendAvailableAt: now.Add(t.cooldown),
		Status:            domain.AttemptPending,
	}
	if err := t.store.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Check validates code against the outstanding attempt for the channel.
// Verified attempts are idempotent: a repeat check succeeds without contacting
// the channel. Expiry is evaluated lazily here; an expired attempt transitions
// to Expired before the channel is consulted. After maxChecks mismatches the
// attempt transitions to Failed and further checks return ErrTooManyAttempts.
func (t *Tracker) Check(ctx context.Context, sessionID string, kind domain.ChannelKind, code string) error {
	a, err := t.store.Get(ctx, sessionID, kind)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrNoActiveAttempt
	}

	switch a.Status {
	case domain.AttemptVerified:
		return nil
	case domain.AttemptFailed:
		return ErrTooManyAttempts
	case domain.AttemptExpired:
		return ErrNoActiveAttempt
	}

	now := t.nowF()
	if a.ExpiredAt(now) {
		a.Status = domain.AttemptExpired
		if err := t.store.Put(ctx, a); err != nil {
			return err
		}
		return ErrExpired
	}

	ch, err := t.channel(kind)
	if err != nil {
		return err
	}
	ok, err := ch.Check(ctx, a.Target, code)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	if !ok {
		a.CheckCount++
		if a.CheckCount >= t.maxChecks {
			a.Status = domain.AttemptFailed
		}
		if err := t.store.Put(ctx, a); err != nil {
			return err
		}
		return ErrCodeMismatch
	}

	a.Status = domain.AttemptVerified
	return t.store.Put(ctx, a)
}

// RemainingCooldown returns the non-negative time until a resend is allowed for
// the channel. Zero once the cooldown has passed or when no pending attempt exists.
func (t *Tracker) RemainingCooldown(ctx context.Context, sessionID string, kind domain.ChannelKind) (time.Duration, error) {
	a, err := t.store.Get(ctx, sessionID, kind)
	if err != nil {
		return 0, err
	}
	if a == nil || a.Status != domain.AttemptPending {
		return 0, nil
	}
	return t.cooldownLeft(a, t.nowF()), nil
}

// Status returns the current lifecycle state of the channel's attempt,
// evaluating lazy expiry. ok is false when no attempt exists.
func (t *Tracker) Status(ctx context.Context, sessionID string, kind domain.ChannelKind) (domain.AttemptStatus, bool, error) {
	a, err := t.store.Get(ctx, sessionID, kind)
	if err != nil {
		return "", false, err
	}
	if a == nil {
		return "", false, nil
	}
	if a.Status == domain.AttemptPending && a.ExpiredAt(t.nowF()) {
		return domain.AttemptExpired, true, nil
	}
	return a.Status, true, nil
}

func (t *Tracker) cooldownLeft(a *domain.Attempt, now time.Time) time.Duration {
	d := a.ResendAvailableAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
