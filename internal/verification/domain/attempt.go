package domain

import "time"

// ChannelKind identifies the out-of-band channel a code is delivered on.
type ChannelKind string

const (
	ChannelPhone ChannelKind = "phone"
	ChannelEmail ChannelKind = "email"
)

// AttemptStatus is the lifecycle state of a verification attempt.
// Every transition out of Pending is terminal; only a fresh send creates a new attempt.
type AttemptStatus string

const (
	AttemptPending  AttemptStatus = "pending"
	AttemptVerified AttemptStatus = "verified"
	AttemptExpired  AttemptStatus = "expired"
	AttemptFailed   AttemptStatus = "failed"
)

// Attempt is a single outstanding verification attempt for one channel of one
// signup session. At most one attempt exists per (session, channel); a new send
// supersedes the prior one.
type Attempt struct {
	SessionID         string
	Channel           ChannelKind
	Target            string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
	CheckCount        int
	Status            AttemptStatus
}

// ResendableAt reports whether a new send is allowed at the given instant.
// Verified and terminal attempts never block a resend; a pending attempt blocks
// until its cooldown has elapsed.
func (a *Attempt) ResendableAt(now time.Time) bool {
	if a == nil {
		return true
	}
	if a.Status != AttemptPending {
		return true
	}
	return !now.Before(a.ResendAvailableAt)
}

// ExpiredAt reports whether the attempt's code lifetime has elapsed at the given instant.
func (a *Attempt) ExpiredAt(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
