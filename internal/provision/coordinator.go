// Package provision performs the terminal signup step: the cross-system write
// creating a credentialed identity and its profile, with compensating deletion
// when the second write fails after the first succeeded.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"yfi-bank/backend/internal/audit"
	auditdomain "yfi-bank/backend/internal/audit/domain"
	"yfi-bank/backend/internal/identity"
	profiledomain "yfi-bank/backend/internal/profile/domain"
	"yfi-bank/backend/internal/telemetry"
	verifdomain "yfi-bank/backend/internal/verification/domain"
	wizarddomain "yfi-bank/backend/internal/wizard/domain"
)

var (
	ErrDraftIncomplete        = errors.New("registration draft is incomplete")
	ErrVerificationIncomplete = errors.New("phone and email must both be verified")
	ErrEmailTaken             = errors.New("email already belongs to an account")
	ErrIdentityCreationFailed = errors.New("identity creation failed")
	ErrProfileCreationFailed  = errors.New("profile creation failed")

	// ErrOrphanedIdentity means compensation failed: an identity exists with no
	// profile. The two systems are inconsistent and an operator must intervene.
	ErrOrphanedIdentity = errors.New("identity orphaned after failed compensation")
)

// IdentityProvisioner creates and deletes credentialed users in the identity
// provider. The only component allowed to touch credentials.
type IdentityProvisioner interface {
	Create(ctx context.Context, email, password string) (string, error)
	Delete(ctx context.Context, userID string) error
}

// ProfileStore creates and deletes the business profile keyed by identity id.
type ProfileStore interface {
	Insert(ctx context.Context, p *profiledomain.Profile) error
	DeleteByIdentity(ctx context.Context, identityID string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// VerificationGate exposes attempt statuses; the coordinator re-checks them
// even though the sequencer already gated the flow.
type VerificationGate interface {
	Status(ctx context.Context, sessionID string, kind verifdomain.ChannelKind) (verifdomain.AttemptStatus, bool, error)
}

// SessionCleaner destroys the wizard session after successful provisioning.
type SessionCleaner interface {
	Clear(ctx context.Context, sessionID string) error
}

// Result is the immutable outcome of a successful provisioning run.
type Result struct {
	IdentityID string
	ProfileID  uuid.UUID
}

// Coordinator orchestrates the identity-then-profile write chain.
type Coordinator struct {
	idp      IdentityProvisioner
	profiles ProfileStore
	gate     VerificationGate
	sessions SessionCleaner
	auditor  audit.AuditLogger
	emitter  telemetry.EventEmitter
}

func NewCoordinator(
	idp IdentityProvisioner,
	profiles ProfileStore,
	gate VerificationGate,
	sessions SessionCleaner,
	auditor audit.AuditLogger,
	emitter telemetry.EventEmitter,
) *Coordinator {
	return &Coordinator{
		idp:      idp,
		profiles: profiles,
		gate:     gate,
		sessions: sessions,
		auditor:  auditor,
		emitter:  emitter,
	}
}

// Provision runs the terminal step for the session's draft. The two external
// writes are strictly sequential: the profile write needs the identity id.
// Not safe to retry blindly after a failure; the email pre-check narrows but
// does not close the race with a concurrent signup for the same address.
func (c *Coordinator) Provision(ctx context.Context, sessionID string, draft *wizarddomain.Draft) (*Result, error) {
	if !draft.Complete() {
		return nil, ErrDraftIncomplete
	}
	for _, kind := range []verifdomain.ChannelKind{verifdomain.ChannelPhone, verifdomain.ChannelEmail} {
		status, ok, err := c.gate.Status(ctx, sessionID, kind)
		if err != nil {
			return nil, err
		}
		if !ok || status != verifdomain.AttemptVerified {
			return nil, fmt.Errorf("%w: %s", ErrVerificationIncomplete, kind)
		}
	}

	taken, err := c.profiles.ExistsByEmail(ctx, draft.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	profile, err := profileFromDraft(draft)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDraftIncomplete, err)
	}

	identityID, err := c.idp.Create(ctx, draft.Email, draft.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailRegistered) {
			return nil, fmt.Errorf("%w: %v", ErrEmailTaken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrIdentityCreationFailed, err)
	}
	profile.IdentityID = identityID

	if err := c.profiles.Insert(ctx, profile); err != nil {
		return nil, c.compensate(ctx, sessionID, identityID, err)
	}

	c.auditor.LogEvent(ctx, sessionID, telemetry.EventSignupCompleted, "profile",
		auditdomain.SeverityInfo, fmt.Sprintf(`{"identity_id":%q,"profile_id":%q}`, identityID, profile.ID))
	c.emit(sessionID, identityID, telemetry.EventSignupCompleted, "")

	if err := c.sessions.Clear(ctx, sessionID); err != nil {
		// The account exists; a stale session record is harmless.
		c.auditor.LogEvent(ctx, sessionID, "signup.session_clear_failed", "session",
			auditdomain.SeverityWarn, fmt.Sprintf(`{"error":%q}`, err.Error()))
	}

	return &Result{IdentityID: identityID, ProfileID: profile.ID}, nil
}

// compensate deletes the identity created before the profile write failed.
// A failed deletion is escalated, never swallowed: it is the one path that
// leaves the two systems inconsistent.
func (c *Coordinator) compensate(ctx context.Context, sessionID, identityID string, cause error) error {
	if delErr := c.idp.Delete(ctx, identityID); delErr != nil {
		c.auditor.LogEvent(ctx, sessionID, telemetry.EventOrphanedIdentity, "identity",
			auditdomain.SeverityCritical,
			fmt.Sprintf(`{"identity_id":%q,"cause":%q,"delete_error":%q}`, identityID, cause.Error(), delErr.Error()))
		c.emit(sessionID, identityID, telemetry.EventOrphanedIdentity, cause.Error())
		return fmt.Errorf("%w: identity %s", ErrOrphanedIdentity, identityID)
	}

	c.auditor.LogEvent(ctx, sessionID, telemetry.EventProfileFailed, "profile",
		auditdomain.SeverityWarn,
		fmt.Sprintf(`{"identity_id":%q,"cause":%q}`, identityID, cause.Error()))
	c.emit(sessionID, identityID, telemetry.EventProfileFailed, cause.Error())
	return fmt.Errorf("%w: %v", ErrProfileCreationFailed, cause)
}

// emit publishes the lifecycle event off the request path; the telemetry
// backend must never slow down or fail a provisioning run.
func (c *Coordinator) emit(sessionID, identityID, eventType, metadata string) {
	telemetry.EmitAsync(c.emitter, &telemetry.Event{
		SessionID:  sessionID,
		IdentityID: identityID,
		EventType:  eventType,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	})
}

func profileFromDraft(d *wizarddomain.Draft) (*profiledomain.Profile, error) {
	birth, err := time.Parse("2006-01-02", d.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("parse birth date: %w", err)
	}
	return &profiledomain.Profile{
		Email:      d.Email,
		Phone:      d.Phone,
		FullName:   d.FullName,
		TaxID:      d.TaxID,
		BirthDate:  birth,
		Address: profiledomain.Address{
			Street:     d.Street,
			Number:     d.Number,
			Complement: d.Complement,
			District:   d.District,
			City:       d.City,
			Region:     d.Region,
			PostalCode: d.PostalCode,
		},
		PhoneVerified: true,
		EmailVerified: true,
	}, nil
}
