// Package wizard drives linear navigation through the signup steps: one step
// table per session, per-step validation, and durable state so a reload
// resumes where the customer left off.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"yfi-bank/backend/internal/postal"
	verifdomain "yfi-bank/backend/internal/verification/domain"
	"yfi-bank/backend/internal/wizard/domain"
)

var ErrSessionNotFound = errors.New("signup session not found")

// ValidationError carries the full ordered list of field errors for one
// rejected advance. The step index is left unchanged when it is returned.
type ValidationError struct {
	Errors []domain.FieldError
}

func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s", e.Errors[0])
	default:
		return fmt.Sprintf("validation failed: %s (and %d more)", e.Errors[0], len(e.Errors)-1)
	}
}

// SessionStore persists StepState between requests.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.StepState, error)
	Put(ctx context.Context, state *domain.StepState) error
	Delete(ctx context.Context, sessionID string) error
}

// ChannelGate reports whether a channel's verification attempt is Verified.
// The tracker implements it; verify steps advance only through it.
type ChannelGate interface {
	Status(ctx context.Context, sessionID string, kind verifdomain.ChannelKind) (verifdomain.AttemptStatus, bool, error)
}

// ContactChecker reports whether a contact point already belongs to an
// existing profile. May be nil; then pre-checks are skipped.
type ContactChecker interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}

// PostalLookup resolves a postal code to address fields. May be nil; then the
// customer types the address unaided.
type PostalLookup interface {
	Lookup(ctx context.Context, code string) (*postal.Address, error)
}

// Sequencer owns wizard navigation for all sessions.
type Sequencer struct {
	store    SessionStore
	gate     ChannelGate
	contacts ContactChecker
	lookup   PostalLookup
	order    []verifdomain.ChannelKind
	nowF     func() time.Time
}

func NewSequencer(
	store SessionStore,
	gate ChannelGate,
	contacts ContactChecker,
	lookup PostalLookup,
	order []verifdomain.ChannelKind,
) *Sequencer {
	return &Sequencer{
		store:    store,
		gate:     gate,
		contacts: contacts,
		lookup:   lookup,
		order:    order,
		nowF:     time.Now,
	}
}

// Start creates a fresh session at step 0 with an empty draft.
func (s *Sequencer) Start(ctx context.Context) (*domain.StepState, error) {
	now := s.nowF()
	state := &domain.StepState{
		SessionID:    uuid.New().String(),
		ChannelOrder: s.order,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Put(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Load returns the session's state, or ErrSessionNotFound.
func (s *Sequencer) Load(ctx context.Context, sessionID string) (*domain.StepState, error) {
	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrSessionNotFound
	}
	return state, nil
}

// SetFields writes the given fields into the draft, normalizing each value.
// Unknown field names are rejected so typos surface instead of vanishing.
func (s *Sequencer) SetFields(ctx context.Context, sessionID string, fields map[string]string) (*domain.StepState, error) {
	state, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := applyFields(state, fields); err != nil {
		return nil, err
	}
	state.UpdatedAt = s.nowF()
	if err := s.store.Put(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Advance applies the given fields to the draft, validates the current step
// and moves to the next one. On validation failure it returns a
// ValidationError with every failing field and leaves the index unchanged.
// The index clamps at the final step.
//
// Fields are applied here rather than requiring a prior SetFields call because
// passwords are never persisted: the password step can only validate values
// carried in the same request.
func (s *Sequencer) Advance(ctx context.Context, sessionID string, fields map[string]string) (*domain.StepState, error) {
	state, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := applyFields(state, fields); err != nil {
		return nil, err
	}
	step := state.Current()

	if step.Channel != "" {
		if err := s.checkVerified(ctx, sessionID, step); err != nil {
			return nil, err
		}
	} else {
		if errs := step.Validate(&state.Draft); len(errs) > 0 {
			return nil, &ValidationError{Errors: errs}
		}
		if err := s.stepSideEffects(ctx, state, step); err != nil {
			return nil, err
		}
	}

	if state.Index < len(state.Steps())-1 {
		state.Index++
	}
	state.UpdatedAt = s.nowF()
	if err := s.store.Put(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Retreat moves one step back, floor zero. It never validates.
func (s *Sequencer) Retreat(ctx context.Context, sessionID string) (*domain.StepState, error) {
	state, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Index > 0 {
		state.Index--
	}
	state.UpdatedAt = s.nowF()
	if err := s.store.Put(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Clear destroys the session after successful provisioning or abandonment.
func (s *Sequencer) Clear(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

func applyFields(state *domain.StepState, fields map[string]string) error {
	for name, value := range fields {
		if name == domain.FieldCode {
			continue
		}
		if !state.Draft.SetField(name, value) {
			return &ValidationError{Errors: []domain.FieldError{{Field: name, Message: "unknown field"}}}
		}
	}
	return nil
}

func (s *Sequencer) checkVerified(ctx context.Context, sessionID string, step domain.Step) error {
	if s.gate == nil {
		return nil
	}
	status, ok, err := s.gate.Status(ctx, sessionID, step.Channel)
	if err != nil {
		return err
	}
	if !ok || status != verifdomain.AttemptVerified {
		return &ValidationError{Errors: []domain.FieldError{
			{Field: domain.FieldCode, Message: fmt.Sprintf("%s is not verified yet", step.Channel)},
		}}
	}
	return nil
}

// stepSideEffects runs the extra checks tied to specific steps: contact
// uniqueness pre-checks and postal autofill.
func (s *Sequencer) stepSideEffects(ctx context.Context, state *domain.StepState, step domain.Step) error {
	switch step.ID {
	case domain.StepPhone:
		if s.contacts == nil {
			return nil
		}
		taken, err := s.contacts.ExistsByPhone(ctx, state.Draft.Phone)
		if err != nil {
			return err
		}
		if taken {
			return &ValidationError{Errors: []domain.FieldError{
				{Field: domain.FieldPhone, Message: "phone number is already registered"},
			}}
		}
	case domain.StepEmail:
		if s.contacts == nil {
			return nil
		}
		taken, err := s.contacts.ExistsByEmail(ctx, state.Draft.Email)
		if err != nil {
			return err
		}
		if taken {
			return &ValidationError{Errors: []domain.FieldError{
				{Field: domain.FieldEmail, Message: "email is already registered"},
			}}
		}
	case domain.StepPostalCode:
		if s.lookup == nil {
			return nil
		}
		addr, err := s.lookup.Lookup(ctx, state.Draft.PostalCode)
		if err != nil {
			if errors.Is(err, postal.ErrNotFound) || errors.Is(err, postal.ErrBadCode) {
				return &ValidationError{Errors: []domain.FieldError{
					{Field: domain.FieldPostalCode, Message: "unknown postal code"},
				}}
			}
			return err
		}
		state.Draft.Street = addr.Street
		state.Draft.District = addr.District
		state.Draft.City = addr.City
		state.Draft.Region = addr.Region
	}
	return nil
}
