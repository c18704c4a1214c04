package domain

import (
	"time"

	verifdomain "yfi-bank/backend/internal/verification/domain"
)

// StepState is the durable wizard state for one signup session: the chosen
// channel order (which fixes the step list), the current index, and the draft.
// The step list itself is re-derived from ChannelOrder on load rather than
// persisted, so step definitions can evolve without migrating stored sessions.
type StepState struct {
	SessionID    string                    `json:"session_id"`
	ChannelOrder []verifdomain.ChannelKind `json:"channel_order"`
	Index        int                       `json:"index"`
	Draft        Draft                     `json:"draft"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// Steps returns the session's step list.
func (s *StepState) Steps() []Step {
	return Flow(s.ChannelOrder)
}

// Current returns the active step, clamping the index into range.
func (s *StepState) Current() Step {
	steps := s.Steps()
	i := s.Index
	if i < 0 {
		i = 0
	}
	if i >= len(steps) {
		i = len(steps) - 1
	}
	return steps[i]
}
