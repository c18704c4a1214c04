// Package handler exposes the signup saga over HTTP and maps the error
// taxonomy onto status codes.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"yfi-bank/backend/internal/provision"
	"yfi-bank/backend/internal/verification"
	verifdomain "yfi-bank/backend/internal/verification/domain"
	"yfi-bank/backend/internal/wizard"
	wizarddomain "yfi-bank/backend/internal/wizard/domain"
)

// SessionHeader carries the signup session id on every request after start.
const SessionHeader = "X-Signup-Session"

type SignupHandler struct {
	sequencer   *wizard.Sequencer
	tracker     *verification.Tracker
	coordinator *provision.Coordinator
	log         *slog.Logger
}

func NewSignupHandler(
	sequencer *wizard.Sequencer,
	tracker *verification.Tracker,
	coordinator *provision.Coordinator,
	log *slog.Logger,
) *SignupHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SignupHandler{
		sequencer:   sequencer,
		tracker:     tracker,
		coordinator: coordinator,
		log:         log,
	}
}

// stateView is the wire shape of the wizard state. The draft's own JSON tags
// keep passwords out.
type stateView struct {
	SessionID string             `json:"session_id"`
	Step      string             `json:"step"`
	Index     int                `json:"index"`
	Total     int                `json:"total"`
	Fields    []string           `json:"fields"`
	Draft     wizarddomain.Draft `json:"draft"`
}

func viewOf(state *wizarddomain.StepState) stateView {
	step := state.Current()
	return stateView{
		SessionID: state.SessionID,
		Step:      string(step.ID),
		Index:     state.Index,
		Total:     len(state.Steps()),
		Fields:    step.Fields,
		Draft:     state.Draft,
	}
}

func (h *SignupHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.sequencer.Start(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, viewOf(state))
}

func (h *SignupHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.sequencer.Load(r.Context(), r.Header.Get(SessionHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(state))
}

func (h *SignupHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	state, err := h.sequencer.SetFields(r.Context(), r.Header.Get(SessionHeader), req.Fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(state))
}

func (h *SignupHandler) Advance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	state, err := h.sequencer.Advance(r.Context(), r.Header.Get(SessionHeader), req.Fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(state))
}

func (h *SignupHandler) Back(w http.ResponseWriter, r *http.Request) {
	state, err := h.sequencer.Retreat(r.Context(), r.Header.Get(SessionHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(state))
}

func (h *SignupHandler) StartVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	sessionID := r.Header.Get(SessionHeader)

	kind, target, err := h.channelTarget(r, sessionID, req.Channel)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.tracker.Issue(r.Context(), sessionID, kind, target); err != nil {
		h.writeError(w, r, err)
		return
	}
	// The send already succeeded; a failed cooldown lookup only costs the
	// countdown hint, not the attempt.
	cooldown, err := h.tracker.RemainingCooldown(r.Context(), sessionID, kind)
	if err != nil {
		h.log.Error("remaining cooldown lookup failed", "session_id", sessionID, "channel", kind, "error", err)
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "pending"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "pending",
		"resend_in_seconds": int(cooldown / time.Second),
	})
}

func (h *SignupHandler) CheckVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	sessionID := r.Header.Get(SessionHeader)

	kind, _, err := h.channelTarget(r, sessionID, req.Channel)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.tracker.Check(r.Context(), sessionID, kind, req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *SignupHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errBody("invalid request body"))
		return
	}
	sessionID := r.Header.Get(SessionHeader)

	state, err := h.sequencer.Load(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// The password never survives persistence, so the completion request
	// carries it again.
	draft := state.Draft
	draft.Password = req.Password
	draft.PasswordConfirm = req.PasswordConfirm

	result, err := h.coordinator.Provision(r.Context(), sessionID, &draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"identity_id": result.IdentityID,
		"profile_id":  result.ProfileID.String(),
	})
}

func (h *SignupHandler) channelTarget(r *http.Request, sessionID, channel string) (verifdomain.ChannelKind, string, error) {
	state, err := h.sequencer.Load(r.Context(), sessionID)
	if err != nil {
		return "", "", err
	}
	switch channel {
	case string(verifdomain.ChannelPhone):
		if state.Draft.Phone == "" {
			return "", "", &wizard.ValidationError{Errors: []wizarddomain.FieldError{
				{Field: wizarddomain.FieldPhone, Message: "phone is required before verification"},
			}}
		}
		return verifdomain.ChannelPhone, state.Draft.Phone, nil
	case string(verifdomain.ChannelEmail):
		if state.Draft.Email == "" {
			return "", "", &wizard.ValidationError{Errors: []wizarddomain.FieldError{
				{Field: wizarddomain.FieldEmail, Message: "email is required before verification"},
			}}
		}
		return verifdomain.ChannelEmail, state.Draft.Email, nil
	default:
		return "", "", &wizard.ValidationError{Errors: []wizarddomain.FieldError{
			{Field: "channel", Message: "channel must be phone or email"},
		}}
	}
}

func (h *SignupHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("handler: encode response", "err", err)
	}
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps the error taxonomy onto HTTP statuses. Orphaned identities
// get a generic message: the inconsistency is an operator concern, not a
// user-correctable one.
func (h *SignupHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": verr.Errors})
		return
	}

	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		h.writeJSON(w, http.StatusNotFound, errBody("signup session not found"))
	case errors.Is(err, verification.ErrRateLimited):
		h.writeJSON(w, http.StatusTooManyRequests, errBody(err.Error()))
	case errors.Is(err, verification.ErrTooManyAttempts):
		h.writeJSON(w, http.StatusTooManyRequests, errBody("too many attempts, request a new code"))
	case errors.Is(err, verification.ErrCodeMismatch):
		h.writeJSON(w, http.StatusBadRequest, errBody("incorrect code"))
	case errors.Is(err, verification.ErrExpired):
		h.writeJSON(w, http.StatusGone, errBody("code expired, request a new one"))
	case errors.Is(err, verification.ErrNoActiveAttempt):
		h.writeJSON(w, http.StatusConflict, errBody("no active verification, request a code first"))
	case errors.Is(err, verification.ErrChannelUnavailable):
		h.writeJSON(w, http.StatusBadGateway, errBody("verification service unavailable, try again"))
	case errors.Is(err, provision.ErrDraftIncomplete):
		h.writeJSON(w, http.StatusUnprocessableEntity, errBody("signup data is incomplete"))
	case errors.Is(err, provision.ErrVerificationIncomplete):
		h.writeJSON(w, http.StatusConflict, errBody("phone and email must be verified first"))
	case errors.Is(err, provision.ErrEmailTaken):
		h.writeJSON(w, http.StatusConflict, errBody("email already belongs to an account"))
	case errors.Is(err, provision.ErrIdentityCreationFailed),
		errors.Is(err, provision.ErrProfileCreationFailed):
		h.writeJSON(w, http.StatusBadGateway, errBody("account creation failed, try again"))
	case errors.Is(err, provision.ErrOrphanedIdentity):
		h.log.Error("handler: orphaned identity", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errBody("something went wrong, please contact support"))
	default:
		h.log.Error("handler: internal error", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errBody("internal error"))
	}
}
