package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yfi-bank/backend/internal/audit"
	"yfi-bank/backend/internal/handler"
	"yfi-bank/backend/internal/postal"
	profiledomain "yfi-bank/backend/internal/profile/domain"
	"yfi-bank/backend/internal/provision"
	"yfi-bank/backend/internal/server"
	"yfi-bank/backend/internal/verification"
	"yfi-bank/backend/internal/verification/devchannel"
	verifdomain "yfi-bank/backend/internal/verification/domain"
	verifmem "yfi-bank/backend/internal/verification/memory"
	"yfi-bank/backend/internal/wizard"
	"yfi-bank/backend/internal/wizard/session"
)

type memProfiles struct {
	byEmail map[string]*profiledomain.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byEmail: make(map[string]*profiledomain.Profile)}
}

func (m *memProfiles) Insert(_ context.Context, p *profiledomain.Profile) error {
	m.byEmail[p.Email] = p
	return nil
}

func (m *memProfiles) DeleteByIdentity(_ context.Context, identityID string) error {
	for email, p := range m.byEmail {
		if p.IdentityID == identityID {
			delete(m.byEmail, email)
		}
	}
	return nil
}

func (m *memProfiles) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *memProfiles) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	for _, p := range m.byEmail {
		if p.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

type fakeIdentity struct {
	nextID int
}

func (f *fakeIdentity) Create(_ context.Context, _, _ string) (string, error) {
	f.nextID++
	return fmt.Sprintf("identity-%d", f.nextID), nil
}

func (f *fakeIdentity) Delete(_ context.Context, _ string) error { return nil }

type fakeLookup struct{}

func (fakeLookup) Lookup(_ context.Context, _ string) (*postal.Address, error) {
	return &postal.Address{Street: "Avenida Paulista", District: "Bela Vista", City: "São Paulo", Region: "SP"}, nil
}

// flakyAttemptStore serves reads from the wrapped store until failFrom reads
// have happened, then errors on every further Get. Writes pass through.
type flakyAttemptStore struct {
	verification.AttemptStore
	getCalls int
	failFrom int
}

func (s *flakyAttemptStore) Get(ctx context.Context, sessionID string, channel verifdomain.ChannelKind) (*verifdomain.Attempt, error) {
	s.getCalls++
	if s.getCalls >= s.failFrom {
		return nil, errors.New("attempt store unavailable")
	}
	return s.AttemptStore.Get(ctx, sessionID, channel)
}

func newTestRouter(t *testing.T) http.Handler {
	return newTestRouterWithStore(t, verifmem.NewStore())
}

func newTestRouterWithStore(t *testing.T, store verification.AttemptStore) http.Handler {
	t.Helper()

	dev := devchannel.New(10*time.Minute, devchannel.FixedCode, nil)
	tracker := verification.NewTracker(
		store,
		map[verifdomain.ChannelKind]verification.Channel{
			verifdomain.ChannelPhone: dev,
			verifdomain.ChannelEmail: dev,
		},
		nil,
		10*time.Minute, 60*time.Second, 5,
	)

	profiles := newMemProfiles()
	sequencer := wizard.NewSequencer(session.NewMemoryStore(), tracker, profiles, fakeLookup{}, nil)
	coordinator := provision.NewCoordinator(
		&fakeIdentity{}, profiles, tracker, sequencer, audit.NewLogger(nil, nil), nil,
	)

	h := handler.NewSignupHandler(sequencer, tracker, coordinator, nil)
	return server.NewRouter(h, []string{"*"}, nil)
}

func do(t *testing.T, router http.Handler, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(handler.SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func startSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/signup/session", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: status %d body %s", rec.Code, rec.Body.String())
	}
	sid, _ := decode(t, rec)["session_id"].(string)
	if sid == "" {
		t.Fatal("start session: empty session id")
	}
	return sid
}

func advance(t *testing.T, router http.Handler, sid string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, router, http.MethodPost, "/signup/advance", sid, map[string]interface{}{"fields": fields})
}

func verifyChannel(t *testing.T, router http.Handler, sid, channel string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/signup/start-verification", sid, map[string]string{"channel": channel})
	if rec.Code != http.StatusOK {
		t.Fatalf("start %s verification: status %d body %s", channel, rec.Code, rec.Body.String())
	}
	rec = do(t, router, http.MethodPost, "/signup/check-verification", sid, map[string]string{"channel": channel, "code": devchannel.FixedCode})
	if rec.Code != http.StatusOK {
		t.Fatalf("check %s verification: status %d body %s", channel, rec.Code, rec.Body.String())
	}
}

func TestSignupFullFlow(t *testing.T) {
	router := newTestRouter(t)
	sid := startSession(t, router)

	if rec := advance(t, router, sid, map[string]string{"phone": "+550000000000"}); rec.Code != http.StatusOK {
		t.Fatalf("advance phone: status %d body %s", rec.Code, rec.Body.String())
	}
	verifyChannel(t, router, sid, "phone")
	if rec := advance(t, router, sid, nil); rec.Code != http.StatusOK {
		t.Fatalf("advance phone-verify: status %d body %s", rec.Code, rec.Body.String())
	}

	steps := []map[string]string{
		{"password": "Str0ng!pass", "password_confirm": "Str0ng!pass"},
		{"full_name": "Ana Souza", "tax_id": "529.982.247-25", "birth_date": "1990-04-12"},
		{"postal_code": "01310-100"},
		{"number": "1000"},
		{"email": "ana@example.com"},
	}
	for i, fields := range steps {
		if rec := advance(t, router, sid, fields); rec.Code != http.StatusOK {
			t.Fatalf("advance step %d: status %d body %s", i, rec.Code, rec.Body.String())
		}
	}
	verifyChannel(t, router, sid, "email")
	if rec := advance(t, router, sid, nil); rec.Code != http.StatusOK {
		t.Fatalf("advance email-verify: status %d body %s", rec.Code, rec.Body.String())
	}

	rec := do(t, router, http.MethodPost, "/signup/complete", sid, map[string]string{
		"password": "Str0ng!pass", "password_confirm": "Str0ng!pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("complete: status %d body %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["identity_id"] == "" || out["profile_id"] == "" {
		t.Errorf("complete response = %v", out)
	}

	// Session is destroyed after successful provisioning.
	if rec := do(t, router, http.MethodGet, "/signup/session", sid, nil); rec.Code != http.StatusNotFound {
		t.Errorf("session after complete: status %d, want 404", rec.Code)
	}
}

// Five wrong codes lock the attempt, the sixth check is refused even with the
// right code, and a fresh send unlocks the channel.
func TestSignupLockoutAndRecovery(t *testing.T) {
	router := newTestRouter(t)
	sid := startSession(t, router)

	if rec := advance(t, router, sid, map[string]string{"phone": "+550000000000"}); rec.Code != http.StatusOK {
		t.Fatalf("advance phone: status %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/signup/start-verification", sid, map[string]string{"channel": "phone"}); rec.Code != http.StatusOK {
		t.Fatalf("start verification: status %d", rec.Code)
	}

	for i := 0; i < 5; i++ {
		rec := do(t, router, http.MethodPost, "/signup/check-verification", sid, map[string]string{"channel": "phone", "code": "000000"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("wrong code %d: status %d, want 400", i+1, rec.Code)
		}
	}
	rec := do(t, router, http.MethodPost, "/signup/check-verification", sid, map[string]string{"channel": "phone", "code": devchannel.FixedCode})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("check after lockout: status %d, want 429", rec.Code)
	}

	// A failed attempt does not block a fresh send.
	if rec := do(t, router, http.MethodPost, "/signup/start-verification", sid, map[string]string{"channel": "phone"}); rec.Code != http.StatusOK {
		t.Fatalf("reissue after lockout: status %d", rec.Code)
	}
	rec = do(t, router, http.MethodPost, "/signup/check-verification", sid, map[string]string{"channel": "phone", "code": devchannel.FixedCode})
	if rec.Code != http.StatusOK {
		t.Fatalf("check fresh code: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestSignupResendWithinCooldown(t *testing.T) {
	router := newTestRouter(t)
	sid := startSession(t, router)

	if rec := advance(t, router, sid, map[string]string{"phone": "+550000000000"}); rec.Code != http.StatusOK {
		t.Fatalf("advance phone: status %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/signup/start-verification", sid, map[string]string{"channel": "phone"}); rec.Code != http.StatusOK {
		t.Fatalf("first send: status %d", rec.Code)
	}
	rec := do(t, router, http.MethodPost, "/signup/start-verification", sid, map[string]string{"channel": "phone"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("resend within cooldown: status %d, want 429", rec.Code)
	}
}

func TestSignupCheckWithoutIssue(t *testing.T) {
	router := newTestRouter(t)
	sid := startSession(t, router)

	if rec := advance(t, router, sid, map[string]string{"phone": "+550000000000"}); rec.Code != http.StatusOK {
		t.Fatalf("advance phone: status %d", rec.Code)
	}
	rec := do(t, router, http.MethodPost, "/signup/check-verification", sid, map[string]string{"channel": "phone", "code": "123456"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("check without issue: status %d, want 409", rec.Code)
	}
}

func TestSignupCompleteWithoutVerification(t *testing.T) {
	router := newTestRouter(t)
	sid := startSession(t, router)

	fields := map[string]string{
		"phone": "+550000000000", "email": "ana@example.com",
		"full_name": "Ana Souza", "tax_id": "52998224725", "birth_date": "1990-04-12",
		"postal_code": "01310100", "street": "Avenida Paulista", "number": "1000",
		"district": "Bela Vista", "city": "São Paulo", "region": "SP",
	}
	if rec := do(t, router, http.MethodPost, "/signup/fields", sid, map[string]interface{}{"fields": fields}); rec.Code != http.StatusOK {
		t.Fatalf("set fields: status %d body %s", rec.Code, rec.Body.String())
	}

	rec := do(t, router, http.MethodPost, "/signup/complete", sid, map[string]string{
		"password": "Str0ng!pass", "password_confirm": "Str0ng!pass",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("complete unverified: status %d, want 409", rec.Code)
	}
}

func TestSignupValidationErrorsListAllFields(t *testing.T) {
	router := newTestRouter(t)
	sid := startSession(t, router)

	// Walk to the personal-info step, then advance with everything wrong.
	if rec := advance(t, router, sid, map[string]string{"phone": "+550000000000"}); rec.Code != http.StatusOK {
		t.Fatalf("advance phone: status %d", rec.Code)
	}
	verifyChannel(t, router, sid, "phone")
	if rec := advance(t, router, sid, nil); rec.Code != http.StatusOK {
		t.Fatalf("advance phone-verify: status %d", rec.Code)
	}
	if rec := advance(t, router, sid, map[string]string{"password": "Str0ng!pass", "password_confirm": "Str0ng!pass"}); rec.Code != http.StatusOK {
		t.Fatalf("advance password: status %d", rec.Code)
	}

	rec := advance(t, router, sid, map[string]string{"full_name": "Ana", "tax_id": "123", "birth_date": "bad"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid personal info: status %d, want 422", rec.Code)
	}
	var out struct {
		Errors []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Errors) != 3 {
		t.Errorf("errors = %+v, want all three fields reported", out.Errors)
	}
}

func TestSignupUnknownSession(t *testing.T) {
	router := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/signup/session", "nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session: status %d, want 404", rec.Code)
	}
}

// A cooldown lookup failure right after a successful send must not fail the
// request or fabricate a zero countdown; the hint is simply omitted.
func TestSignupStartVerificationCooldownLookupFails(t *testing.T) {
	// The issue path reads the store once before sending; the second read is
	// the cooldown lookup.
	store := &flakyAttemptStore{AttemptStore: verifmem.NewStore(), failFrom: 2}
	router := newTestRouterWithStore(t, store)
	sid := startSession(t, router)

	if rec := advance(t, router, sid, map[string]string{"phone": "+550000000000"}); rec.Code != http.StatusOK {
		t.Fatalf("advance phone: status %d", rec.Code)
	}

	rec := do(t, router, http.MethodPost, "/signup/start-verification", sid, map[string]string{"channel": "phone"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start verification: status %d body %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["status"] != "pending" {
		t.Errorf("status = %v, want pending", out["status"])
	}
	if _, ok := out["resend_in_seconds"]; ok {
		t.Errorf("resend_in_seconds reported despite failed lookup: %v", out)
	}
}

func TestSignupStartVerificationWithoutTarget(t *testing.T) {
	router := newTestRouter(t)
	sid := startSession(t, router)

	rec := do(t, router, http.MethodPost, "/signup/start-verification", sid, map[string]string{"channel": "phone"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("verification without phone: status %d, want 422", rec.Code)
	}
}
