package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

func newTestManager(ttl time.Duration) *TokenManager {
	return NewTokenManager([]byte("test-secret"), ttl)
}

func TestTokenManager_IssueParseRoundTrip(t *testing.T) {
	tm := newTestManager(time.Hour)

	token, err := tm.Issue("UH1001", domain.RolePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	identity, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Subject != "UH1001" {
		t.Errorf("expected subject UH1001, got %s", identity.Subject)
	}
	if identity.Role != domain.RolePatient {
		t.Errorf("expected role patient, got %s", identity.Role)
	}
	if identity.Anonymous() {
		t.Error("UHID identity must not be anonymous")
	}
}

func TestTokenManager_GuestIsAnonymous(t *testing.T) {
	tm := newTestManager(time.Hour)

	token, err := tm.IssueGuest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	identity, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identity.Anonymous() {
		t.Errorf("expected anonymous identity, got subject %s", identity.Subject)
	}
	if identity.Role != domain.RolePatient {
		t.Errorf("expected role patient, got %s", identity.Role)
	}
}

func TestTokenManager_GuestSessionsAreDistinct(t *testing.T) {
	tm := newTestManager(time.Hour)

	parse := func(t *testing.T) Identity {
		t.Helper()
		token, err := tm.IssueGuest()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		identity, err := tm.Parse(token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return identity
	}

	first := parse(t)
	second := parse(t)

	if first.Subject == "" || second.Subject == "" {
		t.Fatal("guest sessions must carry a subject")
	}
	if first.Subject == second.Subject {
		t.Errorf("two guest sessions share subject %q; their carts would collide", first.Subject)
	}
	if !first.Anonymous() || !second.Anonymous() {
		t.Error("guest sessions must stay anonymous")
	}
}

func TestTokenManager_HonorsSentinelSubject(t *testing.T) {
	tm := newTestManager(time.Hour)

	// Tokens minted before guests got per-session subjects carry the
	// sentinel and no guest claim.
	token, err := tm.Issue(AnonymousSubject, domain.RolePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	identity, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identity.Anonymous() {
		t.Error("sentinel subject must still parse as anonymous")
	}
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	tm := newTestManager(-time.Minute)

	token, err := tm.Issue("UH1001", domain.RolePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := tm.Parse(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	tm := newTestManager(time.Hour)
	other := NewTokenManager([]byte("other-secret"), time.Hour)

	token, err := other.Issue("UH1001", domain.RolePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := tm.Parse(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	tm := newTestManager(time.Hour)
	var captured Identity
	handler := Middleware(tm)(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("passes identity through context", func(t *testing.T) {
		token, _ := tm.Issue("UH1001", domain.RolePatient)
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured.Subject != "UH1001" {
			t.Errorf("expected subject UH1001, got %s", captured.Subject)
		}
	})
}

func TestRequireUser(t *testing.T) {
	next := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	t.Run("rejects anonymous session with uhid_required code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payment/createOrder", nil)
		req = req.WithContext(WithIdentity(req.Context(), Identity{Subject: AnonymousSubject, Role: domain.RolePatient}))
		rec := httptest.NewRecorder()

		RequireUser(next)(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["code"] != "uhid_required" {
			t.Errorf("expected code uhid_required, got %q", body["code"])
		}
	})

	t.Run("admits authenticated patient", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payment/createOrder", nil)
		req = req.WithContext(WithIdentity(req.Context(), Identity{Subject: "UH1001", Role: domain.RolePatient}))
		rec := httptest.NewRecorder()

		RequireUser(next)(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

type fakePatients struct {
	known map[string]bool
}

func (f *fakePatients) Exists(_ context.Context, uhid string) (bool, error) {
	return f.known[uhid], nil
}

func TestHandler_AuthenticatePatient(t *testing.T) {
	tm := newTestManager(time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(tm, &fakePatients{known: map[string]bool{"UH1001": true}}, logger)

	t.Run("known uhid receives a patient token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/authenticate/patient", strings.NewReader(`{"uhid":"UH1001"}`))
		rec := httptest.NewRecorder()

		handler.HandleAuthenticatePatient(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp authenticateResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		identity, err := tm.Parse(resp.JWT)
		if err != nil {
			t.Fatalf("issued token does not parse: %v", err)
		}
		if identity.Subject != "UH1001" {
			t.Errorf("expected subject UH1001, got %s", identity.Subject)
		}
	})

	t.Run("unknown uhid is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/authenticate/patient", strings.NewReader(`{"uhid":"UH9999"}`))
		rec := httptest.NewRecorder()

		handler.HandleAuthenticatePatient(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("blank uhid is a validation error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/authenticate/patient", strings.NewReader(`{"uhid":"  "}`))
		rec := httptest.NewRecorder()

		handler.HandleAuthenticatePatient(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
