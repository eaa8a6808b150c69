package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nnamdiokafor/linkqr/internal/httpx"
)

/***************
 * Helpers
 ***************/

// makeGuardedRequest runs a request through the middleware with a probe
// handler that records whether it was reached and what identity it saw.
func makeGuardedRequest(t *testing.T, middleware httpx.Middleware, authorization string) (*httptest.ResponseRecorder, bool, AccessTokenPayload) {
	t.Helper()

	var (
		reached  bool
		identity AccessTokenPayload
	)
	probe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		identity, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()

	middleware(probe).ServeHTTP(rec, req)
	return rec, reached, identity
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()

	var body httpx.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

/***************
 * RequireUser Tests
 ***************/

func TestRequireUser(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("admits a valid bearer token and stores the identity", func(t *testing.T) {
		now, _ := frozenClock(start)
		codec := makeTestCodec(t, now)
		stored := makeStoredCredential(t, "alice", "secret", false)
		service := NewService(&mockRepository{}, codec, nil)

		pair, err := service.IssuePair(stored)
		if err != nil {
			t.Fatalf("IssuePair() unexpected error: %v", err)
		}

		rec, reached, identity := makeGuardedRequest(t, RequireUser(service), "Bearer "+pair.AccessToken)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !reached {
			t.Fatal("next handler was not reached")
		}
		if identity.AccountID != stored.AccountID {
			t.Errorf("identity AccountID = %v, want %v", identity.AccountID, stored.AccountID)
		}
		if identity.Username != "alice" {
			t.Errorf("identity Username = %q, want %q", identity.Username, "alice")
		}
	})

	t.Run("accepts a lowercase scheme", func(t *testing.T) {
		now, _ := frozenClock(start)
		codec := makeTestCodec(t, now)
		stored := makeStoredCredential(t, "alice", "secret", false)
		service := NewService(&mockRepository{}, codec, nil)

		pair, err := service.IssuePair(stored)
		if err != nil {
			t.Fatalf("IssuePair() unexpected error: %v", err)
		}

		rec, reached, _ := makeGuardedRequest(t, RequireUser(service), "bearer "+pair.AccessToken)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !reached {
			t.Error("next handler was not reached")
		}
	})

	t.Run("rejects a missing authorization header", func(t *testing.T) {
		now, _ := frozenClock(start)
		codec := makeTestCodec(t, now)
		service := NewService(&mockRepository{}, codec, nil)

		rec, reached, _ := makeGuardedRequest(t, RequireUser(service), "")

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if reached {
			t.Error("next handler was reached without a token")
		}

		body := decodeErrorResponse(t, rec)
		if body.Error != "unauthorized" {
			t.Errorf("error code = %q, want %q", body.Error, "unauthorized")
		}
		if body.Message != "not authorized" {
			t.Errorf("message = %q, want %q", body.Message, "not authorized")
		}
	})

	t.Run("rejects a non-bearer scheme", func(t *testing.T) {
		now, _ := frozenClock(start)
		codec := makeTestCodec(t, now)
		service := NewService(&mockRepository{}, codec, nil)

		rec, reached, _ := makeGuardedRequest(t, RequireUser(service), "Basic YWxpY2U6c2VjcmV0")

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if reached {
			t.Error("next handler was reached with a non-bearer scheme")
		}
	})

	t.Run("rejects an empty bearer token", func(t *testing.T) {
		now, _ := frozenClock(start)
		codec := makeTestCodec(t, now)
		service := NewService(&mockRepository{}, codec, nil)

		rec, reached, _ := makeGuardedRequest(t, RequireUser(service), "Bearer ")

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if reached {
			t.Error("next handler was reached with an empty token")
		}
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		now, advance := frozenClock(start)
		codec := makeTestCodec(t, now)
		stored := makeStoredCredential(t, "alice", "secret", false)
		service := NewService(&mockRepository{}, codec, nil)

		pair, err := service.IssuePair(stored)
		if err != nil {
			t.Fatalf("IssuePair() unexpected error: %v", err)
		}

		advance(16 * time.Minute)

		rec, reached, _ := makeGuardedRequest(t, RequireUser(service), "Bearer "+pair.AccessToken)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if reached {
			t.Error("next handler was reached with an expired token")
		}
	})
}

/***************
 * RequireAdmin Tests
 ***************/

func TestRequireAdmin(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("admits an admin token", func(t *testing.T) {
		now, _ := frozenClock(start)
		codec := makeTestCodec(t, now)
		stored := makeStoredCredential(t, "root", "secret", true)
		service := NewService(&mockRepository{}, codec, nil)

		pair, err := service.IssuePair(stored)
		if err != nil {
			t.Fatalf("IssuePair() unexpected error: %v", err)
		}

		rec, reached, identity := makeGuardedRequest(t, RequireAdmin(service), "Bearer "+pair.AccessToken)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !reached {
			t.Fatal("next handler was not reached")
		}
		if !identity.IsAdmin {
			t.Error("identity IsAdmin = false, want true")
		}
	})

	t.Run("rejects a non-admin token with 403", func(t *testing.T) {
		now, _ := frozenClock(start)
		codec := makeTestCodec(t, now)
		stored := makeStoredCredential(t, "alice", "secret", false)
		service := NewService(&mockRepository{}, codec, nil)

		pair, err := service.IssuePair(stored)
		if err != nil {
			t.Fatalf("IssuePair() unexpected error: %v", err)
		}

		rec, reached, _ := makeGuardedRequest(t, RequireAdmin(service), "Bearer "+pair.AccessToken)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
		if reached {
			t.Error("next handler was reached without admin rights")
		}

		body := decodeErrorResponse(t, rec)
		if body.Error != "admin_required" {
			t.Errorf("error code = %q, want %q", body.Error, "admin_required")
		}
		if body.Message != "admin rights required" {
			t.Errorf("message = %q, want %q", body.Message, "admin rights required")
		}
	})

	t.Run("rejects anonymous requests before the admin gate", func(t *testing.T) {
		now, _ := frozenClock(start)
		codec := makeTestCodec(t, now)
		service := NewService(&mockRepository{}, codec, nil)

		rec, reached, _ := makeGuardedRequest(t, RequireAdmin(service), "")

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if reached {
			t.Error("next handler was reached without a token")
		}
	})
}

/***************
 * Identity Context Tests
 ***************/

func TestIdentityFrom(t *testing.T) {
	t.Run("round-trips through a context", func(t *testing.T) {
		payload := AccessTokenPayload{Username: "alice", IsAdmin: true}
		ctx := WithIdentity(context.Background(), payload)

		got, ok := IdentityFrom(ctx)
		if !ok {
			t.Fatal("IdentityFrom() ok = false, want true")
		}
		if got != payload {
			t.Errorf("IdentityFrom() = %+v, want %+v", got, payload)
		}
	})

	t.Run("reports absence on a bare context", func(t *testing.T) {
		if _, ok := IdentityFrom(context.Background()); ok {
			t.Error("IdentityFrom() ok = true on a bare context")
		}
	})
}
