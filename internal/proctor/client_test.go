package proctor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/examportal/backend/internal/model"
)

func TestHTTPStoreUpsertAttempt(t *testing.T) {
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exams/exam-1/answers" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req model.AttemptUpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Status != model.AttemptStatusPending {
			t.Errorf("status = %q", req.Status)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": model.AttemptUpsertResult{
				Status:    model.AttemptStatusPending,
				StartedAt: started,
			},
		})
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL)
	result, err := store.UpsertAttempt(context.Background(), "exam-1", model.AttemptUpsertRequest{
		StudentID: uuid.New(),
		Status:    model.AttemptStatusPending,
	})
	if err != nil {
		t.Fatalf("UpsertAttempt: %v", err)
	}
	if !result.StartedAt.Equal(started) {
		t.Errorf("startedAt = %v, want %v", result.StartedAt, started)
	}
}

func TestHTTPStoreTranslatesConflict(t *testing.T) {
	for _, code := range []string{"ATTEMPT_COMPLETED", "CONFLICT"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":    code,
					"message": "attempt already submitted",
				},
			})
		}))

		store := NewHTTPStore(srv.URL)
		_, err := store.UpsertAttempt(context.Background(), "exam-1", model.AttemptUpsertRequest{})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("code %s: err = %v, want ErrConflict", code, err)
		}
		srv.Close()
	}
}

func TestHTTPStorePlainErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"code":    "FORBIDDEN",
				"message": "student not enrolled",
			},
		})
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL)
	_, err := store.ValidateAccess(context.Background(), model.AccessRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatal("non-conflict code mapped to ErrConflict")
	}
	var portalErr *PortalError
	if !errors.As(err, &portalErr) {
		t.Fatalf("err = %T, want *PortalError", err)
	}
	if portalErr.Code != "FORBIDDEN" || portalErr.Message != "student not enrolled" {
		t.Errorf("portal error = %+v", portalErr)
	}
}
