package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/gatekeeper/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "verifications.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndListVerifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, user := range []string{"u1", "u2"} {
		v := &domain.Verification{
			SessionID:    "sess-" + user,
			UserID:       user,
			GuildID:      "g1",
			Username:     user + "-name",
			Answers:      map[string]string{"interest": "wholesale"},
			GrantState:   "grant_succeeded",
			GrantMethod:  "add_role",
			WebhookState: "delivered",
			JoinedAt:     base,
			CompletedAt:  base.Add(time.Duration(i+1) * time.Minute),
		}
		if err := s.RecordVerification(ctx, v); err != nil {
			t.Fatalf("RecordVerification: %v", err)
		}
		if v.ID == 0 {
			t.Fatal("expected ID to be assigned")
		}
	}

	got, err := s.ListVerifications(ctx, 10)
	if err != nil {
		t.Fatalf("ListVerifications: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 verifications, got %d", len(got))
	}
	if got[0].UserID != "u2" {
		t.Errorf("expected newest first, got %s", got[0].UserID)
	}
	if got[1].Answers["interest"] != "wholesale" {
		t.Errorf("answers not round-tripped: %v", got[1].Answers)
	}
	if !got[1].JoinedAt.Equal(base) {
		t.Errorf("joined_at mismatch: %v", got[1].JoinedAt)
	}
	if got[0].GrantMethod != "add_role" {
		t.Errorf("grant method mismatch: %q", got[0].GrantMethod)
	}
}

func TestListVerificationsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.RecordVerification(ctx, &domain.Verification{
			UserID:       "u1",
			Answers:      map[string]string{},
			GrantState:   "grant_failed",
			WebhookState: "disabled",
			CompletedAt:  time.Now(),
		}); err != nil {
			t.Fatalf("RecordVerification: %v", err)
		}
	}

	got, err := s.ListVerifications(ctx, 2)
	if err != nil {
		t.Fatalf("ListVerifications: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
	if got[0].GrantMethod != "" {
		t.Errorf("expected empty grant method, got %q", got[0].GrantMethod)
	}

	n, err := s.CountVerifications(ctx, "u1")
	if err != nil {
		t.Fatalf("CountVerifications: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 verifications for u1, got %d", n)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestIsConflictError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: database busy"), true},
		{errors.New("database is locked"), true},
		{errors.New("constraint failed"), false},
	}
	for _, tt := range tests {
		if got := isConflictError(tt.err); got != tt.want {
			t.Errorf("isConflictError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
