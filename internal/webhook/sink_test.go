package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestNewPayload(t *testing.T) {
	joined := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := NewPayload(Submission{
		UserID:        "123456789",
		Username:      "jane.doe-99!",
		Discriminator: "0",
		JoinedAt:      joined,
		Answers:       map[string]string{"interest": "PL", "experience": "no"},
	})

	if p.Username != "jane.doe-99!" {
		t.Errorf("discriminator 0 should be omitted, got %q", p.Username)
	}
	if p.Email != "jane.doe_99_@discord.com" {
		t.Errorf("unexpected email %q", p.Email)
	}
	if p.Phone != "+1111111111" {
		t.Errorf("unexpected phone %q", p.Phone)
	}
	if p.JoinDate != "2025-01-02T03:04:05Z" {
		t.Errorf("unexpected join date %q", p.JoinDate)
	}
	if len(p.Answers) != 2 {
		t.Errorf("expected 2 answers, got %d", len(p.Answers))
	}
}

func TestNewPayloadLegacyDiscriminator(t *testing.T) {
	p := NewPayload(Submission{Username: "bob", Discriminator: "4242"})
	if p.Username != "bob#4242" {
		t.Fatalf("expected bob#4242, got %q", p.Username)
	}
	if p.Email != "bob@discord.com" {
		t.Fatalf("email must not include discriminator, got %q", p.Email)
	}
}

func TestSendDisabled(t *testing.T) {
	s := NewSink("", time.Second, nil)
	if s.Enabled() {
		t.Fatal("sink without URL should be disabled")
	}
	d := s.Send(context.Background(), Payload{UserID: "u1"})
	if d.Status != StatusDisabled {
		t.Fatalf("expected disabled, got %v", d.Status)
	}
}

func TestSendDelivers(t *testing.T) {
	var (
		mu  sync.Mutex
		got Payload
		ct  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		ct = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSink(srv.URL, time.Second, nil)
	d := s.Send(context.Background(), Payload{UserID: "u1", Answers: map[string]string{"status": "selling"}})
	if d.Status != StatusDelivered || d.StatusCode != http.StatusOK {
		t.Fatalf("expected delivered 200, got %+v", d)
	}

	mu.Lock()
	defer mu.Unlock()
	if ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	if got.UserID != "u1" || got.Answers["status"] != "selling" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestSendAcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	if d := NewSink(srv.URL, time.Second, nil).Send(context.Background(), Payload{}); d.Status != StatusDelivered {
		t.Fatalf("expected 202 to count as delivered, got %+v", d)
	}
}

func TestSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewSink(srv.URL, time.Second, nil).Send(context.Background(), Payload{UserID: "u1"})
	if d.Status != StatusRejected || d.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected rejected 400, got %+v", d)
	}
}

func TestSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := NewSink(url, time.Second, nil).Send(context.Background(), Payload{UserID: "u1"})
	if d.Status != StatusFailed {
		t.Fatalf("expected failed, got %+v", d)
	}
}
