// Package webhook forwards completed verifications to the CRM webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	placeholderPhone = "+1111111111"
	emailDomain      = "discord.com"
	maxLoggedBody    = 512
)

var unsafeEmailChars = regexp.MustCompile(`[^a-zA-Z0-9._]`)

// Payload is the JSON body posted to the CRM.
type Payload struct {
	Username string            `json:"username"`
	UserID   string            `json:"user_id"`
	JoinDate string            `json:"join_date"`
	Email    string            `json:"email"`
	Phone    string            `json:"phone"`
	Answers  map[string]string `json:"answers"`
}

// Submission is what the verification flow hands to the sink.
type Submission struct {
	UserID        string
	Username      string
	Discriminator string
	JoinedAt      time.Time
	Answers       map[string]string
}

// NewPayload builds the CRM payload for a submission.
func NewPayload(s Submission) Payload {
	username := s.Username
	if s.Discriminator != "" && s.Discriminator != "0" {
		username = s.Username + "#" + s.Discriminator
	}
	answers := make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	return Payload{
		Username: username,
		UserID:   s.UserID,
		JoinDate: s.JoinedAt.UTC().Format(time.RFC3339),
		Email:    SanitizedEmail(s.Username),
		Phone:    placeholderPhone,
		Answers:  answers,
	}
}

// SanitizedEmail derives the placeholder email for a username.
func SanitizedEmail(username string) string {
	return unsafeEmailChars.ReplaceAllString(username, "_") + "@" + emailDomain
}

// Status is the outcome of a delivery attempt.
type Status string

const (
	StatusDisabled  Status = "disabled"
	StatusDelivered Status = "delivered"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
)

// Delivery describes one send.
type Delivery struct {
	Status     Status
	StatusCode int
}

// Sink posts payloads to a single URL. The zero URL disables it.
type Sink struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewSink creates a sink with an instrumented HTTP client.
func NewSink(url string, timeout time.Duration, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		url: url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Enabled reports whether a URL is configured.
func (s *Sink) Enabled() bool {
	return s.url != ""
}

// Send posts the payload once. Failures are logged and reported in the
// returned Delivery, never returned as errors.
func (s *Sink) Send(ctx context.Context, p Payload) Delivery {
	if !s.Enabled() {
		s.logger.Warn("Webhook URL not set, skipping CRM delivery", "user_id", p.UserID)
		return Delivery{Status: StatusDisabled}
	}

	code, body, err := s.post(ctx, p)
	if err != nil {
		s.logger.Error("Webhook delivery failed", "user_id", p.UserID, "error", err)
		return Delivery{Status: StatusFailed}
	}
	if code < 200 || code > 299 {
		s.logger.Error("Webhook rejected payload", "user_id", p.UserID, "status", code, "body", body)
		return Delivery{Status: StatusRejected, StatusCode: code}
	}

	s.logger.Info("Webhook delivered", "user_id", p.UserID, "status", code)
	return Delivery{Status: StatusDelivered, StatusCode: code}
}

func (s *Sink) post(ctx context.Context, p Payload) (int, string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return 0, "", fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Debug("Failed to close webhook response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	if err != nil {
		s.logger.Debug("Failed to read webhook response body", "error", err)
	}
	return resp.StatusCode, string(body), nil
}
