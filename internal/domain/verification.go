package domain

import "time"

// Verification is the ledger record written when a session completes.
type Verification struct {
	ID           int64             `json:"id"`
	SessionID    string            `json:"session_id"`
	UserID       string            `json:"user_id"`
	GuildID      string            `json:"guild_id"`
	Username     string            `json:"username"`
	Answers      map[string]string `json:"answers"`
	GrantState   string            `json:"grant_state"`
	GrantMethod  string            `json:"grant_method,omitempty"`
	WebhookState string            `json:"webhook_state"`
	JoinedAt     time.Time         `json:"joined_at"`
	CompletedAt  time.Time         `json:"completed_at"`
}
