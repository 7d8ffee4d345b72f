package verify

import (
	"context"
	"time"
)

// MemberJoined is a new guild member.
type MemberJoined struct {
	GuildID       string
	UserID        string
	Username      string
	Discriminator string
	DisplayName   string
	Bot           bool
	JoinedAt      time.Time
}

// ReactionAdded is a reaction on a guild message.
type ReactionAdded struct {
	GuildID     string
	ChannelID   string
	ChannelName string
	MessageID   string
	UserID      string
	Emoji       string
	Bot         bool
}

// DirectMessage is a message received by the bot. Private is false for
// guild channel messages.
type DirectMessage struct {
	ChannelID string
	MessageID string
	UserID    string
	Content   string
	Private   bool
	Bot       bool
}

// CommandInvoked is a /verify invocation.
type CommandInvoked struct {
	GuildID string
	UserID  string
}

// ModalSubmitted is a submitted answer modal.
type ModalSubmitted struct {
	UserID   string
	CustomID string
	Answer   string
}

// Responder answers an interaction in place.
type Responder interface {
	ShowModal(ctx context.Context, m Modal) error
	Reply(ctx context.Context, text string) error
}
