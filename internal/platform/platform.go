// Package platform defines the chat-platform operations the verification
// flow depends on. Implementations wrap a concrete chat SDK.
package platform

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDirectMessagesDisabled is returned when a member does not accept direct messages.
	ErrDirectMessagesDisabled = errors.New("direct messages disabled")
	// ErrChannelNotFound is returned when no channel matches a name.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrMemberNotFound is returned when a member is not part of the guild.
	ErrMemberNotFound = errors.New("member not found")
	// ErrForbidden is returned when the bot lacks permission for an operation.
	ErrForbidden = errors.New("forbidden")
)

// Field is a named section of an embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is rich message content.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
}

// Message is an outbound message. DeleteAfter > 0 makes it a time-limited notice.
type Message struct {
	Content     string
	Embed       *Embed
	DeleteAfter time.Duration
}

// Member is a guild member.
type Member struct {
	UserID        string
	Username      string
	Discriminator string
	DisplayName   string
	RoleIDs       []string
	JoinedAt      time.Time
}

// HasRole reports whether the member holds roleID.
func (m *Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Role is a guild role. Higher Position is more senior.
type Role struct {
	ID       string
	Name     string
	Position int
}

// Platform is the set of outbound chat-platform effects.
type Platform interface {
	// FindChannel returns the ID of the guild channel with the given name.
	FindChannel(ctx context.Context, guildID, name string) (string, error)

	// SendChannelMessage posts a message and returns its ID.
	SendChannelMessage(ctx context.Context, channelID string, msg Message) (string, error)

	// SendDirectMessage opens a private channel with the user and posts msg.
	// It returns ErrDirectMessagesDisabled when the user does not accept DMs.
	SendDirectMessage(ctx context.Context, userID string, msg Message) error

	// AddReaction reacts to a message.
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error

	// Member looks up a guild member.
	Member(ctx context.Context, guildID, userID string) (*Member, error)

	// BotTopRolePosition returns the position of the bot's most senior role.
	BotTopRolePosition(ctx context.Context, guildID string) (int, error)

	// Roles lists guild roles.
	Roles(ctx context.Context, guildID string) ([]Role, error)

	// CreateRole creates a role.
	CreateRole(ctx context.Context, guildID, name string, color int) (Role, error)

	// MoveRole changes a role's position.
	MoveRole(ctx context.Context, guildID, roleID string, position int) error

	// AddMemberRole grants a single role.
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error

	// SetMemberRoles replaces the member's full role list.
	SetMemberRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
}

// Mention renders a user mention.
func Mention(userID string) string {
	return "<@" + userID + ">"
}
