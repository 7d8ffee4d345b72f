// Package discord adapts discordgo to the platform and verify packages.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/gatekeeper/internal/platform"
	"github.com/bwmarrin/discordgo"
)

// Client implements platform.Platform over a discordgo session.
type Client struct {
	s      *discordgo.Session
	logger *slog.Logger
}

// NewClient wraps an authenticated session.
func NewClient(s *discordgo.Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{s: s, logger: logger}
}

// FindChannel implements platform.Platform.
func (c *Client) FindChannel(ctx context.Context, guildID, name string) (string, error) {
	if g, err := c.s.State.Guild(guildID); err == nil {
		for _, ch := range g.Channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
	}
	channels, err := c.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("list channels: %w", mapError(err))
	}
	for _, ch := range channels {
		if ch.Name == name {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, platform.ErrChannelNotFound)
}

// SendChannelMessage implements platform.Platform.
func (c *Client) SendChannelMessage(ctx context.Context, channelID string, msg platform.Message) (string, error) {
	sent, err := c.s.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send to channel %s: %w", channelID, mapError(err))
	}
	c.scheduleDelete(sent.ChannelID, sent.ID, msg.DeleteAfter)
	return sent.ID, nil
}

// SendDirectMessage implements platform.Platform.
func (c *Client) SendDirectMessage(ctx context.Context, userID string, msg platform.Message) error {
	ch, err := c.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open DM channel: %w", mapDirectError(err))
	}
	sent, err := c.s.ChannelMessageSendComplex(ch.ID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send DM: %w", mapDirectError(err))
	}
	c.scheduleDelete(sent.ChannelID, sent.ID, msg.DeleteAfter)
	return nil
}

// AddReaction implements platform.Platform.
func (c *Client) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	if err := c.s.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add reaction: %w", mapError(err))
	}
	return nil
}

// Member implements platform.Platform.
func (c *Client) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	m, err := c.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if status, _, ok := restStatus(err); ok && status == http.StatusNotFound {
			return nil, fmt.Errorf("member %s: %w", userID, platform.ErrMemberNotFound)
		}
		return nil, fmt.Errorf("member %s: %w", userID, mapError(err))
	}
	return toMember(m), nil
}

// BotTopRolePosition implements platform.Platform.
func (c *Client) BotTopRolePosition(ctx context.Context, guildID string) (int, error) {
	if c.s.State == nil || c.s.State.User == nil {
		return 0, errors.New("bot identity not known yet")
	}
	m, err := c.s.GuildMember(guildID, c.s.State.User.ID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("bot member: %w", mapError(err))
	}
	roles, err := c.Roles(ctx, guildID)
	if err != nil {
		return 0, err
	}
	return topPosition(roles, m.Roles), nil
}

// Roles implements platform.Platform.
func (c *Client) Roles(ctx context.Context, guildID string) ([]platform.Role, error) {
	roles, err := c.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", mapError(err))
	}
	out := make([]platform.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, platform.Role{ID: r.ID, Name: r.Name, Position: r.Position})
	}
	return out, nil
}

// CreateRole implements platform.Platform.
func (c *Client) CreateRole(ctx context.Context, guildID, name string, color int) (platform.Role, error) {
	r, err := c.s.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name, Color: &color}, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Role{}, fmt.Errorf("create role %s: %w", name, mapError(err))
	}
	return platform.Role{ID: r.ID, Name: r.Name, Position: r.Position}, nil
}

// MoveRole implements platform.Platform.
func (c *Client) MoveRole(ctx context.Context, guildID, roleID string, position int) error {
	_, err := c.s.GuildRoleReorder(guildID, []*discordgo.Role{{ID: roleID, Position: position}}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("move role: %w", mapError(err))
	}
	return nil
}

// AddMemberRole implements platform.Platform.
func (c *Client) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := c.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("add role: %w", mapError(err))
	}
	return nil
}

// SetMemberRoles implements platform.Platform.
func (c *Client) SetMemberRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	roles := append([]string(nil), roleIDs...)
	if _, err := c.s.GuildMemberEdit(guildID, userID, &discordgo.GuildMemberParams{Roles: &roles}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("replace roles: %w", mapError(err))
	}
	return nil
}

func (c *Client) scheduleDelete(channelID, messageID string, after time.Duration) {
	if after <= 0 {
		return
	}
	time.AfterFunc(after, func() {
		if err := c.s.ChannelMessageDelete(channelID, messageID); err != nil {
			c.logger.Warn("Failed to delete timed notice", "channel_id", channelID, "message_id", messageID, "error", err)
		}
	})
}

func toMessageSend(msg platform.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: msg.Content}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{toEmbed(msg.Embed)}
	}
	return send
}

func toEmbed(e *platform.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return out
}

func toMember(m *discordgo.Member) *platform.Member {
	out := &platform.Member{
		RoleIDs:     append([]string(nil), m.Roles...),
		JoinedAt:    m.JoinedAt,
		DisplayName: m.Nick,
	}
	if m.User != nil {
		out.UserID = m.User.ID
		out.Username = m.User.Username
		out.Discriminator = m.User.Discriminator
		if out.DisplayName == "" {
			out.DisplayName = m.User.GlobalName
		}
		if out.DisplayName == "" {
			out.DisplayName = m.User.Username
		}
	}
	return out
}

// topPosition returns the highest position among the held roles.
func topPosition(roles []platform.Role, held []string) int {
	top := 0
	for _, r := range roles {
		for _, id := range held {
			if r.ID == id && r.Position > top {
				top = r.Position
			}
		}
	}
	return top
}

func restStatus(err error) (int, int, bool) {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Response == nil {
		return 0, 0, false
	}
	code := 0
	if rest.Message != nil {
		code = rest.Message.Code
	}
	return rest.Response.StatusCode, code, true
}

func mapError(err error) error {
	status, _, ok := restStatus(err)
	if !ok {
		return err
	}
	if status == http.StatusForbidden {
		return fmt.Errorf("%w: %w", platform.ErrForbidden, err)
	}
	return err
}

// mapDirectError treats any refusal to deliver a DM as closed DMs.
func mapDirectError(err error) error {
	status, code, ok := restStatus(err)
	if ok && (status == http.StatusForbidden || code == discordgo.ErrCodeCannotSendMessagesToThisUser) {
		return fmt.Errorf("%w: %w", platform.ErrDirectMessagesDisabled, err)
	}
	return err
}

var _ platform.Platform = (*Client)(nil)
