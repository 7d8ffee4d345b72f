package discord

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ashureev/gatekeeper/internal/verify"
	"github.com/bwmarrin/discordgo"
)

const (
	commandName    = "verify"
	answerInputID  = "answer"
	maxLabelRunes  = 45
	defaultTimeout = 30 * time.Second

	// Intents the flow depends on. Members and message content are privileged.
	intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	invitePermissions = discordgo.PermissionManageRoles |
		discordgo.PermissionSendMessages |
		discordgo.PermissionAddReactions |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionManageMessages
)

// Handler is the verification flow driven by gateway events.
type Handler interface {
	MemberJoined(ctx context.Context, ev verify.MemberJoined) (verify.Outcome, error)
	Reaction(ctx context.Context, ev verify.ReactionAdded) (verify.Outcome, error)
	DirectMessage(ctx context.Context, ev verify.DirectMessage) (verify.Outcome, error)
	Command(ctx context.Context, ev verify.CommandInvoked, r verify.Responder) (verify.Outcome, error)
	SubmitModal(ctx context.Context, ev verify.ModalSubmitted, r verify.Responder) (verify.Outcome, error)
}

// GatewayConfig tunes a Gateway.
type GatewayConfig struct {
	RegisterCommands   bool
	CommandDescription string
	HandlerTimeout     time.Duration
}

// Gateway turns discordgo events into verification events.
type Gateway struct {
	s       *discordgo.Session
	h       Handler
	cfg     GatewayConfig
	logger  *slog.Logger
	removes []func()
}

// NewGateway creates a gateway. Call Open to connect.
func NewGateway(s *discordgo.Session, h Handler, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = defaultTimeout
	}
	return &Gateway{s: s, h: h, cfg: cfg, logger: logger}
}

// Open registers handlers and connects to the gateway.
func (g *Gateway) Open() error {
	g.s.Identify.Intents = intents
	g.removes = append(g.removes,
		g.s.AddHandler(g.onReady),
		g.s.AddHandler(g.onMemberAdd),
		g.s.AddHandler(g.onReactionAdd),
		g.s.AddHandler(g.onMessageCreate),
		g.s.AddHandler(g.onInteraction),
	)
	if err := g.s.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

// Close disconnects and removes handlers.
func (g *Gateway) Close() error {
	for _, remove := range g.removes {
		remove()
	}
	g.removes = nil
	return g.s.Close()
}

// guard runs one event handler with a timeout and recovers panics so a
// bad event never takes the gateway down.
func (g *Gateway) guard(event string, fn func(ctx context.Context) (verify.Outcome, error)) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Event handler panicked", "event", event, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.HandlerTimeout)
	defer cancel()

	out, err := fn(ctx)
	if err != nil {
		g.logger.Error("Event handler failed", "event", event, "outcome", out, "error", err)
		return
	}
	if out != verify.OutcomeIgnored {
		g.logger.Debug("Event handled", "event", event, "outcome", out)
	}
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	g.logger.Info("Connected to Discord",
		"bot", r.User.Username, "bot_id", r.User.ID, "guilds", len(r.Guilds),
		"invite_url", InviteURL(r.User.ID))

	if !g.cfg.RegisterCommands {
		return
	}
	cmds := []*discordgo.ApplicationCommand{{
		Name:        commandName,
		Description: g.cfg.CommandDescription,
	}}
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", cmds); err != nil {
		g.logger.Error("Failed to register commands", "error", err)
		return
	}
	g.logger.Info("Registered slash commands", "count", len(cmds))
}

func (g *Gateway) onMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	ev, ok := memberJoinedEvent(m)
	if !ok {
		return
	}
	g.guard("member_add", func(ctx context.Context) (verify.Outcome, error) {
		return g.h.MemberJoined(ctx, ev)
	})
}

func (g *Gateway) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	g.guard("reaction_add", func(ctx context.Context) (verify.Outcome, error) {
		return g.h.Reaction(ctx, reactionEvent(s, r))
	})
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ev, ok := directMessageEvent(s, m)
	if !ok {
		return
	}
	g.guard("direct_message", func(ctx context.Context) (verify.Outcome, error) {
		return g.h.DirectMessage(ctx, ev)
	})
}

func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	r := &interactionResponder{s: s, i: i.Interaction}
	userID := interactionUserID(i.Interaction)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name != commandName {
			return
		}
		g.guard("command", func(ctx context.Context) (verify.Outcome, error) {
			return g.h.Command(ctx, verify.CommandInvoked{GuildID: i.GuildID, UserID: userID}, r)
		})
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		g.guard("modal_submit", func(ctx context.Context) (verify.Outcome, error) {
			return g.h.SubmitModal(ctx, verify.ModalSubmitted{
				UserID:   userID,
				CustomID: data.CustomID,
				Answer:   textInputValue(data.Components, answerInputID),
			}, r)
		})
	}
}

// InviteURL is the OAuth2 URL that adds the bot with the permissions it needs.
func InviteURL(clientID string) string {
	return fmt.Sprintf("https://discord.com/api/oauth2/authorize?client_id=%s&permissions=%d&scope=bot%%20applications.commands",
		clientID, invitePermissions)
}

func memberJoinedEvent(m *discordgo.GuildMemberAdd) (verify.MemberJoined, bool) {
	if m.Member == nil || m.User == nil {
		return verify.MemberJoined{}, false
	}
	member := toMember(m.Member)
	return verify.MemberJoined{
		GuildID:       m.GuildID,
		UserID:        member.UserID,
		Username:      member.Username,
		Discriminator: member.Discriminator,
		DisplayName:   member.DisplayName,
		Bot:           m.User.Bot,
		JoinedAt:      m.JoinedAt,
	}, true
}

func reactionEvent(s *discordgo.Session, r *discordgo.MessageReactionAdd) verify.ReactionAdded {
	ev := verify.ReactionAdded{
		GuildID:     r.GuildID,
		ChannelID:   r.ChannelID,
		ChannelName: channelName(s, r.ChannelID),
		MessageID:   r.MessageID,
		UserID:      r.UserID,
		Emoji:       r.Emoji.Name,
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		ev.Bot = true
	}
	if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
		ev.Bot = true
	}
	return ev
}

func directMessageEvent(s *discordgo.Session, m *discordgo.MessageCreate) (verify.DirectMessage, bool) {
	if m.Author == nil {
		return verify.DirectMessage{}, false
	}
	bot := m.Author.Bot
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		bot = true
	}
	return verify.DirectMessage{
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		UserID:    m.Author.ID,
		Content:   m.Content,
		Private:   m.GuildID == "",
		Bot:       bot,
	}, true
}

func channelName(s *discordgo.Session, channelID string) string {
	if s.State != nil {
		if ch, err := s.State.Channel(channelID); err == nil {
			return ch.Name
		}
	}
	ch, err := s.Channel(channelID)
	if err != nil {
		return ""
	}
	return ch.Name
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func textInputValue(components []discordgo.MessageComponent, id string) string {
	for _, c := range components {
		switch v := c.(type) {
		case *discordgo.ActionsRow:
			if val := textInputValue(v.Components, id); val != "" {
				return val
			}
		case discordgo.ActionsRow:
			if val := textInputValue(v.Components, id); val != "" {
				return val
			}
		case *discordgo.TextInput:
			if v.CustomID == id {
				return v.Value
			}
		case discordgo.TextInput:
			if v.CustomID == id {
				return v.Value
			}
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
