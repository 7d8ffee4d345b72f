package discord

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/gatekeeper/internal/platform"
	"github.com/ashureev/gatekeeper/internal/verify"
	"github.com/bwmarrin/discordgo"
)

func restError(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code},
	}
}

func testSession(t *testing.T) *discordgo.Session {
	t.Helper()
	state := discordgo.NewState()
	state.User = &discordgo.User{ID: "bot-1", Username: "gatekeeper", Bot: true}
	err := state.GuildAdd(&discordgo.Guild{
		ID:       "guild-1",
		Channels: []*discordgo.Channel{{ID: "chan-1", GuildID: "guild-1", Name: "✅-verify-access"}},
	})
	if err != nil {
		t.Fatalf("GuildAdd() error = %v", err)
	}
	return &discordgo.Session{State: state}
}

func TestMapDirectError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		disabled bool
	}{
		{"forbidden", restError(http.StatusForbidden, 0), true},
		{"cannot send code", restError(http.StatusBadRequest, discordgo.ErrCodeCannotSendMessagesToThisUser), true},
		{"server error", restError(http.StatusInternalServerError, 0), false},
		{"transport", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapDirectError(tt.err)
			if errors.Is(got, platform.ErrDirectMessagesDisabled) != tt.disabled {
				t.Errorf("mapDirectError() = %v, disabled want %v", got, tt.disabled)
			}
		})
	}
}

func TestMapErrorForbidden(t *testing.T) {
	if err := mapError(restError(http.StatusForbidden, 50013)); !errors.Is(err, platform.ErrForbidden) {
		t.Errorf("mapError() = %v, want ErrForbidden", err)
	}
	if err := mapError(restError(http.StatusNotFound, 0)); errors.Is(err, platform.ErrForbidden) {
		t.Errorf("404 should not map to ErrForbidden")
	}
}

func TestToEmbed(t *testing.T) {
	e := toEmbed(&platform.Embed{
		Title:       "t",
		Description: "d",
		Color:       0x3498db,
		Fields:      []platform.Field{{Name: "n", Value: "v"}},
		Footer:      "f",
	})
	if e.Title != "t" || e.Color != 0x3498db || len(e.Fields) != 1 || e.Footer == nil || e.Footer.Text != "f" {
		t.Errorf("toEmbed() = %+v", e)
	}
	if toEmbed(&platform.Embed{Title: "x"}).Footer != nil {
		t.Error("empty footer should be omitted")
	}
}

func TestToMemberDisplayName(t *testing.T) {
	m := toMember(&discordgo.Member{
		User:  &discordgo.User{ID: "u", Username: "alice", Discriminator: "0", GlobalName: "Alice"},
		Roles: []string{"r1"},
	})
	if m.UserID != "u" || m.DisplayName != "Alice" || !m.HasRole("r1") {
		t.Errorf("toMember() = %+v", m)
	}
}

func TestTopPosition(t *testing.T) {
	roles := []platform.Role{{ID: "a", Position: 3}, {ID: "b", Position: 7}, {ID: "c", Position: 9}}
	if got := topPosition(roles, []string{"a", "b"}); got != 7 {
		t.Errorf("topPosition() = %d, want 7", got)
	}
	if got := topPosition(roles, nil); got != 0 {
		t.Errorf("topPosition(nil) = %d, want 0", got)
	}
}

func TestMemberJoinedEvent(t *testing.T) {
	joined := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev, ok := memberJoinedEvent(&discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID:  "guild-1",
		JoinedAt: joined,
		User:     &discordgo.User{ID: "u", Username: "alice", Discriminator: "1234"},
	}})
	if !ok {
		t.Fatal("expected event")
	}
	if ev.GuildID != "guild-1" || ev.UserID != "u" || ev.Discriminator != "1234" || !ev.JoinedAt.Equal(joined) {
		t.Errorf("event = %+v", ev)
	}
	if _, ok := memberJoinedEvent(&discordgo.GuildMemberAdd{}); ok {
		t.Error("nil member should be skipped")
	}
}

func TestReactionEventResolvesChannelName(t *testing.T) {
	s := testSession(t)
	ev := reactionEvent(s, &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID: "u", MessageID: "m", ChannelID: "chan-1", GuildID: "guild-1",
		Emoji: discordgo.Emoji{Name: "✅"},
	}})
	if ev.ChannelName != "✅-verify-access" || ev.Emoji != "✅" || ev.Bot {
		t.Errorf("event = %+v", ev)
	}

	self := reactionEvent(s, &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID: "bot-1", ChannelID: "chan-1",
	}})
	if !self.Bot {
		t.Error("bot's own reaction should be flagged")
	}
}

func TestDirectMessageEvent(t *testing.T) {
	s := testSession(t)
	ev, ok := directMessageEvent(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m", ChannelID: "dm", Content: "hi", Author: &discordgo.User{ID: "u"},
	}})
	if !ok || !ev.Private || ev.Bot || ev.Content != "hi" {
		t.Errorf("event = %+v, ok = %v", ev, ok)
	}

	guildMsg, _ := directMessageEvent(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		GuildID: "guild-1", Author: &discordgo.User{ID: "u"},
	}})
	if guildMsg.Private {
		t.Error("guild message should not be private")
	}

	own, _ := directMessageEvent(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		Author: &discordgo.User{ID: "bot-1"},
	}})
	if !own.Bot {
		t.Error("bot's own message should be flagged")
	}
}

func TestTextInputValue(t *testing.T) {
	components := []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: answerInputID, Value: "my answer"},
		}},
	}
	if got := textInputValue(components, answerInputID); got != "my answer" {
		t.Errorf("textInputValue() = %q", got)
	}
	if got := textInputValue(components, "other"); got != "" {
		t.Errorf("textInputValue(other) = %q", got)
	}
}

func TestModalResponseTruncatesLabel(t *testing.T) {
	long := strings.Repeat("é", 60)
	resp := modalResponse(verify.Modal{CustomID: verify.ModalCustomID(2), Title: "Question 3 of 4", Label: long, MaxLength: 1000})

	if resp.Type != discordgo.InteractionResponseModal || resp.Data.CustomID != "verify-modal:2" {
		t.Fatalf("response = %+v", resp)
	}
	row := resp.Data.Components[0].(discordgo.ActionsRow)
	input := row.Components[0].(discordgo.TextInput)
	if n := len([]rune(input.Label)); n != maxLabelRunes {
		t.Errorf("label has %d runes, want %d", n, maxLabelRunes)
	}
	if input.MaxLength != 1000 || !input.Required || input.Style != discordgo.TextInputParagraph {
		t.Errorf("input = %+v", input)
	}
}

func TestInviteURL(t *testing.T) {
	u := InviteURL("123")
	if !strings.Contains(u, "client_id=123") || !strings.Contains(u, "scope=bot%20applications.commands") {
		t.Errorf("InviteURL() = %q", u)
	}
}
