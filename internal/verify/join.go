package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/session"
)

// MemberJoined starts a session and posts the welcome prompt. A session
// left over from an earlier join is replaced.
func (s *Service) MemberJoined(ctx context.Context, ev MemberJoined) (Outcome, error) {
	if ev.Bot {
		return OutcomeIgnored, nil
	}

	sess, replaced := s.store.Create(session.Seed{
		UserID:        ev.UserID,
		GuildID:       ev.GuildID,
		Username:      ev.Username,
		Discriminator: ev.Discriminator,
		JoinedAt:      ev.JoinedAt,
	})
	if replaced {
		s.logger.Info("Replaced existing verification session", "user_id", ev.UserID, "session_id", sess.ID)
	}
	s.logger.Info("Verification session started", "user_id", ev.UserID, "guild_id", ev.GuildID)

	channelID, err := s.platform.FindChannel(ctx, ev.GuildID, s.locale.VerifyChannel)
	if err != nil {
		s.logger.Warn("Verify channel unavailable, welcome not posted",
			"user_id", ev.UserID, "channel", s.locale.VerifyChannel, "error", err)
		return OutcomeSessionStarted, nil
	}

	messageID, err := s.platform.SendChannelMessage(ctx, channelID, s.welcomeMessage(ev.UserID, ev.DisplayName))
	if err != nil {
		return OutcomeSessionStarted, fmt.Errorf("post welcome: %w", err)
	}

	_, err = s.store.Update(ev.UserID, func(cur *domain.Session) error {
		if cur.ID != sess.ID {
			return errNotAdmitted
		}
		cur.PromptChannelID = channelID
		cur.PromptMessageID = messageID
		return nil
	})
	if err != nil && !errors.Is(err, errNotAdmitted) && !errors.Is(err, session.ErrSessionNotFound) {
		return OutcomeSessionStarted, fmt.Errorf("record welcome message: %w", err)
	}

	// PromptMessageID must be set before the reaction is visible.
	if err := s.platform.AddReaction(ctx, channelID, messageID, s.locale.ConfirmEmoji); err != nil {
		s.logger.Warn("Failed to add welcome reaction", "user_id", ev.UserID, "error", err)
	}
	return OutcomeSessionStarted, nil
}
