package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/platform"
	"github.com/ashureev/gatekeeper/internal/session"
)

// Reaction starts the direct-message round for a member who confirmed the
// welcome prompt.
func (s *Service) Reaction(ctx context.Context, ev ReactionAdded) (Outcome, error) {
	if ev.Bot || ev.Emoji != s.locale.ConfirmEmoji || ev.ChannelName != s.locale.VerifyChannel {
		return OutcomeIgnored, nil
	}

	n := s.questions.Len()
	sess, ok := s.store.Get(ev.UserID)
	if !ok || sess.PromptMessageID == "" || sess.PromptMessageID != ev.MessageID || !sess.AcceptsInput(n) {
		return OutcomeIgnored, nil
	}

	err := s.platform.SendDirectMessage(ctx, ev.UserID, s.questionMessage(sess.Step))
	if err == nil {
		s.switchToDirectReply(sess)
		s.logger.Info("Sent verification question", "user_id", ev.UserID, "step", sess.Step)
		return OutcomePromptSent, nil
	}
	if !errors.Is(err, platform.ErrDirectMessagesDisabled) {
		return OutcomeIgnored, fmt.Errorf("send question %d: %w", sess.Step, err)
	}

	s.logger.Info("Direct messages disabled, posting notice", "user_id", ev.UserID)
	if _, nerr := s.platform.SendChannelMessage(ctx, ev.ChannelID, s.dmRequiredNotice(ev.UserID)); nerr != nil {
		s.logger.Warn("Failed to post DM notice", "user_id", ev.UserID, "error", nerr)
	}
	return OutcomeDMUnavailable, nil
}

// switchToDirectReply awaits a private reply for the question that was
// delivered. A pending modal is superseded since the member chose DMs last.
func (s *Service) switchToDirectReply(delivered domain.Session) {
	_, err := s.store.Update(delivered.UserID, func(cur *domain.Session) error {
		if cur.ID != delivered.ID || cur.Step != delivered.Step || !cur.AcceptsInput(s.questions.Len()) {
			return errNotAdmitted
		}
		cur.Await = domain.AwaitDirectReply
		return nil
	})
	if err != nil && !errors.Is(err, errNotAdmitted) && !errors.Is(err, session.ErrSessionNotFound) {
		s.logger.Warn("Failed to await direct reply", "user_id", delivered.UserID, "error", err)
	}
}

// disarm restores the await mode set by a transition whose prompt could not
// be delivered, unless the session moved on in the meantime.
func (s *Service) disarm(armed domain.Session, mode, prev domain.AwaitMode) {
	_, err := s.store.Update(armed.UserID, func(cur *domain.Session) error {
		if cur.ID != armed.ID || cur.Step != armed.Step || cur.Await != mode {
			return errNotAdmitted
		}
		cur.Await = prev
		return nil
	})
	if err != nil && !errors.Is(err, errNotAdmitted) && !errors.Is(err, session.ErrSessionNotFound) {
		s.logger.Warn("Failed to restore await mode", "user_id", armed.UserID, "error", err)
	}
}
