package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/session"
)

const ackEmoji = "✅"

// DirectMessage records a private reply as the answer to the current question.
func (s *Service) DirectMessage(ctx context.Context, ev DirectMessage) (Outcome, error) {
	if !ev.Private || ev.Bot {
		return OutcomeIgnored, nil
	}
	n := s.questions.Len()
	answer := strings.TrimSpace(ev.Content)
	if answer == "" {
		return s.requireText(ctx, ev.UserID, n)
	}

	sess, err := s.store.Update(ev.UserID, func(cur *domain.Session) error {
		if !cur.AcceptsInput(n) || cur.Await != domain.AwaitDirectReply {
			return errNotAdmitted
		}
		cur.RecordAnswer(answer)
		return nil
	})
	if errors.Is(err, errNotAdmitted) || errors.Is(err, session.ErrSessionNotFound) {
		return OutcomeIgnored, nil
	}
	if err != nil {
		return OutcomeIgnored, err
	}
	s.logger.Info("Recorded direct answer", "user_id", ev.UserID, "step", sess.Step-1)

	if err := s.platform.AddReaction(ctx, ev.ChannelID, ev.MessageID, ackEmoji); err != nil {
		s.logger.Warn("Failed to acknowledge answer", "user_id", ev.UserID, "error", err)
	}

	if sess.Step < n {
		if err := s.platform.SendDirectMessage(ctx, ev.UserID, s.questionMessage(sess.Step)); err != nil {
			return OutcomeAnswerRecorded, fmt.Errorf("send question %d: %w", sess.Step, err)
		}
		s.arm(sess)
		return OutcomeAnswerRecorded, nil
	}

	if err := s.platform.SendDirectMessage(ctx, ev.UserID, s.allAnsweredMessage()); err != nil {
		s.logger.Warn("Failed to send processing notice", "user_id", ev.UserID, "error", err)
	}
	return s.Complete(ctx, ev.UserID)
}

// requireText answers a reply with no text, such as an attachment, while a
// question is pending. Nothing is recorded.
func (s *Service) requireText(ctx context.Context, userID string, n int) (Outcome, error) {
	sess, ok := s.store.Get(userID)
	if !ok || !sess.AcceptsInput(n) || sess.Await != domain.AwaitDirectReply {
		return OutcomeIgnored, nil
	}
	s.directNotice(ctx, userID, s.textNotice(s.locale.Text.TextRequired))
	return OutcomeTextRequired, nil
}

// arm makes the next private reply the answer to the question just
// delivered, unless the session moved on while it was being sent.
func (s *Service) arm(delivered domain.Session) {
	_, err := s.store.Update(delivered.UserID, func(cur *domain.Session) error {
		if cur.ID != delivered.ID || cur.Step != delivered.Step || cur.Await != domain.AwaitNone || cur.Completing {
			return errNotAdmitted
		}
		cur.Await = domain.AwaitDirectReply
		return nil
	})
	if err != nil && !errors.Is(err, errNotAdmitted) && !errors.Is(err, session.ErrSessionNotFound) {
		s.logger.Warn("Failed to await direct reply", "user_id", delivered.UserID, "error", err)
	}
}
