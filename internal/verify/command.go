package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/session"
)

// Command handles /verify by showing the modal for the current question.
func (s *Service) Command(ctx context.Context, ev CommandInvoked, r Responder) (Outcome, error) {
	n := s.questions.Len()
	prev := domain.AwaitNone
	sess, err := s.store.Update(ev.UserID, func(cur *domain.Session) error {
		if !cur.AcceptsInput(n) {
			return errAlreadyComplete
		}
		prev = cur.Await
		cur.Await = domain.AwaitModal
		return nil
	})
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return OutcomeNoSession, s.reply(ctx, r, s.locale.Text.NoSession)
	case errors.Is(err, errAlreadyComplete):
		return OutcomeAlreadyComplete, s.reply(ctx, r, s.locale.Text.AlreadyComplete)
	case err != nil:
		return OutcomeIgnored, err
	}

	if err := r.ShowModal(ctx, s.modalFor(sess.Step)); err != nil {
		s.disarm(sess, domain.AwaitModal, prev)
		return OutcomeIgnored, fmt.Errorf("show modal for question %d: %w", sess.Step, err)
	}
	return OutcomeModalShown, nil
}

// SubmitModal records a modal answer. The modal must be the one shown for
// the session's current question.
func (s *Service) SubmitModal(ctx context.Context, ev ModalSubmitted, r Responder) (Outcome, error) {
	step, ok := ParseModalCustomID(ev.CustomID)
	if !ok {
		return OutcomeIgnored, nil
	}
	answer := strings.TrimSpace(ev.Answer)
	if answer == "" {
		return OutcomeIgnored, s.reply(ctx, r, s.locale.Text.GenericError)
	}

	n := s.questions.Len()
	sess, err := s.store.Update(ev.UserID, func(cur *domain.Session) error {
		if !cur.AcceptsInput(n) {
			return errAlreadyComplete
		}
		if cur.Await != domain.AwaitModal || cur.Step != step {
			return errStaleAnswer
		}
		cur.RecordAnswer(answer)
		return nil
	})
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return OutcomeNoSession, s.reply(ctx, r, s.locale.Text.SessionNotFound)
	case errors.Is(err, errAlreadyComplete):
		return OutcomeAlreadyComplete, s.reply(ctx, r, s.locale.Text.AlreadyComplete)
	case errors.Is(err, errStaleAnswer):
		return OutcomeStale, s.reply(ctx, r, s.locale.Text.StaleAnswer)
	case err != nil:
		return OutcomeIgnored, err
	}
	s.logger.Info("Recorded modal answer", "user_id", ev.UserID, "step", step)

	if sess.Step < n {
		text := fmt.Sprintf(s.locale.Text.AnswerRecorded, sess.Step, sess.Step+1)
		return OutcomeAnswerRecorded, s.reply(ctx, r, text)
	}

	if err := s.reply(ctx, r, s.locale.Text.AllAnswered+"\n"+s.locale.Text.Processing); err != nil {
		s.logger.Warn("Failed to acknowledge final answer", "user_id", ev.UserID, "error", err)
	}
	return s.Complete(ctx, ev.UserID)
}

func (s *Service) reply(ctx context.Context, r Responder, text string) error {
	if err := r.Reply(ctx, text); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}
