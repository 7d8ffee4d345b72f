package verify

import (
	"context"
	"errors"

	"github.com/ashureev/gatekeeper/internal/access"
	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/platform"
	"github.com/ashureev/gatekeeper/internal/webhook"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Complete finishes a fully answered session: grant the role, notify,
// deliver the answers and drop the session. Only the first call for a
// session does anything.
func (s *Service) Complete(ctx context.Context, userID string) (Outcome, error) {
	sess, ok := s.store.Claim(userID, s.questions.Len())
	if !ok {
		return OutcomeIgnored, nil
	}
	defer s.store.DeleteIf(userID, sess.ID)

	ctx, span := s.tracer.Start(ctx, "verify.complete", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("guild.id", sess.GuildID),
	))
	defer span.End()

	username, discriminator := sess.Username, sess.Discriminator
	if m, err := s.platform.Member(ctx, sess.GuildID, userID); err == nil {
		username, discriminator = m.Username, m.Discriminator
	} else {
		s.logger.Warn("Member lookup failed, using join snapshot", "user_id", userID, "error", err)
	}

	result := s.granter.Grant(ctx, sess.GuildID, userID)
	if result.Granted() {
		s.logger.Info("Verified role granted", "user_id", userID,
			"strategy", result.Strategy, "already_held", result.AlreadyHeld, "role_created", result.RoleCreated)
		s.directNotice(ctx, userID, s.verifiedMessage())
	} else {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, "role grant failed")
		s.logger.Error("Role grant failed, requesting manual review", "user_id", userID,
			"state", result.State, "hierarchy_issue", result.HierarchyIssue, "error", result.Err())
		s.notifyAdmins(ctx, sess)
		s.directNotice(ctx, userID, s.reviewRequiredMessage())
	}

	answers := s.questions.AnswerMap(sess.Answers)
	delivery := s.webhook.Send(ctx, webhook.NewPayload(webhook.Submission{
		UserID:        userID,
		Username:      username,
		Discriminator: discriminator,
		JoinedAt:      sess.JoinedAt,
		Answers:       answers,
	}))

	span.SetAttributes(
		attribute.String("grant.state", string(result.State)),
		attribute.String("webhook.status", string(delivery.Status)),
	)

	s.record(ctx, &domain.Verification{
		SessionID:    sess.ID,
		UserID:       userID,
		GuildID:      sess.GuildID,
		Username:     username,
		Answers:      answers,
		GrantState:   string(result.State),
		GrantMethod:  grantMethod(result),
		WebhookState: string(delivery.Status),
		JoinedAt:     sess.JoinedAt,
		CompletedAt:  s.now().UTC(),
	})

	s.logger.Info("Verification completed", "user_id", userID,
		"granted", result.Granted(), "webhook", delivery.Status)
	return OutcomeCompleted, nil
}

// Progress returns a snapshot of the user's session.
func (s *Service) Progress(userID string) (domain.Session, error) {
	sess, ok := s.store.Get(userID)
	if !ok {
		return domain.Session{}, ErrSessionMissing
	}
	return sess, nil
}

func (s *Service) directNotice(ctx context.Context, userID string, msg platform.Message) {
	err := s.platform.SendDirectMessage(ctx, userID, msg)
	switch {
	case err == nil:
	case errors.Is(err, platform.ErrDirectMessagesDisabled):
		s.logger.Info("Direct messages disabled, notice skipped", "user_id", userID)
	default:
		s.logger.Warn("Failed to send direct notice", "user_id", userID, "error", err)
	}
}

func (s *Service) notifyAdmins(ctx context.Context, sess domain.Session) {
	name := s.locale.AdminChannelName()
	channelID, err := s.platform.FindChannel(ctx, sess.GuildID, name)
	if err != nil {
		s.logger.Error("Admin channel unavailable", "channel", name, "user_id", sess.UserID, "error", err)
		return
	}
	if _, err := s.platform.SendChannelMessage(ctx, channelID, s.manualRoleNotice(sess.UserID)); err != nil {
		s.logger.Error("Failed to notify admins", "user_id", sess.UserID, "error", err)
	}
}

func (s *Service) record(ctx context.Context, v *domain.Verification) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.RecordVerification(ctx, v); err != nil {
		s.logger.Error("Failed to record verification", "user_id", v.UserID, "error", err)
	}
}

func grantMethod(r access.Result) string {
	if r.AlreadyHeld {
		return "already_held"
	}
	return r.Strategy
}

// Sessions returns snapshots of all in-flight sessions.
func (s *Service) Sessions() []domain.Session {
	return s.store.List()
}

// ActiveSessions returns the number of in-flight sessions.
func (s *Service) ActiveSessions() int {
	return s.store.Len()
}

// NotifyExpired tells a member their abandoned session was removed.
func (s *Service) NotifyExpired(ctx context.Context, userID string) {
	s.directNotice(ctx, userID, s.textNotice(s.locale.Text.SessionExpired))
}
