// Package verify implements the member verification flow: the entry points
// that advance a session and the completion that grants access.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ashureev/gatekeeper/internal/access"
	"github.com/ashureev/gatekeeper/internal/config"
	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/ashureev/gatekeeper/internal/platform"
	"github.com/ashureev/gatekeeper/internal/session"
	"github.com/ashureev/gatekeeper/internal/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Outcome describes what an entry point did with an event.
type Outcome string

const (
	// OutcomeIgnored means the event was not admitted; nothing changed.
	OutcomeIgnored         Outcome = "ignored"
	OutcomeSessionStarted  Outcome = "session_started"
	OutcomePromptSent      Outcome = "prompt_sent"
	OutcomeDMUnavailable   Outcome = "dm_unavailable"
	OutcomeModalShown      Outcome = "modal_shown"
	OutcomeAnswerRecorded  Outcome = "answer_recorded"
	OutcomeCompleted       Outcome = "completed"
	OutcomeAlreadyComplete Outcome = "already_complete"
	OutcomeNoSession       Outcome = "no_session"
	OutcomeStale           Outcome = "stale"
	OutcomeTextRequired    Outcome = "text_required"
)

var (
	// ErrSessionMissing is returned when an operation targets a user without a session.
	ErrSessionMissing = errors.New("no active verification session")

	errNotAdmitted     = errors.New("event not admitted")
	errAlreadyComplete = errors.New("verification already complete")
	errStaleAnswer     = errors.New("answer does not match current question")
)

// dmNoticeTTL is how long the "enable DMs" notice stays in the channel.
const dmNoticeTTL = 10 * time.Second

// Granter assigns the verified role.
type Granter interface {
	Grant(ctx context.Context, guildID, userID string) access.Result
	RoleName() string
}

// WebhookSink receives completed answer sets.
type WebhookSink interface {
	Send(ctx context.Context, p webhook.Payload) webhook.Delivery
}

// Ledger records completed verifications.
type Ledger interface {
	RecordVerification(ctx context.Context, v *domain.Verification) error
}

// Deps are the collaborators of a Service. Ledger is optional.
type Deps struct {
	Store    *session.Store
	Platform platform.Platform
	Granter  Granter
	Webhook  WebhookSink
	Ledger   Ledger
	Locale   config.Locale
	Logger   *slog.Logger
}

// Service owns the session store and drives every verification transition.
type Service struct {
	store     *session.Store
	platform  platform.Platform
	granter   Granter
	webhook   WebhookSink
	ledger    Ledger
	locale    config.Locale
	questions domain.Questionnaire
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService validates the dependencies and builds a Service.
func NewService(d Deps) (*Service, error) {
	if d.Store == nil || d.Platform == nil || d.Granter == nil || d.Webhook == nil {
		return nil, errors.New("verify: store, platform, granter and webhook are required")
	}
	questions, err := d.Locale.Questionnaire()
	if err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     d.Store,
		platform:  d.Platform,
		granter:   d.Granter,
		webhook:   d.Webhook,
		ledger:    d.Ledger,
		locale:    d.Locale,
		questions: questions,
		logger:    logger,
		tracer:    otel.Tracer("github.com/ashureev/gatekeeper/internal/verify"),
		now:       time.Now,
	}, nil
}

// Store returns the session store the service drives.
func (s *Service) Store() *session.Store {
	return s.store
}

// Questions returns the questionnaire.
func (s *Service) Questions() domain.Questionnaire {
	return s.questions
}
