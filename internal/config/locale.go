package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ashureev/gatekeeper/internal/domain"
	"gopkg.in/yaml.v3"
)

// Locale is the user-facing text and naming of one deployment.
// Any field left empty in a locale file keeps its default.
type Locale struct {
	VerifyChannel string            `yaml:"verify_channel"`
	AdminChannel  string            `yaml:"admin_channel"`
	RoleName      string            `yaml:"role_name"`
	ConfirmEmoji  string            `yaml:"confirm_emoji"`
	Community     string            `yaml:"community"`
	Questions     []domain.Question `yaml:"questions"`
	Text          Text              `yaml:"text"`
}

// Text holds message strings. Trailing comments list the format verbs a
// string is rendered with.
type Text struct {
	WelcomeTitle        string `yaml:"welcome_title"`         // %s community
	WelcomeBody         string `yaml:"welcome_body"`          // %s mention, %s emoji
	WelcomeStepsTitle   string `yaml:"welcome_steps_title"`
	WelcomeSteps        string `yaml:"welcome_steps"`         // %s emoji, %d count, %s role
	QuestionTitle       string `yaml:"question_title"`        // %d index, %d count
	AnswerHowTitle      string `yaml:"answer_how_title"`
	AnswerHow           string `yaml:"answer_how"`
	DMRequired          string `yaml:"dm_required"`           // %s mention
	AllAnswered         string `yaml:"all_answered"`
	Processing          string `yaml:"processing"`
	AnswerRecorded      string `yaml:"answer_recorded"`       // %d answered, %d next
	AlreadyComplete     string `yaml:"already_complete"`
	NoSession           string `yaml:"no_session"`
	SessionNotFound     string `yaml:"session_not_found"`
	StaleAnswer         string `yaml:"stale_answer"`
	GenericError        string `yaml:"generic_error"`
	TextRequired        string `yaml:"text_required"`
	SessionExpired      string `yaml:"session_expired"`
	ModalPlaceholder    string `yaml:"modal_placeholder"`
	VerifiedTitle       string `yaml:"verified_title"`
	VerifiedBody        string `yaml:"verified_body"`         // %s community
	ManualRoleTitle     string `yaml:"manual_role_title"`
	ManualRoleBody      string `yaml:"manual_role_body"`      // %s mention, %s role, %s mention
	ReviewRequiredTitle string `yaml:"review_required_title"`
	ReviewRequiredBody  string `yaml:"review_required_body"`  // %s role
	CommandDescription  string `yaml:"command_description"`
}

// DefaultLocale returns the built-in English locale.
func DefaultLocale() Locale {
	return Locale{
		VerifyChannel: "✅-verify-access",
		RoleName:      "Verified",
		ConfirmEmoji:  "✅",
		Community:     "Amazon FBA Community",
		Questions: []domain.Question{
			{Prompt: "What interests you most about Amazon FBA?", Key: "interest"},
			{Prompt: "Have you tried Amazon FBA before?", Key: "experience"},
			{Prompt: "What's your biggest challenge with FBA right now?", Key: "challenge"},
			{Prompt: "Are you currently selling, or just researching?", Key: "status"},
		},
		Text: Text{
			WelcomeTitle:        "🎉 Welcome to the %s!",
			WelcomeBody:         "Hey %s! To get verified and access all channels, please react with %s to this message to start your verification process.",
			WelcomeStepsTitle:   "📝 What happens next:",
			WelcomeSteps:        "• React with %s below to start\n• Answer %d questions privately\n• Get your %s role automatically",
			QuestionTitle:       "Question %d of %d",
			AnswerHowTitle:      "📝 How to answer:",
			AnswerHow:           "Please reply to this DM with your answer. Your response will be private.",
			DMRequired:          "%s Please enable DMs from server members to complete verification, or contact an admin for help.",
			AllAnswered:         "✅ All questions answered!",
			Processing:          "Processing your verification...",
			AnswerRecorded:      "✅ Question %d answered successfully.\n\nUse `/verify` again to continue with question %d.",
			AlreadyComplete:     "✅ You have already completed all verification questions!",
			NoSession:           "❌ You don't have an active verification session. This might be because:\n• You already completed verification\n• Your session expired\n• You joined before the bot was online\n\nPlease contact an admin for help.",
			SessionNotFound:     "❌ Verification session not found. Please contact an admin.",
			StaleAnswer:         "⚠️ That question was already answered. Use `/verify` to see the current question.",
			GenericError:        "❌ An error occurred. Please try again later.",
			TextRequired:        "✏️ Please reply with a text answer to the question above.",
			SessionExpired:      "⌛ Your verification session expired. Please contact an admin to restart verification.",
			ModalPlaceholder:    "Please provide a detailed answer...",
			VerifiedTitle:       "🎉 You're now verified! Welcome aboard!",
			VerifiedBody:        "Thanks for completing the verification process. You now have access to all channels in the %s!",
			ManualRoleTitle:     "🔧 Manual Role Assignment Needed",
			ManualRoleBody:      "**%s has completed verification** but I cannot assign roles automatically.\n\n**Admin Action Required:**\nPlease manually assign the `%s` role to %s",
			ReviewRequiredTitle: "✅ Verification Complete - Admin Review Required",
			ReviewRequiredBody:  "You've successfully answered all verification questions! An admin has been notified to manually assign your `%s` role.",
			CommandDescription:  "Start the verification process",
		},
	}
}

// LoadLocale returns the default locale overlaid with the YAML file at path.
// An empty path returns the defaults.
func LoadLocale(path string) (Locale, error) {
	locale := DefaultLocale()
	if path == "" {
		return locale, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Locale{}, fmt.Errorf("read locale file: %w", err)
	}
	var override Locale
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Locale{}, fmt.Errorf("decode locale file %s: %w", path, err)
	}
	locale.merge(override)
	return locale, nil
}

func (l *Locale) merge(o Locale) {
	setIf(&l.VerifyChannel, o.VerifyChannel)
	setIf(&l.AdminChannel, o.AdminChannel)
	setIf(&l.RoleName, o.RoleName)
	setIf(&l.ConfirmEmoji, o.ConfirmEmoji)
	setIf(&l.Community, o.Community)
	if len(o.Questions) > 0 {
		l.Questions = o.Questions
	}

	t, ot := &l.Text, o.Text
	setIf(&t.WelcomeTitle, ot.WelcomeTitle)
	setIf(&t.WelcomeBody, ot.WelcomeBody)
	setIf(&t.WelcomeStepsTitle, ot.WelcomeStepsTitle)
	setIf(&t.WelcomeSteps, ot.WelcomeSteps)
	setIf(&t.QuestionTitle, ot.QuestionTitle)
	setIf(&t.AnswerHowTitle, ot.AnswerHowTitle)
	setIf(&t.AnswerHow, ot.AnswerHow)
	setIf(&t.DMRequired, ot.DMRequired)
	setIf(&t.AllAnswered, ot.AllAnswered)
	setIf(&t.Processing, ot.Processing)
	setIf(&t.AnswerRecorded, ot.AnswerRecorded)
	setIf(&t.AlreadyComplete, ot.AlreadyComplete)
	setIf(&t.NoSession, ot.NoSession)
	setIf(&t.SessionNotFound, ot.SessionNotFound)
	setIf(&t.StaleAnswer, ot.StaleAnswer)
	setIf(&t.GenericError, ot.GenericError)
	setIf(&t.TextRequired, ot.TextRequired)
	setIf(&t.SessionExpired, ot.SessionExpired)
	setIf(&t.ModalPlaceholder, ot.ModalPlaceholder)
	setIf(&t.VerifiedTitle, ot.VerifiedTitle)
	setIf(&t.VerifiedBody, ot.VerifiedBody)
	setIf(&t.ManualRoleTitle, ot.ManualRoleTitle)
	setIf(&t.ManualRoleBody, ot.ManualRoleBody)
	setIf(&t.ReviewRequiredTitle, ot.ReviewRequiredTitle)
	setIf(&t.ReviewRequiredBody, ot.ReviewRequiredBody)
	setIf(&t.CommandDescription, ot.CommandDescription)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// AdminChannelName is where manual-intervention notices go.
// It falls back to the verify channel.
func (l Locale) AdminChannelName() string {
	if l.AdminChannel != "" {
		return l.AdminChannel
	}
	return l.VerifyChannel
}

// Questionnaire builds the validated questionnaire.
func (l Locale) Questionnaire() (domain.Questionnaire, error) {
	return domain.NewQuestionnaire(l.Questions)
}

// Validate checks the locale is usable.
func (l Locale) Validate() error {
	if l.VerifyChannel == "" {
		return errors.New("locale: verify_channel cannot be empty")
	}
	if l.RoleName == "" {
		return errors.New("locale: role_name cannot be empty")
	}
	if l.ConfirmEmoji == "" {
		return errors.New("locale: confirm_emoji cannot be empty")
	}
	if _, err := l.Questionnaire(); err != nil {
		return fmt.Errorf("locale: %w", err)
	}
	return nil
}
