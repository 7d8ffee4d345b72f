package verify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/gatekeeper/internal/platform"
)

const (
	colorSuccess = 0x00ff00
	colorInfo    = 0x3498db
	colorWarn    = 0xff9900
	colorAdmin   = 0xffa500

	modalMaxLength = 1000
	modalIDPrefix  = "verify-modal:"
)

// Modal is the single-question form shown by the command round trip.
type Modal struct {
	CustomID    string
	Step        int
	Title       string
	Label       string
	Placeholder string
	MaxLength   int
}

// ModalCustomID encodes the question index a modal was opened for.
func ModalCustomID(step int) string {
	return fmt.Sprintf("%s%d", modalIDPrefix, step)
}

// ParseModalCustomID returns the question index encoded by ModalCustomID.
func ParseModalCustomID(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, modalIDPrefix)
	if !ok {
		return 0, false
	}
	step, err := strconv.Atoi(rest)
	if err != nil || step < 0 {
		return 0, false
	}
	return step, true
}

func (s *Service) questionTitle(step int) string {
	return fmt.Sprintf(s.locale.Text.QuestionTitle, step+1, s.questions.Len())
}

func (s *Service) welcomeMessage(userID, displayName string) platform.Message {
	t := s.locale.Text
	footer := ""
	if displayName != "" {
		footer = "Welcome " + displayName + "!"
	}
	return platform.Message{
		Content: platform.Mention(userID),
		Embed: &platform.Embed{
			Title:       fmt.Sprintf(t.WelcomeTitle, s.locale.Community),
			Description: fmt.Sprintf(t.WelcomeBody, platform.Mention(userID), s.locale.ConfirmEmoji),
			Color:       colorSuccess,
			Fields: []platform.Field{{
				Name:  t.WelcomeStepsTitle,
				Value: fmt.Sprintf(t.WelcomeSteps, s.locale.ConfirmEmoji, s.questions.Len(), s.locale.RoleName),
			}},
			Footer: footer,
		},
	}
}

func (s *Service) questionMessage(step int) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       s.questionTitle(step),
			Description: "**" + s.questions.PromptAt(step) + "**",
			Color:       colorInfo,
			Fields: []platform.Field{{
				Name:  s.locale.Text.AnswerHowTitle,
				Value: s.locale.Text.AnswerHow,
			}},
		},
	}
}

func (s *Service) dmRequiredNotice(userID string) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       "⚠️ DMs Required",
			Description: fmt.Sprintf(s.locale.Text.DMRequired, platform.Mention(userID)),
			Color:       colorWarn,
		},
		DeleteAfter: dmNoticeTTL,
	}
}

func (s *Service) allAnsweredMessage() platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       s.locale.Text.AllAnswered,
			Description: s.locale.Text.Processing,
			Color:       colorSuccess,
		},
	}
}

func (s *Service) verifiedMessage() platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       s.locale.Text.VerifiedTitle,
			Description: fmt.Sprintf(s.locale.Text.VerifiedBody, s.locale.Community),
			Color:       colorSuccess,
		},
	}
}

func (s *Service) manualRoleNotice(userID string) platform.Message {
	mention := platform.Mention(userID)
	return platform.Message{
		Embed: &platform.Embed{
			Title:       s.locale.Text.ManualRoleTitle,
			Description: fmt.Sprintf(s.locale.Text.ManualRoleBody, mention, s.granter.RoleName(), mention),
			Color:       colorAdmin,
		},
	}
}

func (s *Service) reviewRequiredMessage() platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       s.locale.Text.ReviewRequiredTitle,
			Description: fmt.Sprintf(s.locale.Text.ReviewRequiredBody, s.granter.RoleName()),
			Color:       colorSuccess,
		},
	}
}

func (s *Service) modalFor(step int) Modal {
	return Modal{
		CustomID:    ModalCustomID(step),
		Step:        step,
		Title:       s.questionTitle(step),
		Label:       s.questions.PromptAt(step),
		Placeholder: s.locale.Text.ModalPlaceholder,
		MaxLength:   modalMaxLength,
	}
}

func (s *Service) textNotice(text string) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{Description: text, Color: colorWarn},
	}
}
