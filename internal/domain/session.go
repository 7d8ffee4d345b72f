package domain

import (
	"time"
)

// AwaitMode is the input a session currently accepts as its next answer.
type AwaitMode int

const (
	// AwaitNone means no answer-bearing input is expected.
	AwaitNone AwaitMode = iota
	// AwaitDirectReply means the next private message is the answer.
	AwaitDirectReply
	// AwaitModal means the next modal submission is the answer.
	AwaitModal
)

// String returns the mode name used in logs and the admin API.
func (m AwaitMode) String() string {
	switch m {
	case AwaitDirectReply:
		return "direct_reply"
	case AwaitModal:
		return "modal"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m AwaitMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Session holds in-flight verification progress for one member.
type Session struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	GuildID         string    `json:"guild_id"`
	Username        string    `json:"username"`
	Discriminator   string    `json:"discriminator,omitempty"`
	JoinedAt        time.Time `json:"joined_at"`
	CreatedAt       time.Time `json:"created_at"`
	PromptChannelID string    `json:"prompt_channel_id,omitempty"`
	PromptMessageID string    `json:"prompt_message_id,omitempty"`
	Step            int       `json:"step"`
	Answers         []string  `json:"answers"`
	Await           AwaitMode `json:"await"`
	Completing      bool      `json:"completing"`
}

// Clone returns a deep copy safe to hand out of the store.
func (s *Session) Clone() Session {
	c := *s
	c.Answers = append([]string(nil), s.Answers...)
	return c
}

// RecordAnswer appends an answer and advances the step.
// It keeps len(Answers) == Step and resets the await mode.
func (s *Session) RecordAnswer(answer string) {
	s.Answers = append(s.Answers, answer)
	s.Step = len(s.Answers)
	s.Await = AwaitNone
}

// Answered reports whether every question of a questionnaire of length n has an answer.
func (s *Session) Answered(n int) bool {
	return s.Step >= n
}

// AcceptsInput reports whether the session can still take answers.
func (s *Session) AcceptsInput(n int) bool {
	return !s.Completing && s.Step < n
}
