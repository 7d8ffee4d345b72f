// Package domain contains core domain types for the verification service.
package domain

import (
	"errors"
	"fmt"
)

// Question is a single questionnaire entry.
type Question struct {
	Prompt string `yaml:"prompt" json:"prompt"`
	Key    string `yaml:"key" json:"key"`
}

// Questionnaire is the fixed, ordered list of verification questions.
// It is immutable once constructed.
type Questionnaire struct {
	questions []Question
}

// ErrEmptyQuestionnaire is returned when a questionnaire has no questions.
var ErrEmptyQuestionnaire = errors.New("questionnaire has no questions")

// NewQuestionnaire validates and copies the given questions.
func NewQuestionnaire(questions []Question) (Questionnaire, error) {
	if len(questions) == 0 {
		return Questionnaire{}, ErrEmptyQuestionnaire
	}
	seen := make(map[string]struct{}, len(questions))
	qs := make([]Question, len(questions))
	for i, q := range questions {
		if q.Prompt == "" {
			return Questionnaire{}, fmt.Errorf("question %d: empty prompt", i+1)
		}
		if q.Key == "" {
			return Questionnaire{}, fmt.Errorf("question %d: empty key", i+1)
		}
		if _, dup := seen[q.Key]; dup {
			return Questionnaire{}, fmt.Errorf("question %d: duplicate key %q", i+1, q.Key)
		}
		seen[q.Key] = struct{}{}
		qs[i] = q
	}
	return Questionnaire{questions: qs}, nil
}

// Len returns the number of questions.
func (q Questionnaire) Len() int {
	return len(q.questions)
}

// PromptAt returns the prompt text for question i.
func (q Questionnaire) PromptAt(i int) string {
	return q.questions[i].Prompt
}

// KeyAt returns the output key for question i.
func (q Questionnaire) KeyAt(i int) string {
	return q.questions[i].Key
}

// AnswerMap maps answers positionally onto the output keys.
// Answers beyond the questionnaire length are dropped.
func (q Questionnaire) AnswerMap(answers []string) map[string]string {
	out := make(map[string]string, min(len(answers), len(q.questions)))
	for i, answer := range answers {
		if i >= len(q.questions) {
			break
		}
		out[q.questions[i].Key] = answer
	}
	return out
}
