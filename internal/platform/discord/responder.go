package discord

import (
	"context"
	"fmt"

	"github.com/ashureev/gatekeeper/internal/verify"
	"github.com/bwmarrin/discordgo"
)

// interactionResponder answers a single interaction.
type interactionResponder struct {
	s *discordgo.Session
	i *discordgo.Interaction
}

func (r *interactionResponder) ShowModal(ctx context.Context, m verify.Modal) error {
	err := r.s.InteractionRespond(r.i, modalResponse(m), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("respond with modal: %w", err)
	}
	return nil
}

func (r *interactionResponder) Reply(ctx context.Context, text string) error {
	err := r.s.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("respond with message: %w", err)
	}
	return nil
}

func modalResponse(m verify.Modal) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: m.CustomID,
			Title:    truncateRunes(m.Title, maxLabelRunes),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    answerInputID,
						Label:       truncateRunes(m.Label, maxLabelRunes),
						Style:       discordgo.TextInputParagraph,
						Placeholder: m.Placeholder,
						Required:    true,
						MaxLength:   m.MaxLength,
					},
				}},
			},
		},
	}
}

var _ verify.Responder = (*interactionResponder)(nil)
