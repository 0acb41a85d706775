package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shampis/trialbot/internal/claim"
	"github.com/shampis/trialbot/internal/config"
)

// ClaimButtonID is the custom id of the claim button. It is stable across
// releases so prompts posted by earlier processes keep working.
const ClaimButtonID = "claim_trial_key"

const deliveryColor = 0x2ECC71

// promptMessage builds the claim invitation with its button.
func promptMessage(p config.PromptConfig, now time.Time) *discordgo.MessageSend {
	button := discordgo.Button{
		Label:    p.ButtonLabel,
		Style:    discordgo.PrimaryButton,
		CustomID: ClaimButtonID,
	}
	if p.ButtonEmoji != "" {
		button.Emoji = &discordgo.ComponentEmoji{Name: p.ButtonEmoji}
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       p.Title,
			Description: p.Description,
			Color:       p.Color,
			Timestamp:   now.UTC().Format(time.RFC3339),
			Footer:      footer(p.Footer),
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{button}},
		},
	}
}

// deliveryEmbed builds the private message carrying a key.
func deliveryEmbed(p config.PromptConfig, d claim.Delivery, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: p.DeliveryTitle,
		Description: fmt.Sprintf("Hey **%s**! Here is your **1-hour trial key**:\n\n", d.DisplayName) +
			fmt.Sprintf("```\n%s\n```\n", d.Key) +
			"**How to use:**\n" +
			"1. Launch the loader\n" +
			"2. Enter your key when prompted\n" +
			"3. Enjoy! 🎯\n\n" +
			"> ⚠️ This key is valid for **1 hour** and can only be used **once**.",
		Color:     deliveryColor,
		Timestamp: now.UTC().Format(time.RFC3339),
		Footer:    footer(p.DeliveryFooter),
	}
}

func footer(text string) *discordgo.MessageEmbedFooter {
	if text == "" {
		return nil
	}
	return &discordgo.MessageEmbedFooter{Text: text}
}
