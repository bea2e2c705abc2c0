package bot

import "github.com/spauka/secretsanta/internal/connector"

// invokeValue is the payload card buttons post back through an invoke
// activity.
type invokeValue struct {
	Action string `json:"action"`
}

// allocationCard is what a participant first receives: party details and a
// button that swaps the card for the actual allocation.
func (b *Bot) allocationCard() connector.Attachment {
	card := connector.ThumbnailCard{
		Title: "Your Secret Santa Allocation",
		Text:  b.messages.PartyDetails,
		Buttons: []connector.CardAction{
			{Type: "invoke", Title: "Reveal", Value: invokeValue{Action: "reveal"}},
		},
	}
	if b.messages.CardImageURL != "" {
		card.Images = []connector.CardImage{{URL: b.messages.CardImageURL, Alt: "Secret Santa"}}
	}

	return connector.NewThumbnailCard(card)
}

// revealedCard replaces the allocation card once the reveal button is
// pressed. The hide button swaps it back so the name isn't left on screen.
func (b *Bot) revealedCard(gifteeName string) connector.Attachment {
	return connector.NewThumbnailCard(connector.ThumbnailCard{
		Title:    "Your Secret Santa Allocation",
		Subtitle: "You are giving a gift to:",
		Text:     gifteeName,
		Buttons: []connector.CardAction{
			{Type: "invoke", Title: "Hide", Value: invokeValue{Action: "hide"}},
		},
	})
}

func (b *Bot) notInSantaCard() connector.Attachment {
	return connector.NewThumbnailCard(connector.ThumbnailCard{
		Title: "Your Secret Santa Allocation",
		Text:  "I didn't find you in the secret santa...",
	})
}
