package connector

const thumbnailCardContentType = "application/vnd.microsoft.card.thumbnail"

type ThumbnailCard struct {
	Title    string       `json:"title,omitempty"`
	Subtitle string       `json:"subtitle,omitempty"`
	Text     string       `json:"text,omitempty"`
	Images   []CardImage  `json:"images,omitempty"`
	Buttons  []CardAction `json:"buttons,omitempty"`
}

type CardImage struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

type CardAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value any    `json:"value,omitempty"`
}

func NewThumbnailCard(card ThumbnailCard) Attachment {
	return Attachment{
		ContentType: thumbnailCardContentType,
		Content:     card,
	}
}
