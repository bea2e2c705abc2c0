// Package connector is a minimal Bot Framework REST client: enough of the
// connector surface (token, conversations, activities) for the bot to talk
// to Teams without the full SDK.
package connector

import "encoding/json"

const (
	ActivityTypeMessage            = "message"
	ActivityTypeInvoke             = "invoke"
	ActivityTypeInstallationUpdate = "installationUpdate"
)

const ChannelMSTeams = "msteams"

const ConversationPersonal = "personal"

type ChannelAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	UserRole string `json:"userRole,omitempty"`
}

type ConversationAccount struct {
	ID               string `json:"id"`
	ConversationType string `json:"conversationType,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
}

type Attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content"`
}

type Activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	ServiceURL   string              `json:"serviceUrl,omitempty"`
	ChannelID    string              `json:"channelId,omitempty"`
	From         ChannelAccount      `json:"from,omitempty"`
	Recipient    ChannelAccount      `json:"recipient,omitempty"`
	Conversation ConversationAccount `json:"conversation,omitempty"`
	Text         string              `json:"text,omitempty"`
	TextFormat   string              `json:"textFormat,omitempty"`
	ReplyToID    string              `json:"replyToId,omitempty"`
	Action       string              `json:"action,omitempty"`
	Value        json.RawMessage     `json:"value,omitempty"`
	ChannelData  json.RawMessage     `json:"channelData,omitempty"`
	Attachments  []Attachment        `json:"attachments,omitempty"`
}

// teamsChannelData is the msteams part of Activity.ChannelData.
type teamsChannelData struct {
	Tenant struct {
		ID string `json:"id"`
	} `json:"tenant"`
	Team struct {
		ID string `json:"id"`
	} `json:"team"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

// TenantID extracts the tenant from the activity's channel data.
func (a Activity) TenantID() string {
	var data teamsChannelData
	if err := json.Unmarshal(a.ChannelData, &data); err != nil {
		return ""
	}

	return data.Tenant.ID
}

func (a Activity) TeamID() string {
	var data teamsChannelData
	if err := json.Unmarshal(a.ChannelData, &data); err != nil {
		return ""
	}

	return data.Team.ID
}

func (a Activity) ChannelDataChannelID() string {
	var data teamsChannelData
	if err := json.Unmarshal(a.ChannelData, &data); err != nil {
		return ""
	}

	return data.Channel.ID
}

// InvokeAction returns the card action carried in an invoke activity's value.
func (a Activity) InvokeAction() string {
	var value struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(a.Value, &value); err != nil {
		return ""
	}

	return value.Action
}

// NewTextMessage builds a plain reply activity.
func NewTextMessage(text string) Activity {
	return Activity{
		Type:       ActivityTypeMessage,
		Text:       text,
		TextFormat: "xml",
	}
}

// NewCardMessage builds a reply carrying a single card attachment.
func NewCardMessage(card Attachment) Activity {
	return Activity{
		Type:        ActivityTypeMessage,
		Attachments: []Attachment{card},
	}
}

type ConversationParameters struct {
	IsGroup     bool            `json:"isGroup"`
	Bot         *ChannelAccount `json:"bot,omitempty"`
	Members     []ChannelAccount `json:"members,omitempty"`
	TenantID    string          `json:"tenantId,omitempty"`
	ChannelData json.RawMessage `json:"channelData,omitempty"`
	Activity    *Activity       `json:"activity,omitempty"`
}

type MembersPage struct {
	ContinuationToken string           `json:"continuationToken"`
	Members           []ChannelAccount `json:"members"`
}
