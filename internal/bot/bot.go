// Package bot implements the Secret Santa chat bot: command dispatch over
// personal messages, admin gating, allocation cards and the reveal flow.
package bot

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/spauka/secretsanta/internal/config"
	"github.com/spauka/secretsanta/internal/connector"
	"github.com/spauka/secretsanta/internal/store"
	"github.com/spauka/secretsanta/pkg/santa"
)

// ChatSource tags people coming in through the Teams connector.
const ChatSource = "teams"

// Sender is the part of the connector client the bot uses. Tests substitute
// a recorder.
type Sender interface {
	CreateConversation(ctx context.Context, serviceURL string, params connector.ConversationParameters) (string, error)
	SendToConversation(ctx context.Context, serviceURL, conversationID string, activity connector.Activity) (string, error)
	UpdateActivity(ctx context.Context, serviceURL, conversationID, activityID string, activity connector.Activity) error
	DeleteActivity(ctx context.Context, serviceURL, conversationID, activityID string) error
	AllMembers(ctx context.Context, serviceURL, conversationID string) ([]connector.ChannelAccount, error)
}

type Bot struct {
	store    *store.Store
	client   Sender
	messages config.Messages
	commands []command

	mu      sync.Mutex
	openDMs map[int64]string
}

func New(st *store.Store, client Sender, messages config.Messages) *Bot {
	b := &Bot{
		store:    st,
		client:   client,
		messages: messages,
		openDMs:  map[int64]string{},
	}
	b.commands = b.commandTable()

	return b
}

// Turn is one incoming activity bound to its team and the person acting.
type Turn struct {
	Team     store.Team
	Person   store.Person
	Activity connector.Activity
}

// Reply posts a message back into the conversation the activity came from.
func (b *Bot) Reply(ctx context.Context, t *Turn, activity connector.Activity) error {
	_, err := b.client.SendToConversation(ctx, t.Team.ServiceURL, t.Activity.Conversation.ID, activity)

	return err
}

func (b *Bot) ReplyText(ctx context.Context, t *Turn, text string) error {
	return b.Reply(ctx, t, connector.NewTextMessage(text))
}

// OpenDM returns a conversation id for a direct chat with the person,
// caching open conversations per person.
func (b *Bot) OpenDM(ctx context.Context, t *Turn, person store.Person) (string, error) {
	return b.openDM(ctx, t.Team, &t.Activity.Recipient, person)
}

// OpenDMWith opens a direct chat outside an incoming turn, using the bot
// account remembered from installation.
func (b *Bot) OpenDMWith(ctx context.Context, team store.Team, person store.Person) (string, error) {
	return b.openDM(ctx, team, botAccount(team), person)
}

func (b *Bot) openDM(
	ctx context.Context, team store.Team, account *connector.ChannelAccount, person store.Person,
) (string, error) {
	b.mu.Lock()
	if id, ok := b.openDMs[person.ID]; ok {
		b.mu.Unlock()

		return id, nil
	}
	b.mu.Unlock()

	convID, err := b.client.CreateConversation(ctx, team.ServiceURL, connector.ConversationParameters{
		IsGroup:  false,
		Bot:      account,
		Members:  []connector.ChannelAccount{{ID: person.ChatID}},
		TenantID: team.Tenant,
	})
	if err != nil {
		return "", errors.WithMessagef(err, "failed to open dm with %s", person.Name)
	}

	b.mu.Lock()
	b.openDMs[person.ID] = convID
	b.mu.Unlock()

	return convID, nil
}

// SendAllocationDM delivers the allocation card to one person without an
// incoming activity, used by the command line sender.
func (b *Bot) SendAllocationDM(ctx context.Context, team store.Team, person store.Person) error {
	if person.ShouldEmail() {
		return errors.Errorf("%s can only be reached by email", person.Name)
	}

	convID, err := b.OpenDMWith(ctx, team, person)
	if err != nil {
		return err
	}
	_, err = b.client.SendToConversation(ctx, team.ServiceURL, convID,
		connector.NewCardMessage(b.allocationCard()))

	return err
}

// botAccount recovers the bot's own channel account from the reference
// stored at installation time. Nil when the team predates that record.
func botAccount(team store.Team) *connector.ChannelAccount {
	if team.ConversationReference == "" {
		return nil
	}

	var account connector.ChannelAccount
	err := json.Unmarshal([]byte(team.ConversationReference), &account)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to decode stored bot account"))

		return nil
	}

	return &account
}

// MessageCreator sends a DM to whoever installed the bot. Used for error
// reports, so failures only get logged.
func (b *Bot) MessageCreator(ctx context.Context, t *Turn, text string) {
	if t.Team.CreatorID == nil {
		log.Println("no creator recorded, dropping message:", text)

		return
	}

	creator, err := b.store.PersonByID(ctx, *t.Team.CreatorID)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to look up creator"))

		return
	}

	convID, err := b.OpenDM(ctx, t, creator)
	if err != nil {
		log.Println(err)

		return
	}

	_, err = b.client.SendToConversation(ctx, t.Team.ServiceURL, convID, connector.NewTextMessage(text))
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to message creator"))
	}
}

// isAdmin implements the bootstrap rule from the original bot: while no
// exchange is running anyone may administer, afterwards only the admin set.
func (b *Bot) isAdmin(ctx context.Context, t *Turn) (bool, error) {
	if t.Team.ExchangeID == nil {
		return true, nil
	}

	return b.store.IsAdmin(ctx, *t.Team.ExchangeID, t.Person.ID)
}

// exchange loads the team's running exchange and its participants.
func (b *Bot) exchange(ctx context.Context, t *Turn) (store.Exchange, []santa.Participant, error) {
	if t.Team.ExchangeID == nil {
		return store.Exchange{}, nil, errNoExchange
	}

	ex, err := b.store.ExchangeByID(ctx, *t.Team.ExchangeID)
	if err != nil {
		return store.Exchange{}, nil, err
	}

	participants, err := b.store.Participants(ctx, ex.ID)
	if err != nil {
		return store.Exchange{}, nil, err
	}

	return ex, participants, nil
}

var errNoExchange = errors.New("no secret santa is running, start one first")
