package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/spauka/secretsanta/internal/connector"
	"github.com/spauka/secretsanta/internal/store"
	"github.com/spauka/secretsanta/pkg/santa"
)

// chatSourceManual tags people added by name rather than discovered through
// the chat platform. They can only be reached by email.
const chatSourceManual = "manual"

func (b *Bot) sayHi(ctx context.Context, t *Turn, _ []string) error {
	return b.ReplyText(ctx, t, fmt.Sprintf("Hi %s.", t.Person.Name))
}

func (b *Bot) startSecretSanta(ctx context.Context, t *Turn, args []string) error {
	if t.Team.ExchangeID != nil {
		return b.ReplyText(ctx, t,
			"A secret santa is already running. Remove it before starting a new one.")
	}

	name := strings.TrimSpace(args[0])
	ex, err := b.store.CreateExchange(ctx, name)
	if err != nil {
		return err
	}

	members, err := b.store.TeamMembers(ctx, t.Team.TeamID)
	if err != nil {
		return err
	}
	for _, member := range members {
		err = b.store.AddParticipant(ctx, ex.ID, member.ID)
		if err != nil {
			return err
		}
	}

	err = b.store.AddAdmin(ctx, ex.ID, t.Person.ID)
	if err != nil {
		return err
	}

	err = b.store.SetTeamExchange(ctx, t.Team.Tenant, ex.ID)
	if err != nil {
		return err
	}
	t.Team.ExchangeID = &ex.ID

	return b.ReplyText(ctx, t, fmt.Sprintf(
		"Started secret santa %q with %d participants. Type `do allocations` once everyone is in!",
		name, len(members)))
}

func (b *Bot) addPerson(ctx context.Context, t *Turn, args []string) error {
	name := strings.TrimSpace(args[0])
	email := ""
	if len(args) > 1 {
		email = strings.TrimSpace(args[1])
	}

	person, err := b.store.PersonByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		// People added by hand have no chat identity, so their allocation
		// goes out by email.
		id, insertErr := b.store.UpsertPerson(ctx, store.Person{
			Name:       name,
			ChatSource: chatSourceManual,
			ChatID:     santa.NormalizeName(name),
			Email:      email,
			ForceEmail: email != "",
			TeamID:     t.Team.TeamID,
		})
		if insertErr != nil {
			return insertErr
		}
		person, err = b.store.PersonByID(ctx, id)
	}
	if err != nil {
		return err
	}

	if t.Team.ExchangeID != nil {
		err = b.store.AddParticipant(ctx, *t.Team.ExchangeID, person.ID)
		if err != nil {
			return errors.WithMessagef(err, "failed to add %s to the secret santa", person.Name)
		}
	}

	return b.ReplyText(ctx, t, fmt.Sprintf("Added %s.", person.Name))
}

func (b *Bot) addAdmin(ctx context.Context, t *Turn, args []string) error {
	if t.Team.ExchangeID == nil {
		return b.ReplyText(ctx, t, errNoExchange.Error())
	}

	person, err := b.store.PersonByName(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return b.ReplyText(ctx, t, fmt.Sprintf("Couldn't find %s", strings.TrimSpace(args[0])))
	}
	if err != nil {
		return err
	}

	err = b.store.AddAdmin(ctx, *t.Team.ExchangeID, person.ID)
	if err != nil {
		return err
	}

	return b.ReplyText(ctx, t, fmt.Sprintf("%s is now an admin.", person.Name))
}

func (b *Bot) removePerson(ctx context.Context, t *Turn, args []string) error {
	if t.Team.ExchangeID == nil {
		return b.ReplyText(ctx, t, errNoExchange.Error())
	}

	person, err := b.store.PersonByName(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return b.ReplyText(ctx, t, fmt.Sprintf("Couldn't find %s", strings.TrimSpace(args[0])))
	}
	if err != nil {
		return err
	}

	err = b.store.RemoveParticipant(ctx, *t.Team.ExchangeID, person.ID)
	if errors.Is(err, store.ErrNotFound) {
		return b.ReplyText(ctx, t,
			fmt.Sprintf("%s is not participating in the Secret Santa", person.Name))
	}
	if err != nil {
		return err
	}

	// The ring closes over the gap: the removed person's gifter now gives
	// to the removed person's giftee, no redraw needed.
	return b.ReplyText(ctx, t, fmt.Sprintf("Removed %s from the secret santa.", person.Name))
}

func (b *Bot) printEveryone(ctx context.Context, t *Turn, args []string) error {
	withAllocations := len(args) > 0 && args[0] != ""

	_, participants, err := b.exchange(ctx, t)
	if errors.Is(err, errNoExchange) {
		return b.ReplyText(ctx, t, errNoExchange.Error())
	}
	if err != nil {
		return err
	}

	tables, err := b.rosterTables(ctx, participants, withAllocations)
	if err != nil {
		return err
	}

	err = b.ReplyText(ctx, t, "People are: ")
	if err != nil {
		return err
	}
	for _, table := range tables {
		err = b.ReplyText(ctx, t, "```\n"+table+"\n```")
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *Bot) doAllocations(ctx context.Context, t *Turn, args []string) error {
	force := len(args) > 0 && args[0] != ""

	ex, participants, err := b.exchange(ctx, t)
	if errors.Is(err, errNoExchange) {
		return b.ReplyText(ctx, t, errNoExchange.Error())
	}
	if err != nil {
		return err
	}

	seed := santa.NewSeed()
	if ex.Seed != nil && !force {
		seed = *ex.Seed
	}

	drawn, err := santa.Draw(participants, seed, force)
	if errors.Is(err, santa.ErrAlreadyDrawn) {
		return b.ReplyText(ctx, t,
			"Allocations have already been drawn. Type `do allocations redo` to redraw.")
	}
	if err != nil {
		return err
	}

	err = b.store.SetExchangeSeed(ctx, ex.ID, seed)
	if err != nil {
		return err
	}
	err = b.store.SaveOrdering(ctx, ex.ID, drawn)
	if err != nil {
		return err
	}

	return b.ReplyText(ctx, t, fmt.Sprintf(
		"Drew allocations for %d participants. Type `send all allocations` to send them out.",
		len(drawn)))
}

func (b *Bot) printMe(ctx context.Context, t *Turn, _ []string) error {
	_, participants, err := b.exchange(ctx, t)
	if errors.Is(err, errNoExchange) {
		return b.ReplyText(ctx, t, errNoExchange.Error())
	}
	if err != nil {
		return err
	}

	inSanta := lo.SomeBy(participants, func(p santa.Participant) bool {
		return p.PersonID == t.Person.ID
	})
	if !inSanta {
		return b.ReplyText(ctx, t, "I didn't find you in the secret santa...")
	}

	return b.Reply(ctx, t, connector.NewCardMessage(b.allocationCard()))
}

func (b *Bot) whoHas(ctx context.Context, t *Turn, args []string) error {
	person, ring, reply, err := b.lookupInRing(ctx, t, args[0])
	if reply != "" || err != nil {
		if reply != "" {
			return b.ReplyText(ctx, t, reply)
		}

		return err
	}

	gifter, err := ring.ReceiveFrom(person.ID)
	if err != nil {
		return err
	}

	return b.ReplyText(ctx, t,
		fmt.Sprintf("%s is getting a gift from %s", person.Name, gifter.Name))
}

func (b *Bot) hasWho(ctx context.Context, t *Turn, args []string) error {
	person, ring, reply, err := b.lookupInRing(ctx, t, args[0])
	if reply != "" || err != nil {
		if reply != "" {
			return b.ReplyText(ctx, t, reply)
		}

		return err
	}

	giftee, err := ring.GiveTo(person.ID)
	if err != nil {
		return err
	}

	return b.ReplyText(ctx, t,
		fmt.Sprintf("%s is giving a gift to %s", person.Name, giftee.Name))
}

// lookupInRing resolves a name to a person and the drawn ring. A non-empty
// reply means the caller should just send it back.
func (b *Bot) lookupInRing(
	ctx context.Context, t *Turn, name string,
) (store.Person, *santa.Ring, string, error) {
	person, err := b.store.PersonByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return store.Person{}, nil, fmt.Sprintf("Couldn't find %s", strings.TrimSpace(name)), nil
	}
	if err != nil {
		return store.Person{}, nil, "", err
	}

	_, participants, err := b.exchange(ctx, t)
	if errors.Is(err, errNoExchange) {
		return store.Person{}, nil, errNoExchange.Error(), nil
	}
	if err != nil {
		return store.Person{}, nil, "", err
	}

	ring := santa.NewRing(participants)
	if _, err := ring.GiveTo(person.ID); errors.Is(err, santa.ErrNotInRing) {
		return store.Person{}, nil,
			fmt.Sprintf("%s is not participating in the Secret Santa", person.Name), nil
	}

	return person, ring, "", nil
}

func (b *Bot) sendAllAllocations(ctx context.Context, t *Turn, _ []string) error {
	_, participants, err := b.exchange(ctx, t)
	if errors.Is(err, errNoExchange) {
		return b.ReplyText(ctx, t, errNoExchange.Error())
	}
	if err != nil {
		return err
	}

	ring := santa.NewRing(participants)
	sent := 0
	for _, member := range ring.Members() {
		person, err := b.store.PersonByID(ctx, member.PersonID)
		if err != nil {
			return err
		}

		err = b.sendAllocationCard(ctx, t, person)
		if err != nil {
			log.Println(errors.WithMessagef(err, "failed to send allocation to %s", person.Name))

			continue
		}
		sent++
	}

	return b.ReplyText(ctx, t, fmt.Sprintf("Sent all allocations! (%d of %d)", sent, ring.Len()))
}

func (b *Bot) sendAllocationTo(ctx context.Context, t *Turn, args []string) error {
	person, _, reply, err := b.lookupInRing(ctx, t, args[0])
	if reply != "" || err != nil {
		if reply != "" {
			return b.ReplyText(ctx, t, reply)
		}

		return err
	}

	err = b.sendAllocationCard(ctx, t, person)
	if err != nil {
		return err
	}

	return b.ReplyText(ctx, t, fmt.Sprintf("Sent allocation to %s", person.Name))
}

// sendAllocationCard delivers the reveal card, preferring the current
// conversation when the target is the person we are already talking to.
func (b *Bot) sendAllocationCard(ctx context.Context, t *Turn, person store.Person) error {
	if person.ShouldEmail() {
		return errors.Errorf("%s can only be reached by email", person.Name)
	}

	message := connector.NewCardMessage(b.allocationCard())

	if person.ChatID == t.Activity.From.ID {
		return b.Reply(ctx, t, message)
	}

	convID, err := b.OpenDM(ctx, t, person)
	if err != nil {
		return err
	}
	_, err = b.client.SendToConversation(ctx, t.Team.ServiceURL, convID, message)

	return err
}

func (b *Bot) revealAllocation(ctx context.Context, t *Turn) error {
	ex, participants, err := b.exchange(ctx, t)
	if err != nil {
		return err
	}

	ring := santa.NewRing(participants)
	giftee, err := ring.GiveTo(t.Person.ID)

	var card connector.Attachment
	if errors.Is(err, santa.ErrNotInRing) {
		card = b.notInSantaCard()
	} else if err != nil {
		return err
	} else {
		err = b.store.MarkSeen(ctx, ex.ID, t.Person.ID, time.Now())
		if err != nil {
			return err
		}
		log.Printf("%s: revealed allocation for %s\n", time.Now().Format(time.RFC3339), t.Person.Name)
		card = b.revealedCard(giftee.Name)
	}

	update := connector.NewCardMessage(card)
	update.ID = t.Activity.ReplyToID

	return b.client.UpdateActivity(ctx, t.Team.ServiceURL,
		t.Activity.Conversation.ID, t.Activity.ReplyToID, update)
}

func (b *Bot) sendAdminHelp(ctx context.Context, t *Turn, args []string) error {
	person, err := b.store.PersonByName(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return b.ReplyText(ctx, t, fmt.Sprintf("Couldn't find the user %s...", strings.TrimSpace(args[0])))
	}
	if err != nil {
		return err
	}

	if t.Team.ExchangeID != nil {
		isAdmin, err := b.store.IsAdmin(ctx, *t.Team.ExchangeID, person.ID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return b.ReplyText(ctx, t,
				fmt.Sprintf("User %s is not an admin... I won't send them the help!", person.Name))
		}
	}

	convID, err := b.OpenDM(ctx, t, person)
	if err != nil {
		return err
	}
	_, err = b.client.SendToConversation(ctx, t.Team.ServiceURL, convID,
		connector.NewTextMessage(fmt.Sprintf(adminHelpMessage, person.Name)))
	if err != nil {
		return err
	}

	return b.ReplyText(ctx, t, fmt.Sprintf("Sent admin welcome message to %s", person.Name))
}

func (b *Bot) postWelcomeMessage(ctx context.Context, t *Turn, _ []string) error {
	if t.Team.Channel == "" {
		return b.ReplyText(ctx, t, "Couldn't find channel")
	}

	welcome := connector.NewTextMessage(welcomeMessage)
	channelData, err := json.Marshal(map[string]any{
		"channel": map[string]string{"id": t.Team.Channel},
	})
	if err != nil {
		return err
	}

	_, err = b.client.CreateConversation(ctx, t.Team.ServiceURL, connector.ConversationParameters{
		IsGroup:     true,
		ChannelData: channelData,
		Activity:    &welcome,
	})
	if err != nil {
		return errors.WithMessage(err, "failed to post welcome message")
	}

	return b.ReplyText(ctx, t, "Welcome message sent!")
}

func (b *Bot) help(ctx context.Context, t *Turn, _ []string) error {
	isAdmin, err := b.isAdmin(ctx, t)
	if err != nil {
		return err
	}

	if isAdmin {
		return b.ReplyText(ctx, t, adminHelpText)
	}

	return b.ReplyText(ctx, t, helpText)
}
