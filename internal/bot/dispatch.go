package bot

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/spauka/secretsanta/internal/connector"
	"github.com/spauka/secretsanta/internal/store"
)

type handlerFunc func(ctx context.Context, t *Turn, args []string) error

type command struct {
	re      *regexp.Regexp
	admin   bool
	handler handlerFunc
}

// commandTable mirrors the original message list: patterns are matched
// full-string and case-insensitive, first match wins.
func (b *Bot) commandTable() []command {
	return []command{
		{re: regexp.MustCompile(`(?i)(?:hi|hello) ?(.*)`), handler: b.sayHi},
		{re: regexp.MustCompile(`(?i)start a new secret santa: ?(.+)`), admin: true, handler: b.startSecretSanta},
		{re: regexp.MustCompile(`(?i)add person: ?([^<>]+) <(?:mailto:)?([^|>]+)(?:\|[^>]+)?>`), admin: true, handler: b.addPerson},
		{re: regexp.MustCompile(`(?i)add person: ?([^<>]+)`), admin: true, handler: b.addPerson},
		{re: regexp.MustCompile(`(?i)add admin: ?(.+)`), admin: true, handler: b.addAdmin},
		{re: regexp.MustCompile(`(?i)remove person: ?(.+)`), admin: true, handler: b.removePerson},
		{re: regexp.MustCompile(`(?i)print everyone ?(with allocations)?`), admin: true, handler: b.printEveryone},
		{re: regexp.MustCompile(`(?i)do allocations ?(redo)?`), admin: true, handler: b.doAllocations},
		{re: regexp.MustCompile(`(?i)who do i have`), handler: b.printMe},
		{re: regexp.MustCompile(`(?i)who has ([^?]+)\??`), admin: true, handler: b.whoHas},
		{re: regexp.MustCompile(`(?i)who does (.+) have\??`), admin: true, handler: b.hasWho},
		{re: regexp.MustCompile(`(?i)send all allocations`), admin: true, handler: b.sendAllAllocations},
		{re: regexp.MustCompile(`(?i)send allocation to (.+)`), admin: true, handler: b.sendAllocationTo},
		{re: regexp.MustCompile(`(?i)send admin help to (.+)`), admin: true, handler: b.sendAdminHelp},
		{re: regexp.MustCompile(`(?i)post welcome message`), admin: true, handler: b.postWelcomeMessage},
		{re: regexp.MustCompile(`(?i)help`), handler: b.help},
	}
}

const unknownCommandReply = "I'm not sure how to respond to that. Type `help` to see what I can do"

// HandleMessage dispatches one personal message through the command table.
func (b *Bot) HandleMessage(ctx context.Context, t *Turn) error {
	text := t.Activity.Text

	for _, cmd := range b.commands {
		match := cmd.re.FindStringSubmatch(text)
		if match == nil || len(match[0]) != len(text) {
			continue
		}

		if cmd.admin {
			ok, err := b.isAdmin(ctx, t)
			if err != nil {
				return err
			}
			if !ok {
				return b.ReplyText(ctx, t, "Ho Ho No")
			}
		}

		log.Printf("%s: handling message from %s\n", time.Now().Format(time.RFC3339), t.Person.Name)

		return cmd.handler(ctx, t, match[1:])
	}

	log.Printf("unknown message: %s\n", text)

	return b.ReplyText(ctx, t, unknownCommandReply)
}

// HandleInvoke reacts to card button presses: reveal swaps the card for the
// allocation, hide deletes it, anything unrecognized is removed too.
func (b *Bot) HandleInvoke(ctx context.Context, t *Turn) error {
	switch t.Activity.InvokeAction() {
	case "reveal":
		return b.revealAllocation(ctx, t)
	case "hide":
		fallthrough
	default:
		return b.client.DeleteActivity(ctx, t.Team.ServiceURL,
			t.Activity.Conversation.ID, t.Activity.ReplyToID)
	}
}

// HandleInstallationAdd sets up a new team: create the record, pull the
// member list, and remember who installed the bot.
func (b *Bot) HandleInstallationAdd(ctx context.Context, activity connector.Activity) error {
	tenant := activity.TenantID()

	_, err := b.store.TeamByTenant(ctx, tenant)
	if err == nil {
		return errors.Errorf("secret santa bot is already installed in tenant %s", tenant)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// The bot's own account is kept so the command line tools can open
	// conversations later without an incoming activity.
	reference, err := json.Marshal(activity.Recipient)
	if err != nil {
		return errors.WithMessage(err, "failed to encode bot account")
	}

	team := store.Team{
		TeamID:                activity.TeamID(),
		Tenant:                tenant,
		ServiceURL:            activity.ServiceURL,
		Channel:               activity.ChannelDataChannelID(),
		ConversationReference: string(reference),
	}
	err = b.store.SaveTeam(ctx, team)
	if err != nil {
		return err
	}

	members, err := b.client.AllMembers(ctx, activity.ServiceURL, activity.Conversation.ID)
	if err != nil {
		return errors.WithMessage(err, "failed to fetch team members")
	}

	for _, member := range members {
		if member.Role == "bot" || member.UserRole == "bot" {
			continue
		}
		log.Printf("adding person %s\n", member.Name)
		_, err = b.store.UpsertPerson(ctx, store.Person{
			Name:       member.Name,
			ChatSource: ChatSource,
			ChatID:     member.ID,
			Email:      member.Email,
			TeamID:     team.TeamID,
		})
		if err != nil {
			return errors.WithMessagef(err, "failed to add person %s", member.Name)
		}
	}

	creator, err := b.store.PersonByChatID(ctx, ChatSource, activity.From.ID)
	if err != nil {
		return errors.WithMessage(err, "failed to find installing user")
	}
	log.Printf("creator set to %s\n", creator.Name)

	return b.store.SetTeamCreator(ctx, tenant, creator.ID)
}

// HandleInstallationRemove drops the team when the bot is uninstalled.
func (b *Bot) HandleInstallationRemove(ctx context.Context, activity connector.Activity) error {
	err := b.store.DeleteTeam(ctx, activity.TenantID())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}

	return err
}
