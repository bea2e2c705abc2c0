package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spauka/secretsanta/internal/config"
	"github.com/spauka/secretsanta/internal/connector"
	"github.com/spauka/secretsanta/internal/store"
)

// fakeSender records every call so tests can assert on what the bot said.
type fakeSender struct {
	sent          []connector.Activity
	conversations []connector.ConversationParameters
	updates       map[string]connector.Activity
	deleted       []string
	members       []connector.ChannelAccount
}

func newFakeSender() *fakeSender {
	return &fakeSender{updates: map[string]connector.Activity{}}
}

func (f *fakeSender) CreateConversation(
	_ context.Context, _ string, params connector.ConversationParameters,
) (string, error) {
	f.conversations = append(f.conversations, params)

	return fmt.Sprintf("conv-%d", len(f.conversations)), nil
}

func (f *fakeSender) SendToConversation(
	_ context.Context, _, _ string, activity connector.Activity,
) (string, error) {
	f.sent = append(f.sent, activity)

	return fmt.Sprintf("act-%d", len(f.sent)), nil
}

func (f *fakeSender) UpdateActivity(
	_ context.Context, _, _, activityID string, activity connector.Activity,
) error {
	f.updates[activityID] = activity

	return nil
}

func (f *fakeSender) DeleteActivity(_ context.Context, _, _, activityID string) error {
	f.deleted = append(f.deleted, activityID)

	return nil
}

func (f *fakeSender) AllMembers(
	_ context.Context, _, _ string,
) ([]connector.ChannelAccount, error) {
	return f.members, nil
}

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)

	return f.sent[len(f.sent)-1].Text
}

func testBot(t *testing.T) (*Bot, *fakeSender, *store.Store) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	require.NoError(t, st.Migrate(ctx))

	sender := newFakeSender()
	b := New(st, sender, config.Messages{
		PartyDetails: "Party at the office, 18 Dec",
		CardImageURL: "https://example.com/santa.png",
	})

	return b, sender, st
}

// seedTeam sets up a team with three members and returns a Turn for the
// given member.
func seedTeam(t *testing.T, st *store.Store, from string) *Turn {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, st.SaveTeam(ctx, store.Team{
		TeamID:     "19:team",
		Tenant:     "tenant-1",
		ServiceURL: "https://smba.example.com/",
		Channel:    "19:general",
	}))

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := st.UpsertPerson(ctx, store.Person{
			Name:       name,
			ChatSource: ChatSource,
			ChatID:     "29:" + name,
			Email:      name + "@example.com",
			TeamID:     "19:team",
		})
		require.NoError(t, err)
	}

	return turnFor(t, st, from)
}

func turnFor(t *testing.T, st *store.Store, name string) *Turn {
	t.Helper()
	ctx := context.Background()

	team, err := st.TeamByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	person, err := st.PersonByName(ctx, name)
	require.NoError(t, err)

	return &Turn{
		Team:   team,
		Person: person,
		Activity: connector.Activity{
			Type:         connector.ActivityTypeMessage,
			From:         connector.ChannelAccount{ID: person.ChatID, Name: person.Name},
			Recipient:    connector.ChannelAccount{ID: "28:bot"},
			Conversation: connector.ConversationAccount{ID: "a:personal"},
		},
	}
}

func message(t *Turn, text string) *Turn {
	copied := *t
	copied.Activity.Text = text

	return &copied
}

func Test_HandleMessage_Hi(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")

	require.NoError(t, b.HandleMessage(context.Background(), message(turn, "Hello")))
	assert.Equal(t, "Hi Alice.", sender.lastText(t))
}

func Test_HandleMessage_Unknown(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")

	require.NoError(t, b.HandleMessage(context.Background(), message(turn, "make me a sandwich")))
	assert.Equal(t, unknownCommandReply, sender.lastText(t))
}

func Test_HandleMessage_FullMatchOnly(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")

	// "help me please" must not trigger the help command.
	require.NoError(t, b.HandleMessage(context.Background(), message(turn, "help me please")))
	assert.Equal(t, unknownCommandReply, sender.lastText(t))
}

func Test_StartSecretSanta(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")
	ctx := context.Background()

	require.NoError(t, b.HandleMessage(ctx, message(turn, "start a new secret santa: Xmas 2026")))
	assert.Contains(t, sender.lastText(t), "3 participants")

	team, err := st.TeamByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, team.ExchangeID)

	// The starter becomes the first admin.
	alice, err := st.PersonByName(ctx, "alice")
	require.NoError(t, err)
	isAdmin, err := st.IsAdmin(ctx, *team.ExchangeID, alice.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func Test_AdminGate(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")
	ctx := context.Background()

	// Before an exchange exists anyone may run admin commands.
	require.NoError(t, b.HandleMessage(ctx, message(turn, "start a new secret santa: Xmas")))

	// Afterwards only the admin set may.
	bobTurn := turnFor(t, st, "Bob")
	require.NoError(t, b.HandleMessage(ctx, message(bobTurn, "do allocations")))
	assert.Equal(t, "Ho Ho No", sender.lastText(t))

	aliceTurn := turnFor(t, st, "Alice")
	require.NoError(t, b.HandleMessage(ctx, message(aliceTurn, "add admin: bob")))
	assert.Equal(t, "Bob is now an admin.", sender.lastText(t))

	require.NoError(t, b.HandleMessage(ctx, message(bobTurn, "do allocations")))
	assert.Contains(t, sender.lastText(t), "Drew allocations")
}

func Test_AllocationsAndRing(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")
	ctx := context.Background()

	require.NoError(t, b.HandleMessage(ctx, message(turn, "start a new secret santa: Xmas")))
	turn = turnFor(t, st, "Alice")

	require.NoError(t, b.HandleMessage(ctx, message(turn, "do allocations")))
	assert.Contains(t, sender.lastText(t), "Drew allocations for 3 participants")

	// A second draw without redo is refused.
	require.NoError(t, b.HandleMessage(ctx, message(turn, "do allocations")))
	assert.Contains(t, sender.lastText(t), "already been drawn")

	require.NoError(t, b.HandleMessage(ctx, message(turn, "who does bob have?")))
	hasReply := sender.lastText(t)
	assert.Contains(t, hasReply, "Bob is giving a gift to")

	require.NoError(t, b.HandleMessage(ctx, message(turn, "who has bob?")))
	assert.Contains(t, sender.lastText(t), "Bob is getting a gift from")

	// Redraw with the same seed is reproducible; a forced redo stores a
	// seed and keeps the ring a single cycle over all three.
	require.NoError(t, b.HandleMessage(ctx, message(turn, "do allocations redo")))
	team, err := st.TeamByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	ex, err := st.ExchangeByID(ctx, *team.ExchangeID)
	require.NoError(t, err)
	assert.NotNil(t, ex.Seed)
}

func Test_PrintEveryone(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")
	ctx := context.Background()

	require.NoError(t, b.HandleMessage(ctx, message(turn, "start a new secret santa: Xmas")))
	turn = turnFor(t, st, "Alice")

	sender.sent = nil
	require.NoError(t, b.HandleMessage(ctx, message(turn, "print everyone")))
	// Intro plus one table chunk.
	require.Len(t, sender.sent, 2)
	table := sender.sent[1].Text
	assert.Contains(t, table, "```")
	assert.Contains(t, table, "Alice")
	assert.Contains(t, table, "bob@example.com")
}

func Test_RevealAllocation(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")
	ctx := context.Background()

	require.NoError(t, b.HandleMessage(ctx, message(turn, "start a new secret santa: Xmas")))
	turn = turnFor(t, st, "Alice")
	require.NoError(t, b.HandleMessage(ctx, message(turn, "do allocations")))

	invoke := *turn
	invoke.Activity.Type = connector.ActivityTypeInvoke
	invoke.Activity.ReplyToID = "card-1"
	invoke.Activity.Value = json.RawMessage(`{"action":"reveal"}`)

	require.NoError(t, b.HandleInvoke(ctx, &invoke))

	updated, ok := sender.updates["card-1"]
	require.True(t, ok)
	require.Len(t, updated.Attachments, 1)
	card, ok := updated.Attachments[0].Content.(connector.ThumbnailCard)
	require.True(t, ok)
	assert.Equal(t, "You are giving a gift to:", card.Subtitle)
	assert.NotEmpty(t, card.Text)

	// The reveal timestamp sticks.
	participants, err := st.Participants(ctx, mustExchangeID(t, st))
	require.NoError(t, err)
	var seen int
	for _, p := range participants {
		if p.Seen != nil {
			seen++
		}
	}
	assert.Equal(t, 1, seen)

	// Hide deletes the card.
	invoke.Activity.Value = json.RawMessage(`{"action":"hide"}`)
	require.NoError(t, b.HandleInvoke(ctx, &invoke))
	assert.Equal(t, []string{"card-1"}, sender.deleted)
}

func mustExchangeID(t *testing.T, st *store.Store) int64 {
	t.Helper()
	team, err := st.TeamByTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, team.ExchangeID)

	return *team.ExchangeID
}

func Test_SendAllAllocations(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")
	ctx := context.Background()

	require.NoError(t, b.HandleMessage(ctx, message(turn, "start a new secret santa: Xmas")))
	turn = turnFor(t, st, "Alice")
	require.NoError(t, b.HandleMessage(ctx, message(turn, "do allocations")))

	sender.sent = nil
	sender.conversations = nil
	require.NoError(t, b.HandleMessage(ctx, message(turn, "send all allocations")))

	assert.Contains(t, sender.lastText(t), "Sent all allocations! (3 of 3)")
	// Alice gets hers in the current chat, Bob and Carol through fresh DMs.
	assert.Len(t, sender.conversations, 2)

	var cards int
	for _, activity := range sender.sent {
		if len(activity.Attachments) > 0 {
			cards++
		}
	}
	assert.Equal(t, 3, cards)
}

func Test_AddPersonByHand(t *testing.T) {
	b, sender, st := testBot(t)
	turn := seedTeam(t, st, "Alice")
	ctx := context.Background()

	require.NoError(t, b.HandleMessage(ctx,
		message(turn, "add person: Dave <dave@example.com>")))
	assert.Equal(t, "Added Dave.", sender.lastText(t))

	dave, err := st.PersonByName(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com", dave.Email)
	assert.True(t, dave.ShouldEmail())
}

func Test_InstallationAddAndRemove(t *testing.T) {
	b, sender, st := testBot(t)
	ctx := context.Background()

	sender.members = []connector.ChannelAccount{
		{ID: "29:Alice", Name: "Alice", Email: "alice@example.com"},
		{ID: "29:Bob", Name: "Bob", Email: "bob@example.com"},
		{ID: "28:bot", Name: "Secret Santa", Role: "bot"},
	}

	activity := connector.Activity{
		Type:         connector.ActivityTypeInstallationUpdate,
		Action:       "add",
		ServiceURL:   "https://smba.example.com/",
		From:         connector.ChannelAccount{ID: "29:Alice"},
		Conversation: connector.ConversationAccount{ID: "19:team"},
		ChannelData:  json.RawMessage(`{"tenant":{"id":"tenant-1"},"team":{"id":"19:team"},"channel":{"id":"19:general"}}`),
	}
	require.NoError(t, b.HandleInstallationAdd(ctx, activity))

	team, err := st.TeamByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "19:team", team.TeamID)
	require.NotNil(t, team.CreatorID)

	members, err := st.TeamMembers(ctx, "19:team")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	// Installing twice is an error.
	require.Error(t, b.HandleInstallationAdd(ctx, activity))

	require.NoError(t, b.HandleInstallationRemove(ctx, activity))
	_, err = st.TeamByTenant(ctx, "tenant-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Removing an unknown team is not an error.
	require.NoError(t, b.HandleInstallationRemove(ctx, activity))
}
