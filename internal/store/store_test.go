package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spauka/secretsanta/pkg/santa"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	require.NoError(t, s.Migrate(context.Background()))

	return s
}

func Test_Open_UnsupportedDSN(t *testing.T) {
	_, err := Open(context.Background(), "oracle:whatever")
	assert.Error(t, err)
}

func Test_Migrate_Idempotent(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func Test_PersonLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.UpsertPerson(ctx, Person{
		Name:       "Sebastian Pauka",
		ChatSource: "teams",
		ChatID:     "29:abc",
		Email:      "spauka@example.com",
		TeamID:     "19:team",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	// Same chat identity updates in place.
	id2, err := s.UpsertPerson(ctx, Person{
		Name:       "Sebastian Pauka",
		ChatSource: "teams",
		ChatID:     "29:abc",
		Email:      "new@example.com",
		TeamID:     "19:team",
	})
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	p, err := s.PersonByName(ctx, "sebastian  PAUKA")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", p.Email)

	p, err = s.PersonByChatID(ctx, "teams", "29:abc")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)

	_, err = s.PersonByName(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	members, err := s.TeamMembers(ctx, "19:team")
	require.NoError(t, err)
	assert.Len(t, members, 1)

	require.NoError(t, s.DeletePerson(ctx, id))
	_, err = s.PersonByID(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_ShouldEmail(t *testing.T) {
	tests := []struct {
		name   string
		person Person
		want   bool
	}{
		{
			name:   "chat_preferred",
			person: Person{ChatID: "29:abc", Email: "a@b.c"},
			want:   false,
		},
		{
			name:   "forced",
			person: Person{ChatID: "29:abc", Email: "a@b.c", ForceEmail: true},
			want:   true,
		},
		{
			name:   "no_chat_id",
			person: Person{Email: "a@b.c"},
			want:   true,
		},
		{
			name:   "unreachable",
			person: Person{},
			want:   false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, test.person.ShouldEmail())
		})
	}
}

func addPerson(t *testing.T, s *Store, name string) int64 {
	t.Helper()

	id, err := s.UpsertPerson(context.Background(), Person{
		Name:       name,
		ChatSource: "teams",
		ChatID:     "29:" + santa.NormalizeName(name),
	})
	require.NoError(t, err)

	return id
}

func Test_ExchangeDrawAndReveal(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ex, err := s.CreateExchange(ctx, "Christmas 2026")
	require.NoError(t, err)

	var ids []int64
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		id := addPerson(t, s, name)
		ids = append(ids, id)
		require.NoError(t, s.AddParticipant(ctx, ex.ID, id))
	}

	participants, err := s.Participants(ctx, ex.ID)
	require.NoError(t, err)
	require.Len(t, participants, 3)
	for _, p := range participants {
		assert.Equal(t, santa.NotDrawn, p.Ordering)
	}

	seed := santa.NewSeed()
	drawn, err := santa.Draw(participants, seed, false)
	require.NoError(t, err)
	require.NoError(t, s.SetExchangeSeed(ctx, ex.ID, seed))
	require.NoError(t, s.SaveOrdering(ctx, ex.ID, drawn))

	ex, err = s.ExchangeByID(ctx, ex.ID)
	require.NoError(t, err)
	require.NotNil(t, ex.Seed)
	assert.Equal(t, seed, *ex.Seed)

	participants, err = s.Participants(ctx, ex.ID)
	require.NoError(t, err)
	ring := santa.NewRing(participants)
	assert.Equal(t, 3, ring.Len())

	// First reveal is stamped, a second reveal keeps the first timestamp.
	now := time.Now().Truncate(time.Second)
	require.NoError(t, s.MarkSeen(ctx, ex.ID, ids[0], now))
	require.NoError(t, s.MarkSeen(ctx, ex.ID, ids[0], now.Add(time.Hour)))

	participants, err = s.Participants(ctx, ex.ID)
	require.NoError(t, err)
	for _, p := range participants {
		if p.PersonID == ids[0] {
			require.NotNil(t, p.Seen)
			assert.True(t, p.Seen.Equal(now))
		}
	}

	// Removing a participant leaves other orderings untouched.
	require.NoError(t, s.RemoveParticipant(ctx, ex.ID, ids[1]))
	remaining, err := s.Participants(ctx, ex.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	for _, p := range remaining {
		assert.NotEqual(t, santa.NotDrawn, p.Ordering)
	}

	err = s.RemoveParticipant(ctx, ex.ID, ids[1])
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_Admins(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ex, err := s.CreateExchange(ctx, "test")
	require.NoError(t, err)

	alice := addPerson(t, s, "Alice")
	bob := addPerson(t, s, "Bob")

	require.NoError(t, s.AddAdmin(ctx, ex.ID, alice))

	ok, err := s.IsAdmin(ctx, ex.ID, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsAdmin(ctx, ex.ID, bob)
	require.NoError(t, err)
	assert.False(t, ok)

	admins, err := s.Admins(ctx, ex.ID)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "Alice", admins[0].Name)
}

func Test_TeamLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	team := Team{
		TeamID:     "19:team",
		Tenant:     "tenant-1",
		ServiceURL: "https://smba.trafficmanager.net/au/",
		Channel:    "19:general",
	}
	require.NoError(t, s.SaveTeam(ctx, team))

	creator := addPerson(t, s, "Creator")
	require.NoError(t, s.SetTeamCreator(ctx, "tenant-1", creator))

	ex, err := s.CreateExchange(ctx, "test")
	require.NoError(t, err)
	require.NoError(t, s.SetTeamExchange(ctx, "tenant-1", ex.ID))

	got, err := s.TeamByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, got.CreatorID)
	assert.Equal(t, creator, *got.CreatorID)
	require.NotNil(t, got.ExchangeID)
	assert.Equal(t, ex.ID, *got.ExchangeID)

	// Saving the same tenant again updates rather than duplicates.
	team.ServiceURL = "https://smba.trafficmanager.net/emea/"
	team.CreatorID = got.CreatorID
	team.ExchangeID = got.ExchangeID
	require.NoError(t, s.SaveTeam(ctx, team))

	teams, err := s.Teams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "https://smba.trafficmanager.net/emea/", teams[0].ServiceURL)

	require.NoError(t, s.DeleteTeam(ctx, "tenant-1"))
	_, err = s.TeamByTenant(ctx, "tenant-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
