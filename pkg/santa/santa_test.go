package santa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases",
			in:   "Alexis George",
			want: "alexisgeorge",
		},
		{
			name: "strips_inner_whitespace",
			in:   "Sebastian\t Pauka",
			want: "sebastianpauka",
		},
		{
			name: "strips_surrounding_whitespace",
			in:   "  Mary Jane  ",
			want: "maryjane",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, NormalizeName(test.in))
		})
	}
}

func participants(names ...string) []Participant {
	out := make([]Participant, 0, len(names))
	for i, name := range names {
		out = append(out, Participant{
			PersonID: int64(i + 1),
			Name:     name,
			Ordering: NotDrawn,
		})
	}

	return out
}

func Test_Draw_Deterministic(t *testing.T) {
	people := participants("Alice", "Bob", "Carol", "Dave")

	first, err := Draw(people, 42, false)
	require.NoError(t, err)
	second, err := Draw(people, 42, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func Test_Draw_AssignsSpacedOrderings(t *testing.T) {
	people := participants("Alice", "Bob", "Carol")

	drawn, err := Draw(people, 7, false)
	require.NoError(t, err)
	require.Len(t, drawn, 3)

	orderings := map[int]bool{}
	for _, p := range drawn {
		orderings[p.Ordering] = true
	}
	assert.Equal(t, map[int]bool{0: true, 10: true, 20: true}, orderings)
}

func Test_Draw_RefusesRedraw(t *testing.T) {
	people := participants("Alice", "Bob")
	people[0].Ordering = 0

	_, err := Draw(people, 1, false)
	assert.ErrorIs(t, err, ErrAlreadyDrawn)

	_, err = Draw(people, 1, true)
	assert.NoError(t, err)
}

func Test_Draw_ForcedRedrawClearsSeen(t *testing.T) {
	seen := time.Now()
	people := participants("Alice", "Bob")
	people[0].Ordering = 0
	people[0].Seen = &seen
	people[1].Ordering = 10

	drawn, err := Draw(people, 1, true)
	require.NoError(t, err)
	for _, p := range drawn {
		assert.Nil(t, p.Seen)
	}
}

func Test_Draw_RejectsDuplicateNames(t *testing.T) {
	people := participants("Alice", "a l i c e")

	_, err := Draw(people, 1, false)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func Test_Ring_Lookups(t *testing.T) {
	ring := NewRing([]Participant{
		{PersonID: 1, Name: "Alice", Ordering: 0},
		{PersonID: 2, Name: "Bob", Ordering: 10},
		{PersonID: 3, Name: "Carol", Ordering: 20},
		{PersonID: 4, Name: "Undrawn", Ordering: NotDrawn},
	})

	require.Equal(t, 3, ring.Len())

	giftee, err := ring.GiveTo(3)
	require.NoError(t, err)
	assert.Equal(t, "Alice", giftee.Name)

	gifter, err := ring.ReceiveFrom(1)
	require.NoError(t, err)
	assert.Equal(t, "Carol", gifter.Name)

	_, err = ring.GiveTo(4)
	assert.ErrorIs(t, err, ErrNotInRing)
}

func Test_Ring_GiveReceiveAreInverse(t *testing.T) {
	people := participants("Alice", "Bob", "Carol", "Dave", "Eve")
	drawn, err := Draw(people, 1234, false)
	require.NoError(t, err)

	ring := NewRing(drawn)
	for _, p := range drawn {
		giftee, err := ring.GiveTo(p.PersonID)
		require.NoError(t, err)
		back, err := ring.ReceiveFrom(giftee.PersonID)
		require.NoError(t, err)
		assert.Equal(t, p.PersonID, back.PersonID)
	}
}

func Test_Ring_SingleMember(t *testing.T) {
	ring := NewRing([]Participant{{PersonID: 1, Name: "Alone", Ordering: 0}})

	giftee, err := ring.GiveTo(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), giftee.PersonID)
}
