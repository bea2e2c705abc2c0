package santa

import (
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	ErrAlreadyDrawn = errors.New("allocations have already been drawn, use redo to draw again")
	ErrNotInRing    = errors.New("person is not in the secret santa")
	ErrDuplicate    = errors.New("a person with the same name is already in the secret santa")
)

// Orderings are spaced out so a participant can be inserted between two
// existing ones without renumbering the whole ring.
const orderingStep = 10

const maxSeed = 4_294_967_295

// NotDrawn marks a participant that has no position in the ring yet.
const NotDrawn = -1

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeName returns the form of a name used for lookups and sorting:
// lowercased with all whitespace removed.
func NormalizeName(name string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(name), "")
}

type Participant struct {
	PersonID int64
	Name     string
	Ordering int
	Seen     *time.Time
}

func (p Participant) NormalizedName() string {
	return NormalizeName(p.Name)
}

// NewSeed picks a fresh seed in the same range the exchange stores.
func NewSeed() uint32 {
	//nolint:gosec
	return uint32(rand.Int63n(maxSeed + 1))
}

// Draw assigns ring positions to the given participants. The ordering is
// reproducible from the seed: participants are sorted by normalized name and
// shuffled with a PRNG seeded from it. Draw refuses to touch a ring that has
// already been drawn unless force is set; a forced redraw clears seen marks.
func Draw(participants []Participant, seed uint32, force bool) ([]Participant, error) {
	if !force {
		for _, p := range participants {
			if p.Ordering != NotDrawn {
				return nil, ErrAlreadyDrawn
			}
		}
	}

	names := lo.CountValuesBy(participants, Participant.NormalizedName)
	for name, n := range names {
		if n > 1 {
			return nil, errors.WithMessagef(ErrDuplicate, "name %q", name)
		}
	}

	drawn := make([]Participant, len(participants))
	copy(drawn, participants)
	sort.Slice(drawn, func(i, j int) bool {
		return drawn[i].NormalizedName() < drawn[j].NormalizedName()
	})

	rnd := rand.New(rand.NewSource(int64(seed))) //nolint:gosec
	rnd.Shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})

	for i := range drawn {
		drawn[i].Ordering = i * orderingStep
		if force {
			drawn[i].Seen = nil
		}
	}

	return drawn, nil
}

// Ring is the drawn gift circle: everyone gives to the next member and
// receives from the previous one, wrapping around.
type Ring struct {
	members []Participant
}

// NewRing builds a ring from the participants that hold a position,
// ordered by it. Participants that were never drawn are skipped.
func NewRing(participants []Participant) *Ring {
	members := lo.Filter(participants, func(p Participant, _ int) bool {
		return p.Ordering != NotDrawn
	})
	sort.Slice(members, func(i, j int) bool {
		return members[i].Ordering < members[j].Ordering
	})

	return &Ring{members: members}
}

func (r *Ring) Len() int {
	return len(r.members)
}

// Members returns the ring in gift order.
func (r *Ring) Members() []Participant {
	out := make([]Participant, len(r.members))
	copy(out, r.members)

	return out
}

func (r *Ring) index(personID int64) (int, error) {
	_, i, found := lo.FindIndexOf(r.members, func(p Participant) bool {
		return p.PersonID == personID
	})
	if !found {
		return 0, ErrNotInRing
	}

	return i, nil
}

// GiveTo returns the member the given person buys a gift for.
func (r *Ring) GiveTo(personID int64) (Participant, error) {
	i, err := r.index(personID)
	if err != nil {
		return Participant{}, err
	}

	return r.members[(i+1)%len(r.members)], nil
}

// ReceiveFrom returns the member buying a gift for the given person.
func (r *Ring) ReceiveFrom(personID int64) (Participant, error) {
	i, err := r.index(personID)
	if err != nil {
		return Participant{}, err
	}

	return r.members[(i-1+len(r.members))%len(r.members)], nil
}
