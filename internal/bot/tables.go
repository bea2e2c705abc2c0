package bot

import (
	"context"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/spauka/secretsanta/pkg/santa"
)

// Chat messages get unwieldy past this many rows, so long rosters are split
// into several messages.
const tableChunkSize = 25

// rosterTables renders the participant list as fixed-width tables, split
// into chunks small enough to post as separate messages.
func (b *Bot) rosterTables(
	ctx context.Context, participants []santa.Participant, withAllocations bool,
) ([]string, error) {
	ring := santa.NewRing(participants)

	header := []string{"Name", "Email", "Seen"}
	if withAllocations {
		header = append(header, "Gives To")
	}

	var tables []string
	for chunk := 0; chunk < len(participants); chunk += tableChunkSize {
		end := chunk + tableChunkSize
		if end > len(participants) {
			end = len(participants)
		}

		var sb strings.Builder
		table := tablewriter.NewWriter(&sb)
		table.SetHeader(header)

		for _, p := range participants[chunk:end] {
			person, err := b.store.PersonByID(ctx, p.PersonID)
			if err != nil {
				return nil, errors.WithMessagef(err, "failed to look up person %d", p.PersonID)
			}

			seen := ""
			if p.Seen != nil {
				seen = p.Seen.Format(time.DateTime)
			}

			row := []string{person.Name, person.Email, seen}
			if withAllocations {
				giftee, err := ring.GiveTo(p.PersonID)
				if errors.Is(err, santa.ErrNotInRing) {
					row = append(row, "-")
				} else if err != nil {
					return nil, err
				} else {
					row = append(row, giftee.Name)
				}
			}

			table.Append(row)
		}

		table.Render()
		tables = append(tables, strings.TrimRight(sb.String(), "\n"))
	}

	return tables, nil
}
