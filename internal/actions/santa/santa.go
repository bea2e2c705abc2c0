// Package santa administers exchanges from the command line, working
// directly against the database instead of through chat commands.
package santa

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/spauka/secretsanta/internal/bot"
	"github.com/spauka/secretsanta/internal/config"
	"github.com/spauka/secretsanta/internal/connector"
	"github.com/spauka/secretsanta/internal/store"
	"github.com/spauka/secretsanta/pkg/santa"
)

func open(cliCtx *cli.Context) (config.Config, *store.Store, error) {
	cfg, err := config.Load(cliCtx.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}

	st, err := store.Open(cliCtx.Context, cfg.Database.DSN)
	if err != nil {
		return config.Config{}, nil, errors.WithMessage(err, "failed to open database")
	}

	err = st.Migrate(cliCtx.Context)
	if err != nil {
		_ = st.Close()

		return config.Config{}, nil, errors.WithMessage(err, "failed to migrate database")
	}

	return cfg, st, nil
}

// List prints every exchange and its participants.
func List(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	_, st, err := open(cliCtx)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()

	exchanges, err := st.Exchanges(ctx)
	if err != nil {
		return err
	}
	if len(exchanges) == 0 {
		fmt.Println("No exchanges found")

		return nil
	}

	for _, ex := range exchanges {
		participants, err := st.Participants(ctx, ex.ID)
		if err != nil {
			return err
		}

		drawn := "not drawn"
		if ex.Seed != nil {
			drawn = fmt.Sprintf("drawn (seed %d)", *ex.Seed)
		}
		fmt.Printf("Exchange %d: %s, %d participants, %s\n", ex.ID, ex.Name, len(participants), drawn)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Gives To", "Seen"})

		ring := santa.NewRing(participants)
		for _, p := range participants {
			giftee := "-"
			if g, err := ring.GiveTo(p.PersonID); err == nil {
				giftee = g.Name
			}
			seen := ""
			if p.Seen != nil {
				seen = p.Seen.Format(time.DateTime)
			}
			table.Append([]string{p.Name, giftee, seen})
		}
		table.Render()
	}

	return nil
}

// Draw assigns the gift circle for one exchange.
func Draw(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	_, st, err := open(cliCtx)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()

	ex, err := pickExchange(ctx, st, cliCtx.Int64("exchange"))
	if err != nil {
		return err
	}

	participants, err := st.Participants(ctx, ex.ID)
	if err != nil {
		return err
	}

	force := cliCtx.Bool("redo")
	seed := santa.NewSeed()
	if ex.Seed != nil && !force {
		seed = *ex.Seed
	}

	drawn, err := santa.Draw(participants, seed, force)
	if errors.Is(err, santa.ErrAlreadyDrawn) {
		return errors.New("allocations already drawn, pass --redo to draw again")
	}
	if err != nil {
		return err
	}

	err = st.SetExchangeSeed(ctx, ex.ID, seed)
	if err != nil {
		return err
	}
	err = st.SaveOrdering(ctx, ex.ID, drawn)
	if err != nil {
		return err
	}

	fmt.Printf("Drew allocations for %d participants in exchange %q\n", len(drawn), ex.Name)

	return nil
}

// SendAll delivers allocation cards to every participant of an exchange.
func SendAll(cliCtx *cli.Context) error {
	return send(cliCtx, "")
}

// SendTo delivers a single participant's allocation card.
func SendTo(cliCtx *cli.Context) error {
	name := cliCtx.String("to")
	if name == "" {
		return errors.New("--to is required")
	}

	return send(cliCtx, name)
}

//nolint:funlen
func send(cliCtx *cli.Context, onlyName string) error {
	ctx := cliCtx.Context

	cfg, st, err := open(cliCtx)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()

	ex, err := pickExchange(ctx, st, cliCtx.Int64("exchange"))
	if err != nil {
		return err
	}

	team, err := teamForExchange(ctx, st, ex.ID)
	if err != nil {
		return err
	}

	participants, err := st.Participants(ctx, ex.ID)
	if err != nil {
		return err
	}

	client := connector.New(cfg.Bot.AppID, cfg.Bot.AppPassword)
	b := bot.New(st, client, cfg.Messages)

	ring := santa.NewRing(participants)
	if ring.Len() == 0 {
		return errors.New("allocations have not been drawn yet")
	}

	sent := 0
	for _, member := range ring.Members() {
		person, err := st.PersonByID(ctx, member.PersonID)
		if err != nil {
			return err
		}
		if onlyName != "" && person.Name != onlyName &&
			santa.NormalizeName(person.Name) != santa.NormalizeName(onlyName) {
			continue
		}

		err = b.SendAllocationDM(ctx, team, person)
		if err != nil {
			log.Println(errors.WithMessagef(err, "failed to send allocation to %s", person.Name))
			fmt.Printf("FAILED  %s\n", person.Name)

			continue
		}

		fmt.Printf("sent    %s\n", person.Name)
		sent++
	}

	fmt.Printf("Sent %d allocation(s)\n", sent)

	return nil
}

// pickExchange returns the requested exchange, or the only one when just a
// single exchange exists.
func pickExchange(ctx context.Context, st *store.Store, id int64) (store.Exchange, error) {
	if id != 0 {
		return st.ExchangeByID(ctx, id)
	}

	exchanges, err := st.Exchanges(ctx)
	if err != nil {
		return store.Exchange{}, err
	}
	switch len(exchanges) {
	case 0:
		return store.Exchange{}, errors.New("no exchanges found")
	case 1:
		return exchanges[0], nil
	default:
		ids := make([]string, 0, len(exchanges))
		for _, ex := range exchanges {
			ids = append(ids, strconv.FormatInt(ex.ID, 10))
		}

		return store.Exchange{}, errors.Errorf(
			"multiple exchanges found (%v), pick one with --exchange", ids)
	}
}

func teamForExchange(ctx context.Context, st *store.Store, exchangeID int64) (store.Team, error) {
	teams, err := st.Teams(ctx)
	if err != nil {
		return store.Team{}, err
	}

	for _, team := range teams {
		if team.ExchangeID != nil && *team.ExchangeID == exchangeID {
			return team, nil
		}
	}

	return store.Team{}, errors.Errorf("no team is running exchange %d", exchangeID)
}
