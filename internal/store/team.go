package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Team is one chat-platform installation of the bot: the tenant it lives in,
// how to reach its service endpoint, and which exchange is currently running.
type Team struct {
	TeamID                string
	Tenant                string
	ServiceURL            string
	Channel               string
	ConversationReference string
	CreatorID             *int64
	ExchangeID            *int64
}

func (s *Store) SaveTeam(ctx context.Context, t Team) error {
	_, err := s.TeamByTenant(ctx, t.Tenant)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil {
		_, err = s.db.ExecContext(ctx, s.q(
			`UPDATE team SET team_id = ?, service_url = ?, channel = ?,
			 conversation_reference = ?, creator_id = ?, exchange_id = ?
			 WHERE tenant = ?`),
			t.TeamID, t.ServiceURL, nullable(t.Channel), nullable(t.ConversationReference),
			t.CreatorID, t.ExchangeID, t.Tenant)

		return errors.WithMessage(err, "failed to update team")
	}

	_, err = s.db.ExecContext(ctx, s.q(
		`INSERT INTO team (team_id, tenant, service_url, channel, conversation_reference, creator_id, exchange_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		t.TeamID, t.Tenant, t.ServiceURL, nullable(t.Channel),
		nullable(t.ConversationReference), t.CreatorID, t.ExchangeID)

	return errors.WithMessage(err, "failed to insert team")
}

const teamColumns = `team_id, tenant, service_url, channel, conversation_reference, creator_id, exchange_id`

func scanTeam(scan func(dest ...any) error) (Team, error) {
	var t Team
	var channel, ref sql.NullString
	var creator, exchange sql.NullInt64

	err := scan(&t.TeamID, &t.Tenant, &t.ServiceURL, &channel, &ref, &creator, &exchange)
	if errors.Is(err, sql.ErrNoRows) {
		return Team{}, ErrNotFound
	}
	if err != nil {
		return Team{}, errors.WithMessage(err, "failed to scan team")
	}

	t.Channel = channel.String
	t.ConversationReference = ref.String
	if creator.Valid {
		t.CreatorID = &creator.Int64
	}
	if exchange.Valid {
		t.ExchangeID = &exchange.Int64
	}

	return t, nil
}

func (s *Store) TeamByTenant(ctx context.Context, tenant string) (Team, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+teamColumns+` FROM team WHERE tenant = ?`), tenant)

	return scanTeam(row.Scan)
}

func (s *Store) Teams(ctx context.Context) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+teamColumns+` FROM team ORDER BY tenant`)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to query teams")
	}
	defer func() {
		_ = rows.Close()
	}()

	var teams []Team
	for rows.Next() {
		t, err := scanTeam(rows.Scan)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}

	return teams, rows.Err()
}

// DeleteTeam removes the installation and its members. Exchanges are kept so
// a reinstall can pick up a drawn ring.
func (s *Store) DeleteTeam(ctx context.Context, tenant string) error {
	t, err := s.TeamByTenant(ctx, tenant)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.q(`DELETE FROM person WHERE team_id = ?`), t.TeamID)
	if err != nil {
		return errors.WithMessage(err, "failed to delete team members")
	}

	_, err = s.db.ExecContext(ctx, s.q(`DELETE FROM team WHERE tenant = ?`), tenant)

	return errors.WithMessage(err, "failed to delete team")
}

func (s *Store) SetTeamExchange(ctx context.Context, tenant string, exchangeID int64) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE team SET exchange_id = ? WHERE tenant = ?`), exchangeID, tenant)

	return errors.WithMessage(err, "failed to set team exchange")
}

func (s *Store) SetTeamCreator(ctx context.Context, tenant string, personID int64) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE team SET creator_id = ? WHERE tenant = ?`), personID, tenant)

	return errors.WithMessage(err, "failed to set team creator")
}
