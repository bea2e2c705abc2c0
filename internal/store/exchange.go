package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/spauka/secretsanta/pkg/santa"
)

type Exchange struct {
	ID   int64
	Name string
	// Seed is nil until the first draw; it holds a uint32.
	Seed *uint32
}

func (s *Store) CreateExchange(ctx context.Context, name string) (Exchange, error) {
	id, err := s.insert(ctx, `INSERT INTO exchange (name) VALUES (?)`, name)
	if err != nil {
		return Exchange{}, errors.WithMessage(err, "failed to create exchange")
	}

	return Exchange{ID: id, Name: name}, nil
}

func (s *Store) ExchangeByID(ctx context.Context, id int64) (Exchange, error) {
	var e Exchange
	var seed sql.NullInt64

	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT id, name, seed FROM exchange WHERE id = ?`), id).
		Scan(&e.ID, &e.Name, &seed)
	if errors.Is(err, sql.ErrNoRows) {
		return Exchange{}, ErrNotFound
	}
	if err != nil {
		return Exchange{}, errors.WithMessage(err, "failed to query exchange")
	}

	if seed.Valid {
		v := uint32(seed.Int64)
		e.Seed = &v
	}

	return e, nil
}

func (s *Store) Exchanges(ctx context.Context) ([]Exchange, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, seed FROM exchange ORDER BY id`)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to query exchanges")
	}
	defer func() {
		_ = rows.Close()
	}()

	var exchanges []Exchange
	for rows.Next() {
		var e Exchange
		var seed sql.NullInt64
		err = rows.Scan(&e.ID, &e.Name, &seed)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to scan exchange")
		}
		if seed.Valid {
			v := uint32(seed.Int64)
			e.Seed = &v
		}
		exchanges = append(exchanges, e)
	}

	return exchanges, rows.Err()
}

func (s *Store) SetExchangeSeed(ctx context.Context, id int64, seed uint32) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE exchange SET seed = ? WHERE id = ?`),
		int64(seed), id)

	return errors.WithMessage(err, "failed to set exchange seed")
}

func (s *Store) AddParticipant(ctx context.Context, exchangeID, personID int64) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO participant (exchange_id, person_id) VALUES (?, ?)`),
		exchangeID, personID)

	return errors.WithMessage(err, "failed to add participant")
}

// RemoveParticipant drops one participant without touching the others'
// orderings; the ring closes over the gap.
func (s *Store) RemoveParticipant(ctx context.Context, exchangeID, personID int64) error {
	res, err := s.db.ExecContext(ctx, s.q(
		`DELETE FROM participant WHERE exchange_id = ? AND person_id = ?`),
		exchangeID, personID)
	if err != nil {
		return errors.WithMessage(err, "failed to remove participant")
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

// Participants returns the exchange members with their ring state.
func (s *Store) Participants(ctx context.Context, exchangeID int64) ([]santa.Participant, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT p.id, p.name, pt.ordering, pt.seen
		 FROM participant pt JOIN person p ON p.id = pt.person_id
		 WHERE pt.exchange_id = ?
		 ORDER BY p.normalized_name`), exchangeID)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to query participants")
	}
	defer func() {
		_ = rows.Close()
	}()

	var participants []santa.Participant
	for rows.Next() {
		var p santa.Participant
		var ordering, seen sql.NullInt64

		err = rows.Scan(&p.PersonID, &p.Name, &ordering, &seen)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to scan participant")
		}

		p.Ordering = santa.NotDrawn
		if ordering.Valid {
			p.Ordering = int(ordering.Int64)
		}
		if seen.Valid {
			t := time.Unix(seen.Int64, 0)
			p.Seen = &t
		}

		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// SaveOrdering writes a drawn ring back, clearing seen marks.
func (s *Store) SaveOrdering(ctx context.Context, exchangeID int64, drawn []santa.Participant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithMessage(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range drawn {
		_, err = tx.ExecContext(ctx, s.q(
			`UPDATE participant SET ordering = ?, seen = NULL
			 WHERE exchange_id = ? AND person_id = ?`),
			p.Ordering, exchangeID, p.PersonID)
		if err != nil {
			return errors.WithMessagef(err, "failed to save ordering for person %d", p.PersonID)
		}
	}

	return tx.Commit()
}

// MarkSeen stamps the first time a participant revealed their allocation.
// Later reveals keep the original timestamp.
func (s *Store) MarkSeen(ctx context.Context, exchangeID, personID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE participant SET seen = ?
		 WHERE exchange_id = ? AND person_id = ? AND seen IS NULL`),
		at.Unix(), exchangeID, personID)

	return errors.WithMessage(err, "failed to mark seen")
}

func (s *Store) AddAdmin(ctx context.Context, exchangeID, personID int64) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO admin (exchange_id, person_id) VALUES (?, ?)`),
		exchangeID, personID)

	return errors.WithMessage(err, "failed to add admin")
}

func (s *Store) IsAdmin(ctx context.Context, exchangeID, personID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT COUNT(*) FROM admin WHERE exchange_id = ? AND person_id = ?`),
		exchangeID, personID).Scan(&n)
	if err != nil {
		return false, errors.WithMessage(err, "failed to query admin")
	}

	return n > 0, nil
}

func (s *Store) Admins(ctx context.Context, exchangeID int64) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+prefixedPersonColumns+`
		 FROM admin a JOIN person p ON p.id = a.person_id
		 WHERE a.exchange_id = ?
		 ORDER BY p.normalized_name`), exchangeID)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to query admins")
	}
	defer func() {
		_ = rows.Close()
	}()

	var admins []Person
	for rows.Next() {
		var p Person
		var normalized string
		var email, teamID sql.NullString

		err = rows.Scan(&p.ID, &p.Name, &normalized, &p.ChatSource, &p.ChatID,
			&email, &p.ForceEmail, &teamID)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to scan admin")
		}
		p.Email = email.String
		p.TeamID = teamID.String
		admins = append(admins, p)
	}

	return admins, rows.Err()
}

const prefixedPersonColumns = `p.id, p.name, p.normalized_name, p.chat_source, p.chat_id, p.email, p.force_email, p.team_id`
