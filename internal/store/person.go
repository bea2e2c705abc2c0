package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/spauka/secretsanta/pkg/santa"
)

type Person struct {
	ID         int64
	Name       string
	ChatSource string
	ChatID     string
	Email      string
	ForceEmail bool
	TeamID     string
}

// ShouldEmail reports whether allocations must go out by email rather than
// a chat message.
func (p Person) ShouldEmail() bool {
	if p.ForceEmail {
		return true
	}

	return p.ChatID == "" && p.Email != ""
}

const personColumns = `id, name, normalized_name, chat_source, chat_id, email, force_email, team_id`

func (s *Store) scanPerson(row *sql.Row) (Person, error) {
	var p Person
	var normalized string
	var email, teamID sql.NullString

	err := row.Scan(&p.ID, &p.Name, &normalized, &p.ChatSource, &p.ChatID,
		&email, &p.ForceEmail, &teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return Person{}, ErrNotFound
	}
	if err != nil {
		return Person{}, errors.WithMessage(err, "failed to scan person")
	}

	p.Email = email.String
	p.TeamID = teamID.String

	return p, nil
}

// UpsertPerson inserts the person, or refreshes name, email and team for an
// existing (chat_source, chat_id) pair. Returns the person id.
func (s *Store) UpsertPerson(ctx context.Context, p Person) (int64, error) {
	existing, err := s.PersonByChatID(ctx, p.ChatSource, p.ChatID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	if err == nil {
		_, err = s.db.ExecContext(ctx, s.q(
			`UPDATE person SET name = ?, normalized_name = ?, email = ?, force_email = ?, team_id = ?
			 WHERE id = ?`),
			p.Name, santa.NormalizeName(p.Name), nullable(p.Email), p.ForceEmail,
			nullable(p.TeamID), existing.ID)
		if err != nil {
			return 0, errors.WithMessage(err, "failed to update person")
		}

		return existing.ID, nil
	}

	id, err := s.insert(ctx,
		`INSERT INTO person (name, normalized_name, chat_source, chat_id, email, force_email, team_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, santa.NormalizeName(p.Name), p.ChatSource, p.ChatID,
		nullable(p.Email), p.ForceEmail, nullable(p.TeamID))
	if err != nil {
		return 0, errors.WithMessage(err, "failed to insert person")
	}

	return id, nil
}

func (s *Store) PersonByID(ctx context.Context, id int64) (Person, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+personColumns+` FROM person WHERE id = ?`), id)

	return s.scanPerson(row)
}

func (s *Store) PersonByChatID(ctx context.Context, chatSource, chatID string) (Person, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+personColumns+` FROM person WHERE chat_source = ? AND chat_id = ?`),
		chatSource, chatID)

	return s.scanPerson(row)
}

// PersonByName looks up by normalized name, so "alexis george" finds
// "Alexis  George".
func (s *Store) PersonByName(ctx context.Context, name string) (Person, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+personColumns+` FROM person WHERE normalized_name = ?`),
		santa.NormalizeName(name))

	return s.scanPerson(row)
}

func (s *Store) TeamMembers(ctx context.Context, teamID string) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT `+personColumns+` FROM person WHERE team_id = ? ORDER BY normalized_name`),
		teamID)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to query team members")
	}
	defer func() {
		_ = rows.Close()
	}()

	var people []Person
	for rows.Next() {
		var p Person
		var normalized string
		var email, tid sql.NullString

		err = rows.Scan(&p.ID, &p.Name, &normalized, &p.ChatSource, &p.ChatID,
			&email, &p.ForceEmail, &tid)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to scan person")
		}
		p.Email = email.String
		p.TeamID = tid.String
		people = append(people, p)
	}

	return people, rows.Err()
}

func (s *Store) DeletePerson(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM participant WHERE person_id = ?`), id)
	if err != nil {
		return errors.WithMessage(err, "failed to remove participations")
	}
	_, err = s.db.ExecContext(ctx, s.q(`DELETE FROM admin WHERE person_id = ?`), id)
	if err != nil {
		return errors.WithMessage(err, "failed to remove admin entries")
	}
	_, err = s.db.ExecContext(ctx, s.q(`DELETE FROM person WHERE id = ?`), id)
	if err != nil {
		return errors.WithMessage(err, "failed to delete person")
	}

	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
