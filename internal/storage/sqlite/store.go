// Package sqlite implements the Store on database/sql with mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	name  TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS doubts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id),
	room_id    TEXT NOT NULL,
	text       TEXT NOT NULL DEFAULT '',
	upvotes    INTEGER NOT NULL DEFAULT 0,
	answered   INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS doubts_room_id ON doubts(room_id);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Str("module", "storage.sqlite").Str("path", path).Msg("database ready")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, "SELECT id, name, email FROM users WHERE email = ?", email).
		Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("error querying user %s: %w", email, err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, name, email string) (*domain.User, error) {
	query := `INSERT INTO users (name, email) VALUES (?, ?)
		ON CONFLICT(email) DO UPDATE SET name = excluded.name`
	if _, err := s.db.ExecContext(ctx, query, name, email); err != nil {
		return nil, fmt.Errorf("failed to upsert user '%s': %w", email, err)
	}
	return s.FindUserByEmail(ctx, email)
}

func (s *Store) RoomExists(ctx context.Context, room domain.RoomID) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM doubts WHERE room_id = ?)"
	if err := s.db.QueryRowContext(ctx, query, room).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking room %s: %w", room, err)
	}
	return exists, nil
}

func (s *Store) HasMarker(ctx context.Context, user domain.UserID, room domain.RoomID) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM doubts WHERE room_id = ? AND user_id = ? AND text = '')"
	if err := s.db.QueryRowContext(ctx, query, room, user).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking marker for room %s: %w", room, err)
	}
	return exists, nil
}

func (s *Store) CreateDoubt(ctx context.Context, user domain.UserID, room domain.RoomID, text string) (*domain.Doubt, error) {
	now := time.Now().UTC()
	query := "INSERT INTO doubts (user_id, room_id, text, created_at) VALUES (?, ?, ?, ?)"
	res, err := s.db.ExecContext(ctx, query, user, room, text, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert doubt for room %s: %w", room, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read doubt id: %w", err)
	}
	return &domain.Doubt{
		ID:        domain.DoubtID(id),
		UserID:    user,
		RoomID:    room,
		Text:      text,
		CreatedAt: now,
	}, nil
}

func (s *Store) AddVotes(ctx context.Context, id domain.DoubtID, delta int) (*domain.Doubt, error) {
	query := "UPDATE doubts SET upvotes = MAX(upvotes + ?, 0) WHERE id = ? AND text <> ''"
	res, err := s.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update votes for doubt %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, core.ErrNotFound
	}
	return s.getDoubt(ctx, id)
}

func (s *Store) MarkAnswered(ctx context.Context, room domain.RoomID, id domain.DoubtID) (*domain.Doubt, error) {
	query := "UPDATE doubts SET answered = 1 WHERE id = ? AND room_id = ? AND text <> ''"
	res, err := s.db.ExecContext(ctx, query, id, room)
	if err != nil {
		return nil, fmt.Errorf("failed to mark doubt %d answered: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, core.ErrNotFound
	}
	return s.getDoubt(ctx, id)
}

func (s *Store) DeleteRoomDoubts(ctx context.Context, room domain.RoomID) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM doubts WHERE room_id = ?", room)
	if err != nil {
		return 0, fmt.Errorf("failed to delete doubts for room %s: %w", room, err)
	}
	return res.RowsAffected()
}

func (s *Store) ListDoubts(ctx context.Context, room domain.RoomID, filter core.DoubtFilter) ([]domain.Doubt, error) {
	query := "SELECT id, user_id, room_id, text, upvotes, answered, created_at FROM doubts WHERE room_id = ? AND text <> ''"
	if filter == core.AnsweredOnly {
		query += " AND answered = 1"
	}
	query += " ORDER BY id"
	rows, err := s.db.QueryContext(ctx, query, room)
	if err != nil {
		return nil, fmt.Errorf("failed to query doubts for room %s: %w", room, err)
	}
	defer rows.Close()

	doubts := []domain.Doubt{}
	for rows.Next() {
		d, err := scanDoubt(rows)
		if err != nil {
			return nil, err
		}
		doubts = append(doubts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over doubts for room %s: %w", room, err)
	}
	return doubts, nil
}

func (s *Store) getDoubt(ctx context.Context, id domain.DoubtID) (*domain.Doubt, error) {
	query := "SELECT id, user_id, room_id, text, upvotes, answered, created_at FROM doubts WHERE id = ?"
	d, err := scanDoubt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDoubt(row scanner) (domain.Doubt, error) {
	var d domain.Doubt
	if err := row.Scan(&d.ID, &d.UserID, &d.RoomID, &d.Text, &d.Upvotes, &d.Answered, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("failed to scan doubt: %w", err)
	}
	return d, nil
}
