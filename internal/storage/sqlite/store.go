// Package sqlite provides a SQLite-backed profile repository.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/samdwyer/xueba/internal/entity"
	"github.com/samdwyer/xueba/internal/profile"
	"github.com/samdwyer/xueba/internal/storage/sqlite/migrations"
)

// Store persists profiles and their cards in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite profile store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Create inserts a new account with its cards.
func (s *Store) Create(ctx context.Context, acct profile.Account) error {
	if acct.Profile == nil || strings.TrimSpace(acct.Profile.UID) == "" {
		return fmt.Errorf("profile uid is required")
	}
	p := acct.Profile
	now := s.now().UTC()
	created, updated := acct.CreatedAt, acct.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = created
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (uid, nickname, password_hash, current_level, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			p.UID, p.Nickname, acct.PasswordHash, p.CurrentLevel, toMillis(created), toMillis(updated),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return profile.ErrAlreadyExists
			}
			return fmt.Errorf("insert profile: %w", err)
		}
		return writeCards(ctx, tx, p.UID, p.Cards)
	})
}

// Get loads an account and its cards in acquisition order.
func (s *Store) Get(ctx context.Context, uid string) (profile.Account, error) {
	var (
		acct                 profile.Account
		p                    entity.Profile
		createdAt, updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT uid, nickname, password_hash, current_level, created_at, updated_at
		 FROM profiles WHERE uid = ?`, uid,
	).Scan(&p.UID, &p.Nickname, &acct.PasswordHash, &p.CurrentLevel, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Account{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Account{}, fmt.Errorf("get profile: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT payload FROM cards WHERE profile_uid = ? ORDER BY position`, uid)
	if err != nil {
		return profile.Account{}, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	p.Cards = []entity.Card{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return profile.Account{}, fmt.Errorf("scan card: %w", err)
		}
		var c entity.Card
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return profile.Account{}, fmt.Errorf("decode card: %w", err)
		}
		p.Cards = append(p.Cards, c)
	}
	if err := rows.Err(); err != nil {
		return profile.Account{}, fmt.Errorf("iterate cards: %w", err)
	}

	acct.Profile = &p
	acct.CreatedAt = fromMillis(createdAt)
	acct.UpdatedAt = fromMillis(updatedAt)
	return acct, nil
}

// Update rewrites the profile row and all card rows in one transaction.
func (s *Store) Update(ctx context.Context, p *entity.Profile) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE profiles SET nickname = ?, current_level = ?, updated_at = ? WHERE uid = ?`,
			p.Nickname, p.CurrentLevel, toMillis(s.now()), p.UID,
		)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if n == 0 {
			return profile.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE profile_uid = ?`, p.UID); err != nil {
			return fmt.Errorf("clear cards: %w", err)
		}
		return writeCards(ctx, tx, p.UID, p.Cards)
	})
}

func writeCards(ctx context.Context, tx *sql.Tx, uid string, cards []entity.Card) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cards (profile_uid, position, id, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare card insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range cards {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode card %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, uid, i, c.ID, string(payload)); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("duplicate card id %s: %w", c.ID, profile.ErrAlreadyExists)
			}
			return fmt.Errorf("insert card %s: %w", c.ID, err)
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ profile.Repository = (*Store)(nil)
