// Package storage is the Postgres-backed datastore: a key-value settings
// table and the recruitment application records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

type Storage struct {
	db *sqlx.DB
}

// New connects and verifies the database is reachable.
func New(ctx context.Context, databaseURL string) (*Storage, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// GetSetting returns the value for a settings key, or "" when unset.
func (s *Storage) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM bot_settings WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value, nil
}

// RecruitmentActive reports whether applications are currently accepted.
func (s *Storage) RecruitmentActive(ctx context.Context) (bool, error) {
	value, err := s.GetSetting(ctx, "recruitment_active")
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// Application is one trial application record.
type Application struct {
	ID              int64          `db:"id"`
	Surname         sql.NullString `db:"surname"`
	IGN             string         `db:"ign"`
	Role            sql.NullString `db:"role"`
	Rank            sql.NullString `db:"rank"`
	TrackerLink     sql.NullString `db:"tracker_link"`
	DiscordUsername string         `db:"discord_username"`
	DiscordUserID   string         `db:"discord_user_id"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
}

// InsertApplication stores a new application in pending state.
func (s *Storage) InsertApplication(ctx context.Context, app *Application) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO recruitment_applications
			(surname, ign, role, rank, tracker_link, discord_username, discord_user_id, status)
		VALUES
			(:surname, :ign, :role, :rank, :tracker_link, :discord_username, :discord_user_id, :status)`,
		app)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// LatestApplicationByUser returns the user's most recent application, or
// nil when they never applied.
func (s *Storage) LatestApplicationByUser(ctx context.Context, discordUserID string) (*Application, error) {
	var app Application
	err := s.db.GetContext(ctx, &app, `
		SELECT id, surname, ign, role, rank, tracker_link,
		       discord_username, discord_user_id, status, created_at
		FROM recruitment_applications
		WHERE discord_user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		discordUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	return &app, nil
}
