// Package session provides storage backends for TitiNauta conversational sessions.
//
// This file implements the PostgreSQL-backed store.
package session

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/educareplus/titinauta/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions and the message audit trail in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// GetSession retrieves the session for a phone number, or nil if none exists.
func (s *PostgresStore) GetSession(phoneNumber string) (*models.Session, error) {
	row := s.db.QueryRow(
		`SELECT phone_number, conversation_state, active_question, last_interaction_at, created_at, updated_at
		 FROM sessions WHERE phone_number = $1`, phoneNumber)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "phone", phoneNumber)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to get session for %s: %w", phoneNumber, err)
	}
	return sess, nil
}

// SaveSession inserts or updates a session keyed by phone number.
func (s *PostgresStore) SaveSession(sess models.Session) error {
	if sess.PhoneNumber == "" {
		return models.ErrEmptyPhoneNumber
	}
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO sessions (phone_number, conversation_state, active_question, last_interaction_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (phone_number) DO UPDATE SET
		   conversation_state = EXCLUDED.conversation_state,
		   active_question = EXCLUDED.active_question,
		   last_interaction_at = EXCLUDED.last_interaction_at,
		   updated_at = EXCLUDED.updated_at`,
		sess.PhoneNumber, string(sess.ConversationState), nilIfEmpty(questionRefValue(sess.ActiveQuestion)),
		sess.LastInteractionAt, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "phone", sess.PhoneNumber)
		return fmt.Errorf("failed to save session for %s: %w", sess.PhoneNumber, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "phone", sess.PhoneNumber, "state", sess.ConversationState)
	return nil
}

// DeleteSession removes the session for a phone number.
func (s *PostgresStore) DeleteSession(phoneNumber string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE phone_number = $1`, phoneNumber)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "phone", phoneNumber)
		return fmt.Errorf("failed to delete session for %s: %w", phoneNumber, err)
	}
	return nil
}

// AddMessageLog appends one audit-trail row.
func (s *PostgresStore) AddMessageLog(m models.MessageLog) error {
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO message_log (phone_number, direction, body, state, time) VALUES ($1, $2, $3, $4, $5)`,
		m.PhoneNumber, string(m.Direction), m.Body, string(m.State), m.Time)
	if err != nil {
		slog.Error("PostgresStore AddMessageLog failed", "error", err, "phone", m.PhoneNumber)
		return fmt.Errorf("failed to insert message log for %s: %w", m.PhoneNumber, err)
	}
	return nil
}

// GetMessageLogs returns the most recent audit rows for a phone number, newest first.
func (s *PostgresStore) GetMessageLogs(phoneNumber string, limit int) ([]models.MessageLog, error) {
	rows, err := s.db.Query(
		`SELECT phone_number, direction, body, state, time FROM message_log
		 WHERE phone_number = $1 ORDER BY time DESC, id DESC LIMIT $2`, phoneNumber, limit)
	if err != nil {
		slog.Error("PostgresStore GetMessageLogs query failed", "error", err, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to query message log: %w", err)
	}
	defer rows.Close()
	return collectMessageLogs(rows)
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
