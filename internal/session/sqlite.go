// Package session provides storage backends for TitiNauta conversational sessions.
//
// This file implements the SQLite-backed store.
package session

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/educareplus/titinauta/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions and the message audit trail in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the database file; missing directories are created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// GetSession retrieves the session for a phone number, or nil if none exists.
func (s *SQLiteStore) GetSession(phoneNumber string) (*models.Session, error) {
	row := s.db.QueryRow(
		`SELECT phone_number, conversation_state, active_question, last_interaction_at, created_at, updated_at
		 FROM sessions WHERE phone_number = ?`, phoneNumber)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "phone", phoneNumber)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to get session for %s: %w", phoneNumber, err)
	}
	return sess, nil
}

// SaveSession inserts or updates a session keyed by phone number.
func (s *SQLiteStore) SaveSession(sess models.Session) error {
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
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(phone_number) DO UPDATE SET
		   conversation_state = excluded.conversation_state,
		   active_question = excluded.active_question,
		   last_interaction_at = excluded.last_interaction_at,
		   updated_at = excluded.updated_at`,
		sess.PhoneNumber, string(sess.ConversationState), nilIfEmpty(questionRefValue(sess.ActiveQuestion)),
		sess.LastInteractionAt, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "phone", sess.PhoneNumber)
		return fmt.Errorf("failed to save session for %s: %w", sess.PhoneNumber, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "phone", sess.PhoneNumber, "state", sess.ConversationState)
	return nil
}

// DeleteSession removes the session for a phone number.
func (s *SQLiteStore) DeleteSession(phoneNumber string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE phone_number = ?`, phoneNumber)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "phone", phoneNumber)
		return fmt.Errorf("failed to delete session for %s: %w", phoneNumber, err)
	}
	return nil
}

// AddMessageLog appends one audit-trail row.
func (s *SQLiteStore) AddMessageLog(m models.MessageLog) error {
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO message_log (phone_number, direction, body, state, time) VALUES (?, ?, ?, ?, ?)`,
		m.PhoneNumber, string(m.Direction), m.Body, string(m.State), m.Time)
	if err != nil {
		slog.Error("SQLiteStore AddMessageLog failed", "error", err, "phone", m.PhoneNumber)
		return fmt.Errorf("failed to insert message log for %s: %w", m.PhoneNumber, err)
	}
	return nil
}

// GetMessageLogs returns the most recent audit rows for a phone number, newest first.
func (s *SQLiteStore) GetMessageLogs(phoneNumber string, limit int) ([]models.MessageLog, error) {
	rows, err := s.db.Query(
		`SELECT phone_number, direction, body, state, time FROM message_log
		 WHERE phone_number = ? ORDER BY time DESC, id DESC LIMIT ?`, phoneNumber, limit)
	if err != nil {
		slog.Error("SQLiteStore GetMessageLogs query failed", "error", err, "phone", phoneNumber)
		return nil, fmt.Errorf("failed to query message log: %w", err)
	}
	defer rows.Close()
	return collectMessageLogs(rows)
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
