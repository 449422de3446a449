// Package session provides storage backends for TitiNauta conversational sessions.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backed stores selected by DSN auto-detection.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/educareplus/titinauta/internal/models"
)

// Store defines the persistence surface for sessions and the turn audit trail.
// At most one session exists per phone number; SaveSession is an upsert.
type Store interface {
	// GetSession retrieves the session for a phone number, or nil if none exists.
	GetSession(phoneNumber string) (*models.Session, error)

	// SaveSession inserts or updates a session keyed by phone number.
	SaveSession(s models.Session) error

	// DeleteSession removes the session for a phone number. Missing rows are not an error.
	DeleteSession(phoneNumber string) error

	// AddMessageLog appends one audit-trail row for an inbound or outbound message.
	AddMessageLog(m models.MessageLog) error

	// GetMessageLogs returns the most recent audit rows for a phone number, newest first.
	GetMessageLogs(phoneNumber string, limit int) ([]models.MessageLog, error)

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType inspects a DSN and reports "postgres" or "sqlite".
// Anything that does not look like a Postgres URL or key/value DSN is
// treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a mutex-guarded map store used in tests and development.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	logs     []models.MessageLog
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.Session)}
}

// GetSession retrieves the session for a phone number, or nil if none exists.
func (s *InMemoryStore) GetSession(phoneNumber string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[phoneNumber]
	if !ok {
		return nil, nil
	}
	copied := sess
	return &copied, nil
}

// SaveSession inserts or updates a session keyed by phone number.
func (s *InMemoryStore) SaveSession(sess models.Session) error {
	if sess.PhoneNumber == "" {
		return models.ErrEmptyPhoneNumber
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.sessions[sess.PhoneNumber]; ok {
		sess.CreatedAt = existing.CreatedAt
	} else if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	s.sessions[sess.PhoneNumber] = sess
	return nil
}

// DeleteSession removes the session for a phone number.
func (s *InMemoryStore) DeleteSession(phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, phoneNumber)
	return nil
}

// AddMessageLog appends one audit-trail row.
func (s *InMemoryStore) AddMessageLog(m models.MessageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	s.logs = append(s.logs, m)
	return nil
}

// GetMessageLogs returns the most recent audit rows for a phone number, newest first.
func (s *InMemoryStore) GetMessageLogs(phoneNumber string, limit int) ([]models.MessageLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MessageLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].PhoneNumber != phoneNumber {
			continue
		}
		out = append(out, s.logs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
