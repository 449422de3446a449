package session

import (
	"database/sql"
	"fmt"

	"github.com/educareplus/titinauta/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// questionRefValue renders a QuestionRef for storage, empty string when unset.
func questionRefValue(ref models.QuestionRef) string {
	if ref.IsZero() {
		return ""
	}
	return ref.String()
}

// scanSession scans a Session from a single sql.Row.
func scanSession(row *sql.Row) (*models.Session, error) {
	var sess models.Session
	var state string
	var activeQuestion sql.NullString
	err := row.Scan(&sess.PhoneNumber, &state, &activeQuestion, &sess.LastInteractionAt, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sess.ConversationState = models.ConversationState(state)
	if activeQuestion.Valid {
		ref, err := models.ParseQuestionRef(activeQuestion.String)
		if err != nil {
			return nil, fmt.Errorf("scan session failed: %w", err)
		}
		sess.ActiveQuestion = ref
	}
	return &sess, nil
}

// collectMessageLogs drains rows into MessageLog values.
func collectMessageLogs(rows *sql.Rows) ([]models.MessageLog, error) {
	var logs []models.MessageLog
	for rows.Next() {
		var m models.MessageLog
		var direction, state string
		if err := rows.Scan(&m.PhoneNumber, &direction, &m.Body, &state, &m.Time); err != nil {
			return nil, fmt.Errorf("failed to scan message log row: %w", err)
		}
		m.Direction = models.MessageDirection(direction)
		m.State = models.ConversationState(state)
		logs = append(logs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message log rows: %w", err)
	}
	return logs, nil
}
