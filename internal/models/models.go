// Package models defines the core data structures for TitiNauta.
//
// It includes types for classified messages, conversational sessions, and the
// child-development snapshots fetched from the Educare API, which are shared across modules.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	// IntentAnswer indicates a Likert-style answer to the active question.
	IntentAnswer Intent = "answer"
	// IntentGreeting indicates a conversation opener ("oi", "olá", ...).
	IntentGreeting Intent = "greeting"
	// IntentHelp indicates a request for the help menu.
	IntentHelp Intent = "help"
	// IntentProgress indicates a request for the progress summary.
	IntentProgress Intent = "progress"
	// IntentChat is the fallback for free-form text that matched nothing.
	IntentChat Intent = "chat"
)

// Ordinal answer values for Likert-style responses.
const (
	// AnswerNever encodes "não"/"nunca"/"1".
	AnswerNever = 0
	// AnswerSometimes encodes "às vezes"/"2".
	AnswerSometimes = 1
	// AnswerAlways encodes "sim"/"sempre"/"3".
	AnswerAlways = 2
)

// ClassifiedMessage is the ephemeral result of classifying one inbound text.
// It exists only for the duration of a single turn and is never persisted.
type ClassifiedMessage struct {
	RawText     string `json:"raw_text"`
	Intent      Intent `json:"intent"`
	AnswerValue int    `json:"answer_value"` // meaningful only when Intent == IntentAnswer
}

// ConversationState identifies where a session is in the journey dialogue.
type ConversationState string

const (
	// StateEntry is the implicit state before any session exists.
	StateEntry ConversationState = "ENTRY"
	// StateAwaitingUserLookup means a user search against the Educare API is pending.
	StateAwaitingUserLookup ConversationState = "AWAITING_USER_LOOKUP"
	// StateAwaitingChildLookup means an active-child lookup is pending.
	StateAwaitingChildLookup ConversationState = "AWAITING_CHILD_LOOKUP"
	// StateAwaitingQuestion means the next unanswered question is being resolved.
	StateAwaitingQuestion ConversationState = "AWAITING_QUESTION"
	// StateQuestionPosed means a question was sent and an answer is expected.
	StateQuestionPosed ConversationState = "QUESTION_POSED"
	// StateAnswerSubmitted is the transient state right after an answer is saved.
	StateAnswerSubmitted ConversationState = "ANSWER_SUBMITTED"
	// StateHelp means the last turn rendered the help menu.
	StateHelp ConversationState = "HELP"
	// StateProgressReport means the last turn rendered a progress summary.
	StateProgressReport ConversationState = "PROGRESS_REPORT"
	// StateUserNotFound means no Educare account exists for the phone number.
	// The next inbound message starts over from StateEntry.
	StateUserNotFound ConversationState = "USER_NOT_FOUND"
)

// IsValidConversationState checks if the given state is one the engine knows.
func IsValidConversationState(s ConversationState) bool {
	switch s {
	case StateEntry, StateAwaitingUserLookup, StateAwaitingChildLookup, StateAwaitingQuestion,
		StateQuestionPosed, StateAnswerSubmitted, StateHelp, StateProgressReport, StateUserNotFound:
		return true
	default:
		return false
	}
}

// QuestionSource distinguishes the legacy question catalogue from the V2 one.
// The two systems use incompatible identifier spaces, so a bare ID is ambiguous.
type QuestionSource string

const (
	// QuestionSourceLegacy identifies questions from the original catalogue.
	QuestionSourceLegacy QuestionSource = "legacy"
	// QuestionSourceV2 identifies questions from the V2 catalogue.
	QuestionSourceV2 QuestionSource = "v2"
)

// QuestionRef is a typed reference to a question in either catalogue.
type QuestionRef struct {
	Source QuestionSource `json:"source"`
	ID     string         `json:"id"`
}

// String renders the reference in "source:id" form for storage and logging.
func (r QuestionRef) String() string {
	return string(r.Source) + ":" + r.ID
}

// IsZero reports whether the reference is empty (no active question).
func (r QuestionRef) IsZero() bool {
	return r.ID == ""
}

// ParseQuestionRef parses a "source:id" string produced by QuestionRef.String.
// A bare identifier with no source prefix is treated as legacy.
func ParseQuestionRef(s string) (QuestionRef, error) {
	if s == "" {
		return QuestionRef{}, nil
	}
	source, id, found := strings.Cut(s, ":")
	if !found {
		return QuestionRef{Source: QuestionSourceLegacy, ID: s}, nil
	}
	switch QuestionSource(source) {
	case QuestionSourceLegacy, QuestionSourceV2:
		if id == "" {
			return QuestionRef{}, fmt.Errorf("question ref %q has empty id", s)
		}
		return QuestionRef{Source: QuestionSource(source), ID: id}, nil
	default:
		return QuestionRef{}, fmt.Errorf("question ref %q has unknown source %q", s, source)
	}
}

// Session is the per-phone-number conversational state persisted across turns.
type Session struct {
	PhoneNumber       string            `json:"phone_number"` // E.164-ish, digits only
	ConversationState ConversationState `json:"conversation_state"`
	ActiveQuestion    QuestionRef       `json:"active_question"` // zero value means no question is posed
	LastInteractionAt time.Time         `json:"last_interaction_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ChildContext is a read-only snapshot of the active child, fetched per turn.
// The Educare API owns this data; the engine only caches it for one turn.
type ChildContext struct {
	ChildID   string `json:"child_id"`
	ChildName string `json:"child_name"`
	AgeMonths int    `json:"age_months"`
}

// Question is a read-only snapshot of the next unanswered assessment question.
type Question struct {
	Ref      QuestionRef    `json:"ref"`
	Text     string         `json:"text"`
	Feedback map[int]string `json:"feedback"` // ordinal answer value -> feedback text
}

// Progress is the child's assessment progress as reported by the Educare API.
type Progress struct {
	Percentage      float64 `json:"percentage"`
	UnansweredCount int     `json:"unanswered_count"`
}

// Validation error variables shared across modules.
var (
	ErrEmptyPhoneNumber  = errors.New("phone number cannot be empty")
	ErrEmptyMessageBody  = errors.New("message body cannot be empty")
	ErrInvalidAnswer     = errors.New("answer value must be 0, 1 or 2")
	ErrInvalidState      = errors.New("invalid conversation state")
	ErrSessionNotFound   = errors.New("session not found")
	ErrEmptyQuestionText = errors.New("question text cannot be empty")
)

// WebhookMessage is the inbound payload delivered by the Evolution/WhatsApp webhook.
type WebhookMessage struct {
	SenderPhone string `json:"sender_phone"`
	MessageBody string `json:"message_body"`
}

// Validate checks required webhook fields.
func (m *WebhookMessage) Validate() error {
	if strings.TrimSpace(m.SenderPhone) == "" {
		return ErrEmptyPhoneNumber
	}
	if m.MessageBody == "" {
		return ErrEmptyMessageBody
	}
	return nil
}

// MessageStatus represents the delivery status of an outbound message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt records a delivery status event for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response represents an incoming message from a participant.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// MessageDirection distinguishes audit-log rows.
type MessageDirection string

const (
	// DirectionInbound marks a message received from the participant.
	DirectionInbound MessageDirection = "inbound"
	// DirectionOutbound marks a message sent to the participant.
	DirectionOutbound MessageDirection = "outbound"
)

// MessageLog is one audit-trail row for a turn's inbound or outbound message.
type MessageLog struct {
	PhoneNumber string            `json:"phone_number"`
	Direction   MessageDirection  `json:"direction"`
	Body        string            `json:"body"`
	State       ConversationState `json:"state"`
	Time        time.Time         `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
