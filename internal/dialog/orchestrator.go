// Package dialog implements the dialogue orchestrator state machine.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/educareplus/titinauta/internal/educare"
	"github.com/educareplus/titinauta/internal/intent"
	"github.com/educareplus/titinauta/internal/models"
	"github.com/educareplus/titinauta/internal/session"
)

// phoneNumberRegex matches everything that is not a digit.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// MinPhoneDigits is the minimum number of digits for a valid phone number.
const MinPhoneDigits = 6

// NormalizePhone canonicalizes a phone number by removing all non-digits.
func NormalizePhone(phone string) (string, error) {
	canonical := phoneNumberRegex.ReplaceAllString(phone, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in %q", phone)
	}
	if len(canonical) < MinPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinPhoneDigits)
	}
	return canonical, nil
}

// Engine is the dialogue orchestrator. One Engine serves all conversations;
// turns are serialized per phone number and independent across numbers.
type Engine struct {
	sessions session.Store
	gateway  Gateway
	chat     ChatResponder
	locks    *keyedLock

	// questionCache lets the engine re-pose the active question without a
	// gateway round-trip. Cold entries (after restart) fall back to the API.
	qmu           sync.RWMutex
	questionCache map[string]*models.Question
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithChatResponder plugs in a responder for free-form chat messages.
func WithChatResponder(r ChatResponder) EngineOption {
	return func(e *Engine) { e.chat = r }
}

// NewEngine creates a dialogue engine over a session store and gateway.
func NewEngine(sessions session.Store, gateway Gateway, opts ...EngineOption) *Engine {
	slog.Debug("Creating dialog Engine")
	e := &Engine{
		sessions:      sessions,
		gateway:       gateway,
		locks:         newKeyedLock(),
		questionCache: make(map[string]*models.Question),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleMessage processes one inbound message and returns the reply text.
// An empty reply with a nil error means the turn produced nothing to say and
// the caller may fall back to its default response.
//
// Failures from the gateway never escape: the turn degrades to a generic
// retry-later reply. Only invalid input (unusable phone number) is an error.
func (e *Engine) HandleMessage(ctx context.Context, phoneNumber, body string) (reply string, err error) {
	canonical, err := NormalizePhone(phoneNumber)
	if err != nil {
		slog.Error("Engine.HandleMessage: invalid phone", "error", err, "phone", phoneNumber)
		return "", err
	}

	e.locks.Lock(canonical)
	defer e.locks.Unlock(canonical)

	// Contract violations deep in a turn must not lose the user's message.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Engine.HandleMessage: panic contained", "phone", canonical, "panic", r)
			reply = FormatGenericFailure()
			err = nil
		}
	}()

	sess, loadErr := e.sessions.GetSession(canonical)
	if loadErr != nil {
		slog.Error("Engine.HandleMessage: session load failed", "error", loadErr, "phone", canonical)
		return FormatGenericFailure(), nil
	}
	if sess == nil {
		slog.Info("Engine.HandleMessage: new conversation", "phone", canonical)
		sess = &models.Session{PhoneNumber: canonical, ConversationState: models.StateEntry}
	}

	msg := intent.Classify(body)
	slog.Debug("Engine.HandleMessage: turn classified",
		"phone", canonical, "intent", msg.Intent, "state", sess.ConversationState)

	e.logMessage(canonical, models.DirectionInbound, body, sess.ConversationState)

	reply = e.dispatch(ctx, sess, msg)

	sess.LastInteractionAt = time.Now()
	if saveErr := e.sessions.SaveSession(*sess); saveErr != nil {
		slog.Error("Engine.HandleMessage: session save failed", "error", saveErr, "phone", canonical)
	}
	if reply != "" {
		e.logMessage(canonical, models.DirectionOutbound, reply, sess.ConversationState)
	}

	slog.Info("Engine.HandleMessage: turn complete",
		"phone", canonical, "intent", msg.Intent, "state", sess.ConversationState, "replied", reply != "")
	return reply, nil
}

// dispatch routes a classified message through the transition table.
func (e *Engine) dispatch(ctx context.Context, sess *models.Session, msg models.ClassifiedMessage) string {
	switch msg.Intent {
	case models.IntentGreeting:
		return e.handleGreeting(ctx, sess)
	case models.IntentHelp:
		return e.handleHelp(sess)
	case models.IntentProgress:
		return e.handleProgress(ctx, sess)
	case models.IntentAnswer:
		if sess.ConversationState == models.StateQuestionPosed {
			return e.handleAnswer(ctx, sess, msg)
		}
		// An answer token with no question posed has nothing to bind to.
		return e.handleChat(ctx, sess, msg)
	default:
		if sess.ConversationState == models.StateQuestionPosed {
			return e.reposeQuestion(ctx, sess)
		}
		return e.handleChat(ctx, sess, msg)
	}
}

// handleGreeting resolves user, active child and next question, then poses it.
func (e *Engine) handleGreeting(ctx context.Context, sess *models.Session) string {
	entryState := sess.ConversationState

	sess.ConversationState = models.StateAwaitingUserLookup
	lookup, err := e.gateway.SearchUserByPhone(ctx, sess.PhoneNumber)
	if err != nil {
		return e.degrade(sess, entryState, "search_user", err)
	}
	if !lookup.Found {
		slog.Info("Engine.handleGreeting: no Educare account", "phone", sess.PhoneNumber)
		sess.ConversationState = models.StateUserNotFound
		sess.ActiveQuestion = models.QuestionRef{}
		return FormatNotFound()
	}

	sess.ConversationState = models.StateAwaitingChildLookup
	child, err := e.gateway.GetActiveChild(ctx, sess.PhoneNumber)
	if err != nil {
		return e.degrade(sess, entryState, "get_active_child", err)
	}
	if child == nil {
		slog.Info("Engine.handleGreeting: account has no active child", "phone", sess.PhoneNumber)
		sess.ConversationState = models.StateUserNotFound
		sess.ActiveQuestion = models.QuestionRef{}
		return FormatNoActiveChild()
	}

	sess.ConversationState = models.StateAwaitingQuestion
	q, err := e.gateway.GetNextQuestion(ctx, child.ChildID)
	if err != nil {
		return e.degrade(sess, entryState, "get_next_question", err)
	}
	if q == nil {
		sess.ConversationState = models.StateProgressReport
		sess.ActiveQuestion = models.QuestionRef{}
		return FormatGreeting(child, nil)
	}

	e.cacheQuestion(q)
	sess.ConversationState = models.StateQuestionPosed
	sess.ActiveQuestion = q.Ref
	return FormatGreeting(child, q)
}

// handleAnswer submits the ordinal answer, fetches updated progress and
// immediately re-resolves the next question.
func (e *Engine) handleAnswer(ctx context.Context, sess *models.Session, msg models.ClassifiedMessage) string {
	entryState := sess.ConversationState

	child, err := e.gateway.GetActiveChild(ctx, sess.PhoneNumber)
	if err != nil {
		return e.degrade(sess, entryState, "get_active_child", err)
	}
	if child == nil {
		sess.ConversationState = models.StateUserNotFound
		sess.ActiveQuestion = models.QuestionRef{}
		return FormatNoActiveChild()
	}

	// Re-resolve the pending question instead of trusting the stored pointer:
	// the same family may have answered through the app meanwhile.
	q, err := e.gateway.GetNextQuestion(ctx, child.ChildID)
	if err != nil {
		return e.degrade(sess, entryState, "get_next_question", err)
	}
	if q == nil {
		sess.ConversationState = models.StateProgressReport
		sess.ActiveQuestion = models.QuestionRef{}
		return FormatAnswerFeedback(nil, msg.AnswerValue, nil, nil)
	}
	if !sess.ActiveQuestion.IsZero() && q.Ref != sess.ActiveQuestion {
		slog.Warn("Engine.handleAnswer: active question drifted",
			"phone", sess.PhoneNumber, "stored", sess.ActiveQuestion.String(), "resolved", q.Ref.String())
	}

	meta := educare.AnswerMetadata{Source: educare.AnswerSource, SessionID: sess.PhoneNumber}
	if err := e.gateway.SaveAnswer(ctx, child.ChildID, q.Ref, msg.AnswerValue, msg.RawText, meta); err != nil {
		return e.degrade(sess, entryState, "save_answer", err)
	}
	sess.ConversationState = models.StateAnswerSubmitted

	progress, err := e.gateway.GetProgress(ctx, child.ChildID)
	if err != nil {
		return e.degrade(sess, entryState, "get_progress", err)
	}

	next, err := e.gateway.GetNextQuestion(ctx, child.ChildID)
	if err != nil {
		return e.degrade(sess, entryState, "get_next_question", err)
	}
	if next == nil {
		sess.ConversationState = models.StateProgressReport
		sess.ActiveQuestion = models.QuestionRef{}
	} else {
		e.cacheQuestion(next)
		sess.ConversationState = models.StateQuestionPosed
		sess.ActiveQuestion = next.Ref
	}
	return FormatAnswerFeedback(q, msg.AnswerValue, progress, next)
}

// handleHelp renders the static menu; the journey position stays untouched.
func (e *Engine) handleHelp(sess *models.Session) string {
	if sess.ConversationState == models.StateEntry {
		sess.ConversationState = models.StateHelp
	}
	return FormatHelp()
}

// handleProgress fetches and renders the progress summary without advancing
// the journey.
func (e *Engine) handleProgress(ctx context.Context, sess *models.Session) string {
	entryState := sess.ConversationState

	child, err := e.gateway.GetActiveChild(ctx, sess.PhoneNumber)
	if err != nil {
		return e.degrade(sess, entryState, "get_active_child", err)
	}
	if child == nil {
		return FormatNotFound()
	}

	progress, err := e.gateway.GetProgress(ctx, child.ChildID)
	if err != nil {
		return e.degrade(sess, entryState, "get_progress", err)
	}
	if sess.ConversationState == models.StateEntry {
		sess.ConversationState = models.StateProgressReport
	}
	return FormatProgressReport(child, progress)
}

// reposeQuestion repeats the active question unchanged. Warm cache entries
// avoid gateway calls entirely; after a restart the question is re-resolved.
func (e *Engine) reposeQuestion(ctx context.Context, sess *models.Session) string {
	if q := e.cachedQuestion(sess.ActiveQuestion); q != nil {
		return FormatQuestion(q)
	}

	entryState := sess.ConversationState
	child, err := e.gateway.GetActiveChild(ctx, sess.PhoneNumber)
	if err != nil {
		return e.degrade(sess, entryState, "get_active_child", err)
	}
	if child == nil {
		sess.ConversationState = models.StateUserNotFound
		sess.ActiveQuestion = models.QuestionRef{}
		return FormatNoActiveChild()
	}
	q, err := e.gateway.GetNextQuestion(ctx, child.ChildID)
	if err != nil {
		return e.degrade(sess, entryState, "get_next_question", err)
	}
	if q == nil {
		sess.ConversationState = models.StateProgressReport
		sess.ActiveQuestion = models.QuestionRef{}
		return FormatGreeting(child, nil)
	}
	e.cacheQuestion(q)
	sess.ActiveQuestion = q.Ref
	return FormatQuestion(q)
}

// handleChat defers free-form text to the optional chat responder.
func (e *Engine) handleChat(ctx context.Context, sess *models.Session, msg models.ClassifiedMessage) string {
	if e.chat == nil {
		slog.Debug("Engine.handleChat: no responder configured, deferring", "phone", sess.PhoneNumber)
		return ""
	}
	reply, err := e.chat.Reply(ctx, msg.RawText)
	if err != nil {
		slog.Warn("Engine.handleChat: responder failed, deferring", "error", err, "phone", sess.PhoneNumber)
		return ""
	}
	return reply
}

// degrade contains a gateway failure: log it, restore the pre-turn state and
// answer with the single generic retry message.
func (e *Engine) degrade(sess *models.Session, entryState models.ConversationState, operation string, err error) string {
	slog.Error("Engine: turn degraded to fallback reply",
		"phone", sess.PhoneNumber, "operation", operation, "error", err)
	sess.ConversationState = entryState
	return FormatGenericFailure()
}

func (e *Engine) cacheQuestion(q *models.Question) {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	e.questionCache[q.Ref.String()] = q
}

func (e *Engine) cachedQuestion(ref models.QuestionRef) *models.Question {
	if ref.IsZero() {
		return nil
	}
	e.qmu.RLock()
	defer e.qmu.RUnlock()
	return e.questionCache[ref.String()]
}

// logMessage appends an audit row; failures are logged, never fatal to a turn.
func (e *Engine) logMessage(phone string, direction models.MessageDirection, body string, state models.ConversationState) {
	err := e.sessions.AddMessageLog(models.MessageLog{
		PhoneNumber: phone,
		Direction:   direction,
		Body:        body,
		State:       state,
		Time:        time.Now(),
	})
	if err != nil {
		slog.Warn("Engine: message audit log failed", "error", err, "phone", phone, "direction", direction)
	}
}
