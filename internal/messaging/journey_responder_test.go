package messaging

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/educareplus/titinauta/internal/models"
)

// sentMessage records one SendMessage call.
type sentMessage struct {
	To   string
	Body string
}

// mockService is a test double for the messaging Service interface.
type mockService struct {
	mu        sync.Mutex
	sent      []sentMessage
	sendErr   error
	receipts  chan models.Receipt
	responses chan models.Response
}

func newMockService() *mockService {
	return &mockService{
		receipts:  make(chan models.Receipt, 10),
		responses: make(chan models.Response, 10),
	}
}

func (m *mockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, recipient)
	if len(digits) < 6 {
		return "", errors.New("invalid recipient")
	}
	return digits, nil
}

func (m *mockService) SendMessage(ctx context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{To: to, Body: body})
	return nil
}

func (m *mockService) Start(ctx context.Context) error { return nil }
func (m *mockService) Stop() error                     { return nil }

func (m *mockService) Receipts() <-chan models.Receipt   { return m.receipts }
func (m *mockService) Responses() <-chan models.Response { return m.responses }

func (m *mockService) sentMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// mockTurnHandler is a scripted engine double.
type mockTurnHandler struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []sentMessage // reuses the pair shape: To=phone, Body=message
}

func (m *mockTurnHandler) HandleMessage(ctx context.Context, phoneNumber, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sentMessage{To: phoneNumber, Body: body})
	return m.reply, m.err
}

func TestProcessResponseSendsEngineReply(t *testing.T) {
	svc := newMockService()
	engine := &mockTurnHandler{reply: "Oi! Eu sou a TitiNauta 🚀"}
	jr := NewJourneyResponder(svc, engine)

	err := jr.ProcessResponse(context.Background(), models.Response{From: "+55 11 99999-8888", Body: "oi"})
	if err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}

	if len(engine.calls) != 1 {
		t.Fatalf("engine called %d times, want 1", len(engine.calls))
	}
	if engine.calls[0].To != "5511999998888" || engine.calls[0].Body != "oi" {
		t.Errorf("engine turn = %+v, want canonical phone with original body", engine.calls[0])
	}

	sent := svc.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].To != "5511999998888" || sent[0].Body != engine.reply {
		t.Errorf("sent = %+v", sent[0])
	}
}

func TestProcessResponseUsesDefaultForDeferredTurns(t *testing.T) {
	svc := newMockService()
	engine := &mockTurnHandler{reply: ""}
	jr := NewJourneyResponder(svc, engine)

	if err := jr.ProcessResponse(context.Background(), models.Response{From: "5511999998888", Body: "obrigada"}); err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}

	sent := svc.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].Body != DefaultDeferredMessage {
		t.Errorf("sent body = %q, want default deferred message", sent[0].Body)
	}
}

func TestProcessResponseCustomDefault(t *testing.T) {
	svc := newMockService()
	engine := &mockTurnHandler{reply: ""}
	jr := NewJourneyResponder(svc, engine)
	jr.SetDefaultMessage("custom fallback")

	if err := jr.ProcessResponse(context.Background(), models.Response{From: "5511999998888", Body: "?"}); err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}
	if sent := svc.sentMessages(); sent[0].Body != "custom fallback" {
		t.Errorf("sent body = %q, want custom fallback", sent[0].Body)
	}
}

func TestProcessResponseInvalidSender(t *testing.T) {
	svc := newMockService()
	engine := &mockTurnHandler{reply: "never"}
	jr := NewJourneyResponder(svc, engine)

	if err := jr.ProcessResponse(context.Background(), models.Response{From: "abc", Body: "oi"}); err == nil {
		t.Fatal("invalid sender accepted, want error")
	}
	if len(engine.calls) != 0 {
		t.Error("engine invoked for an invalid sender")
	}
}

func TestProcessResponseEngineFailure(t *testing.T) {
	svc := newMockService()
	engine := &mockTurnHandler{err: errors.New("store unavailable")}
	jr := NewJourneyResponder(svc, engine)

	if err := jr.ProcessResponse(context.Background(), models.Response{From: "5511999998888", Body: "oi"}); err == nil {
		t.Fatal("engine failure swallowed, want error")
	}
	if sent := svc.sentMessages(); len(sent) != 0 {
		t.Errorf("sent %d messages after engine failure, want 0", len(sent))
	}
}

func TestProcessResponseSendFailure(t *testing.T) {
	svc := newMockService()
	svc.sendErr = errors.New("connection closed")
	engine := &mockTurnHandler{reply: "resposta"}
	jr := NewJourneyResponder(svc, engine)

	if err := jr.ProcessResponse(context.Background(), models.Response{From: "5511999998888", Body: "oi"}); err == nil {
		t.Fatal("send failure swallowed, want error")
	}
}

func TestStartDrainsResponses(t *testing.T) {
	svc := newMockService()
	engine := &mockTurnHandler{reply: "resposta"}
	jr := NewJourneyResponder(svc, engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jr.Start(ctx)

	svc.responses <- models.Response{From: "5511999998888", Body: "oi", Time: time.Now().Unix()}
	svc.responses <- models.Response{From: "5511999997777", Body: "ajuda", Time: time.Now().Unix()}

	deadline := time.After(2 * time.Second)
	for {
		if len(svc.sentMessages()) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("processed %d responses before deadline, want 2", len(svc.sentMessages()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	tos := map[string]bool{}
	for _, msg := range svc.sentMessages() {
		tos[msg.To] = true
	}
	if !tos["5511999998888"] || !tos["5511999997777"] {
		t.Errorf("replies delivered to %v, want both senders", tos)
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	svc := newMockService()
	engine := &mockTurnHandler{reply: "resposta"}
	jr := NewJourneyResponder(svc, engine)

	ctx, cancel := context.WithCancel(context.Background())
	jr.Start(ctx)
	cancel()

	// Give the drain goroutine a moment to observe cancellation, then verify
	// a late response is not processed.
	time.Sleep(50 * time.Millisecond)
	svc.responses <- models.Response{From: "5511999998888", Body: "oi"}
	time.Sleep(50 * time.Millisecond)

	if sent := svc.sentMessages(); len(sent) != 0 {
		t.Errorf("sent %d messages after cancellation, want 0", len(sent))
	}
}
