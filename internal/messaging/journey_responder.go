// Package messaging provides response handling for the journey conversation.
package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/educareplus/titinauta/internal/models"
)

// TurnHandler processes one inbound message and returns the reply text.
// An empty reply means the turn produced nothing to say.
type TurnHandler interface {
	HandleMessage(ctx context.Context, phoneNumber, body string) (string, error)
}

// DefaultDeferredMessage is sent when a turn produces no reply (free-form chat
// with no responder configured).
const DefaultDeferredMessage = "📝 Recebi sua mensagem! Envie \"oi\" para continuar a jornada ou \"ajuda\" para ver as opções."

// JourneyResponder routes every inbound message through the dialogue engine
// and delivers the resulting reply over the messaging service.
type JourneyResponder struct {
	msgService     Service
	engine         TurnHandler
	defaultMessage string
}

// NewJourneyResponder creates a responder over a messaging service and engine.
func NewJourneyResponder(msgService Service, engine TurnHandler) *JourneyResponder {
	return &JourneyResponder{
		msgService:     msgService,
		engine:         engine,
		defaultMessage: DefaultDeferredMessage,
	}
}

// SetDefaultMessage overrides the message sent when a turn defers.
func (jr *JourneyResponder) SetDefaultMessage(message string) {
	jr.defaultMessage = message
}

// ProcessResponse runs one turn for an inbound response and sends the reply.
func (jr *JourneyResponder) ProcessResponse(ctx context.Context, response models.Response) error {
	canonicalFrom, err := jr.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		slog.Error("JourneyResponder ProcessResponse validation failed", "error", err, "from", response.From)
		return fmt.Errorf("invalid sender: %w", err)
	}

	slog.Debug("JourneyResponder processing response", "from", canonicalFrom, "body_length", len(response.Body))

	reply, err := jr.engine.HandleMessage(ctx, canonicalFrom, response.Body)
	if err != nil {
		slog.Error("JourneyResponder engine turn failed", "error", err, "from", canonicalFrom)
		return fmt.Errorf("turn failed: %w", err)
	}
	if reply == "" {
		reply = jr.defaultMessage
	}

	if err := jr.msgService.SendMessage(ctx, canonicalFrom, reply); err != nil {
		slog.Error("JourneyResponder failed to send reply", "error", err, "from", canonicalFrom)
		return fmt.Errorf("failed to send reply: %w", err)
	}

	slog.Info("JourneyResponder reply sent", "from", canonicalFrom)
	return nil
}

// Start begins draining responses from the messaging service.
// It should be called once; it returns immediately and processes in background.
func (jr *JourneyResponder) Start(ctx context.Context) {
	slog.Info("JourneyResponder starting response processing")

	go func() {
		defer slog.Info("JourneyResponder stopped response processing")

		for {
			select {
			case response, ok := <-jr.msgService.Responses():
				if !ok {
					slog.Debug("JourneyResponder responses channel closed")
					return
				}
				if err := jr.ProcessResponse(ctx, response); err != nil {
					slog.Error("JourneyResponder failed to process response", "error", err, "from", response.From)
				}

			case <-ctx.Done():
				slog.Debug("JourneyResponder stopping due to context cancellation")
				return
			}
		}
	}()
}
