// Package dialog implements the TitiNauta conversational journey engine.
//
// The engine is a deterministic state machine: inbound free-text messages are
// classified, the per-phone session state advances, and the engine produces
// the outbound reply text. The Educare API stays the source of truth for
// assessment progress, so nearly every turn re-resolves user, child and
// question instead of trusting cached session data.
package dialog

import (
	"context"

	"github.com/educareplus/titinauta/internal/educare"
	"github.com/educareplus/titinauta/internal/models"
)

// Gateway is the engine's view of the Educare child-development API.
// Implementations must fail soft: misses are encoded in the result
// (Found=false, nil pointers) and only transport-level problems are errors.
type Gateway interface {
	// SearchUserByPhone looks up an Educare account by phone number.
	SearchUserByPhone(ctx context.Context, phone string) (educare.UserLookup, error)

	// GetActiveChild resolves the active child for a phone number; nil when absent.
	GetActiveChild(ctx context.Context, phone string) (*models.ChildContext, error)

	// GetNextQuestion fetches the next unanswered question; nil when none remain.
	GetNextQuestion(ctx context.Context, childID string) (*models.Question, error)

	// SaveAnswer submits an ordinal answer for a question.
	SaveAnswer(ctx context.Context, childID string, ref models.QuestionRef, answerValue int, answerText string, meta educare.AnswerMetadata) error

	// GetProgress fetches the child's assessment progress.
	GetProgress(ctx context.Context, childID string) (*models.Progress, error)
}

// ChatResponder produces replies for free-form chat messages the journey flow
// does not handle. It is optional; without one, chat turns are deferred to the
// messaging layer's default response.
type ChatResponder interface {
	Reply(ctx context.Context, userText string) (string, error)
}
