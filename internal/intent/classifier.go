// Package intent classifies inbound free-text messages into journey intents.
//
// Classification is a pure function: no I/O, no state, identical input always
// yields identical output.
package intent

import (
	"strings"

	"github.com/educareplus/titinauta/internal/models"
)

// answerLexicon maps exact Likert-style tokens to ordinal answer values.
// Covers numeric replies, spelled-out Portuguese numbers and semantic synonyms.
var answerLexicon = map[string]int{
	"1":        models.AnswerNever,
	"um":       models.AnswerNever,
	"não":      models.AnswerNever,
	"nao":      models.AnswerNever,
	"nunca":    models.AnswerNever,
	"2":        models.AnswerSometimes,
	"dois":     models.AnswerSometimes,
	"às vezes": models.AnswerSometimes,
	"as vezes": models.AnswerSometimes,
	"um pouco": models.AnswerSometimes,
	"3":        models.AnswerAlways,
	"três":     models.AnswerAlways,
	"tres":     models.AnswerAlways,
	"sim":      models.AnswerAlways,
	"sempre":   models.AnswerAlways,
}

// Keyword sets checked by substring containment, in priority order
// greeting -> help -> progress. First matching set wins.
var (
	greetingKeywords = []string{"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "começar", "comecar", "iniciar"}
	helpKeywords     = []string{"ajuda", "help", "menu", "como funciona", "o que você faz", "o que voce faz"}
	progressKeywords = []string{"progresso", "evolução", "evolucao", "quanto falta", "resultado"}
)

// Classify normalizes raw text and resolves it to an intent.
//
// Answer tokens are matched exactly against the trimmed, lowercased string;
// there is no fuzzy matching. Anything that matches no answer token and no
// keyword set falls back to the chat intent, including empty input.
func Classify(rawText string) models.ClassifiedMessage {
	text := strings.ToLower(strings.TrimSpace(rawText))
	msg := models.ClassifiedMessage{RawText: rawText, Intent: models.IntentChat}

	if text == "" {
		return msg
	}

	if value, ok := answerLexicon[text]; ok {
		msg.Intent = models.IntentAnswer
		msg.AnswerValue = value
		return msg
	}

	if containsAny(text, greetingKeywords) {
		msg.Intent = models.IntentGreeting
		return msg
	}
	if containsAny(text, helpKeywords) {
		msg.Intent = models.IntentHelp
		return msg
	}
	if containsAny(text, progressKeywords) {
		msg.Intent = models.IntentProgress
		return msg
	}

	return msg
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
