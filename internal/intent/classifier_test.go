package intent

import (
	"testing"

	"github.com/educareplus/titinauta/internal/models"
)

func TestClassifyAnswerTokens(t *testing.T) {
	tests := []struct {
		text  string
		value int
	}{
		{"1", models.AnswerNever},
		{"um", models.AnswerNever},
		{"não", models.AnswerNever},
		{"nao", models.AnswerNever},
		{"Nunca", models.AnswerNever},
		{"2", models.AnswerSometimes},
		{"dois", models.AnswerSometimes},
		{"às vezes", models.AnswerSometimes},
		{"as vezes", models.AnswerSometimes},
		{"um pouco", models.AnswerSometimes},
		{"3", models.AnswerAlways},
		{"três", models.AnswerAlways},
		{"tres", models.AnswerAlways},
		{"SIM", models.AnswerAlways},
		{"sempre", models.AnswerAlways},
		{"  2  ", models.AnswerSometimes}, // surrounding whitespace is trimmed
	}

	for _, tt := range tests {
		msg := Classify(tt.text)
		if msg.Intent != models.IntentAnswer {
			t.Errorf("Classify(%q) intent = %q, want %q", tt.text, msg.Intent, models.IntentAnswer)
			continue
		}
		if msg.AnswerValue != tt.value {
			t.Errorf("Classify(%q) answer value = %d, want %d", tt.text, msg.AnswerValue, tt.value)
		}
	}
}

func TestClassifyAnswerRequiresExactMatch(t *testing.T) {
	// Answer tokens embedded in longer sentences must not match.
	for _, text := range []string{"acho que sim", "nunca mais", "responder 2 agora"} {
		msg := Classify(text)
		if msg.Intent == models.IntentAnswer {
			t.Errorf("Classify(%q) matched as answer, want non-answer intent", text)
		}
	}
}

func TestClassifyKeywordIntents(t *testing.T) {
	tests := []struct {
		text string
		want models.Intent
	}{
		{"oi", models.IntentGreeting},
		{"Olá!", models.IntentGreeting},
		{"bom dia titinauta", models.IntentGreeting},
		{"quero começar", models.IntentGreeting},
		{"ajuda", models.IntentHelp},
		{"como funciona isso?", models.IntentHelp},
		{"me mostra o menu", models.IntentHelp},
		{"progresso", models.IntentProgress},
		{"quanto falta para terminar?", models.IntentProgress},
		{"qual o resultado?", models.IntentProgress},
	}

	for _, tt := range tests {
		if got := Classify(tt.text).Intent; got != tt.want {
			t.Errorf("Classify(%q) intent = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// Greeting outranks help, help outranks progress.
	if got := Classify("oi, preciso de ajuda").Intent; got != models.IntentGreeting {
		t.Errorf("greeting+help text classified as %q, want %q", got, models.IntentGreeting)
	}
	if got := Classify("ajuda com o progresso").Intent; got != models.IntentHelp {
		t.Errorf("help+progress text classified as %q, want %q", got, models.IntentHelp)
	}
}

func TestClassifyChatFallback(t *testing.T) {
	for _, text := range []string{"", "   ", "meu filho dormiu mal hoje", "obrigada"} {
		msg := Classify(text)
		if msg.Intent != models.IntentChat {
			t.Errorf("Classify(%q) intent = %q, want %q", text, msg.Intent, models.IntentChat)
		}
		if msg.AnswerValue != 0 {
			t.Errorf("Classify(%q) answer value = %d, want 0", text, msg.AnswerValue)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	first := Classify("quanto falta?")
	for i := 0; i < 5; i++ {
		if got := Classify("quanto falta?"); got != first {
			t.Fatalf("Classify returned %+v on repeat call, want %+v", got, first)
		}
	}
}

func TestClassifyPreservesRawText(t *testing.T) {
	raw := "  SIM  "
	msg := Classify(raw)
	if msg.RawText != raw {
		t.Errorf("Classify(%q) raw text = %q, want original preserved", raw, msg.RawText)
	}
}
