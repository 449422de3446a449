package dialog

import (
	"strings"
	"testing"

	"github.com/educareplus/titinauta/internal/models"
)

func TestFormatGreetingWithQuestion(t *testing.T) {
	child := &models.ChildContext{ChildID: "c1", ChildName: "Alice", AgeMonths: 18}
	q := &models.Question{
		Ref:  models.QuestionRef{Source: models.QuestionSourceLegacy, ID: "10"},
		Text: "Seu bebê consegue sentar sem apoio?",
	}

	got := FormatGreeting(child, q)
	for _, want := range []string{"TitiNauta", "Alice", "1️⃣ Nunca", "2️⃣ Às vezes", "3️⃣ Sempre", q.Text} {
		if !strings.Contains(got, want) {
			t.Errorf("greeting missing %q:\n%s", want, got)
		}
	}
}

func TestFormatGreetingJourneyComplete(t *testing.T) {
	child := &models.ChildContext{ChildID: "c1", ChildName: "Alice"}
	got := FormatGreeting(child, nil)
	if !strings.Contains(got, "Parabéns") {
		t.Errorf("completed journey greeting missing congratulation:\n%s", got)
	}
	if strings.Contains(got, answerLegend) {
		t.Errorf("completed journey greeting must not include the answer legend:\n%s", got)
	}
}

func TestFormatQuestionIncludesLegend(t *testing.T) {
	q := &models.Question{Text: "Seu bebê sorri para você?"}
	got := FormatQuestion(q)
	if !strings.Contains(got, answerLegend) {
		t.Errorf("question missing answer legend:\n%s", got)
	}
	if !strings.Contains(got, q.Text) {
		t.Errorf("question missing its own text:\n%s", got)
	}
}

func TestFormatAnswerFeedbackSpecificText(t *testing.T) {
	q := &models.Question{
		Ref:      models.QuestionRef{Source: models.QuestionSourceLegacy, ID: "10"},
		Text:     "Seu bebê engatinha?",
		Feedback: map[int]string{models.AnswerSometimes: "Que ótimo, continue estimulando! 🌟"},
	}
	next := &models.Question{Text: "Seu bebê fala alguma palavra?"}
	progress := &models.Progress{Percentage: 40, UnansweredCount: 3}

	got := FormatAnswerFeedback(q, models.AnswerSometimes, progress, next)
	for _, want := range []string{"Que ótimo", "40%", "3 pergunta(s)", "Próxima pergunta", next.Text} {
		if !strings.Contains(got, want) {
			t.Errorf("answer feedback missing %q:\n%s", want, got)
		}
	}
}

func TestFormatAnswerFeedbackGenericFallback(t *testing.T) {
	q := &models.Question{Text: "Seu bebê engatinha?"}
	got := FormatAnswerFeedback(q, models.AnswerNever, nil, nil)
	if !strings.Contains(got, genericFeedback) {
		t.Errorf("missing generic feedback for answer with no specific text:\n%s", got)
	}
	if !strings.Contains(got, "Parabéns") {
		t.Errorf("missing completion congratulation when no next question:\n%s", got)
	}
}

func TestFormatProgressReport(t *testing.T) {
	child := &models.ChildContext{ChildName: "Alice"}

	got := FormatProgressReport(child, &models.Progress{Percentage: 66.7, UnansweredCount: 2})
	for _, want := range []string{"Alice", "66.7%", "Faltam 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("progress report missing %q:\n%s", want, got)
		}
	}

	got = FormatProgressReport(child, &models.Progress{Percentage: 100, UnansweredCount: 0})
	if !strings.Contains(got, "Parabéns") {
		t.Errorf("completed progress report missing congratulation:\n%s", got)
	}
}

func TestFormatPercentTrimsTrailingZeros(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{40, "40"},
		{66.7, "66.7"},
		{0, "0"},
		{100, "100"},
	}
	for _, tt := range tests {
		if got := formatPercent(tt.in); got != tt.want {
			t.Errorf("formatPercent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStaticMessages(t *testing.T) {
	if !strings.Contains(FormatHelp(), "ajuda") {
		t.Error("help menu does not mention the help command")
	}
	if !strings.Contains(FormatNotFound(), "Educare+") {
		t.Error("not-found message does not point at the Educare+ app")
	}
	if !strings.Contains(FormatNoActiveChild(), "criança ativa") {
		t.Error("no-active-child message does not explain the missing profile")
	}
	if !strings.Contains(FormatGenericFailure(), "Tente novamente") {
		t.Error("generic failure message does not ask for a retry")
	}
}
