// Package dialog provides response formatting for the journey engine.
//
// Formatting is pure rendering over already-resolved data; no I/O happens here.
package dialog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/educareplus/titinauta/internal/models"
)

// answerLegend explains the 1/2/3 answer convention appended to every question.
const answerLegend = "Responda com:\n1️⃣ Nunca\n2️⃣ Às vezes\n3️⃣ Sempre"

// genericFeedback is used when a question has no feedback text for the submitted value.
const genericFeedback = "Obrigada pela sua resposta! 💙"

// FormatGreeting renders the welcome message. With a pending question it
// includes the answer legend and the question text; otherwise it congratulates
// the family for completing the journey.
func FormatGreeting(child *models.ChildContext, q *models.Question) string {
	var b strings.Builder
	b.WriteString("Oi! Eu sou a TitiNauta 🚀\n")
	if child != nil && child.ChildName != "" {
		fmt.Fprintf(&b, "Vamos acompanhar juntos o desenvolvimento de %s!\n\n", child.ChildName)
	} else {
		b.WriteString("Vamos acompanhar juntos o desenvolvimento do seu bebê!\n\n")
	}
	if q == nil {
		b.WriteString("Parabéns! 🎉 Você já completou todas as perguntas desta jornada.")
		return b.String()
	}
	b.WriteString(answerLegend)
	b.WriteString("\n\n")
	b.WriteString(q.Text)
	return b.String()
}

// FormatQuestion re-poses a question without the welcome preamble.
func FormatQuestion(q *models.Question) string {
	return answerLegend + "\n\n" + q.Text
}

// FormatAnswerFeedback renders feedback for a submitted answer plus the updated
// progress, followed by the next question or the completion congratulation.
func FormatAnswerFeedback(q *models.Question, answerValue int, progress *models.Progress, next *models.Question) string {
	var b strings.Builder

	feedback := genericFeedback
	if q != nil {
		if text, ok := q.Feedback[answerValue]; ok && text != "" {
			feedback = text
		}
	}
	b.WriteString(feedback)

	if progress != nil {
		fmt.Fprintf(&b, "\n\n📊 Progresso da jornada: %s%%", formatPercent(progress.Percentage))
		if next != nil && progress.UnansweredCount > 0 {
			fmt.Fprintf(&b, " (%d pergunta(s) restante(s))", progress.UnansweredCount)
		}
	}

	if next == nil {
		b.WriteString("\n\nParabéns! 🎉 Você completou todas as perguntas desta jornada.")
		return b.String()
	}
	b.WriteString("\n\nPróxima pergunta:\n")
	b.WriteString(FormatQuestion(next))
	return b.String()
}

// FormatProgressReport renders the standalone progress summary.
func FormatProgressReport(child *models.ChildContext, progress *models.Progress) string {
	var b strings.Builder
	if child != nil && child.ChildName != "" {
		fmt.Fprintf(&b, "📊 Progresso de %s: %s%%\n", child.ChildName, formatPercent(progress.Percentage))
	} else {
		fmt.Fprintf(&b, "📊 Progresso da jornada: %s%%\n", formatPercent(progress.Percentage))
	}
	if progress.UnansweredCount == 0 {
		b.WriteString("Parabéns! 🎉 Você completou todas as perguntas desta jornada.")
	} else {
		fmt.Fprintf(&b, "Faltam %d pergunta(s). Envie \"oi\" para continuar!", progress.UnansweredCount)
	}
	return b.String()
}

// FormatHelp renders the static help menu.
func FormatHelp() string {
	return "🤖 Eu sou a TitiNauta, sua companheira na jornada do desenvolvimento infantil!\n\n" +
		"Como funciona:\n" +
		"• Envie \"oi\" para receber a próxima pergunta da jornada\n" +
		"• Responda com 1 (Nunca), 2 (Às vezes) ou 3 (Sempre)\n" +
		"• Envie \"progresso\" para ver quanto falta\n" +
		"• Envie \"ajuda\" para ver este menu novamente"
}

// FormatNotFound renders the directive for phone numbers without an Educare account.
func FormatNotFound() string {
	return "Não encontrei uma conta Educare+ com este número de telefone. 😕\n" +
		"Cadastre-se no aplicativo Educare+ usando este mesmo número e me mande um \"oi\" de novo!"
}

// FormatNoActiveChild renders the directive for accounts without an active child profile.
func FormatNoActiveChild() string {
	return "Sua conta ainda não tem uma criança ativa. 😕\n" +
		"Complete o perfil da criança no aplicativo Educare+ e me mande um \"oi\" de novo!"
}

// FormatGenericFailure is the single user-visible message for any contained failure.
func FormatGenericFailure() string {
	return "Ops, algo deu errado por aqui. 😔 Tente novamente em alguns instantes!"
}

// formatPercent renders a percentage without trailing zeros (40, 66.7).
func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
