package models

import (
	"errors"
	"testing"
)

func TestQuestionRefRoundTrip(t *testing.T) {
	tests := []QuestionRef{
		{Source: QuestionSourceLegacy, ID: "42"},
		{Source: QuestionSourceV2, ID: "abc-123"},
	}
	for _, ref := range tests {
		parsed, err := ParseQuestionRef(ref.String())
		if err != nil {
			t.Fatalf("ParseQuestionRef(%q) failed: %v", ref.String(), err)
		}
		if parsed != ref {
			t.Errorf("ParseQuestionRef(%q) = %+v, want %+v", ref.String(), parsed, ref)
		}
	}
}

func TestParseQuestionRefBareID(t *testing.T) {
	ref, err := ParseQuestionRef("1234")
	if err != nil {
		t.Fatalf("ParseQuestionRef failed: %v", err)
	}
	if ref.Source != QuestionSourceLegacy || ref.ID != "1234" {
		t.Errorf("bare id parsed as %+v, want legacy:1234", ref)
	}
}

func TestParseQuestionRefEmpty(t *testing.T) {
	ref, err := ParseQuestionRef("")
	if err != nil {
		t.Fatalf("ParseQuestionRef(\"\") failed: %v", err)
	}
	if !ref.IsZero() {
		t.Errorf("ParseQuestionRef(\"\") = %+v, want zero ref", ref)
	}
}

func TestParseQuestionRefInvalid(t *testing.T) {
	for _, s := range []string{"v2:", "legacy:", "banana:42"} {
		if _, err := ParseQuestionRef(s); err == nil {
			t.Errorf("ParseQuestionRef(%q) succeeded, want error", s)
		}
	}
}

func TestQuestionRefIsZero(t *testing.T) {
	if !(QuestionRef{}).IsZero() {
		t.Error("zero QuestionRef not reported as zero")
	}
	if (QuestionRef{Source: QuestionSourceV2, ID: "1"}).IsZero() {
		t.Error("populated QuestionRef reported as zero")
	}
}

func TestIsValidConversationState(t *testing.T) {
	valid := []ConversationState{
		StateEntry, StateAwaitingUserLookup, StateAwaitingChildLookup, StateAwaitingQuestion,
		StateQuestionPosed, StateAnswerSubmitted, StateHelp, StateProgressReport, StateUserNotFound,
	}
	for _, s := range valid {
		if !IsValidConversationState(s) {
			t.Errorf("IsValidConversationState(%q) = false, want true", s)
		}
	}
	for _, s := range []ConversationState{"", "BOGUS", "entry"} {
		if IsValidConversationState(s) {
			t.Errorf("IsValidConversationState(%q) = true, want false", s)
		}
	}
}

func TestWebhookMessageValidate(t *testing.T) {
	msg := WebhookMessage{SenderPhone: "+5511999998888", MessageBody: "oi"}
	if err := msg.Validate(); err != nil {
		t.Errorf("valid message rejected: %v", err)
	}

	msg = WebhookMessage{SenderPhone: "   ", MessageBody: "oi"}
	if err := msg.Validate(); !errors.Is(err, ErrEmptyPhoneNumber) {
		t.Errorf("blank phone: got %v, want ErrEmptyPhoneNumber", err)
	}

	msg = WebhookMessage{SenderPhone: "+5511999998888"}
	if err := msg.Validate(); !errors.Is(err, ErrEmptyMessageBody) {
		t.Errorf("empty body: got %v, want ErrEmptyMessageBody", err)
	}
}

func TestAPIResponseHelpers(t *testing.T) {
	resp := Success(map[string]int{"n": 1})
	if resp.Status != string(APIStatusOK) {
		t.Errorf("Success status = %q, want %q", resp.Status, APIStatusOK)
	}
	if resp.Result == nil {
		t.Error("Success dropped the result payload")
	}

	resp = Error("boom")
	if resp.Status != string(APIStatusError) || resp.Message != "boom" {
		t.Errorf("Error response = %+v", resp)
	}

	resp = SuccessWithMessage("ok", nil)
	if resp.Status != string(APIStatusOK) || resp.Message != "ok" {
		t.Errorf("SuccessWithMessage response = %+v", resp)
	}
}
