package messaging

import (
	"context"
	"testing"

	"github.com/educareplus/titinauta/internal/models"
	"github.com/educareplus/titinauta/internal/whatsapp"
)

func TestCanonicalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+55 (11) 99999-8888", "5511999998888", false},
		{"whatsapp:+5511999998888", "5511999998888", false},
		{"5511999998888", "5511999998888", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true}, // below minimum digit count
	}
	for _, tt := range tests {
		got, err := canonicalizePhone(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("canonicalizePhone(%q) succeeded with %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("canonicalizePhone(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("canonicalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWhatsAppServiceSendMessageEmitsReceipt(t *testing.T) {
	mock := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mock)

	if err := svc.SendMessage(context.Background(), "5511999998888", "oi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if len(mock.SentMessages) != 1 {
		t.Fatalf("mock recorded %d messages, want 1", len(mock.SentMessages))
	}

	select {
	case receipt := <-svc.Receipts():
		if receipt.To != "5511999998888" || receipt.Status != models.MessageStatusSent {
			t.Errorf("receipt = %+v", receipt)
		}
	default:
		t.Fatal("no sent receipt emitted")
	}
}

func TestWhatsAppServiceStartWithMockSkipsEventHandling(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Channels are closed after Stop.
	if _, ok := <-svc.Responses(); ok {
		t.Error("responses channel still open after Stop")
	}
}
