package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"OFF", true, false},
		{"", true, true},
		{"", false, false},
		{"banana", true, true},
		{"banana", false, false},
		{"  true  ", false, true},
	}
	for _, tt := range tests {
		t.Setenv("TITINAUTA_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("TITINAUTA_TEST_BOOL", tt.def); got != tt.expected {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{"10s", time.Second, 10 * time.Second},
		{"1m30s", time.Second, 90 * time.Second},
		{"  5s  ", time.Second, 5 * time.Second},
		{"", 10 * time.Second, 10 * time.Second},
		{"banana", 10 * time.Second, 10 * time.Second},
		{"10", 10 * time.Second, 10 * time.Second}, // missing unit is invalid
	}
	for _, tt := range tests {
		t.Setenv("TITINAUTA_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("TITINAUTA_TEST_DURATION", tt.def); got != tt.expected {
			t.Errorf("ParseDurationEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
		}
	}
}
