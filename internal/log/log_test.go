package log

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tc := range tests {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestInitReplacesGlobal(t *testing.T) {
	if err := Init("debug"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled after Init(\"debug\")")
	}
	if S() == nil {
		t.Error("S() returned nil")
	}
	if Named("camera") == nil {
		t.Error("Named returned nil")
	}
}
