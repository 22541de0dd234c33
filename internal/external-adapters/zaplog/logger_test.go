package zaplog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ochairo/roaster/internal/domain/interfaces"
)

func TestLogger_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := Wrap(zap.New(core))

	logger.Debug("hidden")
	logger.Info("scan finished", interfaces.F("findings", 3))
	logger.With(interfaces.F("scan_id", "abc")).Warn("scanner failed", interfaces.F("scanner", "semgrep"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (debug filtered)", len(entries))
	}

	if entries[0].Message != "scan finished" || entries[0].ContextMap()["findings"] != int64(3) {
		t.Errorf("unexpected entry %+v", entries[0].ContextMap())
	}

	ctx := entries[1].ContextMap()
	if entries[1].Level != zapcore.WarnLevel || ctx["scan_id"] != "abc" || ctx["scanner"] != "semgrep" {
		t.Errorf("child logger lost fields: %+v", ctx)
	}
}

func TestLogger_ErrorField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := Wrap(zap.New(core))

	logger.Error("cleanup failed", interfaces.Err(nil))

	if got := logs.FilterMessage("cleanup failed").Len(); got != 1 {
		t.Fatalf("got %d entries", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "INFO", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: "Warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "verbose", want: zapcore.InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, err := New(false, "nope"); err == nil {
		t.Error("invalid level should fail")
	}
	logger, err := New(true, "debug")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var _ interfaces.Logger = logger
}
