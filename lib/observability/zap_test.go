package observability

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Debug("dropped")
	logger.Warn("api returned errMsg", Field{Key: "cmd", Value: "getOPQ"}, Field{Key: "cause", Value: errors.New("bad")})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel || entry.Message != "api returned errMsg" {
		t.Fatalf("unexpected entry %+v", entry.Entry)
	}
	ctx := entry.ContextMap()
	if ctx["cmd"] != "getOPQ" {
		t.Fatalf("expected cmd field, got %v", ctx)
	}
	if ctx["cause"] != "bad" {
		t.Fatalf("expected error field, got %v", ctx)
	}
}

func TestNewZapLoggerNil(t *testing.T) {
	logger := NewZapLogger(nil)
	logger.Info("noop")
	SetLogger(logger)
	defer SetLogger(nil)
	Log().Error("still noop")
}

func TestNewLoggerFormats(t *testing.T) {
	for _, format := range []string{"std", "zap", "none", ""} {
		logger, err := NewLogger(format, "warn")
		if err != nil || logger == nil {
			t.Fatalf("NewLogger(%q) failed: %v", format, err)
		}
	}
	if _, err := NewLogger("xml", "info"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if zapLevel(LevelError) != zapcore.ErrorLevel {
		t.Fatalf("unexpected zap level mapping")
	}
}
