package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevelHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	Debug("a=", 1)
	Info("b")
	Warn("c")
	Error("d")

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	// 메시지 본문은 레벨별 키에 들어간다
	if got := entries[0].ContextMap()["Debug"]; got != "a=1" {
		t.Errorf("unexpected debug body: %v", got)
	}
	if got := entries[3].ContextMap()["Err"]; got != "d" {
		t.Errorf("unexpected error body: %v", got)
	}
}

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	With(zap.String("address", "1abc")).Info("metadata stored")

	entries := logs.FilterField(zap.String("address", "1abc")).All()
	if len(entries) != 1 || entries[0].Message != "metadata stored" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
