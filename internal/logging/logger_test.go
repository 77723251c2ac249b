package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestErrorAddsErrorField(t *testing.T) {
	f := Fields{"k": "v"}
	Error("boom", errors.New("bad"), f)
	if f["error"] != "bad" {
		t.Fatalf("expected error field to be set, got %v", f["error"])
	}
}

func TestSetLevel_FiltersDebug(t *testing.T) {
	SetLevel("warn")
	defer SetLevel("info")
	if logger.Load().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug should be disabled at warn level")
	}
}
