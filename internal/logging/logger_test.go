package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewComponentLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(slog.LevelDebug, "text", &buf)

	log := NewComponentLogger("router")
	log.Info("routing %s", "request")

	out := buf.String()
	if !strings.Contains(out, "component=router") {
		t.Fatalf("expected component=router in output, got: %s", out)
	}
	if !strings.Contains(out, "routing request") {
		t.Fatalf("expected formatted message in output, got: %s", out)
	}
}

func TestConfigureJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Configure(slog.LevelInfo, "json", &buf)

	log := NewComponentLogger("planner")
	log.Warn("retrying step %d", 3)

	out := buf.String()
	if !strings.Contains(out, `"component":"planner"`) {
		t.Fatalf("expected JSON component field, got: %s", out)
	}
	if !strings.Contains(out, "retrying step 3") {
		t.Fatalf("expected formatted message, got: %s", out)
	}
}

func TestLevelFilteringSuppressesBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	Configure(slog.LevelWarn, "text", &buf)

	log := NewComponentLogger("classifier")
	log.Debug("should not appear")
	log.Info("should not appear either")
	log.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("expected debug/info to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("expected warn message to be logged, got: %s", out)
	}
}

func TestWithAppendsComponentPath(t *testing.T) {
	var buf bytes.Buffer
	Configure(slog.LevelDebug, "text", &buf)

	log := NewComponentLogger("orchestrator").With("fast")
	log.Info("dispatching")

	out := buf.String()
	if !strings.Contains(out, "component=orchestrator.fast") {
		t.Fatalf("expected nested component path, got: %s", out)
	}
}

func TestIsNilDetectsTypedNilPointer(t *testing.T) {
	var cl *componentLogger
	var log Logger = cl

	if log == nil {
		t.Fatal("expected interface holding a typed-nil pointer to be non-nil itself")
	}
	if !IsNil(log) {
		t.Fatal("expected IsNil to detect the typed-nil pointer")
	}
	if IsNil(nil) != true {
		t.Fatal("expected IsNil(nil) to be true")
	}
}

func TestOrNopReturnsLoggerWhenSet(t *testing.T) {
	log := NewComponentLogger("tool")
	if OrNop(log) != log {
		t.Fatal("expected OrNop to pass through a non-nil logger unchanged")
	}
}

func TestOrNopReturnsNoopForNil(t *testing.T) {
	got := OrNop(nil)
	if _, ok := got.(NoopLogger); !ok {
		t.Fatalf("expected NoopLogger fallback, got %T", got)
	}

	var cl *componentLogger
	got = OrNop(cl)
	if _, ok := got.(NoopLogger); !ok {
		t.Fatalf("expected NoopLogger fallback for typed-nil pointer, got %T", got)
	}
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	var log Logger = NoopLogger{}
	log.Debug("x")
	log.Info("x")
	log.Warn("x")
	log.Error("x")
	if log.With("child") == nil {
		t.Fatal("expected With on NoopLogger to return a non-nil Logger")
	}
}
