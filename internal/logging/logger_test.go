package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"chorus/internal/logging"
	"chorus/internal/services"
)

func TestNewJSONLoggerWrites(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", logging.String("k", "v"))
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Fatalf("expected structured field in output, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsRunAndStage(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithRunID(context.Background(), "run-7")
	ctx = services.WithStage(ctx, "fetch-lyrics")
	logging.WithContext(ctx, logger).Info("event")
	out := buf.String()
	if !strings.Contains(out, "run-7") || !strings.Contains(out, "fetch-lyrics") {
		t.Fatalf("expected run and stage fields, got %q", out)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("ignored")
}
