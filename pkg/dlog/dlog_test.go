package dlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestLoggerFallsBackToDefaultWhenNoneStored(t *testing.T) {
	got := Logger(context.Background())
	if got != slog.Default() {
		t.Error("expected Logger to fall back to slog.Default()")
	}
}

func TestLoggerReturnsNilContextDefault(t *testing.T) {
	got := Logger(nil)
	if got != slog.Default() {
		t.Error("expected Logger(nil) to fall back to slog.Default()")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), l)
	got := Logger(ctx)
	if got != l {
		t.Error("expected Logger to return the exact logger stored via WithLogger")
	}
}

func TestWithLoggerIgnoresNil(t *testing.T) {
	ctx := WithLogger(context.Background(), nil)
	if Logger(ctx) != slog.Default() {
		t.Error("expected WithLogger(nil) to leave the context unchanged")
	}
}

func TestWithAttrsAddsAttributesToLoggedOutput(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), l)

	ctx = WithAttrs(ctx, slog.String("section", "sec-1"))
	Logger(ctx).Info("hello")

	if !bytes.Contains(buf.Bytes(), []byte("section=sec-1")) {
		t.Errorf("expected logged output to contain section=sec-1, got %q", buf.String())
	}
}

func TestWithKVAddsKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), l)

	ctx = WithKV(ctx, "docID", "doc-42")
	Logger(ctx).Info("opened")

	if !bytes.Contains(buf.Bytes(), []byte("docID=doc-42")) {
		t.Errorf("expected logged output to contain docID=doc-42, got %q", buf.String())
	}
}

func TestNopDiscardsOutput(t *testing.T) {
	l := Nop()
	if l == nil {
		t.Fatal("Nop() returned nil")
	}
	l.Info("should not be observable anywhere")
}
