package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestFromContext_Fallback(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger when none is set")
	}
}

func TestFromContext_RoundTrip(t *testing.T) {
	l := slog.Default().With("request_id", "abc")
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected logger stored in context")
	}
}
