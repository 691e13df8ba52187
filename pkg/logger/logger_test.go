package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func capture(opts Options) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	opts.ServiceName = "test"
	opts.Output = buf
	return New(opts), buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("decode %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestContextFieldsReachNestedCalls(t *testing.T) {
	log, buf := capture(Options{Level: zerolog.DebugLevel})
	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithCorrelationID(ctx, "CART-7-abc")
	inner := log.WithActor(ctx, "clerk-1")

	log.Error(inner, "reserve failed", errors.New("boom"))
	entry := lastEntry(t, buf)
	for key, want := range map[string]any{
		"request_id": "req-123", "correlation_id": "CART-7-abc", "actor": "clerk-1",
		"service": "test", "error": "boom", "level": "error",
	} {
		if entry[key] != want {
			t.Fatalf("%s = %v, want %v (entry %v)", key, entry[key], want, entry)
		}
	}
	if _, ok := entry["stack"]; !ok {
		t.Fatalf("error entry has no stack")
	}

	log.Info(ctx, "outer")
	if _, leaked := lastEntry(t, buf)["actor"]; leaked {
		t.Fatalf("child field leaked into parent context")
	}
}

func TestWarnStackIsOptIn(t *testing.T) {
	plain, buf := capture(Options{})
	plain.Warn(context.Background(), "slow")
	if _, ok := lastEntry(t, buf)["stack"]; ok {
		t.Fatalf("stack without WarnStack")
	}

	stacked, buf := capture(Options{WarnStack: true})
	stacked.Warn(context.Background(), "slow")
	if _, ok := lastEntry(t, buf)["stack"]; !ok {
		t.Fatalf("expected stack with WarnStack")
	}
}

func TestLevelFiltersAndConsoleFormat(t *testing.T) {
	quiet, buf := capture(Options{Level: zerolog.WarnLevel})
	quiet.Info(context.Background(), "quiet")
	quiet.Debug(context.Background(), "quieter")
	if buf.Len() != 0 {
		t.Fatalf("expected info and debug filtered, got %s", buf.String())
	}

	console, buf := capture(Options{Format: "CONSOLE"})
	console.Info(console.WithField(context.Background(), "unit_id", 42), "unit reserved")
	out := strings.TrimSpace(buf.String())
	if strings.HasPrefix(out, "{") || !strings.Contains(out, "unit reserved") {
		t.Fatalf("expected console output, got %s", out)
	}
}

func TestWithFieldsSortsKeys(t *testing.T) {
	log, buf := capture(Options{})
	log.Info(log.WithFields(context.TODO(), map[string]any{"variant_id": "v", "channel": "CART"}), "reserve")
	line := buf.String()
	if strings.Index(line, `"channel"`) > strings.Index(line, `"variant_id"`) {
		t.Fatalf("expected sorted field order: %s", line)
	}
}

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"invalid": zerolog.InfoLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
	} {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
