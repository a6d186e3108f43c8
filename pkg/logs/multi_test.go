package logs

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}}

	logger := slog.New(h).With(slog.String("service", "dhwani_backend"))
	logger.Info("payout processed", slog.String("payout_id", "abc"))

	for name, buf := range map[string]*bytes.Buffer{"text": &a, "json": &b} {
		out := buf.String()
		if !strings.Contains(out, "payout processed") {
			t.Errorf("%s handler missing message, got %q", name, out)
		}
		if !strings.Contains(out, "payout_id") {
			t.Errorf("%s handler missing attr, got %q", name, out)
		}
	}
}

func TestMultiHandlerRespectsLevels(t *testing.T) {
	var debugOut, warnOut bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugOut, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnOut, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(debug) = false, want true while any handler accepts it")
	}

	slog.New(h).Debug("verbose detail")

	if !strings.Contains(debugOut.String(), "verbose detail") {
		t.Error("debug handler did not receive debug record")
	}
	if warnOut.Len() != 0 {
		t.Errorf("warn handler received debug record: %q", warnOut.String())
	}
}

func TestMultiHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := (&multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}}).WithGroup("payment")

	slog.New(h).Info("completed", slog.String("order_id", "order_x"))

	if !strings.Contains(buf.String(), `"payment"`) {
		t.Errorf("group not applied, got %q", buf.String())
	}
}
