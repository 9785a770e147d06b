package vmlog

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func newTestHandler(buf *bytes.Buffer, level slog.Level) *Handler {
	lv := &slog.LevelVar{}
	lv.Set(level)
	return &Handler{out: buf, mu: new(sync.Mutex), level: lv}
}

func TestEnabledRespectsLevel(t *testing.T) {
	h := newTestHandler(new(bytes.Buffer), slog.LevelInfo)

	if h.Enabled(nil, slog.LevelDebug) {
		t.Errorf("Enabled(Debug) = true, want false below Info")
	}
	if !h.Enabled(nil, slog.LevelInfo) {
		t.Errorf("Enabled(Info) = false, want true at Info")
	}
	if !h.Enabled(nil, slog.LevelError) {
		t.Errorf("Enabled(Error) = false, want true above Info")
	}
}

func TestHandleFormatsLevelMessageAndAttrs(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := slog.New(newTestHandler(buf, slog.LevelDebug))

	logger.Debug("fault resolved", slog.Int("kind", 1), slog.Bool("cow", true))

	out := buf.String()
	if !strings.Contains(out, "fault resolved") {
		t.Errorf("output %q missing message", out)
	}
	if !strings.Contains(out, "kind=1") {
		t.Errorf("output %q missing kind attr", out)
	}
	if !strings.Contains(out, "cow=true") {
		t.Errorf("output %q missing cow attr", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("output %q should end in a newline", out)
	}
}

func TestWithAttrsAppendsToEveryRecord(t *testing.T) {
	buf := new(bytes.Buffer)
	h := newTestHandler(buf, slog.LevelDebug)
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("pid", "7")}))

	logger.Info("region removed")

	out := buf.String()
	if !strings.Contains(out, "pid=7") {
		t.Errorf("output %q missing carried attr", out)
	}
}

func TestWithGroupPrefixesKeys(t *testing.T) {
	buf := new(bytes.Buffer)
	h := newTestHandler(buf, slog.LevelDebug)
	logger := slog.New(h.WithGroup("vm"))

	logger.Info("fault", slog.Uint64("addr", 0x1000))

	out := buf.String()
	if !strings.Contains(out, "vm.addr=4096") {
		t.Errorf("output %q missing grouped attr, want vm.addr=4096", out)
	}
}

func TestWithGroupEmptyNameIsNoop(t *testing.T) {
	h := newTestHandler(new(bytes.Buffer), slog.LevelDebug)
	if h.WithGroup("") != slog.Handler(h) {
		t.Errorf("WithGroup(\"\") should return the same handler")
	}
}
