// Package vmlog provides the structured logging used by the VM core to
// trace resolved faults (including whether the page is still copy-on-write)
// without disturbing the hot-path return values.
//
// (Exists, like its model, partly as an exercise in writing a slog.Handler.)
package vmlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	// Default builds a new logger writing to stderr at the package Level.
	// Components fetch one at construction time and cache the result.
	Default = func() *slog.Logger { return New(os.Stderr) }

	// Level controls the minimum level the default handler emits. It can
	// be changed at runtime.
	Level = &slog.LevelVar{}
)

// New builds a logger that writes aligned, human-readable records to out.
func New(out io.Writer) *slog.Logger {
	return slog.New(NewHandler(out))
}

// Handler implements slog.Handler, formatting each record as one line: the
// level right-aligned in six columns, the message, then " key=value" pairs
// with lowercased keys.
type Handler struct {
	mu  *sync.Mutex
	out io.Writer

	level *slog.LevelVar
	attrs []slog.Attr
	group string
}

// NewHandler builds a Handler writing to out at the package Level.
func NewHandler(out io.Writer) *Handler {
	return &Handler{out: out, mu: new(sync.Mutex), level: Level}
}

// Enabled reports whether level is at or above the handler's configured level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a single log record.
func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	buf := bytes.NewBuffer(make([]byte, 0, 256))

	fmt.Fprintf(buf, "%6s %s", rec.Level.String(), rec.Message)

	for _, a := range h.attrs {
		h.writeAttr(buf, a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf, a)
		return true
	})
	fmt.Fprintln(buf)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *Handler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	fmt.Fprintf(buf, " %s=%v", strings.ToLower(key), a.Value.Any())
}

// WithAttrs returns a handler that also emits the supplied attrs.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{out: h.out, mu: h.mu, level: h.level, attrs: merged, group: h.group}
}

// WithGroup returns a handler that prefixes subsequent attr keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{out: h.out, mu: h.mu, level: h.level, attrs: h.attrs, group: name}
}
