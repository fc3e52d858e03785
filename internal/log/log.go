// Package log configures the host's structured logger.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing compact single-line records to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(w, level))
}

// Handler is a compact slog handler: timestamp, level, message, key=value
// pairs. One line per record. All handlers derived via WithAttrs share one
// mutex so their writes never interleave.
type Handler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
}

// NewHandler creates a Handler writing to w at the given level.
func NewHandler(w io.Writer, level slog.Level) *Handler {
	return &Handler{mu: &sync.Mutex{}, w: w, level: level}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)

	for _, attr := range h.attrs {
		writeAttr(&b, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		writeAttr(&b, attr)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func writeAttr(b *strings.Builder, attr slog.Attr) {
	b.WriteByte(' ')
	b.WriteString(attr.Key)
	b.WriteByte('=')
	fmt.Fprintf(b, "%v", attr.Value.Any())
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &Handler{mu: h.mu, w: h.w, level: h.level}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

// WithGroup implements slog.Handler. Groups are flattened; the host's
// records are shallow.
func (h *Handler) WithGroup(name string) slog.Handler {
	return h
}
