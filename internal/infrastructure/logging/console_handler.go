package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// ConsoleHandler is a slog.Handler for interactive use:
// [LEVEL] [system] HH:MM:SS message key=value key=value
//
// Colors are enabled only when writing to a terminal. The "system" attribute
// is promoted into its own bracket instead of being printed as a key=value
// pair, so scoped loggers read like subsystem prefixes.
type ConsoleHandler struct {
	w      io.Writer
	level  slog.Level
	mu     *sync.Mutex
	system string
	color  bool
	attrs  []slog.Attr
}

// NewConsoleHandler creates a console handler writing to w.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{
		w:     w,
		level: slog.LevelInfo,
		mu:    &sync.Mutex{},
		color: isTerminal(w),
	}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level.Level()
	}
	return h
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	h.paint(&buf, levelColor(r.Level), "["+levelName(r.Level)+"]")

	if h.system != "" {
		buf.WriteString(" [")
		buf.WriteString(h.system)
		buf.WriteString("]")
	}

	h.paint(&buf, ansiGray, " "+r.Time.Format("15:04:05"))

	buf.WriteString(" ")
	buf.WriteString(r.Message)

	for _, attr := range h.attrs {
		h.appendAttr(&buf, attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&buf, a)
		return true
	})

	buf.WriteString("\n")

	_, err := io.WriteString(h.w, buf.String())
	return err
}

// paint writes s wrapped in the given color when color output is on.
func (h *ConsoleHandler) paint(buf *strings.Builder, color, s string) {
	if h.color {
		buf.WriteString(color)
	}
	buf.WriteString(s)
	if h.color {
		buf.WriteString(ansiReset)
	}
}

func (h *ConsoleHandler) appendAttr(buf *strings.Builder, a slog.Attr) {
	// system is already shown as a bracket prefix
	if a.Key == "system" {
		return
	}
	buf.WriteString(" ")
	buf.WriteString(a.Key)
	buf.WriteString("=")
	buf.WriteString(fmt.Sprint(a.Value.Any()))
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)

	system := h.system
	for _, attr := range attrs {
		if attr.Key == "system" {
			system = attr.Value.String()
		}
	}

	clone := *h
	clone.system = system
	clone.attrs = merged
	return &clone
}

func (h *ConsoleHandler) WithGroup(_ string) slog.Handler {
	// Groups are not rendered in console output.
	return h
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiCyan
	default:
		return ansiGray
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
