// Package tclog wraps the standard library's log/slog with the three-level
// verbosity scheme of
// original_source/src/testcrush/utils.py's setup_logger/IndentedFormatter,
// following the log/slog idiom already used in
// _examples/ja7ad-consumption/cmd/consumption/main.go rather than
// introducing a third-party logging package.
package tclog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below slog.LevelDebug, mirroring the custom TRACE level
// the Python original registers below DEBUG.
const LevelTrace = slog.Level(-8)

// LevelFromVerbosity maps a counted -v flag (0, 1, 2, ...) onto a slog
// level: 0=INFO, 1=DEBUG, 2 or more=TRACE.
func LevelFromVerbosity(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelInfo
	case v == 1:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// New builds a logger writing plain level/message pairs to stdout, and
// additionally — when logFile is non-empty — an indented,
// level-and-timestamp-prefixed record to logFile, mirroring the two handlers
// setup_logger attaches to the Python logger.
func New(verbosity int, logFile string) (*slog.Logger, func() error, error) {
	level := LevelFromVerbosity(verbosity)

	stdoutHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})

	closer := func() error { return nil }
	var handler slog.Handler = stdoutHandler

	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("tclog: opening logfile: %w", err)
		}
		indented := &indentedHandler{
			w:     f,
			level: level,
		}
		handler = &fanOutHandler{handlers: []slog.Handler{stdoutHandler, indented}}
		closer = f.Close
	}

	return slog.New(handler), closer, nil
}

// fanOutHandler dispatches every record to each wrapped handler, mirroring
// the Python logger's multiple-handlers-on-one-logger arrangement.
type fanOutHandler struct {
	handlers []slog.Handler
}

func (f *fanOutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanOutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fanOutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanOutHandler{handlers: next}
}

func (f *fanOutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanOutHandler{handlers: next}
}

// indentedHandler formats records as "[LEVEL] @ <timestamp>" followed by
// the message body with continuation lines prefixed by "\n>\t", mirroring
// IndentedFormatter.format.
type indentedHandler struct {
	w     interface{ Write([]byte) (int, error) }
	level slog.Level
	attrs []slog.Attr
	group string
}

func (h *indentedHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *indentedHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] @ %s\n", r.Level.String(), r.Time.Format("2006-01-02T15:04:05"))
	body := r.Message
	for _, attr := range h.attrs {
		body += " " + attr.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		body += " " + a.String()
		return true
	})
	indented := strings.ReplaceAll(body, "\n", "\n>\t")
	b.WriteString(indented)
	b.WriteString("\n")
	_, err := h.w.Write([]byte(b.String()))
	return err
}

func (h *indentedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *indentedHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.group = name
	return &next
}
