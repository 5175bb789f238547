// Package logging builds the process-wide slog logger for the texpreview
// commands: a compact console format for interactive use and JSON for
// services.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-texpreview/internal/compile/configuration"
)

// Format selects the handler used by New.
type Format int

const (
	// FormatText renders one terse line per record.
	FormatText Format = iota
	// FormatJSON renders records with slog's JSON handler.
	FormatJSON
)

// ErrUnknownLevel and ErrUnknownFormat are returned by the parsers.
var (
	ErrUnknownLevel  = errors.New("unknown log level")
	ErrUnknownFormat = errors.New("unknown log format")
)

// componentKey is rendered as a bracketed prefix by the text handler.
const componentKey = "component"

// New returns a logger writing to w. A nil level means info.
func New(format Format, w io.Writer, level slog.Leveler) *slog.Logger {
	if w == nil {
		panic("logging: writer must not be nil")
	}
	if level == nil {
		level = slog.LevelInfo
	}

	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&textHandler{out: &lockedWriter{w: w}, level: level})
}

// FromConfig builds a logger from the observability section. The returned
// LevelVar lets a command flag raise or lower the level afterwards.
func FromConfig(cfg configuration.ObservabilityConfig, w io.Writer) (*slog.Logger, *slog.LevelVar, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	format, err := ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	var lv slog.LevelVar
	lv.Set(level)
	return New(format, w, &lv), &lv, nil
}

// Ensure returns logger, or the process default when logger is nil.
func Ensure(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// ParseLevel accepts debug, info, warn (or warning) and error. Blank means info.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w %q", ErrUnknownLevel, value)
	}
}

// ParseFormat accepts text and json. Blank means text.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "text", "cli":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("%w %q", ErrUnknownFormat, value)
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := io.WriteString(l.w, line)
	return err
}

// textHandler writes "LEVEL 15:04:05.000 [component] message key=value".
// Handlers derived through WithAttrs share the writer lock.
type textHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	component string
	prefix    string
	groups    []string
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(levelLabel(r.Level))
	b.WriteByte(' ')
	b.WriteString(ts.Format("15:04:05.000"))
	b.WriteByte(' ')

	component := h.component
	var attrs strings.Builder
	attrs.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		if len(h.groups) == 0 && a.Key == componentKey {
			component = a.Value.String()
			return true
		}
		writeAttr(&attrs, h.groups, a)
		return true
	})

	if component != "" {
		b.WriteByte('[')
		b.WriteString(component)
		b.WriteString("] ")
	}
	b.WriteString(r.Message)
	b.WriteString(attrs.String())
	b.WriteByte('\n')

	return h.out.write(b.String())
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.groups = append([]string(nil), h.groups...)

	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		if len(h.groups) == 0 && a.Key == componentKey {
			next.component = a.Value.String()
			continue
		}
		writeAttr(&b, h.groups, a)
	}
	next.prefix = b.String()
	return &next
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

func levelLabel(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func writeAttr(b *strings.Builder, groups []string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		nested := groups
		if a.Key != "" {
			nested = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range v.Group() {
			writeAttr(b, nested, ga)
		}
		return
	}
	if a.Equal(slog.Attr{}) {
		return
	}

	b.WriteByte(' ')
	for _, g := range groups {
		b.WriteString(g)
		b.WriteByte('.')
	}
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(v))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok && err != nil {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
