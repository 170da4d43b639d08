package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/crossbuild/internal/ui/output"
	"go.trai.ch/crossbuild/internal/ui/style"
)

// PrettyHandler is a slog.Handler for terminals. Each record becomes a level mark,
// the message and its attributes as key=value pairs. Every line of a multi-line
// message is colored on its own so CI log viewers keep the color per line.
type PrettyHandler struct {
	out    *termenv.Output
	level  slog.Leveler
	group  string
	preset []string
}

// NewPrettyHandler creates a PrettyHandler writing to w, or stderr when w is nil.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}
	h := &PrettyHandler{out: output.New(w), level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// Enabled reports whether level is at or above the configured minimum.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes one record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	pairs := append([]string(nil), h.preset...)
	r.Attrs(func(a slog.Attr) bool {
		pairs = appendAttr(pairs, h.group, a)
		return true
	})

	text := r.Message
	if mark := levelMark(r.Level); mark != "" {
		text = mark + " " + text
	}
	if len(pairs) > 0 {
		text += " " + strings.Join(pairs, " ")
	}

	color := levelColor(r.Level)
	var b strings.Builder
	for line := range strings.SplitSeq(text, "\n") {
		b.WriteString(h.out.String(line).Foreground(color).String())
		b.WriteByte('\n')
	}
	_, err := h.out.WriteString(b.String())
	return err
}

// WithAttrs returns a handler that prints attrs on every record.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append([]string(nil), h.preset...)
	for _, a := range attrs {
		next.preset = appendAttr(next.preset, h.group, a)
	}
	return &next
}

// WithGroup returns a handler that qualifies later attribute keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = qualify(h.group, name)
	return &next
}

func levelMark(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return style.Cross
	case level >= slog.LevelWarn:
		return style.Warning
	default:
		return ""
	}
}

func levelColor(level slog.Level) termenv.Color {
	switch {
	case level >= slog.LevelError:
		return termenv.RGBColor(string(style.Red))
	case level >= slog.LevelWarn:
		return termenv.RGBColor(string(style.Yellow))
	default:
		return termenv.RGBColor(string(style.Slate))
	}
}

// appendAttr formats a and appends it to pairs. Groups are flattened into
// dotted keys and empty attributes are dropped.
func appendAttr(pairs []string, group string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return pairs
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := qualify(group, a.Key)
		for _, ga := range a.Value.Group() {
			pairs = appendAttr(pairs, inner, ga)
		}
		return pairs
	}

	value := a.Value.String()
	if value == "" || strings.ContainsAny(value, " \t\n\"=") {
		value = strconv.Quote(value)
	}
	return append(pairs, qualify(group, a.Key)+"="+value)
}

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	if key == "" {
		return group
	}
	return group + "." + key
}
