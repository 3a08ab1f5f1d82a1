package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/sprig/internal/ui/output"
	"go.trai.ch/sprig/internal/ui/style"
)

// Attribute keys with their own rendering.
const (
	packageKey = "package"
	hashKey    = "hash"
	hashWidth  = 7
)

// PrettyHandler is a slog.Handler for terminals. A top level "package"
// attribute becomes a [name] label in front of the message, the way build
// lines are labelled, and hashes are shortened.
type PrettyHandler struct {
	out    *termenv.Output
	level  slog.Leveler
	label  string
	attrs  []string
	groups []string
}

// NewPrettyHandler creates a new PrettyHandler writing to w.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.LevelInfo)
	if opts != nil && opts.Level != nil {
		levelVar.Set(opts.Level.Level())
	}

	return &PrettyHandler{
		out:   output.New(w),
		level: levelVar,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	label := h.label
	parts := make([]string, 0, len(h.attrs)+r.NumAttrs())
	parts = append(parts, h.attrs...)
	r.Attrs(func(attr slog.Attr) bool {
		if l, ok := h.labelOf(attr); ok {
			label = l
			return true
		}
		parts = h.appendAttr(parts, attr)
		return true
	})

	msg := r.Message
	if label != "" {
		msg = "[" + label + "] " + msg
	}
	var color lipgloss.Color
	switch {
	case r.Level >= slog.LevelError:
		msg = style.Cross + " " + msg
		color = style.Red
	case r.Level >= slog.LevelWarn:
		msg = style.Warning + " " + msg
		color = style.Yellow
	default:
		color = style.Slate
	}
	if len(parts) > 0 {
		msg += " " + strings.Join(parts, " ")
	}

	_, err := h.out.WriteString(output.Paint(h.out, msg, color) + "\n")
	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, attr := range attrs {
		if l, ok := h.labelOf(attr); ok {
			next.label = l
			continue
		}
		next.attrs = h.appendAttr(next.attrs, attr)
	}
	return next
}

// WithGroup returns a new Handler that nests later attributes under name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *PrettyHandler) clone() *PrettyHandler {
	return &PrettyHandler{
		out:    h.out,
		level:  h.level,
		label:  h.label,
		attrs:  append([]string(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *PrettyHandler) labelOf(attr slog.Attr) (string, bool) {
	if len(h.groups) > 0 || attr.Key != packageKey {
		return "", false
	}
	return attr.Value.String(), true
}

func (h *PrettyHandler) appendAttr(parts []string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return parts
	}
	if attr.Value.Kind() == slog.KindGroup {
		sub := h
		if attr.Key != "" {
			sub = &PrettyHandler{groups: append(append([]string(nil), h.groups...), attr.Key)}
		}
		for _, a := range attr.Value.Group() {
			parts = sub.appendAttr(parts, a)
		}
		return parts
	}
	key := strings.Join(append(append([]string(nil), h.groups...), attr.Key), ".")
	return append(parts, key+"="+formatValue(attr))
}

func formatValue(attr slog.Attr) string {
	v := attr.Value.String()
	if attr.Key == hashKey && len(v) > hashWidth {
		v = v[:hashWidth]
	}
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		return strconv.Quote(v)
	}
	return v
}
