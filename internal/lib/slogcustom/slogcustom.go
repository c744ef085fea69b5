package slogcustom

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"

	"github.com/fatih/color"
)

// ColorHandler renders records as single coloured lines for terminals.
type ColorHandler struct {
	l      *log.Logger
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

func NewColorHandler(out io.Writer, level slog.Leveler) *ColorHandler {
	return &ColorHandler{
		l:     log.New(out, "", 0),
		level: level,
	}
}

func (c *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch {
	case r.Level >= slog.LevelError:
		level = color.RedString(level)
	case r.Level >= slog.LevelWarn:
		level = color.YellowString(level)
	case r.Level >= slog.LevelInfo:
		level = color.HiBlueString(level)
	default:
		level = color.MagentaString(level)
	}

	var b strings.Builder
	for _, a := range c.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, c.prefix, a)
		return true
	})

	c.l.Println(
		r.Time.Format("15:04:05.000"),
		level,
		r.Message,
		strings.TrimSpace(b.String()),
	)
	return nil
}

func (c *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *c
	next.attrs = make([]slog.Attr, 0, len(c.attrs)+len(attrs))
	next.attrs = append(next.attrs, c.attrs...)
	for _, a := range attrs {
		a.Key = c.prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (c *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}
	next := *c
	next.prefix = c.prefix + name + "."
	return &next
}

func (c *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= c.level.Level()
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, prefix+a.Key+".", ga)
		}
		return
	}
	b.WriteString(color.GreenString(prefix + a.Key))
	b.WriteByte('=')
	b.WriteString(fmt.Sprint(a.Value.Any()))
	b.WriteByte(' ')
}
