package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one human-readable line per record:
// timestamp, level, optional component prefix, message, optional caller,
// then flattened key=value attributes. A component attribute set through
// NewComponentLogger becomes the message prefix instead of a trailing pair.
type consoleHandler struct {
	out          *lockedWriter
	leveler      *slog.LevelVar
	withSource   bool
	component    string
	prefix       []string
	preformatted []byte
}

// lockedWriter serializes writes from every handler derived off one logger,
// so lines from sibling component loggers never interleave.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func newConsoleHandler(w io.Writer, leveler *slog.LevelVar, withSource bool) *consoleHandler {
	return &consoleHandler{
		out:        &lockedWriter{w: w},
		leveler:    leveler,
		withSource: withSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.leveler.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	buf := linePool.Get().(*bytes.Buffer)
	buf.Reset()
	defer linePool.Put(buf)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(levelTag(record.Level))
	buf.WriteByte(' ')

	component := h.component
	if component == "" {
		record.Attrs(func(a slog.Attr) bool {
			if a.Key == FieldComponent {
				component = a.Value.Resolve().String()
				return false
			}
			return true
		})
	}
	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}

	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}

	if h.withSource {
		if src := shortSource(recordSource(record)); src != "" {
			buf.WriteString(" [")
			buf.WriteString(src)
			buf.WriteByte(']')
		}
	}

	buf.Write(h.preformatted)
	record.Attrs(func(a slog.Attr) bool {
		if len(h.prefix) == 0 && a.Key == FieldComponent {
			return true
		}
		appendAttr(buf, h.prefix, a)
		return true
	})
	buf.WriteByte('\n')

	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.derive()
	buf := bytes.NewBuffer(clone.preformatted)
	for _, a := range attrs {
		if len(clone.prefix) == 0 && a.Key == FieldComponent {
			if clone.component == "" {
				clone.component = a.Value.Resolve().String()
			}
			continue
		}
		appendAttr(buf, clone.prefix, a)
	}
	clone.preformatted = buf.Bytes()
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.derive()
	clone.prefix = append(clone.prefix, name)
	return clone
}

// derive copies the handler for WithAttrs/WithGroup. The writer, and with it
// the write lock, stays shared; prefix and preformatted are copied so the
// parent never observes a child's additions.
func (h *consoleHandler) derive() *consoleHandler {
	clone := *h
	clone.prefix = append([]string(nil), h.prefix...)
	clone.preformatted = append([]byte(nil), h.preformatted...)
	return &clone
}

var linePool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// appendAttr writes one attribute as " key=value", flattening groups into
// dotted keys. Component attributes are handled by the callers; everything
// else renders in encounter order.
func appendAttr(buf *bytes.Buffer, prefix []string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		next := prefix
		if a.Key != "" {
			next = append(append([]string(nil), prefix...), a.Key)
		}
		for _, member := range a.Value.Group() {
			appendAttr(buf, next, member)
		}
		return
	}
	if a.Key == "" {
		return
	}
	buf.WriteByte(' ')
	if len(prefix) > 0 {
		buf.WriteString(strings.Join(prefix, "."))
		buf.WriteByte('.')
	}
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	appendValue(buf, a.Value)
}

func appendValue(buf *bytes.Buffer, v slog.Value) {
	switch v.Kind() {
	case slog.KindString:
		appendText(buf, v.String())
	case slog.KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case slog.KindInt64:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		buf.WriteString(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		buf.WriteString(strconv.FormatFloat(v.Float64(), 'f', -1, 64))
	case slog.KindDuration:
		buf.WriteString(v.Duration().String())
	case slog.KindTime:
		buf.WriteString(v.Time().UTC().Format(time.RFC3339))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			appendText(buf, err.Error())
			return
		}
		appendText(buf, v.String())
	default:
		appendText(buf, v.String())
	}
}

// appendText quotes values that would break the key=value grammar.
func appendText(buf *bytes.Buffer, s string) {
	if s == "" {
		buf.WriteString(`""`)
		return
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			buf.WriteString(strconv.Quote(s))
			return
		}
	}
	buf.WriteString(s)
}

// levelTag returns a fixed-width label so columns line up across levels.
func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
