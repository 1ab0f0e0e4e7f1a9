package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// newJSONHandler wraps the stdlib JSON handler with the log schema used by
// every line-oriented consumer of the log file: ts/level/msg core keys,
// lowercase level names, and caller trimmed to basename:line.
func newJSONHandler(w io.Writer, leveler *slog.LevelVar, withSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       leveler,
		AddSource:   withSource,
		ReplaceAttr: renameCoreKeys,
	})
}

func renameCoreKeys(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		attr.Key = "level"
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "msg"
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok {
			attr.Value = slog.StringValue(shortSource(src))
		}
	}
	return attr
}
