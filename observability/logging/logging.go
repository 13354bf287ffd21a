package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// renameAttr maps slog's default keys onto the field names the ledger's log
// pipeline expects: timestamp, severity and message.
func renameAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "timestamp"
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "message"
	}
	return attr
}

// Setup installs a JSON slog handler as the process-wide default and returns
// the logger the daemon threads through its components. Every line carries the
// service name, plus the environment when one is configured. The standard
// library logger is redirected through the same handler so third-party
// packages that still call log.Printf end up in the structured stream.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: renameAttr,
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	logger := slog.New(handler).With(args...)
	slog.SetDefault(logger)

	bridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	bridge.SetFlags(0)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return logger
}
