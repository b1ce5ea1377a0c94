package utils

import (
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger installs a tint handler as the slog default and returns it.
// When debugLog is not nil every record down to debug level is also written there, uncoloured.
func SetupLogger(w io.Writer, level string, noColor bool, debugLog io.Writer) *slog.Logger {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		log.Printf("encountered log level: '%s'. The package does not support custom log levels", level)
		slogLevel = slog.LevelInfo
	}

	replaceAttrs := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			if source, ok := a.Value.Any().(*slog.Source); ok {
				source.File = filepath.Base(source.File)
			}
		}
		return a
	}

	var handler slog.Handler = tint.NewHandler(w, &tint.Options{
		AddSource:   true,
		Level:       slogLevel,
		ReplaceAttr: replaceAttrs,
		NoColor:     noColor,
	})
	if debugLog != nil {
		handler = slogmulti.Fanout(handler, tint.NewHandler(debugLog, &tint.Options{
			AddSource:   true,
			Level:       slog.LevelDebug,
			ReplaceAttr: replaceAttrs,
			NoColor:     true,
		}))
	}

	logger := slog.New(handler)

	slog.SetDefault(logger)
	logger.Debug("debug messages are enabled")

	return logger
}
