package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process and returns the root logger.
// format is "console" or "json".
func Setup(level, format string) (zerolog.Logger, error) {
	return SetupWithWriter(level, format, os.Stderr)
}

// SetupWithWriter is Setup writing to w.
func SetupWithWriter(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var writer io.Writer
	switch format {
	case "", "console":
		writer = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	case "json":
		writer = w
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger, nil
}
