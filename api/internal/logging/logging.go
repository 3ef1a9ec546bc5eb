package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. format is "json" (default) or
// "console".
func Init(level, format string) error {
	return InitTo(os.Stderr, level, format)
}

func InitTo(w io.Writer, level, format string) error {
	lvl := zerolog.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return errors.Wrapf(err, "bad log level %q", level)
		}
		lvl = parsed
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	default:
		return errors.Errorf("bad log format %q", format)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}
