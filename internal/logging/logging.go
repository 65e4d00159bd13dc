package logging

// Progress and timing go through a structured logger. Diagnostics about the
// input (syntax the passes can't handle, constants that can't be placed) go
// through "logger.Log" instead so they can be rendered with source context.

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/chunkpass/chunkpass/internal/config"
	"github.com/chunkpass/chunkpass/internal/logger"
)

func New(options config.LogOptions, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(options.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := w
	if options.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !options.Color || !isTerminal(w),
			TimeFormat: time.TimeOnly,
		}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && logger.GetTerminalInfo(file).UseColorEscapes
}
