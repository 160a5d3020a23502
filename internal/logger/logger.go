// Package logger provides configured zerolog loggers.
package logger

import (
	"io"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

// New returns a JSON logger on w tagged with serviceName.
// Call sites should use .Stack() on error events to include stacks.
func New(w io.Writer, serviceName string) zerolog.Logger {
	installStackMarshalers()
	return zerolog.New(w).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// InitJSON makes the global logger a New logger on w and sets the global
// level.
func InitJSON(w io.Writer, serviceName string, level zerolog.Level) {
	log.Logger = New(w, serviceName)
	zerolog.SetGlobalLevel(level)
}

// InitConsole points the global logger at a plain console writer on w and
// sets the global level.
func InitConsole(w io.Writer, level zerolog.Level) {
	installStackMarshalers()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.DateTime,
		NoColor:    true,
	})
	zerolog.SetGlobalLevel(level)
}

// installStackMarshalers makes .Stack() render github.com/pkg/errors stacks,
// attaching one to plain errors first.
func installStackMarshalers() {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
}
