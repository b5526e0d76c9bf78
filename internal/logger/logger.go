package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Operation runs fn with a logger carrying the operation name attached to
// ctx, and logs the outcome with its duration.
func Operation(ctx context.Context, logger zerolog.Logger, name string, fn func(ctx context.Context) error) error {
	started := time.Now()

	ctx = logger.With().
		Str("operation", name).
		Logger().WithContext(ctx)

	err := fn(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("operation failed")

		return err
	}

	zerolog.Ctx(ctx).Info().
		Dur("duration", time.Since(started)).
		Msg("operation finished")

	return nil
}
