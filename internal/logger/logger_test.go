package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestOperation(t *testing.T) {
	t.Run("logs success with operation name", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)

		err := Operation(context.Background(), logger, "issue", func(ctx context.Context) error {
			zerolog.Ctx(ctx).Info().Msg("inside")
			return nil
		})
		require.NoError(t, err)
		require.Contains(t, buf.String(), `"operation":"issue"`)
		require.Contains(t, buf.String(), `"message":"inside"`)
		require.Contains(t, buf.String(), `"message":"operation finished"`)
	})

	t.Run("returns the error unmodified", func(t *testing.T) {
		var buf bytes.Buffer
		want := errors.New("signer offline")

		err := Operation(context.Background(), zerolog.New(&buf), "issue", func(context.Context) error {
			return want
		})
		require.Same(t, want, err)
		require.Contains(t, buf.String(), `"level":"error"`)
		require.Contains(t, buf.String(), "signer offline")
	})
}

func TestSetup(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, Setup(false).GetLevel())
	require.Equal(t, zerolog.DebugLevel, Setup(true).GetLevel())
}
