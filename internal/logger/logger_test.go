package logger_test

import (
	"testing"

	"github.com/jrsteele09/stockscope-client/internal/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, logger.ParseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, logger.ParseLevel("warning"))
	require.Equal(t, zerolog.ErrorLevel, logger.ParseLevel("error"))
	require.Equal(t, zerolog.Disabled, logger.ParseLevel("off"))
	require.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
}
