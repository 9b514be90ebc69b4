package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoggingFlags(t *testing.T) {
	cmd := &cobra.Command{}
	RegisterLoggingFlags(cmd.PersistentFlags())

	assert.NotNil(t, cmd.PersistentFlags().Lookup(FormatFlagName))
	assert.NotNil(t, cmd.PersistentFlags().Lookup(LevelFlagName))
	assert.NotNil(t, cmd.PersistentFlags().Lookup(OutputFlagName))
}

func TestGetBaseLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  string
		output string
	}{
		{name: "json debug stdout", format: FormatJSON, level: LevelDebug, output: OutputStdout},
		{name: "text info stderr", format: FormatText, level: LevelInfo, output: OutputStderr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			RegisterLoggingFlags(cmd.Flags())
			require.NoError(t, cmd.Flags().Set(FormatFlagName, tt.format))
			require.NoError(t, cmd.Flags().Set(LevelFlagName, tt.level))
			require.NoError(t, cmd.Flags().Set(OutputFlagName, tt.output))

			logger, err := GetBaseLogger(cmd)
			assert.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestGetBaseLoggerWritesJSONToStdout(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	RegisterLoggingFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Set(FormatFlagName, FormatJSON))
	require.NoError(t, cmd.Flags().Set(OutputFlagName, OutputStdout))

	logger, err := GetBaseLogger(cmd)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("realm", "chain"))
	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"realm":"chain"`)
}

func TestLoggerLevelFromCommand(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cmd := &cobra.Command{}
			RegisterLoggingFlags(cmd.Flags())
			require.NoError(t, cmd.Flags().Set(LevelFlagName, tt.level))
			got, err := loggerLevelFromCommand(cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvalidFlagValues(t *testing.T) {
	for _, name := range []string{FormatFlagName, LevelFlagName, OutputFlagName} {
		t.Run(name, func(t *testing.T) {
			cmd := &cobra.Command{}
			RegisterLoggingFlags(cmd.Flags())
			require.NoError(t, cmd.Flags().Set(name, "bogus"))
			_, err := GetBaseLogger(cmd)
			assert.Error(t, err)
		})
	}
}
