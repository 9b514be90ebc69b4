// Package log provides the logging flags of the fxhost CLI: log format (json,
// text), level (debug, info, warn, error) and output (stdout, stderr).
package log

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	FormatFlagName = "logformat"

	FormatJSON = "json"
	FormatText = "text"
)

const (
	LevelFlagName = "loglevel"

	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

const (
	OutputFlagName = "logoutput"

	OutputStdout = "stdout"
	OutputStderr = "stderr"
)

// RegisterLoggingFlags adds the logging flags to flagset, usually the root
// command's persistent flags.
//
//	--logformat json     # structured logs for machine processing
//	--loglevel debug     # include graph rebuild details
//	--logoutput stdout   # mix logs into command output
func RegisterLoggingFlags(flagset *pflag.FlagSet) {
	flagset.String(FormatFlagName, FormatText, `set the log output format (text|json)`)
	flagset.String(LevelFlagName, LevelWarn, `sets the logging level (debug|info|warn|error)`)
	flagset.String(OutputFlagName, OutputStderr, `set the log output destination (stdout|stderr)`)
}

// GetBaseLogger builds a logger from the command's logging flags.
func GetBaseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := loggerLevelFromCommand(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to get log level: %w", err)
	}

	format, err := oneOf(cmd.Flags(), FormatFlagName, FormatText, FormatJSON)
	if err != nil {
		return nil, err
	}
	output, err := oneOf(cmd.Flags(), OutputFlagName, OutputStdout, OutputStderr)
	if err != nil {
		return nil, err
	}

	var w io.Writer
	switch output {
	case OutputStdout:
		w = cmd.OutOrStdout()
	case OutputStderr:
		w = cmd.ErrOrStderr()
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}

func loggerLevelFromCommand(cmd *cobra.Command) (slog.Level, error) {
	level, err := oneOf(cmd.Flags(), LevelFlagName, LevelDebug, LevelInfo, LevelWarn, LevelError)
	if err != nil {
		return slog.LevelWarn, err
	}
	switch level {
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelInfo:
		return slog.LevelInfo, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, nil
	}
}

func oneOf(flags *pflag.FlagSet, name string, allowed ...string) (string, error) {
	v, err := flags.GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get flag %q: %w", name, err)
	}
	if !slices.Contains(allowed, v) {
		return "", fmt.Errorf("invalid value %q for --%s, must be one of %v", v, name, allowed)
	}
	return v, nil
}
