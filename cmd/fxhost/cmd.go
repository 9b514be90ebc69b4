package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/fxhost-go"
	intaudio "github.com/cbegin/fxhost-go/internal/audio"
	"github.com/cbegin/fxhost-go/internal/flags/log"
)

const (
	settingsFlag   = "settings"
	instanceFlag   = "instance"
	sampleRateFlag = "sample-rate"
	blockSizeFlag  = "block-size"
	toneFlag       = "tone"
)

// New builds the fxhost command tree.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fxhost [sub-command]",
		Short: "Background effects host",
		Long: `fxhost keeps an ordered chain of effect plugins, runs audio through it and
  remembers the chain, bypass flags and plugin settings between runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: preRun,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().String(settingsFlag, "", "settings file (defaults to the user config directory)")
	cmd.PersistentFlags().String(instanceFlag, "", "instance name, keeps a separate settings file per instance")
	cmd.PersistentFlags().Int(sampleRateFlag, 44100, "processing sample rate")
	cmd.PersistentFlags().Int(blockSizeFlag, 512, "processing block size in frames")
	log.RegisterLoggingFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newScanCmd(),
		newAvailableCmd(),
		newChainCmd(),
		newAddCmd(),
		newIndexCmd("delete", "Remove the plugin at INDEX from the chain", (*fxhost.Host).Delete),
		newIndexCmd("bypass", "Toggle bypass for the plugin at INDEX", (*fxhost.Host).ToggleBypass),
		newIndexCmd("move-up", "Move the plugin at INDEX one place earlier", (*fxhost.Host).MoveUp),
		newIndexCmd("move-down", "Move the plugin at INDEX one place later", (*fxhost.Host).MoveDown),
		newParamsCmd(),
		newSetCmd(),
		newClearStatesCmd(),
		newRenderCmd(),
		newRunCmd(),
	)
	return cmd
}

func preRun(cmd *cobra.Command, _ []string) error {
	logger, err := log.GetBaseLogger(cmd)
	if err != nil {
		return fmt.Errorf("could not retrieve logger: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(slogcontext.NewCtx(ctx, logger))
	return nil
}

// withHost opens the host, runs fn and closes the host, which saves plugin states.
func withHost(cmd *cobra.Command, fn func(ctx context.Context, h *fxhost.Host) error, opts ...fxhost.HostOption) (err error) {
	ctx := cmd.Context()
	flags := cmd.Flags()
	path, _ := flags.GetString(settingsFlag)
	instance, _ := flags.GetString(instanceFlag)
	rate, _ := flags.GetInt(sampleRateFlag)
	block, _ := flags.GetInt(blockSizeFlag)

	opts = append([]fxhost.HostOption{
		fxhost.WithSettingsPath(path),
		fxhost.WithInstance(instance),
		fxhost.WithSampleRate(rate),
		fxhost.WithBlockSize(block),
	}, opts...)
	h, err := fxhost.NewHost(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, h.Close(ctx))
	}()
	return fn(ctx, h)
}

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid chain index %q: %w", arg, err)
	}
	return i, nil
}

func registerOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(outputFlag, "o", outputTable, "output format (table|yaml|json)")
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Rediscover plugins and remember the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString(outputFlag)
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				found, err := h.Scan(ctx)
				if err != nil {
					return err
				}
				return encode(cmd.OutOrStdout(), output, found, descriptorTable(found))
			})
		},
	}
	registerOutputFlag(cmd)
	return cmd
}

func newAvailableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "available",
		Short: "List discovered plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString(outputFlag)
			filter, _ := cmd.Flags().GetString("filter")
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				ds, err := h.Available(filter)
				if err != nil {
					return err
				}
				return encode(cmd.OutOrStdout(), output, ds, descriptorTable(ds))
			})
		},
	}
	cmd.Flags().String("filter", "", "glob on the plugin name, e.g. 'eq*'")
	registerOutputFlag(cmd)
	return cmd
}

func newChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Show the active chain in processing order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString(outputFlag)
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				entries := h.Entries(ctx)
				return encode(cmd.OutOrStdout(), output, entries, entryTable(entries))
			})
		},
	}
	registerOutputFlag(cmd)
	return cmd
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add PATTERN",
		Short: "Append the newest discovered plugin matching PATTERN to the chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				d, err := h.AddByName(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", d)
				return err
			})
		},
	}
}

func newIndexCmd(use, short string, op func(*fxhost.Host, context.Context, int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " INDEX",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				return op(h, ctx, index)
			})
		},
	}
}

func newParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params INDEX",
		Short: "List the parameters of the plugin at INDEX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString(outputFlag)
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				params, err := h.Params(ctx, index)
				if err != nil {
					return err
				}
				return encode(cmd.OutOrStdout(), output, params, paramTable(params))
			})
		},
	}
	registerOutputFlag(cmd)
	return cmd
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set INDEX NAME VALUE",
		Short: "Change a parameter of the plugin at INDEX",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid parameter value %q: %w", args[2], err)
			}
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				return h.SetParam(ctx, index, args[1], value)
			})
		},
	}
}

func newClearStatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-states",
		Short: "Forget all saved plugin settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				return h.ClearStates(ctx)
			})
		},
	}
}

func inputOption(cmd *cobra.Command) fxhost.HostOption {
	tone, _ := cmd.Flags().GetFloat64(toneFlag)
	if tone <= 0 {
		return fxhost.WithInput(intaudio.Silence{})
	}
	rate, _ := cmd.Flags().GetInt(sampleRateFlag)
	return fxhost.WithInput(intaudio.NewTone(rate, tone, 0.25))
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the chain offline to a float32 WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seconds, _ := cmd.Flags().GetFloat64("seconds")
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return errors.New("--out is required")
			}
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				samples, err := h.Render(seconds)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, fxhost.EncodeWAVFloat32LE(samples, h.SampleRate(), 2), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				slogcontext.FromCtx(ctx).Info("rendered", slog.String("file", out), slog.Int("frames", len(samples)/2))
				return nil
			}, inputOption(cmd))
		},
	}
	cmd.Flags().Float64("seconds", 2, "length of the render")
	cmd.Flags().String("out", "", "output WAV file")
	cmd.Flags().Float64(toneFlag, 440, "test tone frequency fed into the chain, 0 for silence")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stream the chain to the output device until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			duration, _ := cmd.Flags().GetDuration("duration")
			return withHost(cmd, func(ctx context.Context, h *fxhost.Host) error {
				return run(ctx, h, duration)
			}, inputOption(cmd))
		},
	}
	cmd.Flags().Duration("duration", 0, "stop after this long, 0 runs until interrupted")
	cmd.Flags().Float64(toneFlag, 0, "test tone frequency fed into the chain, 0 for silence")
	return cmd
}

func run(ctx context.Context, h *fxhost.Host, duration time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := h.Start(); err != nil {
		return err
	}
	slogcontext.FromCtx(ctx).Info("streaming", slog.Int("plugins", len(h.Resolve(ctx))))

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-egctx.Done()
		return h.Stop()
	})
	eg.Go(func() error {
		if duration <= 0 {
			return nil
		}
		select {
		case <-time.After(duration):
			stop()
		case <-egctx.Done():
		}
		return nil
	})
	return eg.Wait()
}
