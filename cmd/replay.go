package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/dltrack/internal/sysinfo"
	"github.com/NamanBalaji/dltrack/internal/tui"
)

type replayOptions struct {
	plain bool
}

func newReplayCmd(root *rootOptions) *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay [files...]",
		Short: "Track progress from yt-dlp output",
		Long: `Replay reads yt-dlp output from each file (or stdin when none is given)
concurrently and tracks every download. Files ending in .zst are decompressed
while being read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := collectInputs(args, cmd.InOrStdin())

			if opts.plain {
				return runPlain(cmd.Context(), root, inputs, cmd.OutOrStdout())
			}

			return runDashboard(cmd.Context(), root, inputs)
		},
	}

	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print status lines and an overall progress bar instead of the dashboard")

	return cmd
}

func runPlain(ctx context.Context, root *rootOptions, inputs []input, out io.Writer) error {
	s, err := newSession(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer s.close()

	reporter := newPlainReporter(out, s.manager.Statistics)
	s.attach(ctx, "plain", reporter.handle, true)

	feedErr := s.feed(ctx, inputs, nil)

	s.stopListeners()
	reporter.finish()
	printStats(out, s.manager.Statistics(), nil)

	return feedErr
}

func runDashboard(ctx context.Context, root *rootOptions, inputs []input) error {
	s, err := newSession(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer s.close()

	feedCtx, cancelFeed := context.WithCancel(ctx)
	defer cancelFeed()

	errs := make(chan error, len(inputs))
	feedDone := make(chan error, 1)

	go func() {
		feedDone <- s.feed(feedCtx, inputs, errs)
		close(errs)
	}()

	opts := []tui.Option{
		tui.WithSampler(sysinfo.NewSampler()),
		tui.WithErrors(errs),
		tui.WithBufferSize(root.cfg.Dispatch.BufferSize),
		tui.WithLogger(s.log),
	}

	// Keys come from the terminal when yt-dlp output is piped in.
	if slices.ContainsFunc(inputs, func(in input) bool { return in.requestID == "" }) {
		opts = append(opts, tui.WithProgramOptions(tea.WithInputTTY()))
	}

	if err := tui.Run(ctx, s.manager, opts...); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}

	cancelFeed()

	return <-feedDone
}

