package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NamanBalaji/dltrack/internal/sysinfo"
	"github.com/NamanBalaji/dltrack/internal/tracker"
)

// statsSnapshot is what stats --json prints.
type statsSnapshot struct {
	tracker.Statistics
	HostReceiveRate *float64 `json:"hostReceiveRate,omitempty"`
}

type rateSampler interface {
	Sample(ctx context.Context) (float64, bool, error)
}

type statsOptions struct {
	json    bool
	sampler rateSampler
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	opts := &statsOptions{sampler: sysinfo.NewSampler()}

	cmd := &cobra.Command{
		Use:   "stats [files...]",
		Short: "Replay yt-dlp output silently and print the statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, root, opts, collectInputs(args, cmd.InOrStdin()))
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print the statistics as JSON")

	return cmd
}

func runStats(cmd *cobra.Command, root *rootOptions, opts *statsOptions, inputs []input) error {
	ctx := cmd.Context()

	s, err := newSession(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer s.close()

	// The first sample only sets the baseline.
	if _, _, err := opts.sampler.Sample(ctx); err != nil {
		s.log.Debugf("host rate unavailable: %v", err)
	}

	feedErr := s.feed(ctx, inputs, nil)
	s.stopListeners()

	snapshot := statsSnapshot{Statistics: s.manager.Statistics()}
	if rate, ok, err := opts.sampler.Sample(ctx); err == nil && ok {
		snapshot.HostReceiveRate = &rate
	}

	out := cmd.OutOrStdout()

	if opts.json {
		b, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode statistics: %w", err)
		}

		fmt.Fprintln(out, string(b))
	} else {
		printStats(out, snapshot.Statistics, snapshot.HostReceiveRate)
	}

	return feedErr
}
