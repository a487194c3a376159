// Package cmd wires the tracker, the yt-dlp feeder and its listeners into the
// dltrack command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NamanBalaji/dltrack/internal/config"
	"github.com/NamanBalaji/dltrack/internal/logger"
)

type rootOptions struct {
	configPath string
	debug      bool

	cfg *config.Config
}

// NewRootCmd builds the dltrack command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "dltrack",
		Short: "Track yt-dlp download progress",
		Long: `dltrack reads yt-dlp output, tracks every download's progress, speed and ETA,
and shows the result in a terminal dashboard or as plain text.

Finished downloads can be kept in a journal and statistics exported to Prometheus.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is "+config.Path()+")")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newReplayCmd(opts),
		newStatsCmd(opts),
		newHistoryCmd(opts),
	)

	return root
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return NewRootCmd().ExecuteContext(ctx)
}

func (o *rootOptions) init() error {
	var (
		cfg *config.Config
		err error
	)

	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.GetConfig()
	}

	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if o.debug {
		cfg.Log.Debug = true
	}

	if err := logger.InitLogging(cfg.Log.Debug, cfg.Log.Path); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	o.cfg = cfg

	return nil
}
