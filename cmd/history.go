package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/repository"
)

type historyOptions struct {
	requestID string
	remove    []string
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished downloads recorded in the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.OutOrStdout(), root.cfg.Journal.Path, opts)
		},
	}

	cmd.Flags().StringVar(&opts.requestID, "request", "", "only show entries for this request id")
	cmd.Flags().StringSliceVar(&opts.remove, "delete", nil, "delete the entries with these ids")

	return cmd
}

func runHistory(out io.Writer, path string, opts *historyOptions) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "No journal at %s\n", path)
		return nil
	}

	repo, err := repository.NewBboltRepository(path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer repo.Close()

	if len(opts.remove) > 0 {
		for _, id := range opts.remove {
			if err := repo.Delete(id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", id, err)
			}

			fmt.Fprintf(out, "Deleted %s\n", id)
		}

		return nil
	}

	var entries []*repository.Entry
	if opts.requestID != "" {
		entries, err = repo.FindByRequest(opts.requestID)
	} else {
		entries, err = repo.FindAll()
	}

	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No finished downloads recorded")
		return nil
	}

	fmt.Fprintln(out, historyTable(entries))

	return nil
}

func historyTable(entries []*repository.Entry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "REQUEST", "STATUS", "FILE", "SIZE", "EVENTS", "FINISHED")

	for _, e := range entries {
		file, size := "", "--"
		if e.Final != nil {
			file = e.Final.Filename
			size = progress.FormatSize(e.Final.DownloadedBytes)
		}

		t.Row(
			e.ID.String(),
			e.RequestID,
			e.Status.String(),
			file,
			size,
			fmt.Sprint(e.Events),
			e.FinishedAt.Local().Format(time.DateTime),
		)
	}

	return t.Render()
}
