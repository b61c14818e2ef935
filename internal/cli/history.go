package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/redislist/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [key]",
		Short: "Show journaled mutations",
		Long: `Show the most recent mutations recorded in the journal, oldest first.
Requires journal.path in the config file or REDISLIST_JOURNAL.

Examples:
  redislist history --config redislist.yaml
  redislist history pets --limit 10 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			}
			return runHistory(opts, key, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum number of entries to show")

	return cmd
}

func runHistory(opts *HistoryOptions, key string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		_ = f.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.Journal.Path == "" {
		_ = f.Error(ErrCodeJournal, "no journal configured", nil)
		return NewExitError(ExitCommandError, "no journal configured")
	}
	if opts.Limit <= 0 {
		_ = f.Error(ErrCodeBadArgument, fmt.Sprintf("limit must be positive, got %d", opts.Limit), nil)
		return NewExitError(ExitCommandError, "invalid limit")
	}

	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		_ = f.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer store.Close()

	entries, err := store.List(commandContext(cmd), key, opts.Limit)
	if err != nil {
		_ = f.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to read journal", err)
	}

	if f.Format == "json" {
		return f.Success(entries)
	}
	for _, e := range entries {
		fmt.Fprintln(f.Writer, formatEntry(e))
	}
	return nil
}

// formatEntry renders one entry as a single line.
func formatEntry(e journal.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s %s %s", e.Seq, e.RecordedAt.UTC().Format(time.RFC3339Nano), e.Key, e.Op)
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	} else if e.Index >= 0 {
		fmt.Fprintf(&b, " @%d", e.Index)
	}
	if len(e.Values) > 0 {
		fmt.Fprintf(&b, " %q", e.Values)
	}
	fmt.Fprintf(&b, " mod=%d", e.ModCount)
	return b.String()
}
