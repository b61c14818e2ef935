package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/redislist/internal/collection"
)

// listAction runs one list operation and returns the value to print. A nil
// value prints "OK" in text mode.
type listAction func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error)

// NewListCommand creates the list command and its subcommands.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Read and mutate a Redis list by position",
		Long: `Read and mutate a Redis list by position. Indexes are 0-based.

Examples:
  redislist list push pets Cat Dog Home
  redislist list insert pets 1 Bird Fish
  redislist list remove-at pets 2
  redislist list range pets`,
	}

	var pushHead, popHead, native bool

	cmd.AddCommand(
		listCommand(rootOpts, "get <key> <index>", "Print the element at index", cobra.ExactArgs(2),
			func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error) {
				i, err := parseIndex(args[0])
				if err != nil {
					return nil, err
				}
				return l.Get(ctx, i)
			}),
		listCommand(rootOpts, "set <key> <index> <value>", "Replace the element at index and print the old one", cobra.ExactArgs(3),
			func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error) {
				i, err := parseIndex(args[0])
				if err != nil {
					return nil, err
				}
				return l.Set(ctx, i, args[1])
			}),
		withBoolFlag(&pushHead, "head", "push to the head instead of the tail",
			listCommand(rootOpts, "push <key> <value>...", "Append values (or prepend with --head)", cobra.MinimumNArgs(2),
				func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error) {
					if pushHead {
						_, err := l.InsertAll(ctx, 0, args...)
						return nil, err
					}
					_, err := l.AddAll(ctx, args...)
					return nil, err
				})),
		listCommand(rootOpts, "insert <key> <index> <value>...", "Insert values at index", cobra.MinimumNArgs(3),
			func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error) {
				i, err := parseIndex(args[0])
				if err != nil {
					return nil, err
				}
				_, err = l.InsertAll(ctx, i, args[1:]...)
				return nil, err
			}),
		listCommand(rootOpts, "remove-at <key> <index>", "Remove the element at index and print it", cobra.ExactArgs(2),
			func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error) {
				i, err := parseIndex(args[0])
				if err != nil {
					return nil, err
				}
				return l.RemoveAt(ctx, i)
			}),
		withBoolFlag(&popHead, "head", "pop from the head instead of the tail",
			listCommand(rootOpts, "pop <key>", "Remove and print the last (or first) element", cobra.ExactArgs(1),
				func(ctx context.Context, l *collection.RedisList[string], _ []string) (any, error) {
					if popHead {
						return l.RemoveFirst(ctx)
					}
					return l.RemoveLast(ctx)
				})),
		listCommand(rootOpts, "remove <key> <value>", "Remove the first occurrence of value", cobra.ExactArgs(2),
			func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error) {
				return l.Remove(ctx, args[0])
			}),
		listCommand(rootOpts, "index-of <key> <value>", "Print the first index of value, or -1", cobra.ExactArgs(2),
			func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error) {
				return l.IndexOf(ctx, args[0])
			}),
		listCommand(rootOpts, "last-index-of <key> <value>", "Print the last index of value, or -1", cobra.ExactArgs(2),
			func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error) {
				return l.LastIndexOf(ctx, args[0])
			}),
		listCommand(rootOpts, "range <key> [start] [stop]", "Print elements start..stop inclusive (default: all)", cobra.RangeArgs(1, 3),
			func(ctx context.Context, l *collection.RedisList[string], args []string) (any, error) {
				bounds := []int{0, -1}
				for i, a := range args {
					n, err := strconv.Atoi(a)
					if err != nil {
						return nil, badArgument(a, err)
					}
					bounds[i] = n
				}
				return l.Range(ctx, bounds[0], bounds[1])
			}),
		withBoolFlag(&native, "native", "sort on the server (SORT ... ALPHA)",
			listCommand(rootOpts, "sort <key>", "Sort the list lexicographically", cobra.ExactArgs(1),
				func(ctx context.Context, l *collection.RedisList[string], _ []string) (any, error) {
					if native {
						return nil, l.Sort(ctx, nil)
					}
					return nil, l.Sort(ctx, strings.Compare)
				})),
		listCommand(rootOpts, "clear <key>", "Delete every element", cobra.ExactArgs(1),
			func(ctx context.Context, l *collection.RedisList[string], _ []string) (any, error) {
				return nil, l.Clear(ctx)
			}),
		listCommand(rootOpts, "len <key>", "Print the number of elements", cobra.ExactArgs(1),
			func(ctx context.Context, l *collection.RedisList[string], _ []string) (any, error) {
				return l.Len(ctx)
			}),
	)

	return cmd
}

func listCommand(rootOpts *RootOptions, use, short string, nargs cobra.PositionalArgs, action listAction) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          nargs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			rt, err := rootOpts.openRuntime(ctx, cmd, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			l := collection.NewStringList(rt.client, args[0], rt.adapterOptions()...)
			v, err := action(ctx, l, args[1:])
			if err != nil {
				return report(rt.formatter, err)
			}
			return printValue(rt.formatter, v)
		},
	}
}

func withBoolFlag(target *bool, name, usage string, cmd *cobra.Command) *cobra.Command {
	cmd.Flags().BoolVar(target, name, false, usage)
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, badArgument(s, err)
	}
	return i, nil
}

func badArgument(arg string, err error) error {
	return WrapExitError(ExitCommandError, fmt.Sprintf("invalid argument %q", arg), err)
}

// report prints err and converts it to an ExitError. Argument errors are
// command errors; everything else is an operation failure.
func report(f *OutputFormatter, err error) error {
	if exitErr, ok := err.(*ExitError); ok {
		_ = f.Error(ErrCodeBadArgument, exitErr.Error(), nil)
		return exitErr
	}
	return f.Fail(err)
}

// printValue prints v: slices one element per line in text mode.
func printValue(f *OutputFormatter, v any) error {
	if f.Format == "json" {
		return f.Success(map[string]any{"result": v})
	}
	switch v := v.(type) {
	case nil:
		return f.Success("OK")
	case []string:
		for _, s := range v {
			fmt.Fprintln(f.Writer, s)
		}
		return nil
	default:
		return f.Success(v)
	}
}
