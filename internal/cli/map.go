package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/redislist/internal/hashmap"
)

// mapEntry is the JSON form of one hash field.
type mapEntry struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// NewMapCommand creates the map command and its subcommands.
func NewMapCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Read and mutate a Redis hash",
		Long: `Read and mutate a Redis hash through the map adapter.

Examples:
  redislist map put counts apples 879
  redislist map get counts apples
  redislist map entries counts`,
	}

	cmd.AddCommand(
		mapCommand(rootOpts, "get <key> <field>", "Print the value of field", cobra.ExactArgs(2),
			func(ctx context.Context, m *hashmap.RedisMap[string], args []string) (any, error) {
				v, ok, err := m.Get(ctx, args[0])
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, fmt.Errorf("field %q not found", args[0])
				}
				return v, nil
			}),
		mapCommand(rootOpts, "put <key> <field> <value>", "Set field and print the replaced value, if any", cobra.ExactArgs(3),
			func(ctx context.Context, m *hashmap.RedisMap[string], args []string) (any, error) {
				prev, replaced, err := m.Put(ctx, args[0], args[1])
				if err != nil || !replaced {
					return nil, err
				}
				return prev, nil
			}),
		mapCommand(rootOpts, "remove <key> <field>", "Delete field and print its value", cobra.ExactArgs(2),
			func(ctx context.Context, m *hashmap.RedisMap[string], args []string) (any, error) {
				prev, removed, err := m.Remove(ctx, args[0])
				if err != nil {
					return nil, err
				}
				if !removed {
					return nil, fmt.Errorf("field %q not found", args[0])
				}
				return prev, nil
			}),
		mapCommand(rootOpts, "entries <key>", "Print every field and value sorted by field", cobra.ExactArgs(1),
			func(ctx context.Context, m *hashmap.RedisMap[string], _ []string) (any, error) {
				entries, err := m.Entries(ctx)
				if err != nil {
					return nil, err
				}
				out := make([]mapEntry, len(entries))
				for i, e := range entries {
					out[i] = mapEntry{Field: e.Field, Value: e.Value}
				}
				return out, nil
			}),
	)

	return cmd
}

func mapCommand(rootOpts *RootOptions, use, short string, nargs cobra.PositionalArgs,
	action func(ctx context.Context, m *hashmap.RedisMap[string], args []string) (any, error)) *cobra.Command {
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

			m := hashmap.NewStringMap(rt.client, args[0], rt.adapterOptions()...)
			v, err := action(ctx, m, args[1:])
			if err != nil {
				return rt.formatter.Fail(err)
			}
			if entries, ok := v.([]mapEntry); ok && rt.formatter.Format != "json" {
				for _, e := range entries {
					fmt.Fprintf(rt.formatter.Writer, "%s=%s\n", e.Field, e.Value)
				}
				return nil
			}
			return printValue(rt.formatter, v)
		},
	}
}
