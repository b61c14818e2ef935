package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roach88/redislist/internal/codec"
	"github.com/roach88/redislist/internal/collection"
	"github.com/roach88/redislist/internal/hashmap"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Key string // base key; random when empty
}

// DemoStep is one narrated step of the demo.
type DemoStep struct {
	Action  string `json:"action"`
	Content string `json:"content,omitempty"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through list and map operations",
		Long: `Create a list and a hash under fresh keys, mutate them step by step
while printing their content, then delete both.

Example:
  redislist demo --addr localhost:6379
  redislist demo --key demo --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemoCommand(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "base key for the demo (default: random UUID)")

	return cmd
}

func runDemoCommand(opts *DemoOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := opts.openRuntime(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	f := rt.formatter
	var steps []DemoStep
	emit := func(s DemoStep) {
		steps = append(steps, s)
		if f.Format == "json" {
			return
		}
		fmt.Fprintln(f.Writer, s.Action)
		if s.Content != "" {
			fmt.Fprintf(f.Writer, "Content: %s\n", s.Content)
		}
		fmt.Fprintln(f.Writer)
	}

	if err := RunDemo(ctx, rt.client, demoKey(opts.Key), rt.adapterOptions(), emit); err != nil {
		return f.Fail(err)
	}
	if f.Format == "json" {
		return f.Success(steps)
	}
	return nil
}

func demoKey(key string) string {
	if key != "" {
		return key
	}
	return uuid.Must(uuid.NewV7()).String()
}

// RunDemo runs the list walkthrough on key and the map walkthrough on
// key+":counts", reporting each step to emit.
func RunDemo(ctx context.Context, client redis.UniversalClient, key string, opts []collection.Option, emit func(DemoStep)) error {
	if err := demoList(ctx, client, key, opts, emit); err != nil {
		return err
	}
	return demoMap(ctx, client, key+":counts", opts, emit)
}

func demoList(ctx context.Context, client redis.UniversalClient, key string, opts []collection.Option, emit func(DemoStep)) error {
	pets := []string{"Cat", "Dog", "Home", "Garage", "Lawn"}
	list := collection.NewStringList(client, key, opts...)

	content := func(action string) error {
		values, err := list.Slice(ctx)
		if err != nil {
			return err
		}
		emit(DemoStep{Action: action, Content: fmt.Sprintf("%q", values)})
		return nil
	}

	if _, err := list.AddAll(ctx, pets...); err != nil {
		return err
	}
	if err := content(fmt.Sprintf("Inserted %q under key %s", pets, key)); err != nil {
		return err
	}

	if _, err := list.Remove(ctx, "Dog"); err != nil {
		return err
	}
	if err := content(`Removed "Dog"`); err != nil {
		return err
	}

	if err := list.Add(ctx, "Dog"); err != nil {
		return err
	}
	if err := content(`Added "Dog" to the end`); err != nil {
		return err
	}

	if err := list.Insert(ctx, 2, "NewElement"); err != nil {
		return err
	}
	if err := content(`Inserted "NewElement" at index 2`); err != nil {
		return err
	}

	removed, err := list.RemoveAt(ctx, 1)
	if err != nil {
		return err
	}
	if err := content(fmt.Sprintf("Removed %q at index 1", removed)); err != nil {
		return err
	}

	last, err := list.LastIndexOf(ctx, "Dog")
	if err != nil {
		return err
	}
	emit(DemoStep{Action: fmt.Sprintf(`Last index of "Dog": %d`, last)})

	if err := list.Clear(ctx); err != nil {
		return err
	}
	emit(DemoStep{Action: "Cleared list " + key})
	return nil
}

func demoMap(ctx context.Context, client redis.UniversalClient, key string, opts []collection.Option, emit func(DemoStep)) error {
	counts := hashmap.New[int](client, key, codec.Int{}, opts...)

	content := func(action string) error {
		entries, err := counts.Entries(ctx)
		if err != nil {
			return err
		}
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = fmt.Sprintf("%s=%d", e.Field, e.Value)
		}
		emit(DemoStep{Action: action, Content: "{" + strings.Join(parts, ", ") + "}"})
		return nil
	}

	if err := counts.PutAll(ctx, map[string]int{"apples": 879, "oranges": 5713, "tomatoes": 482}); err != nil {
		return err
	}
	if err := content("Inserted counts under key " + key); err != nil {
		return err
	}

	for _, field := range []string{"apples", "oranges", "tomatoes"} {
		v, _, err := counts.Get(ctx, field)
		if err != nil {
			return err
		}
		emit(DemoStep{Action: fmt.Sprintf("%s count: %d", field, v)})
	}

	if _, _, err := counts.Remove(ctx, "apples"); err != nil {
		return err
	}
	if err := content(`Removed "apples"`); err != nil {
		return err
	}

	if _, _, err := counts.Put(ctx, "tangerines", 179); err != nil {
		return err
	}
	if err := content(`Put "tangerines"`); err != nil {
		return err
	}

	if err := counts.Clear(ctx); err != nil {
		return err
	}
	emit(DemoStep{Action: "Cleared map " + key})
	return nil
}
