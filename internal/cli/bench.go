package cli

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/redislist/internal/collection"
	"github.com/roach88/redislist/internal/txn"
)

// BenchOptions holds flags for the bench command.
type BenchOptions struct {
	*DemoOptions
	Workers int
	Ops     int
	Size    int
}

// BenchResult summarizes a contention run.
type BenchResult struct {
	Key       string        `json:"key"`
	Workers   int           `json:"workers"`
	Committed int64         `json:"committed"`
	Timeouts  int64         `json:"timeouts"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// NewBenchCommand creates the bench command.
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BenchOptions{DemoOptions: &DemoOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure positional writes under contention",
		Long: `Seed a list, then run concurrent workers that each replace elements by
index. Every write is an optimistic transaction on the same key, so workers
conflict and retry until their watch deadline. The key is deleted afterwards.

Example:
  redislist bench --workers 16 --ops 500 --size 32`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "list key (default: random UUID)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 8, "number of concurrent writers")
	cmd.Flags().IntVar(&opts.Ops, "ops", 100, "writes per worker")
	cmd.Flags().IntVar(&opts.Size, "size", 16, "number of seeded elements")

	return cmd
}

func runBench(opts *BenchOptions, cmd *cobra.Command) error {
	if opts.Workers <= 0 || opts.Ops <= 0 || opts.Size <= 0 {
		f := opts.formatter(cmd)
		_ = f.Error(ErrCodeBadArgument, "workers, ops and size must be positive", nil)
		return NewExitError(ExitCommandError, "invalid bench parameters")
	}

	ctx := commandContext(cmd)
	rt, err := opts.openRuntime(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	key := demoKey(opts.Key)
	seed := make([]string, opts.Size)
	for i := range seed {
		seed[i] = "seed-" + strconv.Itoa(i)
	}
	list := collection.NewStringList(rt.client, key, rt.adapterOptions()...)
	if err := list.Clear(ctx); err != nil {
		return rt.formatter.Fail(err)
	}
	if _, err := list.AddAll(ctx, seed...); err != nil {
		return rt.formatter.Fail(err)
	}
	defer rt.client.Del(context.WithoutCancel(ctx), key)

	result, err := contend(ctx, rt.client, key, opts.Workers, opts.Ops, opts.Size, rt.adapterOptions())
	if err != nil {
		return rt.formatter.Fail(err)
	}

	if rt.formatter.Format == "json" {
		return rt.formatter.Success(result)
	}
	w := rt.formatter.Writer
	fmt.Fprintf(w, "key:       %s\n", result.Key)
	fmt.Fprintf(w, "workers:   %d\n", result.Workers)
	fmt.Fprintf(w, "committed: %d\n", result.Committed)
	fmt.Fprintf(w, "timeouts:  %d\n", result.Timeouts)
	fmt.Fprintf(w, "elapsed:   %s\n", result.Elapsed.Round(time.Millisecond))
	if secs := result.Elapsed.Seconds(); secs > 0 {
		fmt.Fprintf(w, "rate:      %.0f commits/s\n", float64(result.Committed)/secs)
	}
	return nil
}

// contend runs workers goroutines, each issuing ops Set calls against key.
// Watch timeouts are counted; any other error aborts the run.
func contend(ctx context.Context, client redis.UniversalClient, key string, workers, ops, size int, opts []collection.Option) (BenchResult, error) {
	var committed, timeouts atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			list := collection.NewStringList(client, key, opts...)
			for i := range ops {
				_, err := list.Set(gctx, (w+i)%size, fmt.Sprintf("w%d-%d", w, i))
				switch {
				case err == nil:
					committed.Add(1)
				case txn.IsWatchTimeout(err):
					timeouts.Add(1)
				default:
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BenchResult{}, err
	}

	return BenchResult{
		Key:       key,
		Workers:   workers,
		Committed: committed.Load(),
		Timeouts:  timeouts.Load(),
		Elapsed:   time.Since(start),
	}, nil
}
