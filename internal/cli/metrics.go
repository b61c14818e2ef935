package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// MetricSample is one gathered metric value.
type MetricSample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
	Count  uint64            `json:"count,omitempty"`
}

// NewMetricsCommand creates the metrics command.
func NewMetricsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Run the demo workload and print the collected metrics",
		Long: `Run the demo workload with metrics enabled and print every sample
gathered from a private registry. Histograms print their observation count
and sum.

Example:
  redislist metrics --addr localhost:6379`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "base key for the workload (default: random UUID)")

	return cmd
}

func runMetrics(opts *DemoOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	reg := prometheus.NewRegistry()
	rt, err := opts.openRuntime(ctx, cmd, reg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := RunDemo(ctx, rt.client, demoKey(opts.Key), rt.adapterOptions(), func(DemoStep) {}); err != nil {
		return rt.formatter.Fail(err)
	}

	samples, err := gatherSamples(reg)
	if err != nil {
		return rt.formatter.Fail(err)
	}
	if rt.formatter.Format == "json" {
		return rt.formatter.Success(samples)
	}
	writeSamples(rt.formatter.Writer, samples)
	return nil
}

// gatherSamples flattens reg into samples sorted by name then labels.
// Histograms yield a _count and a _sum sample.
func gatherSamples(reg prometheus.Gatherer) ([]MetricSample, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var samples []MetricSample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				samples = append(samples, MetricSample{Name: mf.GetName(), Labels: labels, Value: m.GetCounter().GetValue()})
			case m.GetGauge() != nil:
				samples = append(samples, MetricSample{Name: mf.GetName(), Labels: labels, Value: m.GetGauge().GetValue()})
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				samples = append(samples,
					MetricSample{Name: mf.GetName() + "_count", Labels: labels, Value: float64(h.GetSampleCount()), Count: h.GetSampleCount()},
					MetricSample{Name: mf.GetName() + "_sum", Labels: labels, Value: h.GetSampleSum()},
				)
			}
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return formatLabels(samples[i].Labels) < formatLabels(samples[j].Labels)
	})
	return samples, nil
}

func writeSamples(w io.Writer, samples []MetricSample) {
	for _, s := range samples {
		fmt.Fprintf(w, "%s%s %g\n", s.Name, formatLabels(s.Labels), s.Value)
	}
}

// formatLabels renders labels in exposition order: {a="1",b="2"}.
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%q", name, labels[name])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
