// Package stats records per-tick population metrics and summarises them.
package stats

import (
	"math"

	"evolab/internal/core"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of one phenotype field.
type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes a Summary, ignoring NaN and infinite values. An empty
// input gives the zero Summary.
func Summarize(values []float64) Summary {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite = append(finite, v)
	}
	if len(finite) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(finite, nil)
	if len(finite) == 1 {
		std = 0
	}
	return Summary{
		N:      len(finite),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(finite),
		Max:    floats.Max(finite),
	}
}

// Metrics expands the summary into mean and stddev metrics named after field.
func (s Summary) Metrics(field string) []core.Metric {
	return []core.Metric{
		{Name: field + "_mean", Value: s.Mean},
		{Name: field + "_std", Value: s.StdDev},
	}
}

// Sample is the set of metrics observed at one tick.
type Sample struct {
	Tick    int
	Metrics []core.Metric
}

// Value returns the named metric.
func (s Sample) Value(name string) (float64, bool) {
	return core.MetricValue(s.Metrics, name)
}

// Series is an ordered run of samples.
type Series []Sample

// Observe appends the experiment's current metrics.
func (s *Series) Observe(exp core.Experiment) Sample {
	sample := Sample{Tick: exp.Tick(), Metrics: exp.Metrics()}
	*s = append(*s, sample)
	return sample
}

// Values extracts one metric across the series. Samples without it give NaN.
func (s Series) Values(name string) []float64 {
	out := make([]float64, len(s))
	for i, sample := range s {
		v, ok := sample.Value(name)
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// Names lists every metric name seen in the series, in first-seen order.
func (s Series) Names() []string {
	var names []string
	seen := map[string]bool{}
	for _, sample := range s {
		for _, m := range sample.Metrics {
			if !seen[m.Name] {
				seen[m.Name] = true
				names = append(names, m.Name)
			}
		}
	}
	return names
}

// TailSum sums the named metric over the last n samples.
func (s Series) TailSum(name string, n int) float64 {
	if n > len(s) {
		n = len(s)
	}
	total := 0.0
	for _, sample := range s[len(s)-n:] {
		if v, ok := sample.Value(name); ok {
			total += v
		}
	}
	return total
}

// Last returns the final sample, if any.
func (s Series) Last() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[len(s)-1], true
}
