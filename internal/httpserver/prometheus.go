package httpserver

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/framelab/framebench-web/internal/bench"
	"github.com/framelab/framebench-web/internal/frame"
)

type windowCollector struct {
	bench   *bench.Manager
	metrics []windowMetric
}

type windowMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	extract   func(snapshot bench.Snapshot) (float64, bool)
}

// sampleValue guards Prometheus exposition against the Inf/NaN values the
// frame arithmetic deliberately lets through.
func sampleValue(sample frame.Sample, metric frame.Metric) (float64, bool) {
	value := float64(sample.Value(metric))
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

func newWindowCollector(benchManager *bench.Manager) prometheus.Collector {
	if benchManager == nil {
		return nil
	}

	collector := &windowCollector{bench: benchManager}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName("framebench", "window", name),
			help,
			nil,
			nil,
		)
	}

	aggregates := []struct {
		label  string
		sample func(snapshot bench.Snapshot) frame.Sample
	}{
		{"last", func(s bench.Snapshot) frame.Sample { return s.Last }},
		{"min", func(s bench.Snapshot) frame.Sample { return s.Min }},
		{"max", func(s bench.Snapshot) frame.Sample { return s.Max }},
		{"avg", func(s bench.Snapshot) frame.Sample { return s.Avg }},
	}

	quantities := []struct {
		suffix string
		help   string
		metric frame.Metric
	}{
		{"frame_time_ms", "frame time in milliseconds", frame.MetricFrameTime},
		{"fps", "frame rate in frames per second", frame.MetricFPS},
		{"cpu_time_ms", "CPU frame time in milliseconds", frame.MetricCPUTime},
		{"cpu_render_time_ms", "CPU render-thread frame time in milliseconds", frame.MetricCPURenderTime},
		{"gpu_time_ms", "GPU frame time in milliseconds", frame.MetricGPUTime},
	}

	for _, agg := range aggregates {
		for _, q := range quantities {
			sampleOf := agg.sample
			metric := q.metric
			collector.metrics = append(collector.metrics, windowMetric{
				desc:      desc(agg.label+"_"+q.suffix, "Window "+agg.label+" "+q.help+"."),
				valueType: prometheus.GaugeValue,
				extract: func(snapshot bench.Snapshot) (float64, bool) {
					return sampleValue(sampleOf(snapshot), metric)
				},
			})
		}
	}

	collector.metrics = append(collector.metrics,
		windowMetric{
			desc:      desc("frames_total", "Number of frames folded into the current window."),
			valueType: prometheus.GaugeValue,
			extract: func(snapshot bench.Snapshot) (float64, bool) {
				return float64(snapshot.Frames), true
			},
		},
		windowMetric{
			desc:      desc("sample_timestamp_seconds", "Unix timestamp of the latest window snapshot."),
			valueType: prometheus.GaugeValue,
			extract: func(snapshot bench.Snapshot) (float64, bool) {
				if snapshot.Timestamp.IsZero() {
					return 0, false
				}
				return float64(snapshot.Timestamp.Unix()), true
			},
		},
		windowMetric{
			desc:      desc("sample_age_seconds", "Seconds elapsed since the latest window snapshot."),
			valueType: prometheus.GaugeValue,
			extract: func(snapshot bench.Snapshot) (float64, bool) {
				if snapshot.Timestamp.IsZero() {
					return 0, false
				}
				age := time.Since(snapshot.Timestamp).Seconds()
				if age < 0 {
					age = 0
				}
				return age, true
			},
		},
	)

	return collector
}

func (c *windowCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range c.metrics {
		ch <- metric.desc
	}
}

func (c *windowCollector) Collect(ch chan<- prometheus.Metric) {
	if c.bench == nil {
		return
	}
	snapshot, ok := c.bench.Latest()
	if !ok {
		return
	}
	for _, metric := range c.metrics {
		value, ok := metric.extract(snapshot)
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(metric.desc, metric.valueType, value)
	}
}
