// Package frame defines the frame sample value type used for benchmarking:
// a single frame's wall time, derived FPS, and optional CPU/GPU sub-timings,
// plus the statistical combinators that aggregate samples over a window.
package frame

import (
	"fmt"
	"strconv"
)

// Sample holds the performance measurements of a single rendered frame.
// FPSOverride follows the optional-field convention: nil means FPS is
// derived from FrameTime.
//
// The type is a total function library over floating point: nothing here
// validates inputs, and degenerate values (zero frame time, zero weights)
// propagate as IEEE-754 infinities or NaNs.
type Sample struct {
	FrameTime      float32  `json:"frame_time_ms"`
	FPSOverride    *float32 `json:"fps_override,omitempty"`
	AdvancedTiming bool     `json:"advanced_timing"`
	CPUTime        float64  `json:"cpu_time_ms"`
	CPURenderTime  float64  `json:"cpu_render_time_ms"`
	GPUTime        float64  `json:"gpu_time_ms"`
	TimelineTime   float64  `json:"timeline_time"`
}

// FromRaw builds a sample from a measured frame time in milliseconds.
// When captureAdvanced is set and the timing source is available, the
// sub-timings are captured from the source; otherwise they default to the
// frame time itself, which is an approximation rather than a measurement.
func FromRaw(src TimingSource, frameTimeMS float32, timelineTime float64, captureAdvanced bool) Sample {
	s := Sample{
		FrameTime:     frameTimeMS,
		CPUTime:       float64(frameTimeMS),
		CPURenderTime: float64(frameTimeMS),
		GPUTime:       float64(frameTimeMS),
		TimelineTime:  timelineTime,
	}

	if captureAdvanced && src != nil && src.Available() {
		s.AdvancedTiming = true
		src.Capture()
		if records := src.Latest(1); len(records) > 0 {
			rec := records[len(records)-1]
			s.CPUTime = rec.CPUTimeMS
			s.CPURenderTime = rec.CPURenderTimeMS
			s.GPUTime = rec.GPUTimeMS
		}
	}

	return s
}

// CurrentFrame builds a sample from the clock's current frame delta.
func CurrentFrame(src TimingSource, clock Clock, timelineTime float64, captureAdvanced bool) Sample {
	var frameTimeMS float32
	if clock != nil {
		frameTimeMS = float32(clock.DeltaSeconds() * 1000)
	}
	return FromRaw(src, frameTimeMS, timelineTime, captureAdvanced)
}

// FPS returns the override when one is set and positive, otherwise the
// value derived from the frame time. The division is unguarded: a zero
// frame time yields +Inf, a negative one yields a negative rate.
func (s Sample) FPS() float32 {
	if s.FPSOverride != nil && *s.FPSOverride > 0 {
		return *s.FPSOverride
	}
	return 1000 / s.FrameTime
}

// SetFPSOverride pins the reported FPS to the given value.
func (s *Sample) SetFPSOverride(fps float32) {
	v := fps
	s.FPSOverride = &v
}

// ClearFPSOverride reverts FPS to the derived formula.
func (s *Sample) ClearFPSOverride() {
	s.FPSOverride = nil
}

// Metric selects one of the measured quantities of a sample.
type Metric int

const (
	MetricFrameTime Metric = iota
	MetricFPS
	MetricCPUTime
	MetricCPURenderTime
	MetricGPUTime
)

// String returns the metric name used in API payloads and logs.
func (m Metric) String() string {
	switch m {
	case MetricFPS:
		return "fps"
	case MetricCPUTime:
		return "cpu_time"
	case MetricCPURenderTime:
		return "cpu_render_time"
	case MetricGPUTime:
		return "gpu_time"
	default:
		return "frame_time"
	}
}

// Value returns the selected quantity. Sub-timings are narrowed from their
// 64-bit storage. An unrecognised selector falls back to the frame time.
func (s Sample) Value(m Metric) float32 {
	switch m {
	case MetricFPS:
		return s.FPS()
	case MetricCPUTime:
		return float32(s.CPUTime)
	case MetricCPURenderTime:
		return float32(s.CPURenderTime)
	case MetricGPUTime:
		return float32(s.GPUTime)
	default:
		return s.FrameTime
	}
}

// Text renders the selected quantity as a plain decimal string.
func (s Sample) Text(m Metric) string {
	return strconv.FormatFloat(float64(s.Value(m)), 'f', -1, 32)
}

// String renders all fields of the sample with millisecond units.
func (s Sample) String() string {
	return fmt.Sprintf("frame: %.3f ms, fps: %.2f, advanced timing: %t, cpu: %.3f ms, cpu render: %.3f ms, gpu: %.3f ms",
		s.FrameTime, s.FPS(), s.AdvancedTiming, s.CPUTime, s.CPURenderTime, s.GPUTime)
}
