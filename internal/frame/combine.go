package frame

import "math"

// Min combines two samples elementwise by minimum. With overrideFPS the
// result carries an FPS override equal to the lower of the two input rates,
// which is tracked independently of the frame-time minimum (the sample with
// the lower frame time has the higher rate). Without it the result derives
// FPS from the minimum frame time. Sub-timings are combined only when both
// inputs carry advanced timing; otherwise they stay at their zero value.
// The timeline coordinate is not propagated.
func Min(a, b Sample, overrideFPS bool) Sample {
	out := Sample{FrameTime: min(a.FrameTime, b.FrameTime)}
	if overrideFPS {
		fps := min(a.FPS(), b.FPS())
		out.FPSOverride = &fps
	}
	if a.AdvancedTiming && b.AdvancedTiming {
		out.AdvancedTiming = true
		out.CPUTime = math.Min(a.CPUTime, b.CPUTime)
		out.CPURenderTime = math.Min(a.CPURenderTime, b.CPURenderTime)
		out.GPUTime = math.Min(a.GPUTime, b.GPUTime)
	}
	return out
}

// Max is the elementwise maximum counterpart of Min.
func Max(a, b Sample, overrideFPS bool) Sample {
	out := Sample{FrameTime: max(a.FrameTime, b.FrameTime)}
	if overrideFPS {
		fps := max(a.FPS(), b.FPS())
		out.FPSOverride = &fps
	}
	if a.AdvancedTiming && b.AdvancedTiming {
		out.AdvancedTiming = true
		out.CPUTime = math.Max(a.CPUTime, b.CPUTime)
		out.CPURenderTime = math.Max(a.CPURenderTime, b.CPURenderTime)
		out.GPUTime = math.Max(a.GPUTime, b.GPUTime)
	}
	return out
}

// Average combines two samples as a weighted mean using integer sample
// counts. The caller must ensure countA+countB is non-zero; the division is
// unguarded. With overrideFPS the result carries the same weighted mean of
// the input rates as an override.
func Average(a Sample, countA int, b Sample, countB int, overrideFPS bool) Sample {
	wa := float64(countA)
	wb := float64(countB)
	div := 1 / (wa + wb)

	mean := func(x, y float64) float64 {
		return (x*wa + y*wb) * div
	}

	out := Sample{FrameTime: float32(mean(float64(a.FrameTime), float64(b.FrameTime)))}
	if overrideFPS {
		fps := float32(mean(float64(a.FPS()), float64(b.FPS())))
		out.FPSOverride = &fps
	}
	if a.AdvancedTiming && b.AdvancedTiming {
		out.AdvancedTiming = true
		out.CPUTime = mean(a.CPUTime, b.CPUTime)
		out.CPURenderTime = mean(a.CPURenderTime, b.CPURenderTime)
		out.GPUTime = mean(a.GPUTime, b.GPUTime)
	}
	return out
}

// Lerp interpolates linearly between two samples. The result never carries
// an FPS override regardless of the inputs.
func Lerp(a, b Sample, t float32) Sample {
	td := float64(t)

	lerp := func(x, y float64) float64 {
		return x*(1-td) + y*td
	}

	out := Sample{FrameTime: a.FrameTime*(1-t) + b.FrameTime*t}
	if a.AdvancedTiming && b.AdvancedTiming {
		out.AdvancedTiming = true
		out.CPUTime = lerp(a.CPUTime, b.CPUTime)
		out.CPURenderTime = lerp(a.CPURenderTime, b.CPURenderTime)
		out.GPUTime = lerp(a.GPUTime, b.GPUTime)
	}
	return out
}

// MinOf reduces a sequence by repeated Min with FPS overriding, starting
// from the first element. An empty sequence yields the zero sample, whose
// derived FPS is +Inf.
func MinOf(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}
	out := samples[0]
	for _, s := range samples[1:] {
		out = Min(out, s, true)
	}
	return out
}

// MaxOf is the maximum counterpart of MinOf.
func MaxOf(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}
	out := samples[0]
	for _, s := range samples[1:] {
		out = Max(out, s, true)
	}
	return out
}

// MinWith replaces the receiver with Min(receiver, other).
func (s *Sample) MinWith(other Sample, overrideFPS bool) {
	*s = Min(*s, other, overrideFPS)
}

// MaxWith replaces the receiver with Max(receiver, other).
func (s *Sample) MaxWith(other Sample, overrideFPS bool) {
	*s = Max(*s, other, overrideFPS)
}

// AverageWith absorbs one new sample into a running mean over a window of
// size count: the receiver carries weight count-1, the other sample weight 1.
func (s *Sample) AverageWith(other Sample, count int, overrideFPS bool) {
	*s = Average(*s, count-1, other, 1, overrideFPS)
}
