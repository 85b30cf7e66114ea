package frame

// Record is a single detailed timing breakdown reported by the engine,
// all values in milliseconds.
type Record struct {
	CPUTimeMS       float64 `json:"cpu_time_ms"`
	CPURenderTimeMS float64 `json:"cpu_render_time_ms"`
	GPUTimeMS       float64 `json:"gpu_time_ms"`
}

// TimingSource exposes the engine facility that provides detailed CPU/GPU
// sub-timings. Availability depends on the platform and engine configuration.
type TimingSource interface {
	// Available reports whether detailed timing records can be captured.
	Available() bool
	// Capture latches the current engine timings so that Latest can
	// observe them.
	Capture()
	// Latest returns up to max of the most recent timing records, newest
	// last. An empty slice means no record could be fetched.
	Latest(max int) []Record
}

// Clock reports the wall duration of the most recent frame.
type Clock interface {
	DeltaSeconds() float64
}
