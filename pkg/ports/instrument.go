package ports

// Progress reports per-frame advancement of a sampling run.
type Progress interface {
	// Start announces the number of frames that will be requested.
	Start(total int)

	// Advance marks one requested frame as handled.
	Advance()

	// Finish closes the progress display.
	Finish()
}

// Metrics records run counters and timings.
type Metrics interface {
	FramesRequested(n int)
	FrameWritten()
	DecodeGap()
	Detections(n int)
	ObserveInference(seconds float64)
	ChatRequest(status string)
}
