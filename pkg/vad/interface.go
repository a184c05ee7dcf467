package vad

// Interface defines the detector surface stream-level callers depend on.
// It allows mock implementations in testing.
type Interface interface {
	// Process classifies one frame of 16-bit mono PCM at the detector's
	// configured sample rate and returns true if it contains speech.
	Process(frame []int16) (bool, error)

	// SetMode changes the aggressiveness mode (0 to 3).
	SetMode(mode int) error

	// Reset clears all adaptive state; call it when starting a new
	// audio stream.
	Reset()

	// Destroy releases the detector's resources. The detector must not
	// be used after calling Destroy.
	Destroy() error
}

// Ensure Detector implements Interface at compile time.
var _ Interface = (*Detector)(nil)
