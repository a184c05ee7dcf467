package vad

import "errors"

// Sentinel errors returned by the detector. All of them are pure
// validation rejections: a call that fails with one of these leaves the
// detector exactly as it was before the call.
var (
	// ErrInvalidSampleRate indicates a sample rate outside
	// {8000, 16000, 32000, 48000} Hz.
	ErrInvalidSampleRate = errors.New("invalid sample rate")

	// ErrInvalidMode indicates an aggressiveness mode outside 0..3.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidFrameLength indicates a frame whose length does not
	// correspond to 10, 20 or 30 ms at the configured sample rate.
	ErrInvalidFrameLength = errors.New("invalid frame length")
)
