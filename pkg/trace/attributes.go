package trace

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used in spans across the library.
const (
	// Session attributes
	AttrSessionID = "session.id"

	// Audio attributes
	AttrAudioSampleRate = "audio.sample_rate"
	AttrAudioFrameMs    = "audio.frame_ms"
	AttrAudioDurationMs = "audio.duration_ms"
	AttrAudioFormat     = "audio.format"

	// Detector attributes
	AttrVADMode = "vad.mode"

	// Segment attributes
	AttrSegmentStartMs = "segment.start_ms"
	AttrSegmentEndMs   = "segment.end_ms"
	AttrSegmentSamples = "segment.samples"
)

// SessionAttrs returns common attributes for session-scoped spans.
func SessionAttrs(sessionID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
	}
}

// DetectorAttrs returns attributes describing a detector configuration.
func DetectorAttrs(sampleRate, mode, frameMs int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrAudioSampleRate, sampleRate),
		attribute.Int(AttrVADMode, mode),
		attribute.Int(AttrAudioFrameMs, frameMs),
	}
}

// SegmentAttrs returns attributes describing a detected speech segment.
func SegmentAttrs(startMs, endMs int64, samples int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrSegmentStartMs, startMs),
		attribute.Int64(AttrSegmentEndMs, endMs),
		attribute.Int(AttrSegmentSamples, samples),
	}
}
