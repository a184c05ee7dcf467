// Package segmenter turns the detector's per-frame decisions into speech
// segments. It buffers arbitrary-sized PCM writes into fixed frames,
// applies silence hysteresis so short pauses do not split an utterance,
// and prepends pre-roll audio so onsets are not clipped by detection
// latency.
package segmenter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kaegi/webrtc-vad/pkg/audio"
	"github.com/kaegi/webrtc-vad/pkg/trace"
	"github.com/kaegi/webrtc-vad/pkg/vad"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// EventType identifies a segmenter event.
type EventType int

const (
	// EventSpeechStart is emitted when a speech segment opens.
	EventSpeechStart EventType = iota
	// EventSpeechEnd is emitted when a speech segment closes. The event
	// carries the full segment audio, including pre-roll and padding.
	EventSpeechEnd
)

// Event describes a speech segment boundary.
type Event struct {
	Type      EventType
	SessionID string
	// StartMs and EndMs are offsets from the beginning of the stream.
	StartMs int64
	EndMs   int64
	// Samples holds the segment audio. Only set on EventSpeechEnd.
	Samples   []int16
	Timestamp time.Time
}

// Config holds configuration for a Segmenter.
type Config struct {
	// SampleRate of the incoming audio. Must be one a detector accepts.
	SampleRate int
	// Mode is the detector aggressiveness (0 to 3).
	Mode int
	// FrameDurationMs is the analysis frame length: 10, 20 or 30.
	FrameDurationMs int
	// MinSilenceDurMs is how long silence must last before a segment
	// closes. Defaults to 300.
	MinSilenceDurMs int
	// SpeechPadMs of trailing silence kept at the end of a segment.
	// Defaults to 30.
	SpeechPadMs int
	// PreRollMs of audio kept before the detected onset. Defaults to 300.
	PreRollMs int

	// Detector overrides the detector used for classification. When nil
	// a detector is constructed from SampleRate and Mode. Mainly for
	// testing.
	Detector vad.Interface
}

// Segmenter groups voiced frames into speech segments.
type Segmenter struct {
	detector vad.Interface

	sessionID   string
	sampleRate  int
	frameSize   int // samples per analysis frame
	frameMs     int
	minSilence  int // silence frames required to close a segment
	padFrames   int // trailing silence frames kept in the segment
	preRoll     *audio.RingBuffer
	ctx         context.Context
	segmentSpan oteltrace.Span

	mu          sync.Mutex
	pending     []int16 // buffered input not yet a full frame
	speaking    bool
	silenceRun  int     // consecutive non-voiced frames while speaking
	segment     []int16 // audio of the open segment
	startSample int64   // stream offset of the open segment's first sample
	offset      int64   // total samples consumed from the stream
}

// New creates a Segmenter. The caller owns the returned Segmenter and
// must call Close when done.
func New(ctx context.Context, cfg Config) (*Segmenter, error) {
	if cfg.FrameDurationMs == 0 {
		cfg.FrameDurationMs = 20
	}
	if cfg.MinSilenceDurMs == 0 {
		cfg.MinSilenceDurMs = 300
	}
	if cfg.SpeechPadMs == 0 {
		cfg.SpeechPadMs = 30
	}
	if cfg.PreRollMs == 0 {
		cfg.PreRollMs = 300
	}

	detector := cfg.Detector
	if detector == nil {
		d, err := vad.New(vad.Config{SampleRate: cfg.SampleRate, Mode: cfg.Mode})
		if err != nil {
			return nil, fmt.Errorf("failed to create detector: %w", err)
		}
		detector = d
	}

	frameSize := cfg.SampleRate * cfg.FrameDurationMs / 1000
	if frameSize <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	}

	return &Segmenter{
		detector:   detector,
		sessionID:  uuid.NewString(),
		sampleRate: cfg.SampleRate,
		frameSize:  frameSize,
		frameMs:    cfg.FrameDurationMs,
		minSilence: (cfg.MinSilenceDurMs + cfg.FrameDurationMs - 1) / cfg.FrameDurationMs,
		padFrames:  (cfg.SpeechPadMs + cfg.FrameDurationMs - 1) / cfg.FrameDurationMs,
		preRoll:    audio.NewRingBuffer(cfg.SampleRate, cfg.PreRollMs),
		ctx:        ctx,
	}, nil
}

// SessionID returns the identifier attached to this stream's events.
func (s *Segmenter) SessionID() string {
	return s.sessionID
}

// IsSpeaking reports whether a speech segment is currently open.
func (s *Segmenter) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Push feeds PCM samples into the segmenter and returns the boundary
// events produced by them. Input may be any length; leftover samples
// that do not fill a frame are carried to the next call.
func (s *Segmenter) Push(samples []int16) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, samples...)

	var events []Event
	for len(s.pending) >= s.frameSize {
		frame := s.pending[:s.frameSize]

		voiced, err := s.detector.Process(frame)
		if err != nil {
			return events, fmt.Errorf("frame classification failed: %w", err)
		}

		evs := s.advance(frame, voiced)
		events = append(events, evs...)

		s.pending = s.pending[s.frameSize:]
		s.offset += int64(s.frameSize)
	}

	// Reclaim the consumed prefix.
	if len(s.pending) == 0 {
		s.pending = s.pending[:0]
	}

	return events, nil
}

// advance runs the hysteresis state machine for one classified frame.
// Caller holds the lock.
func (s *Segmenter) advance(frame []int16, voiced bool) []Event {
	var events []Event

	switch {
	case voiced && !s.speaking:
		s.speaking = true
		s.silenceRun = 0

		// Pre-roll precedes the current frame in the stream.
		roll := s.preRoll.ReadAll()
		s.startSample = s.offset - int64(len(roll))
		s.segment = append(s.segment[:0], roll...)
		s.segment = append(s.segment, frame...)

		startMs := s.startSample * 1000 / int64(s.sampleRate)
		_, s.segmentSpan = trace.StartSpan(s.ctx, "segmenter.speech_segment",
			oteltrace.WithAttributes(trace.SessionAttrs(s.sessionID)...))
		events = append(events, Event{
			Type:      EventSpeechStart,
			SessionID: s.sessionID,
			StartMs:   startMs,
			Timestamp: time.Now(),
		})

	case s.speaking:
		s.segment = append(s.segment, frame...)
		if voiced {
			s.silenceRun = 0
		} else {
			s.silenceRun++
			if s.silenceRun >= s.minSilence {
				events = append(events, s.closeSegment())
			}
		}
	}

	s.preRoll.Write(frame)
	return events
}

// closeSegment trims the silence tail down to the configured padding and
// emits the end event. Caller holds the lock.
func (s *Segmenter) closeSegment() Event {
	trim := (s.silenceRun - s.padFrames) * s.frameSize
	if trim < 0 {
		trim = 0
	}
	if trim > len(s.segment) {
		trim = len(s.segment)
	}
	seg := make([]int16, len(s.segment)-trim)
	copy(seg, s.segment[:len(s.segment)-trim])

	startMs := s.startSample * 1000 / int64(s.sampleRate)
	endMs := startMs + int64(len(seg))*1000/int64(s.sampleRate)

	if s.segmentSpan != nil {
		s.segmentSpan.SetAttributes(trace.SegmentAttrs(startMs, endMs, len(seg))...)
		s.segmentSpan.End()
		s.segmentSpan = nil
	}

	s.speaking = false
	s.silenceRun = 0
	s.segment = s.segment[:0]

	return Event{
		Type:      EventSpeechEnd,
		SessionID: s.sessionID,
		StartMs:   startMs,
		EndMs:     endMs,
		Samples:   seg,
		Timestamp: time.Now(),
	}
}

// Flush closes any open segment, returning its end event. Use at end of
// stream so trailing speech is not lost.
func (s *Segmenter) Flush() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.speaking {
		return nil
	}
	return []Event{s.closeSegment()}
}

// Reset discards all buffered audio and state. The detector is reset as
// well, so the segmenter can be reused on a new stream.
func (s *Segmenter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.segmentSpan != nil {
		s.segmentSpan.End()
		s.segmentSpan = nil
	}
	s.detector.Reset()
	s.preRoll.Clear()
	s.pending = s.pending[:0]
	s.segment = s.segment[:0]
	s.speaking = false
	s.silenceRun = 0
	s.offset = 0
	s.startSample = 0
}

// Close releases the detector. The segmenter must not be used after
// Close.
func (s *Segmenter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.segmentSpan != nil {
		s.segmentSpan.End()
		s.segmentSpan = nil
	}
	return s.detector.Destroy()
}
