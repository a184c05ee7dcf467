// Package vad provides frame-based voice activity detection for mono
// 16-bit PCM audio.
//
// The detector classifies each 10, 20 or 30 ms frame as speech or
// non-speech using per-band Gaussian mixture models over sub-band log
// energies. Input at 16, 32 or 48 kHz is decimated to the internal 8 kHz
// working rate first; the mixture statistics adapt online to the
// background, so no training phase is required.
//
// Usage:
//
//	detector, err := vad.New(vad.Config{SampleRate: 16000, Mode: 2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer detector.Destroy()
//
//	speech, err := detector.Process(frame) // 160/320/480 samples at 16 kHz
//
// A Detector owns mutable adaptive state and must not be shared between
// concurrent Process calls; create one Detector per audio stream.
package vad

import (
	"encoding/binary"
	"fmt"
)

// Supported sample rates in Hz.
const (
	SampleRate8kHz  = 8000
	SampleRate16kHz = 16000
	SampleRate32kHz = 32000
	SampleRate48kHz = 48000
)

// Aggressiveness modes. Higher modes are more restrictive in reporting
// speech: the probability of a frame actually being speech when the
// detector says so increases with the mode, and so does the miss rate.
const (
	ModeQuality        = 0
	ModeLowBitrate     = 1
	ModeAggressive     = 2
	ModeVeryAggressive = 3
)

// Config holds the configuration for creating a detector.
type Config struct {
	// SampleRate of the input audio in Hz. Supported values are 8000,
	// 16000, 32000 and 48000. Zero selects the default of 8000.
	SampleRate int
	// Mode is the aggressiveness mode, 0 (most permissive) to 3 (most
	// restrictive). The default is 0.
	Mode int
}

// IsValid validates the detector configuration.
func (c Config) IsValid() error {
	if c.SampleRate != 0 && !validSampleRate(c.SampleRate) {
		return fmt.Errorf("%w: %d (valid values are 8000, 16000, 32000 and 48000)",
			ErrInvalidSampleRate, c.SampleRate)
	}
	if c.Mode < ModeQuality || c.Mode > ModeVeryAggressive {
		return fmt.Errorf("%w: %d (valid values are 0 to 3)", ErrInvalidMode, c.Mode)
	}
	return nil
}

// New creates a detector with the given configuration. A zero Config
// yields the defaults: 8000 Hz, mode 0.
func New(cfg Config) (*Detector, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = SampleRate8kHz
	}

	d := newDetector()
	d.reset()
	d.sampleRate = cfg.SampleRate
	d.mode = cfg.Mode
	return d, nil
}

// SampleRate returns the configured input sample rate in Hz.
func (d *Detector) SampleRate() int { return d.sampleRate }

// Mode returns the configured aggressiveness mode.
func (d *Detector) Mode() int { return d.mode }

// SetSampleRate changes the input sample rate. Valid values are 8000,
// 16000, 32000 and 48000 Hz; anything else fails with
// ErrInvalidSampleRate and leaves the detector untouched. Internally all
// processing happens at 8000 Hz; higher rates are decimated first.
func (d *Detector) SetSampleRate(rate int) error {
	if !validSampleRate(rate) {
		return fmt.Errorf("%w: %d (valid values are 8000, 16000, 32000 and 48000)",
			ErrInvalidSampleRate, rate)
	}
	d.sampleRate = rate
	return nil
}

// SetMode changes the aggressiveness mode. Valid values are 0 to 3;
// anything else fails with ErrInvalidMode and leaves the detector
// untouched.
func (d *Detector) SetMode(mode int) error {
	if mode < ModeQuality || mode > ModeVeryAggressive {
		return fmt.Errorf("%w: %d (valid values are 0 to 3)", ErrInvalidMode, mode)
	}
	d.mode = mode
	return nil
}

// Reset reinitializes the detector, discarding all adaptation history
// and returning the sample rate and mode to their defaults (8000 Hz,
// mode 0).
func (d *Detector) Reset() {
	d.reset()
}

// Process classifies a single frame of 16-bit mono PCM at the configured
// sample rate and returns true if it contains speech.
//
// The frame must cover exactly 10, 20 or 30 ms (for example 80, 160 or
// 240 samples at 8000 Hz); any other length fails with
// ErrInvalidFrameLength and mutates no state. This is the single frame
// length validation in the pipeline.
func (d *Detector) Process(frame []int16) (bool, error) {
	if !ValidRateAndFrameLength(d.sampleRate, len(frame)) {
		return false, fmt.Errorf("%w: %d samples at %d Hz",
			ErrInvalidFrameLength, len(frame), d.sampleRate)
	}
	return d.classifyFrame(frame), nil
}

// ProcessBytes classifies a frame given as little-endian 16-bit PCM
// bytes. See Process for the frame length contract.
func (d *Detector) ProcessBytes(pcm []byte) (bool, error) {
	if len(pcm)%2 != 0 {
		return false, fmt.Errorf("%w: odd byte count %d", ErrInvalidFrameLength, len(pcm))
	}
	n := len(pcm) / 2
	if n > len(d.pcmScratch) {
		return false, fmt.Errorf("%w: %d samples at %d Hz",
			ErrInvalidFrameLength, n, d.sampleRate)
	}
	frame := d.pcmScratch[:n]
	for i := range frame {
		frame[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return d.Process(frame)
}

// Destroy releases the detector. The detector must not be used after
// calling Destroy. Present for interface parity with detectors that hold
// native resources; for this pure-Go engine it only drops state.
func (d *Detector) Destroy() error {
	return nil
}

// ValidRateAndFrameLength reports whether the combination of sample rate
// and frame length (in samples) is supported: one of the four rates with
// a frame covering exactly 10, 20 or 30 ms.
func ValidRateAndFrameLength(rate, frameLength int) bool {
	if !validSampleRate(rate) {
		return false
	}
	for ms := 10; ms <= 30; ms += 10 {
		if frameLength == rate*ms/1000 {
			return true
		}
	}
	return false
}

func validSampleRate(rate int) bool {
	switch rate {
	case SampleRate8kHz, SampleRate16kHz, SampleRate32kHz, SampleRate48kHz:
		return true
	}
	return false
}
