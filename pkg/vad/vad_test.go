package vad

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTone produces a sine tone as 16-bit PCM. phase carries the
// oscillator phase across frames so consecutive calls produce a
// continuous signal.
func generateTone(freq float64, sampleRate, n int, amplitude float64, phase *float64) []int16 {
	samples := make([]int16, n)
	step := 2 * math.Pi * freq / float64(sampleRate)
	p := *phase
	for i := range samples {
		samples[i] = int16(amplitude * math.Sin(p))
		p += step
	}
	*phase = p
	return samples
}

func generateSilence(n int) []int16 {
	return make([]int16, n)
}

// generateNoise produces deterministic pseudo-random samples from a
// linear congruential generator.
func generateNoise(n int, amplitude float64, seed uint32) []int16 {
	samples := make([]int16, n)
	state := seed
	for i := range samples {
		state = state*1664525 + 1013904223
		// Map to [-1, 1).
		v := float64(int32(state)) / float64(math.MaxInt32+1)
		samples[i] = int16(amplitude * v)
	}
	return samples
}

func TestConfigIsValid(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "zero config", cfg: Config{}},
		{name: "valid 8kHz", cfg: Config{SampleRate: 8000}},
		{name: "valid 48kHz mode 3", cfg: Config{SampleRate: 48000, Mode: 3}},
		{name: "invalid rate", cfg: Config{SampleRate: 44100}, wantErr: ErrInvalidSampleRate},
		{name: "negative mode", cfg: Config{SampleRate: 16000, Mode: -1}, wantErr: ErrInvalidMode},
		{name: "mode too high", cfg: Config{SampleRate: 16000, Mode: 4}, wantErr: ErrInvalidMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.IsValid()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	d, err := New(Config{})
	require.NoError(t, err)
	defer d.Destroy()

	assert.Equal(t, 8000, d.SampleRate())
	assert.Equal(t, 0, d.Mode())
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(Config{SampleRate: 11025})
	assert.ErrorIs(t, err, ErrInvalidSampleRate)

	_, err = New(Config{SampleRate: 16000, Mode: 7})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestSetSampleRate(t *testing.T) {
	d, err := New(Config{})
	require.NoError(t, err)
	defer d.Destroy()

	require.NoError(t, d.SetSampleRate(32000))
	assert.Equal(t, 32000, d.SampleRate())

	err = d.SetSampleRate(22050)
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
	assert.Equal(t, 32000, d.SampleRate(), "failed SetSampleRate must not change the rate")
}

func TestSetMode(t *testing.T) {
	d, err := New(Config{})
	require.NoError(t, err)
	defer d.Destroy()

	require.NoError(t, d.SetMode(ModeVeryAggressive))
	assert.Equal(t, 3, d.Mode())

	err = d.SetMode(4)
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, 3, d.Mode(), "failed SetMode must not change the mode")

	err = d.SetMode(-1)
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, 3, d.Mode())
}

func TestValidRateAndFrameLength(t *testing.T) {
	valid := []struct{ rate, length int }{
		{8000, 80}, {8000, 160}, {8000, 240},
		{16000, 160}, {16000, 320}, {16000, 480},
		{32000, 320}, {32000, 640}, {32000, 960},
		{48000, 480}, {48000, 960}, {48000, 1440},
	}
	for _, v := range valid {
		assert.True(t, ValidRateAndFrameLength(v.rate, v.length),
			"rate %d length %d should be valid", v.rate, v.length)
	}

	invalid := []struct{ rate, length int }{
		{8000, 0}, {8000, 81}, {8000, 320},
		{16000, 159}, {44100, 441}, {16000, 1440},
	}
	for _, v := range invalid {
		assert.False(t, ValidRateAndFrameLength(v.rate, v.length),
			"rate %d length %d should be invalid", v.rate, v.length)
	}
}

func TestProcessInvalidFrameLength(t *testing.T) {
	d, err := New(Config{SampleRate: 8000})
	require.NoError(t, err)
	defer d.Destroy()

	_, err = d.Process(make([]int16, 100))
	assert.ErrorIs(t, err, ErrInvalidFrameLength)

	// A rejected frame must not disturb the adaptive state: subsequent
	// decisions match a detector that never saw the bad frame.
	fresh, err := New(Config{SampleRate: 8000})
	require.NoError(t, err)
	defer fresh.Destroy()

	var phaseA, phaseB float64
	for i := 0; i < 20; i++ {
		frame := generateTone(300, 8000, 160, 12000, &phaseA)
		got, err := d.Process(frame)
		require.NoError(t, err)

		want, err := fresh.Process(generateTone(300, 8000, 160, 12000, &phaseB))
		require.NoError(t, err)
		assert.Equal(t, want, got, "frame %d", i)
	}
}

func TestSilenceIsNeverSpeech(t *testing.T) {
	rates := []int{8000, 16000, 32000, 48000}
	durations := []int{10, 20, 30}
	modes := []int{ModeQuality, ModeVeryAggressive}

	for _, rate := range rates {
		for _, ms := range durations {
			for _, mode := range modes {
				name := fmt.Sprintf("%dHz_%dms_mode%d", rate, ms, mode)
				t.Run(name, func(t *testing.T) {
					d, err := New(Config{SampleRate: rate, Mode: mode})
					require.NoError(t, err)
					defer d.Destroy()

					frame := generateSilence(rate * ms / 1000)
					for i := 0; i < 50; i++ {
						speech, err := d.Process(frame)
						require.NoError(t, err)
						assert.False(t, speech, "silence flagged as speech at frame %d", i)
					}
				})
			}
		}
	}
}

func TestLoudToneTriggersAllModes(t *testing.T) {
	// A loud 200 Hz tone sits far above the noise model of an untrained
	// detector, so the very first frame must be flagged regardless of the
	// aggressiveness mode.
	for mode := ModeQuality; mode <= ModeVeryAggressive; mode++ {
		t.Run(fmt.Sprintf("mode%d", mode), func(t *testing.T) {
			d, err := New(Config{SampleRate: 8000, Mode: mode})
			require.NoError(t, err)
			defer d.Destroy()

			var phase float64
			frame := generateTone(200, 8000, 160, 20000, &phase)
			speech, err := d.Process(frame)
			require.NoError(t, err)
			assert.True(t, speech)
		})
	}
}

func TestToneSilenceDiscrimination(t *testing.T) {
	d, err := New(Config{SampleRate: 8000, Mode: ModeQuality})
	require.NoError(t, err)
	defer d.Destroy()

	// 30 seconds alternating one second of silence with one second of
	// loud 200 Hz tone, in 20 ms frames.
	var phase float64
	silence := generateSilence(160)
	var toneFrames, toneHits, silenceFrames, silenceHits int
	for second := 0; second < 30; second++ {
		tone := second%2 == 1
		for i := 0; i < 50; i++ {
			var frame []int16
			if tone {
				frame = generateTone(200, 8000, 160, 20000, &phase)
			} else {
				frame = silence
			}
			speech, err := d.Process(frame)
			require.NoError(t, err)
			if tone {
				toneFrames++
				if speech {
					toneHits++
				}
			} else {
				silenceFrames++
				if speech {
					silenceHits++
				}
			}
		}
	}

	assert.Greater(t, toneHits*10, toneFrames*8,
		"expected >80%% of tone frames flagged, got %d/%d", toneHits, toneFrames)
	assert.Less(t, silenceHits*10, silenceFrames*2,
		"expected <20%% of silence frames flagged, got %d/%d", silenceHits, silenceFrames)
}

func TestModeMonotonicity(t *testing.T) {
	// For any single frame presented to untrained detectors, a more
	// aggressive mode never reports speech where a less aggressive one
	// reported none.
	var corpus [][]int16
	var phase float64
	for _, freq := range []float64{150, 300, 700, 1500, 3500} {
		for _, amp := range []float64{300, 2000, 9000, 28000} {
			phase = 0
			corpus = append(corpus, generateTone(freq, 8000, 160, amp, &phase))
		}
	}
	for seed := uint32(1); seed <= 5; seed++ {
		corpus = append(corpus, generateNoise(160, 4000*float64(seed), seed))
	}
	corpus = append(corpus, generateSilence(160))

	for i, frame := range corpus {
		var decisions [4]bool
		for mode := 0; mode < 4; mode++ {
			d, err := New(Config{SampleRate: 8000, Mode: mode})
			require.NoError(t, err)
			decisions[mode], err = d.Process(frame)
			require.NoError(t, err)
			d.Destroy()
		}
		for mode := 1; mode < 4; mode++ {
			if decisions[mode] {
				assert.True(t, decisions[mode-1],
					"frame %d: mode %d flagged speech but mode %d did not", i, mode, mode-1)
			}
		}
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	d, err := New(Config{SampleRate: 32000, Mode: ModeAggressive})
	require.NoError(t, err)
	defer d.Destroy()

	var phase float64
	for i := 0; i < 10; i++ {
		_, err := d.Process(generateTone(440, 32000, 640, 15000, &phase))
		require.NoError(t, err)
	}

	// Reset is idempotent: a second reset changes nothing.
	d.Reset()
	d.Reset()
	assert.Equal(t, 8000, d.SampleRate())
	assert.Equal(t, 0, d.Mode())

	// After a reset the detector behaves exactly like a fresh one.
	fresh, err := New(Config{})
	require.NoError(t, err)
	defer fresh.Destroy()

	var phaseA, phaseB float64
	for i := 0; i < 20; i++ {
		got, err := d.Process(generateTone(250, 8000, 160, 8000, &phaseA))
		require.NoError(t, err)
		want, err := fresh.Process(generateTone(250, 8000, 160, 8000, &phaseB))
		require.NoError(t, err)
		assert.Equal(t, want, got, "frame %d", i)
	}
}

func TestProcessBytes(t *testing.T) {
	var phase float64
	frame := generateTone(200, 8000, 160, 20000, &phase)
	pcm := make([]byte, len(frame)*2)
	for i, s := range frame {
		pcm[2*i] = byte(s)
		pcm[2*i+1] = byte(uint16(s) >> 8)
	}

	a, err := New(Config{SampleRate: 8000})
	require.NoError(t, err)
	defer a.Destroy()
	b, err := New(Config{SampleRate: 8000})
	require.NoError(t, err)
	defer b.Destroy()

	fromSamples, err := a.Process(frame)
	require.NoError(t, err)
	fromBytes, err := b.ProcessBytes(pcm)
	require.NoError(t, err)
	assert.Equal(t, fromSamples, fromBytes)
}

func TestProcessBytesInvalid(t *testing.T) {
	d, err := New(Config{SampleRate: 8000})
	require.NoError(t, err)
	defer d.Destroy()

	_, err = d.ProcessBytes(make([]byte, 321))
	assert.ErrorIs(t, err, ErrInvalidFrameLength, "odd byte count")

	_, err = d.ProcessBytes(make([]byte, 200))
	assert.ErrorIs(t, err, ErrInvalidFrameLength, "not a frame length")
}

func TestHighRateToneDetection(t *testing.T) {
	// The same tone must be caught after decimation from every supported
	// input rate.
	for _, rate := range []int{16000, 32000, 48000} {
		t.Run(fmt.Sprintf("%dHz", rate), func(t *testing.T) {
			d, err := New(Config{SampleRate: rate, Mode: ModeQuality})
			require.NoError(t, err)
			defer d.Destroy()

			var phase float64
			frame := generateTone(200, rate, rate*20/1000, 20000, &phase)
			speech, err := d.Process(frame)
			require.NoError(t, err)
			assert.True(t, speech)
		})
	}
}

func TestDestroy(t *testing.T) {
	d, err := New(Config{})
	require.NoError(t, err)
	assert.NoError(t, d.Destroy())
}

func TestErrorsUnwrap(t *testing.T) {
	_, err := New(Config{SampleRate: 12345})
	assert.True(t, errors.Is(err, ErrInvalidSampleRate))
}
