// Package audio provides audio processing utilities.
//
// downsample.go implements the fixed decimation filters used to bring
// wideband input down to a narrowband working rate:
//
//   - HalfBandDecimator: factor-2 decimation built from a pair of
//     first-order all-pass branches (one per polyphase leg). Cascading two
//     of them covers 32 kHz -> 8 kHz.
//   - FIRDecimator: integer-factor decimation behind a fixed windowed-sinc
//     anti-aliasing low-pass, used for the 48 kHz -> 16 kHz stage.
//
// Both filters are deterministic: coefficients are a static property of
// the decimation ratio. All delay-line state lives in the decimator value,
// so one decimator must never be shared between streams.
package audio

import "math"

// All-pass coefficients for the two polyphase branches (upper 0.64,
// lower 0.17), matching the classic half-band split pair.
const (
	halfBandCoefUpper = 0.64
	halfBandCoefLower = 0.17
)

// HalfBandDecimator halves the sample rate of a 16-bit PCM stream.
// The zero value is ready to use.
type HalfBandDecimator struct {
	state [2]float64
}

// Process decimates in by two and writes len(in)/2 samples into out,
// returning the number of samples written. len(out) must be at least
// len(in)/2. The delay-line state carries over between calls.
func (d *HalfBandDecimator) Process(in, out []int16) int {
	half := len(in) / 2
	s1 := d.state[0]
	s2 := d.state[1]

	for n := 0; n < half; n++ {
		x1 := float64(in[2*n])
		x2 := float64(in[2*n+1])

		// Upper all-pass branch on even samples.
		y1 := (s1 + halfBandCoefUpper*x1) / 2
		s1 = x1 - 2*halfBandCoefUpper*y1

		// Lower all-pass branch on odd samples.
		y2 := (s2 + halfBandCoefLower*x2) / 2
		s2 = x2 - 2*halfBandCoefLower*y2

		out[n] = clampToInt16(y1 + y2)
	}

	d.state[0] = s1
	d.state[1] = s2
	return half
}

// Reset clears the delay-line state.
func (d *HalfBandDecimator) Reset() {
	d.state[0] = 0
	d.state[1] = 0
}

// FIRDecimator decimates by an integer factor after a fixed anti-aliasing
// low-pass (Hamming-windowed sinc).
type FIRDecimator struct {
	factor int
	taps   []float64
	hist   []float64
}

// NewFIRDecimator builds a decimator for the given factor. numTaps sets
// the filter length and cutoff the low-pass corner as a fraction of the
// input sample rate (0 < cutoff < 0.5). The coefficients are fully
// determined by the arguments; no further allocation happens in Process.
func NewFIRDecimator(factor, numTaps int, cutoff float64) *FIRDecimator {
	taps := make([]float64, numTaps)
	m := float64(numTaps - 1)
	var sum float64
	for i := range taps {
		t := float64(i) - m/2
		var s float64
		if t == 0 {
			s = 2 * cutoff
		} else {
			s = math.Sin(2*math.Pi*cutoff*t) / (math.Pi * t)
		}
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/m)
		taps[i] = s * w
		sum += taps[i]
	}
	// Normalize to unity DC gain.
	for i := range taps {
		taps[i] /= sum
	}

	return &FIRDecimator{
		factor: factor,
		taps:   taps,
		hist:   make([]float64, numTaps-1),
	}
}

// Factor returns the decimation factor.
func (f *FIRDecimator) Factor() int { return f.factor }

// Process decimates in by the configured factor and writes
// len(in)/factor samples into out, returning the number written.
// len(in) must be a multiple of the factor.
func (f *FIRDecimator) Process(in, out []int16) int {
	n := len(in) / f.factor
	histLen := len(f.hist)

	for i := 0; i < n; i++ {
		// The output sample aligns with input index i*factor; the
		// convolution reaches histLen samples into the past.
		pos := i * f.factor
		var acc float64
		for j, tap := range f.taps {
			k := pos - j
			var x float64
			if k >= 0 {
				x = float64(in[k])
			} else {
				x = f.hist[histLen+k]
			}
			acc += tap * x
		}
		out[i] = clampToInt16(acc)
	}

	// Carry the tail of the input into the history.
	if len(in) >= histLen {
		for i := 0; i < histLen; i++ {
			f.hist[i] = float64(in[len(in)-histLen+i])
		}
	} else {
		copy(f.hist, f.hist[len(in):])
		for i := 0; i < len(in); i++ {
			f.hist[histLen-len(in)+i] = float64(in[i])
		}
	}
	return n
}

// Reset clears the filter history.
func (f *FIRDecimator) Reset() {
	for i := range f.hist {
		f.hist[i] = 0
	}
}

func clampToInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(math.Round(v))
}
