package vad

import "math"

// The filterbank splits the 8 kHz frame into six sub-bands through a
// cascade of quadrature mirror half-band splits, each split decimating
// by two:
//
//	0-4000 -> [0-2000 | 2000-4000]
//	2000-4000 -> [2000-3000 | 3000-4000]
//	0-2000 -> [0-1000 | 1000-2000]
//	0-1000 -> [0-500 | 500-1000]
//	0-500  -> [0-250 | 250-500]
//
// and an 80 Hz high-pass isolating 80-250 Hz from the lowest branch.
// The feature per band is the log energy of the band signal.

// All-pass coefficients of the split pair (upper and lower branch).
const (
	splitCoefUpper = 0.64
	splitCoefLower = 0.17
)

// 80 Hz high-pass biquad (for the 500 Hz-sampled lowest branch):
// numerator and denominator coefficients.
var (
	hpZeroCoefs = [3]float64{0.4047, -0.8094, 0.4047}
	hpPoleCoefs = [3]float64{1.0, -0.4734, 0.3430}
)

// logEnergyOffset is added to each band's log energy, compensating the
// per-stage scaling of the split cascade so the features line up with
// the mixture calibration. In dB, indexed by band.
var logEnergyOffset = [numChannels]float64{23, 23, 17, 11, 11, 11}

// allPassFilter runs one first-order all-pass branch over every second
// sample of in (offset selects the polyphase leg), writing n output
// samples. The branch output is scaled by one half so that the sum of
// the two legs has unity passband gain.
func allPassFilter(in []float64, offset, n int, coef float64, state *float64, out []float64) {
	s := *state
	for i := 0; i < n; i++ {
		x := in[2*i+offset]
		y := s + 0.5*coef*x
		s = 0.5*x - coef*y
		out[i] = y
	}
	*state = s
}

// splitFilter splits in (length n) into the upper and lower half band,
// each decimated to n/2 samples. hp and lp must not alias in.
func splitFilter(in []float64, n int, upperState, lowerState *float64, hp, lp []float64) {
	half := n / 2
	allPassFilter(in, 0, half, splitCoefUpper, upperState, hp)
	allPassFilter(in, 1, half, splitCoefLower, lowerState, lp)

	for i := 0; i < half; i++ {
		a := hp[i]
		hp[i] -= lp[i]
		lp[i] += a
	}
}

// highPassFilter removes content below 80 Hz from the lowest branch.
func highPassFilter(in []float64, n int, state []float64, out []float64) {
	for i := 0; i < n; i++ {
		x := in[i]
		y := hpZeroCoefs[0]*x + hpZeroCoefs[1]*state[0] + hpZeroCoefs[2]*state[1]
		state[1] = state[0]
		state[0] = x

		y -= hpPoleCoefs[1]*state[2] + hpPoleCoefs[2]*state[3]
		state[3] = state[2]
		state[2] = y
		out[i] = y
	}
}

// logOfEnergy returns the band's feature, 10*log10 of the energy of data
// plus the band offset, floored so that vanishing energy yields the
// offset itself. It also accumulates the raw energy into total for the
// silence gate.
func logOfEnergy(data []float64, n int, offset float64, total *float64) float64 {
	var energy float64
	for i := 0; i < n; i++ {
		energy += data[i] * data[i]
	}
	*total += energy

	if energy <= 0 {
		return offset
	}
	le := 10 * math.Log10(energy)
	if le < 0 {
		le = 0
	}
	return le + offset
}

// calculateFeatures fills d.features with the six band log energies of
// the 8 kHz frame and d.totalEnergy with the frame's raw energy
// indicator. frame length is 80, 160 or 240 samples; the caller has
// already validated it.
func (d *Detector) calculateFeatures(frame []int16) {
	n := len(frame)
	in := d.fbInput[:n]
	for i, s := range frame {
		in[i] = float64(s)
	}

	d.totalEnergy = 0

	// Split at 2000 Hz: fbHalf1 = 2000-4000, fbHalf2 = 0-2000.
	half := n / 2
	splitFilter(in, n, &d.upperState[0], &d.lowerState[0], d.fbHalf1[:], d.fbHalf2[:])

	// Upper branch, split at 3000 Hz.
	quarter := half / 2
	splitFilter(d.fbHalf1[:], half, &d.upperState[1], &d.lowerState[1], d.fbQuarter1[:], d.fbQuarter2[:])
	d.features[5] = logOfEnergy(d.fbQuarter1[:], quarter, logEnergyOffset[5], &d.totalEnergy) // 3000-4000
	d.features[4] = logOfEnergy(d.fbQuarter2[:], quarter, logEnergyOffset[4], &d.totalEnergy) // 2000-3000

	// Lower branch, split at 1000 Hz.
	splitFilter(d.fbHalf2[:], half, &d.upperState[2], &d.lowerState[2], d.fbQuarter1[:], d.fbQuarter2[:])
	d.features[3] = logOfEnergy(d.fbQuarter1[:], quarter, logEnergyOffset[3], &d.totalEnergy) // 1000-2000

	// 0-1000 Hz, split at 500 Hz.
	eighth := quarter / 2
	splitFilter(d.fbQuarter2[:], quarter, &d.upperState[3], &d.lowerState[3], d.fbHalf1[:], d.fbHalf2[:])
	d.features[2] = logOfEnergy(d.fbHalf1[:], eighth, logEnergyOffset[2], &d.totalEnergy) // 500-1000

	// 0-500 Hz, split at 250 Hz.
	sixteenth := eighth / 2
	splitFilter(d.fbHalf2[:], eighth, &d.upperState[4], &d.lowerState[4], d.fbQuarter1[:], d.fbQuarter2[:])
	d.features[1] = logOfEnergy(d.fbQuarter1[:], sixteenth, logEnergyOffset[1], &d.totalEnergy) // 250-500

	// Strip 0-80 Hz from the remaining 0-250 Hz band.
	highPassFilter(d.fbQuarter2[:], sixteenth, d.hpState[:], d.fbHalf1[:])
	d.features[0] = logOfEnergy(d.fbHalf1[:], sixteenth, logEnergyOffset[0], &d.totalEnergy) // 80-250
}
