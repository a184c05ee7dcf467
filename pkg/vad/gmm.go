package vad

import "math"

const (
	// gaussianExpCutoff bounds the exponent of the Gaussian density.
	// Beyond it the probability is treated as exactly zero, which feeds
	// the saturated likelihood-ratio branches below.
	gaussianExpCutoff = 21.49

	// saturatedLLR is the log2 likelihood ratio assigned when one
	// hypothesis' probability underflows to zero while the other stays
	// positive.
	saturatedLLR = 28.0
)

// gaussianProbability evaluates the density (1/s)*exp(-(x-m)^2 / (2*s^2))
// and returns it together with delta = (x-m)/s^2, which the adaptation
// reuses as the scaled deviation from the component mean.
func gaussianProbability(x, mean, std float64) (p, delta float64) {
	diff := x - mean
	delta = diff / (std * std)

	exponent := 0.5 * delta * diff // (x-m)^2 / (2*s^2)
	if exponent >= gaussianExpCutoff {
		return 0, delta
	}
	return math.Exp(-exponent) / std, delta
}

// classify runs the two-class likelihood-ratio test over the current
// feature vector and updates the mixtures. frameIdx selects the
// threshold column for the frame duration. The models adapt on every
// frame with signal energy, regardless of the decision.
func (d *Detector) classify(frameIdx int) bool {
	if d.totalEnergy <= minFrameEnergy {
		// Nothing to classify or learn from; silence is never speech.
		return false
	}

	localThreshold := modeThresholds[d.mode].local[frameIdx]
	globalThreshold := modeThresholds[d.mode].global[frameIdx]

	// Likelihood-ratio test between H0 (noise) and H1 (speech), combining
	// a per-band local test with a spectrum-weighted global test.
	var (
		voiced      bool
		weightedLLR float64
		deltaN      [tableSize]float64 // scaled deviations, reused by adapt
		deltaS      [tableSize]float64
		noiseProbs  [tableSize]float64 // per-component conditional probabilities
		speechProbs [tableSize]float64
	)

	for ch := 0; ch < numChannels; ch++ {
		x := d.features[ch]
		var h0, h1 float64
		var pn, ps [numGaussians]float64

		for k := 0; k < numGaussians; k++ {
			g := ch + k*numChannels

			p, delta := gaussianProbability(x, d.noiseMeans[g], d.noiseStds[g])
			pn[k] = d.noiseWeights[g] * p
			deltaN[g] = delta
			h0 += pn[k]

			p, delta = gaussianProbability(x, d.speechMeans[g], d.speechStds[g])
			ps[k] = d.speechWeights[g] * p
			deltaS[g] = delta
			h1 += ps[k]
		}

		var llr float64
		switch {
		case h0 > 0 && h1 > 0:
			llr = math.Log2(h1 / h0)
		case h1 > 0:
			llr = saturatedLLR
		case h0 > 0:
			llr = -saturatedLLR
		}
		weightedLLR += llr * spectrumWeights[ch]

		if 4*llr > localThreshold {
			voiced = true
		}

		// Conditional component probabilities for the model update. When
		// a class' total likelihood underflows, the noise update assigns
		// everything to the first component and the speech update is
		// skipped entirely.
		if h0 > 0 {
			noiseProbs[ch] = pn[0] / h0
			noiseProbs[ch+numChannels] = 1 - noiseProbs[ch]
		} else {
			noiseProbs[ch] = 1
		}
		if h1 > 0 {
			speechProbs[ch] = ps[0] / h1
			speechProbs[ch+numChannels] = 1 - speechProbs[ch]
		}
	}

	if weightedLLR >= globalThreshold {
		voiced = true
	}

	d.adapt(voiced, &noiseProbs, &speechProbs, &deltaN, &deltaS)
	d.frameCounter++

	return voiced
}

// adapt performs the online mixture update: the class consistent with the
// decision pulls its matching component's mean (and that component's
// variance) toward the observation, the noise model additionally tracks
// the long-term feature minimum, and the two models are kept separated
// and inside their drift bounds.
func (d *Detector) adapt(voiced bool, noiseProbs, speechProbs, deltaN, deltaS *[tableSize]float64) {
	// Cap for the speech means; starts at the global ceiling and follows
	// the per-band table as the bands are processed.
	maxSpeechMean := 100.0

	for ch := 0; ch < numChannels; ch++ {
		x := d.features[ch]

		featureMin := d.minTracker.update(x, ch, d.frameCounter)
		noiseGlobal := shiftedWeightedMean(d.noiseMeans[:], d.noiseWeights[:], ch, 0)

		for k := 0; k < numGaussians; k++ {
			g := ch + k*numChannels
			nmk := d.noiseMeans[g]

			nmk2 := nmk
			if !voiced {
				nmk2 = nmk + noiseMeanRate*noiseProbs[g]*deltaN[g]
			}

			// Long-term correction toward the tracked minimum.
			nmk3 := nmk2 + backEta*(featureMin-noiseGlobal)
			if lo := float64(k + 5); nmk3 < lo {
				nmk3 = lo
			}
			if hi := float64(72 + k - ch); nmk3 > hi {
				nmk3 = hi
			}
			d.noiseMeans[g] = nmk3

			if voiced {
				smk := d.speechMeans[g] + speechMeanRate*speechProbs[g]*deltaS[g]
				if smk < minimumMean[k] {
					smk = minimumMean[k]
				}
				if hi := maxSpeechMean + 5; smk > hi {
					smk = hi
				}
				d.speechMeans[g] = smk

				// Pull the variance toward the observed squared deviation.
				t := deltaS[g]*(x-smk) - 1
				ssk := d.speechStds[g] + speechStdRate*speechProbs[g]*t/d.speechStds[g]
				if ssk < minStdDev {
					ssk = minStdDev
				}
				d.speechStds[g] = ssk
			} else {
				t := deltaN[g]*(x-nmk) - 1
				nsk := d.noiseStds[g] + noiseStdRate*noiseProbs[g]*t/d.noiseStds[g]
				if nsk < minStdDev {
					nsk = minStdDev
				}
				d.noiseStds[g] = nsk
			}
		}

		// Separate the models if they have drifted too close together:
		// most of the correction moves the speech model up, the rest
		// moves the noise model down.
		noiseGlobal = shiftedWeightedMean(d.noiseMeans[:], d.noiseWeights[:], ch, 0)
		speechGlobal := shiftedWeightedMean(d.speechMeans[:], d.speechWeights[:], ch, 0)

		if diff := speechGlobal - noiseGlobal; diff < minimumDifference[ch] {
			shortfall := minimumDifference[ch] - diff
			speechGlobal = shiftedWeightedMean(d.speechMeans[:], d.speechWeights[:], ch, (13.0/16.0)*shortfall)
			noiseGlobal = shiftedWeightedMean(d.noiseMeans[:], d.noiseWeights[:], ch, -(3.0/16.0)*shortfall)
		}

		// Keep the weighted means inside their ceilings.
		maxSpeechMean = maximumSpeech[ch]
		if over := speechGlobal - maxSpeechMean; over > 0 {
			for k := 0; k < numGaussians; k++ {
				d.speechMeans[ch+k*numChannels] -= over
			}
		}
		if over := noiseGlobal - maximumNoise[ch]; over > 0 {
			for k := 0; k < numGaussians; k++ {
				d.noiseMeans[ch+k*numChannels] -= over
			}
		}
	}
}

// shiftedWeightedMean adds offset to the band's component means and
// returns the resulting weight-averaged mean. With a zero offset it is a
// pure read.
func shiftedWeightedMean(means, weights []float64, ch int, offset float64) float64 {
	var avg float64
	for k := 0; k < numGaussians; k++ {
		g := ch + k*numChannels
		means[g] += offset
		avg += means[g] * weights[g]
	}
	return avg
}
