package vad

import (
	"github.com/kaegi/webrtc-vad/pkg/audio"
)

const (
	// numChannels is the number of frequency sub-bands.
	numChannels = 6
	// numGaussians is the number of mixture components per class and band.
	numGaussians = 2
	// tableSize is the size of the flat band-major mixture tables
	// (gaussian index = band + component*numChannels).
	tableSize = numChannels * numGaussians

	// minFrameEnergy is the silence gate: frames whose accumulated raw
	// band energy stays at or below this are classified as non-speech
	// without touching the models.
	minFrameEnergy = 10.0

	// minStdDev is the lower bound on mixture standard deviations, in dB.
	// Keeps likelihoods away from degenerate zero-variance spikes.
	minStdDev = 3.0

	defaultSampleRate = SampleRate8kHz
	defaultMode       = ModeQuality

	// maxFrameLength is the longest supported frame: 30 ms at 48 kHz.
	maxFrameLength = 1440
)

// spectrumWeights aggregates per-band log likelihood ratios into the
// global score. Lower bands carry more weight for voiced speech.
var spectrumWeights = [numChannels]float64{6, 8, 10, 12, 14, 16}

// Adaptation rates for the online mixture updates.
const (
	noiseMeanRate  = 655.0 / 32768.0  // ~0.02 per frame
	speechMeanRate = 6554.0 / 32768.0 // ~0.2 per frame
	backEta        = 154.0 / 256.0    // long-term noise correction pull
	noiseStdRate   = 1.0 / 1024.0
	speechStdRate  = 0.025
)

// Drift bounds for the adapted means, in dB.
var (
	// minimumDifference is the smallest allowed gap between the weighted
	// speech and noise means per band; closer models get separated.
	minimumDifference = [numChannels]float64{17, 17, 18, 18, 18, 18}
	// maximumSpeech caps the weighted speech mean per band.
	maximumSpeech = [numChannels]float64{89, 89, 90, 90, 90, 90}
	// maximumNoise caps the weighted noise mean per band.
	maximumNoise = [numChannels]float64{72, 71, 70, 69, 68, 67}
	// minimumMean floors the speech means per mixture component.
	minimumMean = [numGaussians]float64{5, 6}
)

// Calibrated mixture priors, stored in the calibration's native
// resolution of 1/128 dB (means, standard deviations) and 1/128 mass
// (weights; the two weights of a class sum to 1 per band). Loaded into
// the adaptive state on reset.
var (
	noiseMeanPrior = [tableSize]int{
		6738, 4892, 7065, 6715, 6771, 3369, 7646, 3863, 7820, 7266, 5020, 4362,
	}
	speechMeanPrior = [tableSize]int{
		8306, 10085, 10078, 11823, 11843, 6309, 9473, 9571, 10879, 7581, 8180, 7483,
	}
	noiseStdPrior = [tableSize]int{
		378, 1064, 493, 582, 688, 593, 474, 697, 475, 688, 421, 455,
	}
	speechStdPrior = [tableSize]int{
		555, 505, 567, 524, 585, 1231, 509, 828, 492, 1540, 1079, 850,
	}
	noiseWeightPrior = [tableSize]int{
		34, 62, 72, 66, 53, 25, 94, 66, 56, 62, 75, 103,
	}
	speechWeightPrior = [tableSize]int{
		48, 82, 45, 87, 50, 47, 80, 46, 83, 41, 78, 81,
	}
)

// modeThresholds holds the decision thresholds per aggressiveness mode,
// indexed by frame duration (10, 20, 30 ms). The local threshold applies
// per band (against 4x the band's log likelihood ratio), the global one
// against the spectrum-weighted sum. Values grow monotonically with the
// mode.
var modeThresholds = [4]struct {
	local  [3]float64
	global [3]float64
}{
	{local: [3]float64{24, 21, 24}, global: [3]float64{57, 48, 57}},
	{local: [3]float64{37, 32, 37}, global: [3]float64{100, 80, 100}},
	{local: [3]float64{82, 78, 82}, global: [3]float64{285, 260, 285}},
	{local: [3]float64{94, 94, 94}, global: [3]float64{1100, 1050, 1100}},
}

// Detector is a voice activity detection session. It owns all adaptive
// state (mixture statistics, filter delay lines, minimum tracker) and is
// not safe for concurrent use.
type Detector struct {
	sampleRate int
	mode       int

	// Two-component Gaussian mixtures per band for the noise and speech
	// classes, flat band-major layout.
	noiseMeans    [tableSize]float64
	speechMeans   [tableSize]float64
	noiseStds     [tableSize]float64
	speechStds    [tableSize]float64
	noiseWeights  [tableSize]float64
	speechWeights [tableSize]float64

	// frameCounter counts classified frames with signal energy; it
	// bootstraps the minimum tracker's median selection.
	frameCounter int

	minTracker minimumTracker

	// Filterbank delay lines: one upper/lower all-pass state per split
	// stage plus the 80 Hz high-pass biquad state.
	upperState [5]float64
	lowerState [5]float64
	hpState    [4]float64

	// Resampler delay lines, engaged only when sampleRate != 8000.
	ds32to16 audio.HalfBandDecimator
	ds16to8  audio.HalfBandDecimator
	ds48to16 *audio.FIRDecimator

	// Per-frame scratch, sized once at construction so Process never
	// allocates.
	features    [numChannels]float64
	totalEnergy float64
	wbScratch   []int16 // intermediate 16 kHz signal, max 30 ms = 480
	nbScratch   []int16 // 8 kHz signal, max 30 ms = 240
	pcmScratch  []int16 // decoded ProcessBytes input, max 30 ms at 48 kHz
	fbInput     [240]float64
	fbHalf1     [120]float64
	fbHalf2     [120]float64
	fbQuarter1  [60]float64
	fbQuarter2  [60]float64
}

// The 48 kHz path decimates by three behind a fixed 33-tap windowed-sinc
// low-pass with a 7 kHz corner, then halves to 8 kHz.
const (
	fir48Taps   = 33
	fir48Cutoff = 7000.0 / 48000.0
)

func newDetector() *Detector {
	return &Detector{
		ds48to16:   audio.NewFIRDecimator(3, fir48Taps, fir48Cutoff),
		wbScratch:  make([]int16, maxFrameLength/3),
		nbScratch:  make([]int16, maxFrameLength/6),
		pcmScratch: make([]int16, maxFrameLength),
	}
}

// reset returns all state to built-in defaults: 8000 Hz, mode 0, mixture
// priors, cleared delay lines and minimum tracker.
func (d *Detector) reset() {
	d.sampleRate = defaultSampleRate
	d.mode = defaultMode
	d.frameCounter = 0

	for i := 0; i < tableSize; i++ {
		d.noiseMeans[i] = float64(noiseMeanPrior[i]) / 128
		d.speechMeans[i] = float64(speechMeanPrior[i]) / 128
		d.noiseStds[i] = float64(noiseStdPrior[i]) / 128
		d.speechStds[i] = float64(speechStdPrior[i]) / 128
		d.noiseWeights[i] = float64(noiseWeightPrior[i]) / 128
		d.speechWeights[i] = float64(speechWeightPrior[i]) / 128
	}

	d.minTracker.reset()

	for i := range d.upperState {
		d.upperState[i] = 0
		d.lowerState[i] = 0
	}
	for i := range d.hpState {
		d.hpState[i] = 0
	}

	d.ds32to16.Reset()
	d.ds16to8.Reset()
	d.ds48to16.Reset()
}

// classifyFrame runs the full pipeline on a validated frame: decimation
// to 8 kHz, feature extraction and GMM classification.
func (d *Detector) classifyFrame(frame []int16) bool {
	var nb []int16
	switch d.sampleRate {
	case SampleRate8kHz:
		nb = frame
	case SampleRate16kHz:
		n := d.ds16to8.Process(frame, d.nbScratch)
		nb = d.nbScratch[:n]
	case SampleRate32kHz:
		n := d.ds32to16.Process(frame, d.wbScratch)
		n = d.ds16to8.Process(d.wbScratch[:n], d.nbScratch)
		nb = d.nbScratch[:n]
	case SampleRate48kHz:
		n := d.ds48to16.Process(frame, d.wbScratch)
		n = d.ds16to8.Process(d.wbScratch[:n], d.nbScratch)
		nb = d.nbScratch[:n]
	}

	d.calculateFeatures(nb)
	return d.classify(frameLengthIndex(len(nb)))
}

// frameLengthIndex maps an 8 kHz frame length to the threshold table
// index for its duration.
func frameLengthIndex(frameLength int) int {
	switch frameLength {
	case 80:
		return 0
	case 160:
		return 1
	default:
		return 2
	}
}
