package vad

// minimumTracker maintains, per band, the 16 smallest feature values
// observed over roughly the last 100 classified frames and exposes a
// smoothed median of the smallest of them. The noise model's long-term
// correction follows this estimate of the background floor.

const (
	minTrackerSlots  = 16
	minTrackerMaxAge = 100

	// initialMinimum seeds the slots above any real feature value.
	initialMinimum = 625.0
	// initialFloorEstimate seeds the smoothed estimate.
	initialFloorEstimate = 100.0

	// Median smoothing: fast when the floor drops, slow when it rises.
	smoothingDown = 0.2
	smoothingUp   = 0.99
)

type minimumTracker struct {
	values   [numChannels][minTrackerSlots]float64
	ages     [numChannels][minTrackerSlots]int
	smoothed [numChannels]float64
}

func (m *minimumTracker) reset() {
	for ch := 0; ch < numChannels; ch++ {
		for i := 0; i < minTrackerSlots; i++ {
			m.values[ch][i] = initialMinimum
			m.ages[ch][i] = 0
		}
		m.smoothed[ch] = initialFloorEstimate
	}
}

// update ages the band's slots, inserts value if it ranks among the 16
// smallest, and returns the smoothed floor estimate. frameCount gates the
// median choice while the window is still filling after a reset.
func (m *minimumTracker) update(value float64, ch, frameCount int) float64 {
	values := &m.values[ch]
	ages := &m.ages[ch]

	// Age the slots and expire values older than the window, shifting
	// the larger values down to fill the gap.
	for i := 0; i < minTrackerSlots; i++ {
		if ages[i] != minTrackerMaxAge {
			ages[i]++
			continue
		}
		for j := i; j < minTrackerSlots-1; j++ {
			values[j] = values[j+1]
			ages[j] = ages[j+1]
		}
		values[minTrackerSlots-1] = initialMinimum
		ages[minTrackerSlots-1] = minTrackerMaxAge + 1
	}

	// Insert the new value at its rank, pushing larger values up.
	if value < values[minTrackerSlots-1] {
		pos := 0
		for pos < minTrackerSlots && values[pos] <= value {
			pos++
		}
		for i := minTrackerSlots - 1; i > pos; i-- {
			values[i] = values[i-1]
			ages[i] = ages[i-1]
		}
		values[pos] = value
		ages[pos] = 1
	}

	median := initialFloorEstimate
	if frameCount > 2 {
		median = values[2]
	} else if frameCount > 0 {
		median = values[0]
	}

	alpha := 0.0
	if frameCount > 0 {
		if median < m.smoothed[ch] {
			alpha = smoothingDown
		} else {
			alpha = smoothingUp
		}
	}
	m.smoothed[ch] = alpha*m.smoothed[ch] + (1-alpha)*median

	return m.smoothed[ch]
}
