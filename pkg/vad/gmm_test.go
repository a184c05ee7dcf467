package vad

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGaussianProbability(t *testing.T) {
	t.Run("at the mean", func(t *testing.T) {
		p, delta := gaussianProbability(50, 50, 4)
		assert.InDelta(t, 0.25, p, 1e-12, "density at the mean is 1/std")
		assert.Zero(t, delta)
	})

	t.Run("one std away", func(t *testing.T) {
		p, delta := gaussianProbability(54, 50, 4)
		assert.InDelta(t, math.Exp(-0.5)/4, p, 1e-12)
		assert.InDelta(t, 0.25, delta, 1e-12, "delta is (x-m)/s^2")
	})

	t.Run("symmetry", func(t *testing.T) {
		pLow, deltaLow := gaussianProbability(40, 50, 3)
		pHigh, deltaHigh := gaussianProbability(60, 50, 3)
		assert.Equal(t, pLow, pHigh)
		assert.Equal(t, -deltaLow, deltaHigh)
	})

	t.Run("underflows to zero far from the mean", func(t *testing.T) {
		p, delta := gaussianProbability(100, 50, 3)
		assert.Zero(t, p, "exponent beyond the cutoff must give exactly zero")
		assert.NotZero(t, delta, "delta is still reported for the adaptation")
	})

	t.Run("just inside the cutoff", func(t *testing.T) {
		// exponent = (x-m)^2 / (2 s^2) slightly below the cutoff.
		x := 50 + math.Sqrt(2*gaussianExpCutoff*9) - 0.01
		p, _ := gaussianProbability(x, 50, 3)
		assert.Greater(t, p, 0.0)
	})
}

func TestMinimumTrackerConvergesDown(t *testing.T) {
	var m minimumTracker
	m.reset()

	var got float64
	for i := 0; i < 10; i++ {
		got = m.update(50, 0, i+3)
	}
	// The smoothed floor starts at 100 and follows the observed minimum
	// quickly on the way down.
	assert.Less(t, got, 51.0)
	assert.GreaterOrEqual(t, got, 50.0)
}

func TestMinimumTrackerExpiry(t *testing.T) {
	var m minimumTracker
	m.reset()

	fc := 3
	// Three low outliers enter the window.
	for i := 0; i < 3; i++ {
		m.update(10, 0, fc)
		fc++
	}

	// The floor tracks the outliers while they are in the window.
	var floor float64
	for i := 0; i < 97; i++ {
		floor = m.update(50, 0, fc)
		fc++
	}
	assert.Less(t, floor, 12.0, "outliers still inside the 100-frame window")

	// Once they age out, the floor recovers toward the sustained level.
	for i := 0; i < 250; i++ {
		floor = m.update(50, 0, fc)
		fc++
	}
	assert.Greater(t, floor, 40.0, "expired outliers must stop holding the floor down")
	assert.LessOrEqual(t, floor, 50.0)
}

func TestMinimumTrackerPerBandIsolation(t *testing.T) {
	var m minimumTracker
	m.reset()

	fc := 3
	for i := 0; i < 10; i++ {
		m.update(20, 0, fc)
		fc++
	}

	// Band 1 was never updated; its floor estimate is untouched.
	assert.Equal(t, initialFloorEstimate, m.smoothed[1])
	assert.Less(t, m.smoothed[0], initialFloorEstimate)
}
