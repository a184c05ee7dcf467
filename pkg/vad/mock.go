package vad

import "sync"

// MockDetector is a mock implementation of Interface for testing.
// It allows customizing the behavior of Process through the ProcessFunc
// field.
type MockDetector struct {
	// ProcessFunc is called when Process is invoked.
	// If nil, Process returns false (no speech detected).
	ProcessFunc func(frame []int16) (bool, error)

	// ProcessCalls records all frames passed to Process for verification.
	ProcessCalls [][]int16

	// ModeCalls records the modes passed to SetMode.
	ModeCalls []int

	// ResetCalled tracks if Reset was called.
	ResetCalled bool

	// DestroyCalled tracks if Destroy was called.
	DestroyCalled bool

	mu sync.Mutex
}

// NewMockDetector creates a new MockDetector with default behavior.
func NewMockDetector() *MockDetector {
	return &MockDetector{
		ProcessCalls: make([][]int16, 0),
	}
}

// NewMockDetectorWithDecision creates a MockDetector that returns a fixed
// decision for every frame.
func NewMockDetectorWithDecision(speech bool) *MockDetector {
	return &MockDetector{
		ProcessFunc: func(frame []int16) (bool, error) {
			return speech, nil
		},
		ProcessCalls: make([][]int16, 0),
	}
}

// NewMockDetectorWithSequence creates a MockDetector that returns the
// given decisions in order, cycling back to the beginning once they are
// exhausted.
func NewMockDetectorWithSequence(decisions []bool) *MockDetector {
	idx := 0
	return &MockDetector{
		ProcessFunc: func(frame []int16) (bool, error) {
			if len(decisions) == 0 {
				return false, nil
			}
			decision := decisions[idx]
			idx = (idx + 1) % len(decisions)
			return decision, nil
		},
		ProcessCalls: make([][]int16, 0),
	}
}

// Process implements Interface.
func (m *MockDetector) Process(frame []int16) (bool, error) {
	m.mu.Lock()
	// Copy the frame to avoid issues with reused slices.
	frameCopy := make([]int16, len(frame))
	copy(frameCopy, frame)
	m.ProcessCalls = append(m.ProcessCalls, frameCopy)
	m.mu.Unlock()

	if m.ProcessFunc != nil {
		return m.ProcessFunc(frame)
	}
	return false, nil
}

// SetMode implements Interface.
func (m *MockDetector) SetMode(mode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModeCalls = append(m.ModeCalls, mode)
	return nil
}

// Reset implements Interface.
func (m *MockDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCalled = true
}

// Destroy implements Interface.
func (m *MockDetector) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DestroyCalled = true
	return nil
}

// GetProcessCallCount returns the number of times Process was called.
func (m *MockDetector) GetProcessCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ProcessCalls)
}

// Ensure MockDetector implements Interface at compile time.
var _ Interface = (*MockDetector)(nil)
