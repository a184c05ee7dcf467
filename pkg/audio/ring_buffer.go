package audio

import "sync"

// RingBuffer is a fixed-size circular buffer of 16-bit PCM samples.
// The segmenter uses it to keep the audio immediately preceding a speech
// onset (pre-roll), so the very beginning of an utterance is not lost to
// detection latency.
//
// Writes never allocate; once the buffer is full the oldest samples are
// overwritten.
type RingBuffer struct {
	data     []int16
	capacity int // total capacity in samples
	writePos int // next write position
	size     int // current sample count, grows up to capacity
	mu       sync.Mutex
}

// NewRingBuffer creates a ring buffer holding durationMs of mono audio
// at the given sample rate.
func NewRingBuffer(sampleRate, durationMs int) *RingBuffer {
	capacity := sampleRate * durationMs / 1000
	return &RingBuffer{
		data:     make([]int16, capacity),
		capacity: capacity,
	}
}

// Write appends samples, overwriting the oldest audio when full.
func (rb *RingBuffer) Write(samples []int16) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(samples)
	if n == 0 {
		return
	}

	// More than a full buffer of input: only the tail survives anyway.
	if n >= rb.capacity {
		copy(rb.data, samples[n-rb.capacity:])
		rb.writePos = 0
		rb.size = rb.capacity
		return
	}

	spaceToEnd := rb.capacity - rb.writePos
	if n <= spaceToEnd {
		copy(rb.data[rb.writePos:], samples)
		rb.writePos += n
		if rb.writePos == rb.capacity {
			rb.writePos = 0
		}
	} else {
		copy(rb.data[rb.writePos:], samples[:spaceToEnd])
		copy(rb.data, samples[spaceToEnd:])
		rb.writePos = n - spaceToEnd
	}

	rb.size += n
	if rb.size > rb.capacity {
		rb.size = rb.capacity
	}
}

// ReadAll returns the buffered samples in chronological order without
// modifying the buffer.
func (rb *RingBuffer) ReadAll() []int16 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return nil
	}

	out := make([]int16, rb.size)
	if rb.size < rb.capacity {
		copy(out, rb.data[:rb.size])
	} else {
		// Full buffer: the oldest sample sits at writePos.
		head := rb.capacity - rb.writePos
		copy(out[:head], rb.data[rb.writePos:])
		copy(out[head:], rb.data[:rb.writePos])
	}
	return out
}

// Clear empties the buffer.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.writePos = 0
	rb.size = 0
}

// Len returns the current number of buffered samples.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// Capacity returns the buffer capacity in samples.
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}
