package audio

import (
	"encoding/binary"
	"sync"
)

// SampleBuffer holds signed 16-bit samples. Its capacity is fixed at
// construction; once full, further samples are dropped and counted.
type SampleBuffer struct {
	mu      sync.Mutex
	samples []int
	dropped int
	carry   []byte
}

// NewSampleBuffer sizes the buffer for maxSeconds of audio plus one second of slack.
func NewSampleBuffer(sampleRate, channels int, maxSeconds float64) *SampleBuffer {
	n := int(float64(sampleRate*channels)*maxSeconds) + sampleRate*channels
	if n < 0 {
		n = 0
	}
	return &SampleBuffer{samples: make([]int, 0, n)}
}

// Write consumes little-endian s16 PCM. An odd trailing byte is kept for the
// next call. Write never blocks and never grows the buffer.
func (b *SampleBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := p
	if len(b.carry) > 0 {
		data = append(b.carry, p...)
		b.carry = nil
	}

	for len(data) >= 2 {
		s := int(int16(binary.LittleEndian.Uint16(data)))
		if len(b.samples) < cap(b.samples) {
			b.samples = append(b.samples, s)
		} else {
			b.dropped++
		}
		data = data[2:]
	}
	if len(data) == 1 {
		b.carry = []byte{data[0]}
	}
	return len(p), nil
}

func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

func (b *SampleBuffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cap(b.samples)
}

func (b *SampleBuffer) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Samples returns a copy of what was captured.
func (b *SampleBuffer) Samples() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int, len(b.samples))
	copy(out, b.samples)
	return out
}

// Reset empties the buffer and keeps its allocation.
func (b *SampleBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
	b.dropped = 0
	b.carry = nil
}
