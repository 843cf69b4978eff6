// Package ringbuf implements a lock-free single-producer/single-consumer
// byte ring buffer used to bridge the USB device clock domain and the host
// audio clock domain.
//
// The producer and consumer are each pinned to exactly one goroutine for
// the lifetime of a Ring; no further synchronization beyond the atomic
// cumulative counters below is required or permitted.
package ringbuf

import "sync/atomic"

// Ring is a byte-addressed SPSC ring buffer. Capacity is rounded up to the
// next power of two so that wrap arithmetic can use a mask instead of a
// modulo.
type Ring struct {
	// w is the cumulative number of bytes written; only the producer
	// goroutine ever modifies it.
	w int64
	// r is the cumulative number of bytes read; only the consumer
	// goroutine ever modifies it.
	r int64

	buf  []byte
	mask int64
}

// New creates a ring with capacity at least minBytes, rounded up to the
// next power of two.
func New(minBytes int) *Ring {
	size := int64(1)
	for size < int64(minBytes) {
		size *= 2
	}
	return &Ring{
		buf: make([]byte, size),
		mask: size - 1,
	}
}

// Cap returns the ring's storage capacity in bytes (a power of two, and
// generally larger than the logical frame target it was sized for).
func (ring *Ring) Cap() int {
	return int(ring.mask + 1)
}

// Writable returns the number of bytes free for the producer to write.
// Safe to call only from the producer goroutine.
func (ring *Ring) Writable() int {
	r := atomic.LoadInt64(&ring.r)
	w := ring.w
	return int(ring.mask + 1 - (w - r))
}

// Readable returns the number of bytes available for the consumer to read.
// Safe to call only from the consumer goroutine.
func (ring *Ring) Readable() int {
	w := atomic.LoadInt64(&ring.w)
	r := ring.r
	return int(w - r)
}

// Write copies data into the ring. It returns the number of bytes actually
// written, which is len(data) unless the ring does not have enough free
// space — callers in this service treat a short write as either an overrun
// (non-fatal, data dropped) or fatal, depending on call site.
// Only the producer goroutine may call Write.
func (ring *Ring) Write(data []byte) int {
	avail := ring.Writable()
	n := len(data)
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	pos := ring.w & ring.mask
	first := int64(n)
	if rem := ring.mask + 1 - pos; first > rem {
		first = rem
	}
	copy(ring.buf[pos:pos+first], data[:first])
	if int64(n) > first {
		copy(ring.buf[0:int64(n)-first], data[first:n])
	}

	atomic.AddInt64(&ring.w, int64(n))
	return n
}

// Read copies available bytes into out. It returns the number of bytes
// actually read, which is len(out) unless the ring holds less data than
// requested. Only the consumer goroutine may call Read.
func (ring *Ring) Read(out []byte) int {
	avail := ring.Readable()
	n := len(out)
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	pos := ring.r & ring.mask
	first := int64(n)
	if rem := ring.mask + 1 - pos; first > rem {
		first = rem
	}
	copy(out[:first], ring.buf[pos:pos+first])
	if int64(n) > first {
		copy(out[first:n], ring.buf[0:int64(n)-first])
	}

	atomic.AddInt64(&ring.r, int64(n))
	return n
}

// Occupancy is an exponentially weighted moving average of a ring's byte
// occupancy, updated once per host period with weight 1/scale. It is owned
// by whichever side (producer or consumer) performs the trim decision for
// that ring.
type Occupancy struct {
	avg   float64
	scale float64
}

// NewOccupancy creates an EWMA tracker with the given smoothing scale.
func NewOccupancy(scale int) *Occupancy {
	return &Occupancy{scale: float64(scale)}
}

// Update folds sample (a byte count, possibly projected for elapsed time)
// into the moving average: avg += (sample - avg) / scale.
func (o *Occupancy) Update(sample float64) {
	o.avg += (sample - o.avg) / o.scale
}

// Reset pins the average directly to sample, used when an underrun/overrun
// would otherwise immediately re-trigger a correction.
func (o *Occupancy) Reset(sample float64) {
	o.avg = sample
}

// Value returns the current average.
func (o *Occupancy) Value() float64 {
	return o.avg
}
