// Package playback implements the 24-bit LE isochronous OUT encoder. Each
// callback dequeues a feedback-adjusted number of stereo frames from the
// playback ring buffer (RB) and encodes them into a fixed-shape 40-packet
// transfer, stealing or padding exactly one stereo sample on the last
// packet to track the device clock.
package playback

import (
	"math"

	"mixerbridge/internal/feedback"
	"mixerbridge/internal/ringbuf"
)

const (
	Packets           = 40
	BaselinePacketSz  = 72 // 12 stereo frames * 3 bytes * 2 channels
	BaselineFrames    = 480
	Channels          = 2
	WireBytesPerFrame = Channels * 3 // 24-bit LE per channel, on the wire
	RBBytesPerFrame   = Channels * 4 // interleaved float32, as stored in RB
	maxFrames         = BaselineFrames + 1

	intMax = 0x7FFFFFFF
)

// Encoder fills one ISO OUT transfer per callback. It owns no goroutine of
// its own: the USB completion callback invokes Fill synchronously, so Fill
// must not allocate on its hot path.
type Encoder struct {
	rb  *ringbuf.Ring
	acc *feedback.Accumulator

	floatScratch [maxFrames * Channels]float32
	floatReadBuf [maxFrames * RBBytesPerFrame]byte
	byteScratch  [maxFrames * WireBytesPerFrame]byte
	lengths      [Packets]int

	SilenceCount uint64
}

// New creates an Encoder reading from rb and consuming corrections from acc.
func New(rb *ringbuf.Ring, acc *feedback.Accumulator) *Encoder {
	return &Encoder{rb: rb, acc: acc}
}

// Fill computes this transfer's frame-count adjustment, sizes the packet
// array, and encodes PCM from RB into data — or, if RB doesn't hold enough
// bytes, writes silence and leaves RB untouched. It returns the transfer
// payload and the per-packet lengths to submit.
func (e *Encoder) Fill() (data []byte, packetLengths []int) {
	sd := e.acc.TakeCorrection()

	frames := BaselineFrames + sd
	totalBytes := frames * WireBytesPerFrame

	for i := 0; i < Packets; i++ {
		e.lengths[i] = BaselinePacketSz
	}
	e.lengths[Packets-1] = BaselinePacketSz + sd*WireBytesPerFrame

	needed := frames * RBBytesPerFrame // bytes required from RB
	out := e.byteScratch[:totalBytes]

	if e.rb.Readable() < needed {
		e.SilenceCount++
		zeroBytes(out)
		return out, e.lengths[:]
	}

	floats := e.floatScratch[:frames*Channels]
	readBuf := e.floatReadBuf[:frames*RBBytesPerFrame]
	e.rb.Read(readBuf)
	bytesToFloats(readBuf, floats)

	encode24(floats, out)
	return out, e.lengths[:]
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func bytesToFloats(in []byte, out []float32) {
	for i := range out {
		bits := uint32(in[i*4]) | uint32(in[i*4+1])<<8 | uint32(in[i*4+2])<<16 | uint32(in[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
}

// encode24 converts each float sample to 24-bit LE: multiply by intMax,
// truncate to a 32-bit integer, shift right by 8, and write the low three
// bytes of the result (the inverse of the capture decoder's shift-left-8).
func encode24(floats []float32, out []byte) {
	for i, f := range floats {
		v := int32(f*float32(intMax)) >> 8
		out[i*3+0] = byte(v)
		out[i*3+1] = byte(v >> 8)
		out[i*3+2] = byte(v >> 16)
	}
}
