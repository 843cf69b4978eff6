// Package capture implements the bit-demultiplexing decoder for the
// mixer's ten-channel capture transport. One BULK IN transfer carries
// 4096 rows of 32 bytes; rows alternate between channel group {0..4} and
// {5..9}, and each row packs one bit per payload byte across the low 5
// bits.
package capture

import (
	"fmt"
	"log"
	"math"

	"mixerbridge/internal/ringbuf"
)

const (
	RowBytes       = 32
	PayloadBytes   = 24
	RowsPerFrame   = 2
	FramesPerXfer  = 2048
	RowsPerXfer    = FramesPerXfer * RowsPerFrame // 4096
	Channels       = 10
	channelsPerRow = 5
	BytesPerFrame  = Channels * 4 // interleaved float32 frame width

	// intMax is the 32-bit magnitude scale used to normalize decoded
	// 24-bit samples.
	intMax = 0x7FFFFFFF
)

// Decoder turns raw BULK IN transfers into interleaved ten-channel float32
// frames and streams them into the capture ring buffer (IB). It owns no
// goroutine of its own: the USB completion callback calls
// Decode synchronously, so Decode must not allocate on its hot path.
type Decoder struct {
	ib          *ringbuf.Ring
	scratch     [RowsPerXfer / RowsPerFrame * Channels]float32 // 20480 samples max
	byteScratch [RowsPerXfer / RowsPerFrame * Channels * 4]byte

	Overruns uint64
}

// New creates a Decoder writing into ib.
func New(ib *ringbuf.Ring) *Decoder {
	return &Decoder{ib: ib}
}

// Decode processes one BULK IN transfer buffer. xfer must be exactly
// RowsPerXfer*RowBytes bytes (one full 2048-frame capture transfer). It
// returns an error when xfer has any other size, and for the "should be
// impossible" fatal case of a short ring write after the rows-that-fit
// precheck.
func (d *Decoder) Decode(xfer []byte) error {
	if len(xfer) != RowsPerXfer*RowBytes {
		return fmt.Errorf("capture: transfer has %d bytes, want %d", len(xfer), RowsPerXfer*RowBytes)
	}

	// How many whole frames fit in the ring right now? Never write a half
	// frame.
	framesFit := d.ib.Writable() / BytesPerFrame
	rowsFit := framesFit * RowsPerFrame
	if rowsFit > RowsPerXfer {
		rowsFit = RowsPerXfer
	}
	if rowsFit < RowsPerXfer {
		d.Overruns++
		log.Printf("[capture] overrun: only %d/%d rows fit, dropping remainder", rowsFit, RowsPerXfer)
	}
	// rowsFit is already an even multiple of RowsPerFrame since framesFit
	// is a whole-frame count.

	nSamples := 0
	for row := 0; row < rowsFit; row++ {
		base := row * RowBytes
		rowGroup := row % RowsPerFrame // 0 -> channels 0..4, 1 -> channels 5..9
		var acc [channelsPerRow]int32
		for b := 0; b < PayloadBytes; b++ {
			byteVal := xfer[base+b]
			for ch := 0; ch < channelsPerRow; ch++ {
				bit := (byteVal >> uint(ch)) & 1
				acc[ch] = (acc[ch] << 1) | int32(bit)
			}
		}
		for ch := 0; ch < channelsPerRow; ch++ {
			sampleIndex := (row/RowsPerFrame)*Channels + rowGroup*channelsPerRow + ch
			d.scratch[sampleIndex] = signExtendToFloat(acc[ch])
		}
		if rowGroup == RowsPerFrame-1 {
			nSamples += Channels
		}
	}

	if nSamples == 0 {
		return nil
	}

	out := d.byteScratch[:nSamples*4]
	floatsToBytes(d.scratch[:nSamples], out)
	n := d.ib.Write(out)
	if n != len(out) {
		return fmt.Errorf("capture: short ring write (%d/%d bytes) — should be unreachable", n, len(out))
	}
	return nil
}

// sampleCount reports the decoded channel-sample count for a full transfer,
// used by tests to check testable property #4 (20480 samples).
func sampleCount() int {
	return (RowsPerXfer / RowsPerFrame) * Channels
}

// signExtendToFloat converts a 24-bit accumulated value (in the low 24
// bits of acc) to a float32 by shifting left 8 (sign-extending into a full
// 32-bit signed value) and dividing by intMax.
func signExtendToFloat(acc int32) float32 {
	shifted := acc << 8
	return float32(shifted) / float32(intMax)
}

// floatsToBytes writes fs's little-endian byte representation into out,
// which must be at least len(fs)*4 bytes. It does not allocate.
func floatsToBytes(fs []float32, out []byte) {
	for i, f := range fs {
		bits := math.Float32bits(f)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
}
