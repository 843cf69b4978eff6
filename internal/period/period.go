// Package period implements the host period engine: once per
// host audio cycle it drains the capture ring buffer (IB) into the ten
// output ports with ±1-frame adaptive trim, and gathers the two input
// ports into the playback ring buffer (RB) with the same adaptive trim,
// using an EWMA of each ring's occupancy to decide trim direction.
//
// This is the realtime-thread half of the bridge: it must
// allocate nothing on the hot path, so every scratch buffer below is
// preallocated for the maximum period size.
package period

import (
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"mixerbridge/internal/hostaudio"
	"mixerbridge/internal/ringbuf"
)

const (
	MaxFrames = hostaudio.MaxFrames

	IBChannels   = hostaudio.OutChannels
	IBFrameBytes = IBChannels * 4

	RBChannels   = hostaudio.InChannels
	RBFrameBytes = RBChannels * 4

	IBTargetFrames   = 1536
	IBDeadbandFrames = 48
	RBTargetFrames   = 768
	RBDeadbandFrames = 48

	AvgScale = 300
)

// Engine runs the per-cycle drain/gather logic described above. RunInput and
// RunOutput touch disjoint state, so each may run on its own thread, but each
// must always be called from that one thread; IB/RB are each owned by the
// engine on one side and by the USB completion callbacks on the other.
type Engine struct {
	ib, rb       *ringbuf.Ring
	ibOcc, rbOcc *ringbuf.Occupancy

	ibByteScratch [(MaxFrames + 1) * IBFrameBytes]byte
	rbByteScratch [(MaxFrames + 1) * RBFrameBytes]byte

	// IBUnderruns/RBOverruns count non-fatal ring faults.
	IBUnderruns uint64
	RBOverruns  uint64
	// IBDrops/IBAdds and RBDrops/RBAdds count ±1-frame trim corrections
	// applied in each direction, for the ~1 Hz diagnostic line.
	IBDrops, IBAdds uint64
	RBDrops, RBAdds uint64

	cyclesSeen uint64

	// lastCycleNano is updated every RunInput call with the wall-clock
	// time, independent of ring occupancy — a period engine that simply
	// stops being invoked is a distinct failure from an IB underrun.
	lastCycleNano atomic.Int64
}

// New creates an Engine bridging ib (capture ring) and rb (playback ring).
func New(ib, rb *ringbuf.Ring) *Engine {
	return &Engine{
		ib:    ib,
		rb:    rb,
		ibOcc: ringbuf.NewOccupancy(AvgScale),
		rbOcc: ringbuf.NewOccupancy(AvgScale),
	}
}

// CyclesSeen returns the number of completed RunInput calls.
func (e *Engine) CyclesSeen() uint64 { return e.cyclesSeen }

// StallCheck reports whether more than maxAge has elapsed since the last
// RunInput call. It returns false before the first cycle has run.
func (e *Engine) StallCheck(maxAge time.Duration) bool {
	last := e.lastCycleNano.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) > maxAge
}

// RunInput drains IB into out.OutBuf for one host cycle of nframes frames.
// elapsedFrames is how many frames into the current host period this call
// is happening — the host daemon's own notion of intra-cycle jitter, used
// to project occupancy to the moment of emission. It returns an error only
// for the oversized-period case; all other faults are absorbed and logged.
func (e *Engine) RunInput(nframes int, elapsedFrames int, out []float32) error {
	if nframes > MaxFrames {
		return fmt.Errorf("period: nframes %d exceeds max %d", nframes, MaxFrames)
	}
	e.cyclesSeen++
	e.lastCycleNano.Store(time.Now().UnixNano())

	// Zero the output before deciding anything so a cycle that emits
	// nothing (underrun) never carries over stale data from a prior
	// session.
	for i := range out[:nframes*IBChannels] {
		out[i] = 0
	}

	nb := e.ib.Readable()
	nr := nframes * IBFrameBytes

	if nb < nr {
		log.Printf("[period] IN underrun: buf=%d need=%d", nb, nr)
		e.ibOcc.Reset(float64(nb))
		e.IBUnderruns++
		return nil
	}

	sample := float64(nb-nr) - float64(elapsedFrames*IBFrameBytes)
	e.ibOcc.Update(sample)

	sd := 0
	if e.ibOcc.Value() < float64((IBTargetFrames-IBDeadbandFrames)*IBFrameBytes) {
		sd = -1
	}
	if e.ibOcc.Value() > float64((IBTargetFrames+IBDeadbandFrames)*IBFrameBytes) {
		sd = 1
	}

	na := nr + sd*IBFrameBytes
	if na > nb {
		na = nb
	}

	buf := e.ibByteScratch[:na]
	e.ib.Read(buf)

	// Duplicate the last frame forward to fill out a short read — this
	// absorbs both the sd=-1 case and any clamp against nb.
	for na < nr {
		copy(e.ibByteScratch[na:na+IBFrameBytes], e.ibByteScratch[na-IBFrameBytes:na])
		na += IBFrameBytes
		e.IBAdds++
	}
	if sd == 1 {
		e.IBDrops++
	}

	deinterleaveFloats(e.ibByteScratch[:nr], out[:nframes*IBChannels])
	return nil
}

// RunOutput gathers in (the interleaved two-channel input port buffer,
// already filled by the host daemon for this cycle) into RB with the same
// adaptive trim. A failed write after a
// successful space check is fatal and is returned as an error.
func (e *Engine) RunOutput(nframes int, elapsedFrames int, in []float32) error {
	if nframes > MaxFrames {
		return fmt.Errorf("period: nframes %d exceeds max %d", nframes, MaxFrames)
	}

	nr := nframes * RBFrameBytes
	free := e.rb.Writable()

	if free < nr+RBFrameBytes {
		log.Printf("[period] OUT overrun: free=%d need=%d", free, nr+RBFrameBytes)
		e.rbOcc.Reset(float64(e.rb.Readable()))
		e.RBOverruns++
		return nil
	}

	sample := float64(e.rb.Readable()) + float64(elapsedFrames*RBFrameBytes)
	e.rbOcc.Update(sample)

	writeBytes := nr
	switch {
	case e.rbOcc.Value() < float64((RBTargetFrames-RBDeadbandFrames)*RBFrameBytes):
		writeBytes = nr + RBFrameBytes
		e.RBAdds++
	case e.rbOcc.Value() > float64((RBTargetFrames+RBDeadbandFrames)*RBFrameBytes):
		writeBytes = nr - RBFrameBytes
		e.RBDrops++
	}

	buf := e.rbByteScratch[:writeBytes]
	copyBytes := writeBytes
	if copyBytes > nr {
		copyBytes = nr // the extra duplicated frame is filled below, not from in
	}
	interleaveFloats(in[:copyBytes/4], buf[:copyBytes])
	if writeBytes > nr {
		// Duplicate the final stereo frame once.
		copy(buf[nr:nr+RBFrameBytes], buf[nr-RBFrameBytes:nr])
	}
	// writeBytes < nr (dropped final frame): buf is sliced to writeBytes,
	// so the last input frame is simply never copied in.

	n := e.rb.Write(buf)
	if n != writeBytes {
		return fmt.Errorf("period: short RB write (%d/%d bytes) — fatal", n, writeBytes)
	}
	return nil
}

func deinterleaveFloats(in []byte, out []float32) {
	for i := range out {
		bits := uint32(in[i*4]) | uint32(in[i*4+1])<<8 | uint32(in[i*4+2])<<16 | uint32(in[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
}

func interleaveFloats(in []float32, out []byte) {
	for i, f := range in {
		bits := math.Float32bits(f)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
}
