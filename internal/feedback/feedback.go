// Package feedback implements the rate-feedback accumulator:
// a leaky integrator driven by the device's isochronous feedback endpoint
// and drained by the playback encoder's per-transfer sizing decision.
package feedback

import "sync/atomic"

// setpoint is the device-calibrated nominal sum of the six feedback bytes
// at exactly 480 frames/ms; no source comment justifies the value, it is
// preserved verbatim.
const setpoint = 576

// Adjust damps how sensitive the playback encoder is to outDelta; preserved
// verbatim.
const Adjust = 3

// Accumulator holds outDelta, read and written by the feedback and playback
// completion callbacks on the USB pump thread, and read via Snapshot by the
// diagnostic goroutine. Relaxed atomic semantics are sufficient:
// the control loop is self-correcting, so exact agreement between reader
// and writer is not required.
type Accumulator struct {
	delta int32
}

// Add integrates one feedback transfer's correction into outDelta. data
// must be the six raw feedback bytes from one feedback IN transfer (two
// 3-byte values); the correction is sum(data) - setpoint.
func (a *Accumulator) Add(data []byte) {
	var sum int32
	for _, b := range data {
		sum += int32(b)
	}
	atomic.AddInt32(&a.delta, sum-setpoint)
}

// TakeCorrection computes sd = sign(outDelta / Adjust) and, if sd != 0,
// resets the accumulator. It returns sd in {-1, 0, +1}.
func (a *Accumulator) TakeCorrection() int {
	delta := atomic.LoadInt32(&a.delta)
	scaled := delta / Adjust
	sd := 0
	switch {
	case scaled > 0:
		sd = 1
	case scaled < 0:
		sd = -1
	}
	if sd != 0 {
		atomic.StoreInt32(&a.delta, 0)
	}
	return sd
}

// Snapshot returns the current outDelta for diagnostics, without resetting it.
func (a *Accumulator) Snapshot() int32 {
	return atomic.LoadInt32(&a.delta)
}
