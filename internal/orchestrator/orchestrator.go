// Package orchestrator owns the USB transfer pools and the small state
// machine that arms, re-arms, and drains them. It is the glue
// between usbtransport's completion callbacks and the capture decoder,
// playback encoder, and feedback accumulator.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"mixerbridge/internal/capture"
	"mixerbridge/internal/device"
	"mixerbridge/internal/feedback"
	"mixerbridge/internal/playback"
	"mixerbridge/internal/usbtransport"
)

// Pool sizes: enough inflight transfers to hide one USB
// round-trip of latency in each direction without growing unbounded.
const (
	CapturePoolSize   = 7
	CaptureBufferSize = 128 * 1024

	FeedbackPoolSize       = 7
	FeedbackPacketBytes    = 3
	FeedbackPacketsPerXfer = 2

	PlaybackPoolSize = 3
)

// State is the orchestrator's lifecycle.
type State int32

const (
	StateInit State = iota
	StateDeviceReady
	StateStreaming
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateDeviceReady:
		return "DEVICE_READY"
	case StateStreaming:
		return "STREAMING"
	case StateDraining:
		return "DRAINING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Orchestrator drives one device's transfer pools for the lifetime of one
// streaming session.
type Orchestrator struct {
	dev     usbtransport.Device
	decoder *capture.Decoder
	encoder *playback.Encoder
	acc     *feedback.Accumulator

	state      atomic.Int32
	shutdownCh atomic.Bool

	mu sync.Mutex
	cancelFns []func()
}

// New builds an Orchestrator in state INIT.
func New(dev usbtransport.Device, decoder *capture.Decoder, encoder *playback.Encoder, acc *feedback.Accumulator) *Orchestrator {
	o := &Orchestrator{dev: dev, decoder: decoder, encoder: encoder, acc: acc}
	o.state.Store(int32(StateInit))
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	log.Printf("[orchestrator] state -> %s", s)
}

// BringUp runs the device reset/claim/vendor-control sequence
// and transitions to DEVICE_READY on success.
func (o *Orchestrator) BringUp(verbose bool) error {
	if err := device.BringUp(o.dev, verbose); err != nil {
		return fmt.Errorf("bring-up: %w", err)
	}
	o.setState(StateDeviceReady)
	return nil
}

// Start clears halt conditions on the three streaming endpoints, arms all
// three transfer pools, and transitions to STREAMING. ctx governs the
// lifetime of every submitted transfer; the completion callbacks re-arm
// their slot as long as the orchestrator is still STREAMING. A second Start
// call while already STREAMING is a no-op.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.State() == StateStreaming {
		log.Printf("[orchestrator] Start called while already streaming, ignoring")
		return nil
	}
	if !o.state.CompareAndSwap(int32(StateDeviceReady), int32(StateStreaming)) {
		return fmt.Errorf("orchestrator: Start called in state %s", o.State())
	}
	log.Printf("[orchestrator] state -> %s", StateStreaming)

	for _, ep := range []byte{device.OutEndpoint, device.FeedbackEP, device.BulkCaptureEP} {
		if err := o.dev.ClearHalt(ep); err != nil {
			o.state.Store(int32(StateDeviceReady))
			return fmt.Errorf("clear halt on endpoint 0x%02x: %w", ep, err)
		}
	}

	for i := 0; i < CapturePoolSize; i++ {
		if err := o.armBulkIn(ctx); err != nil {
			o.state.Store(int32(StateDeviceReady))
			return fmt.Errorf("arm capture transfer %d: %w", i, err)
		}
	}
	for i := 0; i < FeedbackPoolSize; i++ {
		if err := o.armFeedback(ctx); err != nil {
			o.state.Store(int32(StateDeviceReady))
			return fmt.Errorf("arm feedback transfer %d: %w", i, err)
		}
	}
	for i := 0; i < PlaybackPoolSize; i++ {
		if err := o.armPlayback(ctx); err != nil {
			o.state.Store(int32(StateDeviceReady))
			return fmt.Errorf("arm playback transfer %d: %w", i, err)
		}
	}
	return nil
}

func (o *Orchestrator) addCancel(cancel func()) {
	o.mu.Lock()
	o.cancelFns = append(o.cancelFns, cancel)
	o.mu.Unlock()
}

func (o *Orchestrator) armBulkIn(ctx context.Context) error {
	cancel, err := o.dev.SubmitBulkIn(ctx, CaptureBufferSize, func(t usbtransport.Transfer) {
		o.onBulkInComplete(ctx, t)
	})
	if err != nil {
		return err
	}
	o.addCancel(cancel)
	return nil
}

func (o *Orchestrator) onBulkInComplete(ctx context.Context, t usbtransport.Transfer) {
	switch t.Status {
	case usbtransport.StatusCancelled:
		return
	case usbtransport.StatusError:
		log.Printf("[orchestrator] capture transfer error, slot not re-armed")
		return
	}
	if err := o.decoder.Decode(t.Data); err != nil {
		log.Printf("[orchestrator] capture decode: %v", err)
		return
	}
	if o.State() == StateStreaming {
		if err := o.armBulkIn(ctx); err != nil {
			log.Printf("[orchestrator] re-arm capture: %v", err)
		}
	}
}

func (o *Orchestrator) armFeedback(ctx context.Context) error {
	lengths := make([]int, FeedbackPacketsPerXfer)
	for i := range lengths {
		lengths[i] = FeedbackPacketBytes
	}
	cancel, err := o.dev.SubmitIsoIn(ctx, lengths, func(t usbtransport.Transfer) {
		o.onFeedbackComplete(ctx, t)
	})
	if err != nil {
		return err
	}
	o.addCancel(cancel)
	return nil
}

func (o *Orchestrator) onFeedbackComplete(ctx context.Context, t usbtransport.Transfer) {
	switch t.Status {
	case usbtransport.StatusCancelled:
		return
	case usbtransport.StatusError:
		log.Printf("[orchestrator] feedback transfer error, slot not re-armed")
		return
	}
	o.acc.Add(t.Data)
	if o.State() == StateStreaming {
		if err := o.armFeedback(ctx); err != nil {
			log.Printf("[orchestrator] re-arm feedback: %v", err)
		}
	}
}

func (o *Orchestrator) armPlayback(ctx context.Context) error {
	cancel, err := o.dev.SubmitIsoOut(ctx, o.encoder.Fill, func(t usbtransport.Transfer) {
		o.onPlaybackComplete(ctx, t)
	})
	if err != nil {
		return err
	}
	o.addCancel(cancel)
	return nil
}

func (o *Orchestrator) onPlaybackComplete(ctx context.Context, t usbtransport.Transfer) {
	switch t.Status {
	case usbtransport.StatusCancelled:
		return
	case usbtransport.StatusError:
		log.Printf("[orchestrator] playback transfer error, slot not re-armed")
		return
	}
	if o.State() == StateStreaming {
		if err := o.armPlayback(ctx); err != nil {
			log.Printf("[orchestrator] re-arm playback: %v", err)
		}
	}
}

// Shutdown cancels every inflight transfer, pumps events for up to
// device.TeardownTimeout so those cancellations land, releases both
// interfaces, and closes the device handle. Safe to call more than once or
// concurrently with Start failing; only the first call does any work.
func (o *Orchestrator) Shutdown() {
	if !o.shutdownCh.CompareAndSwap(false, true) {
		return
	}
	o.setState(StateDraining)

	o.mu.Lock()
	fns := append([]func(){}, o.cancelFns...)
	o.mu.Unlock()
	for _, cancel := range fns {
		cancel()
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), device.TeardownTimeout)
	defer cancel()
	if err := o.dev.PumpEvents(drainCtx, device.TeardownTimeout); err != nil {
		log.Printf("[orchestrator] drain: %v", err)
	}

	if err := o.dev.ReleaseInterface(device.InInterface); err != nil {
		log.Printf("[orchestrator] release input interface: %v", err)
	}
	if err := o.dev.ReleaseInterface(device.OutInterface); err != nil {
		log.Printf("[orchestrator] release output interface: %v", err)
	}
	if err := o.dev.Close(); err != nil {
		log.Printf("[orchestrator] close device: %v", err)
	}

	o.setState(StateTerminated)
}
