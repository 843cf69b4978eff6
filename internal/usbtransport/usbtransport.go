// Package usbtransport defines the boundary between this service and the
// USB stack (device enumeration, transfer submission, the event pump).
// The USB stack itself is an external collaborator; this package only
// states the shape this service needs from it, the same way audio.go
// isolates PortAudio behind a narrow paStream interface so the real-time
// loops can be driven by a fake in tests.
package usbtransport

import (
	"context"
	"time"
)

// TransferStatus mirrors the small set of completion outcomes this service
// distinguishes: success, explicit cancellation, and everything
// else (treated as a stream-degrading error and not re-armed).
type TransferStatus int

const (
	StatusCompleted TransferStatus = iota
	StatusCancelled
	StatusError
)

// Transfer is one inflight USB transfer buffer, owned exclusively by the
// orchestrator pool that allocated it and the transport library while the
// transfer is submitted.
type Transfer struct {
	// Data is the transfer payload. For BULK IN it is the full capture
	// buffer; for ISO OUT it is the concatenation of all packet payloads;
	// for ISO FB it is the feedback payload.
	Data []byte
	// PacketLengths holds the per-packet length of each isochronous packet
	// making up Data, in transfer order. Nil for BULK transfers.
	PacketLengths []int
	Status TransferStatus
}

// Device is the narrow handle this service needs from the USB stack: claim
// interfaces, select alternates, issue vendor control transfers, and submit
// the three kinds of streaming transfers used by the orchestrator.
type Device interface {
	// SetConfiguration selects the device's active USB configuration.
	SetConfiguration(cfg int) error
	// SetAutoDetachKernelDriver enables or disables the transport's
	// automatic detach of a conflicting kernel driver before interface
	// claim.
	SetAutoDetachKernelDriver(enable bool) error
	// ClearHalt clears a stall condition on the given endpoint.
	ClearHalt(endpoint byte) error
	// ClaimInterface claims the given interface number.
	ClaimInterface(iface int) error
	// SetAltSetting selects an alternate setting on a claimed interface.
	SetAltSetting(iface, alt int) error
	// ControlTransfer issues a single vendor control transfer.
	ControlTransfer(bmRequestType, bRequest byte, wValue, wIndex uint16, data []byte) error
	// SubmitBulkIn arms a BULK IN transfer of the given capacity; fn is
	// invoked on completion with the received bytes. The returned
	// cancel func requests cancellation; it does not block for
	// completion.
	SubmitBulkIn(ctx context.Context, capacity int, fn func(Transfer)) (cancel func(), err error)
	// SubmitIsoOut arms an isochronous OUT transfer whose packet lengths
	// are supplied by fillFn immediately before submission (so the
	// playback encoder can size the last packet). fn is
	// invoked on completion.
	SubmitIsoOut(ctx context.Context, fillFn func() (data []byte, packetLengths []int), fn func(Transfer)) (cancel func(), err error)
	// SubmitIsoIn arms an isochronous IN transfer (used for the feedback
	// endpoint) of the given packet shape; fn is invoked on completion.
	SubmitIsoIn(ctx context.Context, packetLengths []int, fn func(Transfer)) (cancel func(), err error)
	// PumpEvents blocks processing completion events until ctx is
	// cancelled or timeout elapses, whichever first; it returns promptly
	// once no transfers remain inflight after cancellation.
	PumpEvents(ctx context.Context, timeout time.Duration) error
	// ReleaseInterface releases a previously claimed interface.
	ReleaseInterface(iface int) error
	// Close closes the device handle.
	Close() error
}
