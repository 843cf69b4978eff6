// Package device holds the fixed identity and bring-up sequence for the
// target mixer: vendor/product ID, interface/endpoint layout, and the
// opaque vendor control transfers that switch it into 96 kHz streaming.
// These values are board-specific constants, not configuration — the
// service supports exactly one device model.
package device

import (
	"fmt"
	"log"
	"time"

	"mixerbridge/internal/usbtransport"
)

// Identity.
const (
	VendorID  = 0x13B2
	ProductID = 0x0030
)

// Interface/endpoint layout.
const (
	OutInterface = 0
	OutAltSet    = 1
	OutEndpoint  = 0x02

	InInterface   = 1
	InAltSet      = 1
	FeedbackEP    = 0x81
	BulkCaptureEP = 0x86
)

// Vendor control sequence (opaque vendor-specific bytes, values given by
// the device protocol). Controls 1 and 2 are issued ctlRepeat times;
// control 3 is issued once.
const ctlRepeat = 1

// configSettle is how long BringUp waits between dropping the device to
// configuration 0 and restoring configuration 1.
const configSettle = 50 * time.Millisecond

type vendorControl struct {
	bmRequestType, bRequest byte
	wValue, wIndex          uint16
	data                    []byte
}

var (
	control1 = vendorControl{0x22, 0x01, 0x0100, 0x0086, []byte{0x00, 0x77, 0x01}}
	control2 = vendorControl{0x22, 0x01, 0x0100, 0x0002, []byte{0x00, 0x77, 0x01}}
	control3 = vendorControl{0x40, 0x49, 0x0030, 0x0000, nil}
)

// BringUp runs the fixed reset/claim/alt-setting/vendor-control sequence
// against an already-opened device handle. It is fatal-for-
// startup on any failure.
func BringUp(dev usbtransport.Device, verbose bool) error {
	logf := func(format string, args ...any) {
		if verbose {
			log.Printf("[device] "+format, args...)
		}
	}

	logf("set_configuration(0)")
	if err := dev.SetConfiguration(0); err != nil {
		return fmt.Errorf("set configuration 0: %w", err)
	}
	time.Sleep(configSettle)
	logf("set_configuration(1)")
	if err := dev.SetConfiguration(1); err != nil {
		return fmt.Errorf("set configuration 1: %w", err)
	}

	logf("auto_detach_kernel_driver(true)")
	if err := dev.SetAutoDetachKernelDriver(true); err != nil {
		return fmt.Errorf("enable auto-detach kernel driver: %w", err)
	}

	logf("claim_interface(in=%d)", InInterface)
	if err := dev.ClaimInterface(InInterface); err != nil {
		return fmt.Errorf("claim input interface: %w", err)
	}
	logf("claim_interface(out=%d)", OutInterface)
	if err := dev.ClaimInterface(OutInterface); err != nil {
		return fmt.Errorf("claim output interface: %w", err)
	}

	logf("alt_setting(in)=%d", InAltSet)
	if err := dev.SetAltSetting(InInterface, InAltSet); err != nil {
		return fmt.Errorf("set input alt setting: %w", err)
	}
	logf("alt_setting(out)=%d", OutAltSet)
	if err := dev.SetAltSetting(OutInterface, OutAltSet); err != nil {
		return fmt.Errorf("set output alt setting: %w", err)
	}

	for i := 0; i < ctlRepeat; i++ {
		if err := sendControl(dev, control1); err != nil {
			return fmt.Errorf("vendor control 1: %w", err)
		}
		if err := sendControl(dev, control2); err != nil {
			return fmt.Errorf("vendor control 2: %w", err)
		}
	}
	if err := sendControl(dev, control3); err != nil {
		return fmt.Errorf("vendor control 3: %w", err)
	}

	logf("96 kHz streaming enabled")
	return nil
}

func sendControl(dev usbtransport.Device, c vendorControl) error {
	return dev.ControlTransfer(c.bmRequestType, c.bRequest, c.wValue, c.wIndex, c.data)
}

// TeardownTimeout bounds how long the orchestrator waits for in-flight
// transfers to drain after cancellation.
const TeardownTimeout = time.Second
