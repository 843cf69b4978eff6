package usbtransport

import "errors"

// ErrNoDevice is returned by Locate when no matching USB device is present.
var ErrNoDevice = errors.New("usbtransport: no target device found")

// Locate is the seam where a real USB transport library enumerates devices
// by vendor/product ID and returns an opened Device. Device enumeration and
// the transfer-submission library itself are external collaborators and
// are not implemented by this repository; callers wire in a real
// implementation by replacing this variable before calling main's startup
// path. Left unwired, every call reports the device absent, matching
// end-to-end scenario #1 ("cold start, device absent").
var Locate = func(vendorID, productID int, verbose bool) (Device, error) {
	return nil, ErrNoDevice
}
