package device

import (
	"testing"

	"mixerbridge/internal/usbtransport"
)

func TestBringUpClaimsInterfacesAndSetsAltSettings(t *testing.T) {
	dev := usbtransport.NewFake()
	if err := BringUp(dev, false); err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if len(dev.ClaimedInterfaces) != 2 {
		t.Fatalf("ClaimedInterfaces = %v, want 2 entries", dev.ClaimedInterfaces)
	}
	if dev.AltSettings[InInterface] != InAltSet {
		t.Fatalf("input alt setting = %d, want %d", dev.AltSettings[InInterface], InAltSet)
	}
	if dev.AltSettings[OutInterface] != OutAltSet {
		t.Fatalf("output alt setting = %d, want %d", dev.AltSettings[OutInterface], OutAltSet)
	}
}

func TestBringUpIssuesControlSequence(t *testing.T) {
	dev := usbtransport.NewFake()
	if err := BringUp(dev, false); err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	// control1 and control2 are issued ctlRepeat times each, then control3 once.
	wantCalls := ctlRepeat*2 + 1
	if len(dev.ControlCalls) != wantCalls {
		t.Fatalf("ControlCalls = %d, want %d", len(dev.ControlCalls), wantCalls)
	}
	last := dev.ControlCalls[len(dev.ControlCalls)-1]
	if last.BmRequestType != control3.bmRequestType || last.BRequest != control3.bRequest {
		t.Fatalf("final control call = %+v, want control3 shape", last)
	}
}

func TestBringUpResetsConfigurationAndEnablesAutoDetach(t *testing.T) {
	dev := usbtransport.NewFake()
	if err := BringUp(dev, false); err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if want := []int{0, 1}; len(dev.Configurations) != len(want) || dev.Configurations[0] != want[0] || dev.Configurations[1] != want[1] {
		t.Fatalf("Configurations = %v, want %v", dev.Configurations, want)
	}
	if len(dev.AutoDetachKernelCalls) != 1 || !dev.AutoDetachKernelCalls[0] {
		t.Fatalf("AutoDetachKernelCalls = %v, want [true]", dev.AutoDetachKernelCalls)
	}
}
