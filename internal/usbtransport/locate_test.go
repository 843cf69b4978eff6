package usbtransport

import (
	"context"
	"errors"
	"testing"
)

func TestLocateDefaultReportsNoDevice(t *testing.T) {
	dev, err := Locate(0x1234, 0x5678, false)
	if dev != nil {
		t.Fatalf("dev = %v, want nil", dev)
	}
	if !errors.Is(err, ErrNoDevice) {
		t.Fatalf("err = %v, want ErrNoDevice", err)
	}
}

func TestFakeControlTransferRecordsCall(t *testing.T) {
	f := NewFake()
	data := []byte{0x01, 0x02}
	if err := f.ControlTransfer(0xa1, 0x01, 0x0100, 0x0002, data); err != nil {
		t.Fatalf("ControlTransfer: %v", err)
	}
	if len(f.ControlCalls) != 1 {
		t.Fatalf("ControlCalls = %d, want 1", len(f.ControlCalls))
	}
	got := f.ControlCalls[0]
	if got.BmRequestType != 0xa1 || got.BRequest != 0x01 || got.WValue != 0x0100 || got.WIndex != 0x0002 {
		t.Fatalf("ControlCalls[0] = %+v, want matching fields", got)
	}
	data[0] = 0xff
	if got.Data[0] == 0xff {
		t.Fatalf("ControlCalls[0].Data aliases caller's slice")
	}
}

func TestFakeCompleteBulkInInvokesArmedCallback(t *testing.T) {
	f := NewFake()
	called := false
	_, err := f.SubmitBulkIn(context.Background(), 2048, func(tr Transfer) { called = true })
	if err != nil {
		t.Fatalf("SubmitBulkIn: %v", err)
	}
	f.CompleteBulkIn(Transfer{})
	if !called {
		t.Fatalf("expected BULK IN callback invoked")
	}
}
