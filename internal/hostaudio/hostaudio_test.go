package hostaudio

import "testing"

func TestNewPortsSizesBuffers(t *testing.T) {
	output := &FakeStream{}
	input := &FakeStream{}
	ports := NewPorts(output, input, 256)

	if len(ports.OutBuf) != 256*OutChannels {
		t.Fatalf("len(OutBuf) = %d, want %d", len(ports.OutBuf), 256*OutChannels)
	}
	if len(ports.InBuf) != 256*InChannels {
		t.Fatalf("len(InBuf) = %d, want %d", len(ports.InBuf), 256*InChannels)
	}
}

func TestCaptureLatencyFrames(t *testing.T) {
	if got := CaptureLatencyFrames(1536); got != 2048+1536 {
		t.Fatalf("CaptureLatencyFrames(1536) = %d, want %d", got, 2048+1536)
	}
}

func TestPlaybackLatencyFrames(t *testing.T) {
	if got := PlaybackLatencyFrames(3, 768); got != 480*3+768 {
		t.Fatalf("PlaybackLatencyFrames(3, 768) = %d, want %d", got, 480*3+768)
	}
}

func TestFakeStreamLifecycle(t *testing.T) {
	f := &FakeStream{}
	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !f.started.Load() {
		t.Fatalf("expected started after Start")
	}
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if f.started.Load() {
		t.Fatalf("expected stopped after Stop")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !f.closed.Load() {
		t.Fatalf("expected closed after Close")
	}
}

func TestFakeStreamReadWriteErrors(t *testing.T) {
	wantErr := errFake{}
	f := &FakeStream{ReadErr: wantErr, WriteErr: wantErr}
	if err := f.Read(); err != wantErr {
		t.Fatalf("Read err = %v, want %v", err, wantErr)
	}
	if err := f.Write(); err != wantErr {
		t.Fatalf("Write err = %v, want %v", err, wantErr)
	}
}

type errFake struct{}

func (errFake) Error() string { return "fake error" }
