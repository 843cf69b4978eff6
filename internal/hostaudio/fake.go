package hostaudio

import "sync/atomic"

// FakeStream is a test double satisfying Stream, in the spirit of the
// teacher's mockPAStream (client/audio_test.go): Read/Write succeed
// immediately by default, letting a test drive a deterministic number of
// host cycles without real hardware.
type FakeStream struct {
	started atomic.Bool
	closed  atomic.Bool

	ReadErr  error
	WriteErr error
}

func (f *FakeStream) Start() error { f.started.Store(true); return nil }
func (f *FakeStream) Stop() error  { f.started.Store(false); return nil }
func (f *FakeStream) Close() error { f.closed.Store(true); return nil }
func (f *FakeStream) Read() error  { return f.ReadErr }
func (f *FakeStream) Write() error { return f.WriteErr }
