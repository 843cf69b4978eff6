// Package hostaudio is the boundary between this service and the host
// audio daemon: client registration, named physical ports, and the
// routing graph are all external collaborators — this package only
// states the shape the period engine needs, backed by a real PortAudio
// stream pair the same way audio.go drives a single stereo voice stream
// with blocking Read/Write calls from a dedicated goroutine per direction.
package hostaudio

// Stream abstracts one PortAudio-style blocking stream so tests can drive
// the period engine with a fake instead of real hardware — the same shape
// as the paStream interface in audio.go.
type Stream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
	Write() error
}

// OutputPortNames are the ten capture-path port names, in bit-interleave
// order: the order here IS the channel order written into
// OutBuf.
var OutputPortNames = [10]string{
	"ch1", "ch3", "ch5", "ch7", "mixL",
	"ch2", "ch4", "ch6", "ch8", "mixR",
}

// InputPortNames are the two monitor-return port names.
var InputPortNames = [2]string{"2trackL", "2trackR"}

const (
	OutChannels = len(OutputPortNames)
	InChannels  = len(InputPortNames)
	MaxFrames   = 1024
)

// Ports holds the preallocated interleaved buffers the period engine reads
// and writes every cycle, plus the two streams backing them. Buffers are
// allocated once for the fixed period size nframes given to NewPorts, so
// steady-state operation never allocates.
type Ports struct {
	Output Stream
	Input  Stream

	// OutBuf is the interleaved ten-channel buffer written by Deinterleave
	// and flushed via Output.Write(). Length nframes*OutChannels.
	OutBuf []float32
	// InBuf is the interleaved two-channel buffer filled by Input.Read()
	// and consumed via Interleave. Length nframes*InChannels.
	InBuf []float32
}

// NewPorts allocates the fixed-size scratch buffers around the given
// stream pair. nframes is the host daemon's period size (<= MaxFrames).
func NewPorts(output, input Stream, nframes int) *Ports {
	return &Ports{
		Output: output,
		Input:  input,
		OutBuf: make([]float32, nframes*OutChannels),
		InBuf:  make([]float32, nframes*InChannels),
	}
}

// CaptureLatencyFrames is the capture-path latency advertised on the
// output ports: the BULK transfer's 2048 frames plus IB's
// target occupancy.
func CaptureLatencyFrames(ibTarget int) int {
	return 2048 + ibTarget
}

// PlaybackLatencyFrames is the playback-path latency advertised on the
// input ports: outpreload ISO OUT transfers of 480 frames each,
// plus RB's target occupancy.
func PlaybackLatencyFrames(outPreload, rbTarget int) int {
	return 480*outPreload + rbTarget
}
