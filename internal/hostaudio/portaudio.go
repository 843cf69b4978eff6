package hostaudio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// paStream adapts *portaudio.Stream to the Stream interface: a single
// blocking Read or Write call per host cycle, driven from one dedicated
// goroutine per direction.
type paStream struct {
	s *portaudio.Stream
}

func (p *paStream) Start() error { return p.s.Start() }
func (p *paStream) Stop() error { return p.s.Stop() }
func (p *paStream) Close() error { return p.s.Close() }
func (p *paStream) Read() error { return p.s.Read() }
func (p *paStream) Write() error { return p.s.Write() }

// OpenPortAudio opens the host-side stream pair: an OutChannels-wide
// output stream carrying the mixer's capture signal downstream, and an
// InChannels-wide input stream gathering the monitor return. nframes is
// the fixed period size requested from the host daemon.
func OpenPortAudio(nframes int) (*Ports, error) {
	if nframes > MaxFrames {
		return nil, fmt.Errorf("hostaudio: nframes %d exceeds max %d", nframes, MaxFrames)
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("hostaudio: portaudio init: %w", err)
	}

	outDev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("hostaudio: default output device: %w", err)
	}
	inDev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("hostaudio: default input device: %w", err)
	}

	ports := NewPorts(nil, nil, nframes)

	outParams := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outDev,
			Channels: OutChannels,
			Latency:  outDev.DefaultLowOutputLatency,
		},
		SampleRate:      96000,
		FramesPerBuffer: nframes,
	}
	outStream, err := portaudio.OpenStream(outParams, ports.OutBuf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("hostaudio: open output stream: %w", err)
	}

	inParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDev,
			Channels: InChannels,
			Latency:  inDev.DefaultLowInputLatency,
		},
		SampleRate:      96000,
		FramesPerBuffer: nframes,
	}
	inStream, err := portaudio.OpenStream(inParams, ports.InBuf)
	if err != nil {
		outStream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("hostaudio: open input stream: %w", err)
	}

	ports.Output = &paStream{s: outStream}
	ports.Input = &paStream{s: inStream}
	return ports, nil
}

// Close stops and closes both streams and terminates PortAudio.
func (p *Ports) Close() {
	if p.Output != nil {
		p.Output.Stop()
		p.Output.Close()
	}
	if p.Input != nil {
		p.Input.Stop()
		p.Input.Close()
	}
	portaudio.Terminate()
}
