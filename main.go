// Command mixerbridge bridges the Alesis iO|26-class USB mixer's ten
// capture channels and stereo monitor return to a host audio daemon. See
// internal/orchestrator for the transfer state machine and internal/period
// for the per-cycle rate-matching engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"mixerbridge/internal/capture"
	"mixerbridge/internal/device"
	"mixerbridge/internal/diag"
	"mixerbridge/internal/feedback"
	"mixerbridge/internal/hostaudio"
	"mixerbridge/internal/orchestrator"
	"mixerbridge/internal/period"
	"mixerbridge/internal/playback"
	"mixerbridge/internal/ringbuf"
	"mixerbridge/internal/usbtransport"
)

// Ring sizes, in frames.
const (
	ibFrameLength = 8192
	rbFrameLength = 3072
)

// periodFrames is the fixed host audio period size requested from the host
// daemon. It's a low-latency default kept well under hostaudio.MaxFrames.
const periodFrames = 256

func main() {
	verbose := flag.Bool("v", false, "print diagnostic counters at ~1 Hz")
	veryVerbose := flag.Bool("vv", false, "also request verbose logging from the USB transport")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: mixerbridge [-v] [-vv] <port-name>")
		os.Exit(1)
	}
	portName := flag.Arg(0)

	dev, err := usbtransport.Locate(device.VendorID, device.ProductID, *veryVerbose)
	if err != nil {
		log.Printf("[bridge] %v", err)
		os.Exit(1)
	}

	ports, err := hostaudio.OpenPortAudio(periodFrames)
	if err != nil {
		log.Printf("[bridge] host audio: %v", err)
		os.Exit(1)
	}
	defer ports.Close()

	ib := ringbuf.New(ibFrameLength * capture.BytesPerFrame)
	rb := ringbuf.New(rbFrameLength * period.RBFrameBytes)

	decoder := capture.New(ib)
	acc := &feedback.Accumulator{}
	encoder := playback.New(rb, acc)
	engine := period.New(ib, rb)

	orch := orchestrator.New(dev, decoder, encoder, acc)
	if err := orch.BringUp(*veryVerbose); err != nil {
		log.Printf("[bridge] %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		log.Printf("[bridge] %v", err)
		os.Exit(1)
	}

	if err := ports.Output.Start(); err != nil {
		log.Printf("[bridge] host output start: %v", err)
		os.Exit(1)
	}
	if err := ports.Input.Start(); err != nil {
		log.Printf("[bridge] host input start: %v", err)
		os.Exit(1)
	}

	log.Printf("[bridge] registered as %q, capture latency=%d frames, playback latency=%d frames",
		portName,
		hostaudio.CaptureLatencyFrames(period.IBTargetFrames),
		hostaudio.PlaybackLatencyFrames(orchestrator.PlaybackPoolSize, period.RBTargetFrames))

	done := make(chan struct{})
	var doneOnce sync.Once
	closeDone := func() { doneOnce.Do(func() { close(done) }) }

	go runOutputLoop(ctx, engine, ports, closeDone)
	go runInputLoop(ctx, engine, ports)

	if *verbose || *veryVerbose {
		go diag.Run(ctx, diag.Sources{Decoder: decoder, Encoder: encoder, Engine: engine, Accumulator: acc}, time.Second, func() {
			log.Printf("[diag] period engine stalled: no cycle in over %s", diag.StallAfter)
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go watchStdin(closeDone)

	select {
	case <-sigCh:
		log.Printf("[bridge] shutting down on signal")
	case <-done:
		log.Printf("[bridge] shutting down on stdin request")
	}

	cancel()
	orch.Shutdown()
	log.Printf("[bridge] clean exit")
}

// runOutputLoop drains IB into the host's output ports once per period.
func runOutputLoop(ctx context.Context, engine *period.Engine, ports *hostaudio.Ports, closeDone func()) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := engine.RunInput(periodFrames, 0, ports.OutBuf); err != nil {
			log.Printf("[bridge] fatal: period RunInput: %v", err)
			closeDone()
			return
		}
		if err := ports.Output.Write(); err != nil {
			log.Printf("[bridge] host output write: %v", err)
			return
		}
	}
}

// runInputLoop gathers the host's input ports into RB once per period.
func runInputLoop(ctx context.Context, engine *period.Engine, ports *hostaudio.Ports) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := ports.Input.Read(); err != nil {
			log.Printf("[bridge] host input read: %v", err)
			return
		}
		if err := engine.RunOutput(periodFrames, 0, ports.InBuf); err != nil {
			log.Printf("[bridge] fatal: period RunOutput: %v", err)
			return
		}
	}
}

// watchStdin calls closeDone on any byte from stdin.
func watchStdin(closeDone func()) {
	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err == nil {
		closeDone()
	}
}
