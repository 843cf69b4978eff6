// Package diag prints the ~1 Hz health line and watches for a stalled
// period engine, in the style of metrics.go's ticker-driven logger.
package diag

import (
	"context"
	"log"
	"time"

	"mixerbridge/internal/capture"
	"mixerbridge/internal/feedback"
	"mixerbridge/internal/period"
	"mixerbridge/internal/playback"
)

// Sources is the set of counters the diagnostic line reports on. All fields
// are read-only from diag's point of view; the owning goroutines each tend
// their own counters.
type Sources struct {
	Decoder     *capture.Decoder
	Encoder     *playback.Encoder
	Engine      *period.Engine
	Accumulator *feedback.Accumulator
}

// StallAfter is how long the period engine can go without a cycle before
// diag treats it as stalled rather than merely underrunning (the original
// plugin's process-count sanity check).
const StallAfter = 3 * time.Second

// Run logs one diagnostic line per interval until ctx is canceled, and calls
// onStall on every interval in which the period engine has gone silent for
// longer than StallAfter.
func Run(ctx context.Context, src Sources, interval time.Duration, onStall func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("[diag] captureOverruns=%d ibUnderruns=%d rbOverruns=%d ib(drop=%d add=%d) rb(drop=%d add=%d) silence=%d fb:%+04d",
				src.Decoder.Overruns, src.Engine.IBUnderruns, src.Engine.RBOverruns,
				src.Engine.IBDrops, src.Engine.IBAdds,
				src.Engine.RBDrops, src.Engine.RBAdds,
				src.Encoder.SilenceCount, src.Accumulator.Snapshot())

			if src.Engine.StallCheck(StallAfter) && onStall != nil {
				onStall()
			}
		}
	}
}
