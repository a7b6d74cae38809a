package creso

import (
	"fmt"
	"io"
	"time"
)

// Verbosity selects the progress reporting tier. Tiers are additive and
// purely observational: they never change the optimization itself.
type Verbosity int

const (
	// Silent emits nothing.
	Silent Verbosity = iota
	// PerEpoch emits one line per epoch.
	PerEpoch
	// PerStep adds one line per within-epoch update.
	PerStep
)

// ProgressSink receives training progress events. Implementations must be
// cheap and non-blocking; the trainer calls them synchronously.
type ProgressSink interface {
	// EpochEnd reports a completed epoch with its mean loss.
	EpochEnd(epoch int, loss float64, elapsed time.Duration)

	// StepEnd reports a completed within-epoch update.
	StepEnd(epoch, step int, loss float64)
}

// NewProgressWriter returns a sink writing line-oriented text to w at the
// given tier. The per-epoch format is stable enough to scrape:
//
//	epoch=3 loss=0.412871 elapsed=1.2ms
func NewProgressWriter(w io.Writer, v Verbosity) ProgressSink {
	if v == Silent || w == nil {
		return silentSink{}
	}
	return &writerSink{w: w, verbosity: v}
}

// sinkForVerbose maps the numeric verbose config value to a sink on w.
func sinkForVerbose(w io.Writer, verbose int) ProgressSink {
	switch verbose {
	case 1:
		return NewProgressWriter(w, PerEpoch)
	case 2:
		return NewProgressWriter(w, PerStep)
	default:
		return silentSink{}
	}
}

type silentSink struct{}

func (silentSink) EpochEnd(int, float64, time.Duration) {}
func (silentSink) StepEnd(int, int, float64)            {}

type writerSink struct {
	w         io.Writer
	verbosity Verbosity
}

func (s *writerSink) EpochEnd(epoch int, loss float64, elapsed time.Duration) {
	fmt.Fprintf(s.w, "epoch=%d loss=%.6f elapsed=%s\n", epoch, loss, elapsed)
}

func (s *writerSink) StepEnd(epoch, step int, loss float64) {
	if s.verbosity < PerStep {
		return
	}
	fmt.Fprintf(s.w, "epoch=%d step=%d loss=%.6f\n", epoch, step, loss)
}
