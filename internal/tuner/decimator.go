// Package tuner implements the latency tuner and frequency estimator of
// spec.md section 4.9: a cascade of FIR decimators filtering instantaneous
// queue latency into a scale factor a resampler applies to compensate
// sender/receiver clock drift. The decimator taps are windowed-sinc low
// pass filters built with gonum.org/v1/gonum/dsp/window, the pack's only
// DSP-library presence (referenced transitively by several example
// manifests; no pack repo does FIR filtering directly, so this is built
// from the window package's documented behavior and spec.md's "256-tap
// window-method LPF" description).
package tuner

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

const (
	decimatorTaps   = 256
	decimatorFactor = 10
)

// firLowpass builds an n-tap windowed-sinc low-pass filter with the given
// normalized cutoff (0, 1), where 1 is Nyquist.
func firLowpass(n int, cutoff float64) []float64 {
	taps := make([]float64, n)
	mid := float64(n-1) / 2
	for i := range taps {
		x := float64(i) - mid
		if x == 0 {
			taps[i] = cutoff
		} else {
			taps[i] = math.Sin(math.Pi*cutoff*x) / (math.Pi * x)
		}
	}
	taps = window.Blackman(taps)

	sum := 0.0
	for _, t := range taps {
		sum += t
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps
}

// Decimator is a single FIR-filtered decimation-by-decimatorFactor stage:
// every decimatorFactor input samples produce one filtered output sample.
type Decimator struct {
	taps []float64
	buf  []float64 // ring buffer; head is the next write slot, so the most recent sample is at head-1
	head int
	skip int
}

// NewDecimator allocates a Decimator sharing the 256-tap low-pass filter
// (designed with cutoff 1/decimatorFactor) spec.md describes as common to
// both cascade stages.
func NewDecimator() *Decimator {
	return &Decimator{
		taps: firLowpass(decimatorTaps, 1.0/decimatorFactor),
		buf:  make([]float64, decimatorTaps),
	}
}

// Push feeds one input sample. It returns (output, true) every
// decimatorFactor calls, and (0, false) otherwise.
func (d *Decimator) Push(x float64) (float64, bool) {
	d.buf[d.head] = x
	d.head = (d.head + 1) % len(d.buf)

	d.skip++
	if d.skip < decimatorFactor {
		return 0, false
	}
	d.skip = 0

	var acc float64
	idx := d.head
	for _, t := range d.taps {
		idx = (idx - 1 + len(d.buf)) % len(d.buf)
		acc += t * d.buf[idx]
	}
	return acc, true
}
