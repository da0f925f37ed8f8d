// Package resampler implements the fractional-rate resampler of spec.md
// section 4.10: a windowed-sinc convolution backend exposed as both a
// Reader and a Writer, with set_scaling accepting ratios in [1/16, 16]
// without re-initialization. Grounded on internal/tuner's windowed-sinc
// filter construction (gonum.org/v1/gonum/dsp/window), generalized from a
// fixed decimation-by-10 stage to an arbitrary continuously-retunable
// fractional ratio.
package resampler

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

const (
	filterTapsPerPhase = 32
	numPhases          = 256
	minRatio           = 1.0 / 16.0
	maxRatio           = 16.0
)

// table is a windowed-sinc polyphase filter bank, shared by every Backend
// instance at a given channel count since the filter shape doesn't depend
// on the current ratio (only the read-cursor step does).
type table struct {
	phases [][]float64 // numPhases entries, each filterTapsPerPhase wide
}

func buildTable() *table {
	total := numPhases * filterTapsPerPhase
	taps := make([]float64, total)
	mid := float64(total-1) / 2
	for i := range taps {
		x := float64(i) - mid
		if x == 0 {
			taps[i] = 1.0
		} else {
			taps[i] = math.Sin(math.Pi*x/float64(numPhases)) / (math.Pi * x / float64(numPhases))
		}
	}
	taps = window.Blackman(taps)

	t := &table{phases: make([][]float64, numPhases)}
	for p := 0; p < numPhases; p++ {
		phase := make([]float64, filterTapsPerPhase)
		for k := 0; k < filterTapsPerPhase; k++ {
			idx := k*numPhases + p
			if idx < len(taps) {
				phase[k] = taps[idx]
			}
		}
		t.phases[p] = phase
	}
	return t
}

var sharedTable = buildTable()

// Backend is the windowed-sinc convolution core shared by Reader and
// Writer: it consumes a continuous multichannel sample stream at one rate
// and produces one at another, ratio adjustable in flight.
type Backend struct {
	channels int
	ratio    float64 // output frames per input frame; the cursor steps 1/ratio input frames per output frame

	history    []float64 // interleaved ring buffer, filterTapsPerPhase frames per channel
	historyLen int
	cursor     float64 // fractional read position into history, in frames
}

// NewBackend allocates a Backend for the given channel count at unity
// ratio.
func NewBackend(channels int) *Backend {
	b := &Backend{channels: channels, ratio: 1.0}
	b.historyLen = filterTapsPerPhase
	b.history = make([]float64, b.historyLen*channels)
	return b
}

// SetScaling implements set_scaling(in_rate, out_rate, multiplier): the
// product multiplier*in_rate/out_rate is the instantaneous ratio. Values
// within [1/16, 16] are accepted without re-initializing internal state,
// per spec.md's continuity contract.
func (b *Backend) SetScaling(inRate, outRate samplespec.SampleSpec, multiplier float64) error {
	_ = inRate
	_ = outRate
	if multiplier < minRatio || multiplier > maxRatio {
		return status.Newf(status.BadConfig, "resampler: ratio %v outside [%v, %v]", multiplier, minRatio, maxRatio)
	}
	b.ratio = multiplier
	return nil
}

// SetRatio is a direct ratio setter used when the caller already knows
// in_rate/out_rate/multiplier's product.
func (b *Backend) SetRatio(ratio float64) error {
	if ratio < minRatio || ratio > maxRatio {
		return status.Newf(status.BadConfig, "resampler: ratio %v outside [%v, %v]", ratio, minRatio, maxRatio)
	}
	b.ratio = ratio
	return nil
}

// feed appends one interleaved input frame to the history ring.
func (b *Backend) feed(frame []float64) {
	copy(b.history, b.history[b.channels:])
	copy(b.history[len(b.history)-b.channels:], frame)
}

// sample produces one interleaved output frame at the current fractional
// cursor position via polyphase convolution. It does not move the cursor;
// Process subtracts 1/ratio input frames from it after each call.
func (b *Backend) sample(out []float64) {
	frac := b.cursor - math.Floor(b.cursor)
	phaseIdx := int(frac * numPhases)
	if phaseIdx >= numPhases {
		phaseIdx = numPhases - 1
	}
	taps := sharedTable.phases[phaseIdx]

	base := b.historyLen - filterTapsPerPhase
	for c := 0; c < b.channels; c++ {
		var acc float64
		for k := 0; k < filterTapsPerPhase; k++ {
			frameIdx := base + k
			if frameIdx < 0 || frameIdx >= b.historyLen {
				continue
			}
			acc += taps[k] * b.history[frameIdx*b.channels+c]
		}
		out[c] = acc
	}
}

// Process consumes in (interleaved, channels-wide frames) and produces as
// many output frames as the current ratio yields, appended to out.
func (b *Backend) Process(in []float64, out []float64) []float64 {
	numFrames := len(in) / b.channels
	frame := make([]float64, b.channels)
	result := out

	for i := 0; i < numFrames; i++ {
		copy(frame, in[i*b.channels:(i+1)*b.channels])
		b.feed(frame)
		b.cursor++

		for b.cursor >= 1.0/b.ratio {
			sampleOut := make([]float64, b.channels)
			b.sample(sampleOut)
			result = append(result, sampleOut...)
			b.cursor -= 1.0 / b.ratio
		}
	}
	return result
}
