package resampler

import (
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

// FrameReader is an upstream source of interleaved float32 frames.
type FrameReader interface {
	ReadFrame(numSamples int) ([]float32, error)
}

// FrameWriter is a downstream sink of interleaved float32 frames.
type FrameWriter interface {
	WriteFrame(samples []float32) error
}

// Reader pulls from an upstream FrameReader and produces resampled
// frames on demand, per spec.md section 4.10.
type Reader struct {
	upstream FrameReader
	backend  *Backend
	spec     samplespec.SampleSpec

	pending []float64 // leftover resampled-but-unread output
}

// NewReader wraps upstream with a Backend sized to spec's channel count.
func NewReader(upstream FrameReader, spec samplespec.SampleSpec) *Reader {
	return &Reader{upstream: upstream, backend: NewBackend(spec.NumChannels()), spec: spec}
}

// SetScaling forwards to the Backend.
func (r *Reader) SetScaling(inRate, outRate samplespec.SampleSpec, multiplier float64) error {
	return r.backend.SetScaling(inRate, outRate, multiplier)
}

// ReadFrame produces numSamples interleaved samples, pulling and
// resampling as many upstream frames as needed.
func (r *Reader) ReadFrame(numSamples int) ([]float32, error) {
	for len(r.pending) < numSamples {
		upstreamFrames := numSamples/r.backend.channels + 1
		raw, err := r.upstream.ReadFrame(upstreamFrames * r.backend.channels)
		if err != nil {
			return nil, err
		}
		in := make([]float64, len(raw))
		for i, v := range raw {
			in[i] = float64(v)
		}
		r.pending = r.backend.Process(in, r.pending)
	}

	out := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		out[i] = float32(r.pending[i])
	}
	r.pending = r.pending[numSamples:]
	return out, nil
}

// Writer consumes frames and pushes resampled frames downstream, per
// spec.md section 4.10.
type Writer struct {
	downstream FrameWriter
	backend    *Backend
}

// NewWriter wraps downstream with a Backend sized to spec's channel count.
func NewWriter(downstream FrameWriter, spec samplespec.SampleSpec) *Writer {
	return &Writer{downstream: downstream, backend: NewBackend(spec.NumChannels())}
}

// SetScaling forwards to the Backend.
func (w *Writer) SetScaling(inRate, outRate samplespec.SampleSpec, multiplier float64) error {
	return w.backend.SetScaling(inRate, outRate, multiplier)
}

// WriteFrame resamples samples and forwards the result downstream.
func (w *Writer) WriteFrame(samples []float32) error {
	in := make([]float64, len(samples))
	for i, v := range samples {
		in[i] = float64(v)
	}
	out := w.backend.Process(in, nil)

	f32 := make([]float32, len(out))
	for i, v := range out {
		f32[i] = float32(v)
	}
	return w.downstream.WriteFrame(f32)
}
