package resampler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

func testMonoSpec() samplespec.SampleSpec {
	return samplespec.SampleSpec{
		Format:     samplespec.FormatRaw,
		SampleRate: 44100,
		Channels:   samplespec.Mono(),
	}
}

func TestSetRatioRejectsOutOfBounds(t *testing.T) {
	b := NewBackend(2)
	require.Error(t, b.SetRatio(17))
	require.Error(t, b.SetRatio(1.0/17.0))
	require.NoError(t, b.SetRatio(16))
	require.NoError(t, b.SetRatio(1.0/16.0))
}

func TestProcessAtUnityRatioPreservesApproximateLength(t *testing.T) {
	b := NewBackend(1)
	in := make([]float64, 1000)
	for i := range in {
		in[i] = 1.0
	}
	out := b.Process(in, nil)
	require.InDelta(t, len(in), len(out), float64(filterTapsPerPhase)*2)
}

func TestProcessAtHalfRatioHalvesOutputLength(t *testing.T) {
	b := NewBackend(1)
	require.NoError(t, b.SetRatio(0.5))
	in := make([]float64, 2000)
	for i := range in {
		in[i] = 1.0
	}
	out := b.Process(in, nil)
	require.InDelta(t, len(in)/2, len(out), float64(filterTapsPerPhase)*2)
}

type constReader struct {
	channels int
}

func (c constReader) ReadFrame(numSamples int) ([]float32, error) {
	out := make([]float32, numSamples)
	for i := range out {
		out[i] = 0.5
	}
	return out, nil
}

func TestReaderProducesRequestedSampleCount(t *testing.T) {
	upstream := constReader{channels: 1}
	spec := testMonoSpec()
	r := NewReader(upstream, spec)

	out, err := r.ReadFrame(128)
	require.NoError(t, err)
	require.Len(t, out, 128)
}

type collectingFrameWriter struct {
	frames [][]float32
}

func (c *collectingFrameWriter) WriteFrame(samples []float32) error {
	c.frames = append(c.frames, samples)
	return nil
}

func TestWriterForwardsResampledFrames(t *testing.T) {
	dst := &collectingFrameWriter{}
	spec := testMonoSpec()
	w := NewWriter(dst, spec)

	in := make([]float32, 256)
	for i := range in {
		in[i] = 0.25
	}
	require.NoError(t, w.WriteFrame(in))
	require.Len(t, dst.frames, 1)
	require.NotEmpty(t, dst.frames[0])
}
