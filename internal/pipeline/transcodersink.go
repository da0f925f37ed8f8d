package pipeline

import (
	"github.com/roc-streaming/roc-toolkit-sub001/internal/resampler"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/chanmap"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// Sink is the downstream frame consumer a TranscoderSink forwards to.
type Sink interface {
	WriteFrame(samples []float32) error
}

// TranscoderSink is the convenience pipeline of spec.md section 4.14, a
// ChannelMapper followed by a Resampler, exposing the sink interface and
// forwarding to an arbitrary downstream sink. It has no profiling stage.
// Used to
// convert offline files and as the glue between pipeline components whose
// in/out specs differ.
type TranscoderSink struct {
	inSpec, outSpec samplespec.SampleSpec

	mapper   *chanmap.Mapper
	resample *resampler.Writer
	sink     Sink

	mappedBuf []float32
}

// NewTranscoderSink builds a TranscoderSink converting frames from inSpec
// to outSpec before forwarding to sink. Channel mapping is skipped when the
// channel sets are equal; frames always pass through the resampler Writer,
// whose scaling is set only when the sample rates differ.
func NewTranscoderSink(inSpec, outSpec samplespec.SampleSpec, sink Sink) (*TranscoderSink, error) {
	if inSpec.NumChannels() <= 0 || outSpec.NumChannels() <= 0 {
		return nil, status.Newf(status.BadConfig, "transcoder sink: channel counts must be positive")
	}

	ts := &TranscoderSink{inSpec: inSpec, outSpec: outSpec, sink: sink}

	if !inSpec.Channels.Equal(outSpec.Channels) {
		ts.mapper = chanmap.New(inSpec.Channels, outSpec.Channels)
	}

	intermediateSpec := outSpec
	intermediateSpec.SampleRate = inSpec.SampleRate
	ts.resample = resampler.NewWriter(sinkAdapter{ts}, intermediateSpec)
	if inSpec.SampleRate != outSpec.SampleRate {
		ratio := float64(inSpec.SampleRate) / float64(outSpec.SampleRate)
		if err := ts.resample.SetScaling(inSpec, outSpec, ratio); err != nil {
			return nil, err
		}
	}

	return ts, nil
}

// sinkAdapter lets TranscoderSink itself be the resampler.Writer's
// downstream, so the mapped-and-resampled frame reaches the real sink.
type sinkAdapter struct {
	ts *TranscoderSink
}

func (a sinkAdapter) WriteFrame(samples []float32) error {
	return a.ts.sink.WriteFrame(samples)
}

// WriteFrame maps channels (if needed) and resamples (if needed) before
// forwarding to the downstream sink.
func (ts *TranscoderSink) WriteFrame(samples []float32) error {
	in := samples
	if ts.mapper != nil {
		numSamples := len(samples) / ts.inSpec.NumChannels()
		needed := numSamples * ts.outSpec.NumChannels()
		if cap(ts.mappedBuf) < needed {
			ts.mappedBuf = make([]float32, needed)
		}
		dst := ts.mappedBuf[:needed]
		ts.mapper.Map(samples, dst, numSamples)
		in = dst
	}
	return ts.resample.WriteFrame(in)
}
