package rtpformat

import (
	"fmt"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/pcm"
	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

// EncodePCM serializes raw float32 samples into the wire bytes for spec's
// sample format, the bridge the packetizer uses between the raw-float internal
// currency and the PCM subformat a payload type commits to on the wire.
func EncodePCM(samples []float32, spec samplespec.SampleSpec) ([]byte, error) {
	switch spec.Format {
	case samplespec.FormatPcm:
		out := make([]byte, len(samples)*spec.BytesPerSample())
		if _, err := pcm.FromRaw(spec.PcmSubformat, samples, out); err != nil {
			return nil, err
		}
		return out, nil
	case samplespec.FormatRaw:
		out := make([]byte, len(samples)*4)
		if _, err := pcm.FromRaw(samplespec.PcmFloat32BE, samples, out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("rtpformat: unsupported sample format %v", spec.Format)
	}
}

// DecodePCM is the depacketizer's inverse of EncodePCM.
func DecodePCM(wire []byte, spec samplespec.SampleSpec) ([]float32, error) {
	switch spec.Format {
	case samplespec.FormatPcm:
		out := make([]float32, len(wire)/spec.BytesPerSample())
		if _, err := pcm.ToRaw(spec.PcmSubformat, wire, out); err != nil {
			return nil, err
		}
		return out, nil
	case samplespec.FormatRaw:
		out := make([]float32, len(wire)/4)
		if _, err := pcm.ToRaw(samplespec.PcmFloat32BE, wire, out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("rtpformat: unsupported sample format %v", spec.Format)
	}
}
