package pcm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

func TestRoundTripSubformats(t *testing.T) {
	subs := []samplespec.PcmSubformat{
		samplespec.PcmSInt8,
		samplespec.PcmUInt8,
		samplespec.PcmSInt16LE,
		samplespec.PcmSInt16BE,
		samplespec.PcmSInt24LE3,
		samplespec.PcmSInt32LE,
		samplespec.PcmFloat32LE,
		samplespec.PcmFloat64LE,
	}

	raw := []float32{0, 0.5, -0.5, 0.999, -0.999, 0.1, -0.1}

	for _, sub := range subs {
		width := subformatWidth(sub)
		buf := make([]byte, width*len(raw))
		n, err := FromRaw(sub, raw, buf)
		require.NoError(t, err)
		require.Equal(t, len(raw), n)

		back := make([]float32, len(raw))
		n, err = ToRaw(sub, buf, back)
		require.NoError(t, err)
		require.Equal(t, len(raw), n)

		tolerance := float32(2) / float32(int(1)<<uint(minBits(sub)))
		for i := range raw {
			require.InDeltaf(t, float64(raw[i]), float64(back[i]), float64(tolerance), "subformat=%v idx=%d", sub, i)
		}
	}
}

func minBits(sub samplespec.PcmSubformat) int {
	switch sub {
	case samplespec.PcmSInt8, samplespec.PcmUInt8:
		return 7
	case samplespec.PcmSInt16LE, samplespec.PcmSInt16BE:
		return 15
	case samplespec.PcmSInt24LE3:
		return 23
	default:
		return 20
	}
}

func TestConvertBetweenNonRawFormats(t *testing.T) {
	raw := []float32{0.25, -0.25, 0.75, -0.75}
	src := make([]byte, 2*len(raw))
	_, err := FromRaw(samplespec.PcmSInt16LE, raw, src)
	require.NoError(t, err)

	dst := make([]byte, 4*len(raw))
	n, err := Convert(samplespec.PcmSInt16LE, samplespec.PcmFloat32LE, src, dst, nil)
	require.NoError(t, err)
	require.Equal(t, len(raw), n)

	back := make([]float32, len(raw))
	_, err = ToRaw(samplespec.PcmFloat32LE, dst, back)
	require.NoError(t, err)
	for i := range raw {
		require.InDelta(t, float64(raw[i]), float64(back[i]), 1e-3)
	}
}
