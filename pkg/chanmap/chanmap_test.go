package chanmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/samplespec"
)

func TestIdentityMapping(t *testing.T) {
	stereo := samplespec.Stereo()
	m := New(stereo, stereo)

	src := []float32{0.1, 0.2, -0.3, 0.4}
	dst := make([]float32, len(src))
	m.Map(src, dst, 2)

	require.Equal(t, src, dst)
}

func TestMonoToStereoUpmix(t *testing.T) {
	mono := samplespec.Mono()
	stereo := samplespec.Stereo()
	m := New(mono, stereo)

	src := []float32{1.0}
	dst := make([]float32, 2)
	m.Map(src, dst, 1)

	require.Equal(t, float32(1.0), dst[0])
	require.Equal(t, float32(1.0), dst[1])
}

func TestStereoToMonoDownmixNoNaN(t *testing.T) {
	stereo := samplespec.Stereo()
	mono := samplespec.Mono()
	m := New(stereo, mono)

	src := []float32{0.5, 0.5}
	dst := make([]float32, 1)
	m.Map(src, dst, 1)

	require.False(t, math.IsNaN(float64(dst[0])))
	require.InDelta(t, 0.70710678, dst[0], 1e-3)
}

func TestSurroundLadderNoNaNOrZeroWhereRepresentable(t *testing.T) {
	full := samplespec.NewSurround(samplespec.OrderSmpte,
		samplespec.ChanFrontLeft, samplespec.ChanFrontRight, samplespec.ChanFrontCenter,
		samplespec.ChanLowFrequency, samplespec.ChanBackLeft, samplespec.ChanBackRight,
		samplespec.ChanSideLeft, samplespec.ChanSideRight,
		samplespec.ChanTopFrontLeft, samplespec.ChanTopFrontRight,
		samplespec.ChanTopBackLeft, samplespec.ChanTopBackRight)
	mono := samplespec.Mono()

	down := New(full, mono)
	up := New(mono, full)

	src := make([]float32, full.Count())
	for i := range src {
		src[i] = 0.3
	}

	midDst := make([]float32, mono.Count())
	down.Map(src, midDst, 1)
	require.False(t, math.IsNaN(float64(midDst[0])))

	final := make([]float32, full.Count())
	up.Map(midDst, final, 1)
	for i, v := range final {
		require.False(t, math.IsNaN(float64(v)), "channel %d is NaN", i)
	}
	// front center is representable in both sets round-trip exactly
	require.NotEqual(t, float32(0), final[2])
}
