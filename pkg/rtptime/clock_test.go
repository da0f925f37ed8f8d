package rtptime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNsSamplesRoundTrip(t *testing.T) {
	for _, rate := range []uint32{8000, 44100, 48000, 96000} {
		for _, d := range []time.Duration{0, time.Millisecond, 10 * time.Millisecond, 2500 * time.Millisecond} {
			samples := NsToSamples(d, rate)
			back := SamplesToNs(samples, rate)
			require.InDelta(t, float64(d), float64(back), float64(time.Second)/float64(rate))
		}
	}
}

func TestStamp32DiffWrap(t *testing.T) {
	require.Equal(t, int64(2), Stamp32Diff(0xFFFFFFFF, 1))
	require.Equal(t, int64(-2), Stamp32Diff(1, 0xFFFFFFFF))
	require.Equal(t, int64(100), Stamp32Diff(1000, 1100))
}

func TestSeq16DiffWrap(t *testing.T) {
	require.Equal(t, int32(2), Seq16Diff(0xFFFF, 1))
	require.Equal(t, int32(-2), Seq16Diff(1, 0xFFFF))
}

func TestNTPRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(2013, 4, 15, 11, 15, 17, 958404853, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, ca := range cases {
		enc := EncodeNTP(ca)
		dec := DecodeNTP(enc)
		require.WithinDuration(t, ca, dec, time.Microsecond)
	}
}

func TestDelaySinceRoundTrip(t *testing.T) {
	d := 250 * time.Millisecond
	v := EncodeDelaySince(d)
	back := DecodeDelaySince(v)
	require.InDelta(t, float64(d), float64(back), float64(time.Second)/65536)
}

func TestDecoderAccumulates(t *testing.T) {
	dec := NewDecoder(8000)
	require.Equal(t, time.Duration(0), dec.Decode(1000))
	require.Equal(t, time.Second, dec.Decode(9000))
}
