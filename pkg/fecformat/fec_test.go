package fecformat

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"
)

func makeSourceShards(n, symbolLen int, seed int64) [][]byte {
	r := rand.New(rand.NewSource(seed))
	out := make([][]byte, n)
	for i := range out {
		b := make([]byte, symbolLen)
		r.Read(b)
		out[i] = b
	}
	return out
}

func TestRS8MRoundTripUpToMLosses(t *testing.T) {
	const n, m, symbolLen = 10, 5, 256
	codec := &RS8MCodec{}

	source := makeSourceShards(n, symbolLen, 1)
	repair, err := codec.Encode(source, n, m, symbolLen)
	require.NoError(t, err)
	require.Len(t, repair, m)

	for loss := 0; loss <= m; loss++ {
		gotSource := make([][]byte, n)
		copy(gotSource, source)
		gotRepair := make([][]byte, m)
		copy(gotRepair, repair)

		// drop `loss` source symbols, keep enough repair to compensate
		for i := 0; i < loss; i++ {
			gotSource[i] = nil
		}
		// also drop non-needed repair symbols beyond what's required, to
		// exercise a mixed source/repair presence pattern
		for i := loss; i < m; i++ {
			gotRepair[i] = nil
		}

		err := codec.Decode(gotSource, gotRepair, n, m, symbolLen)
		require.NoError(t, err, "loss=%d", loss)

		for i := 0; i < n; i++ {
			require.True(t, bytes.Equal(source[i], gotSource[i]), "symbol %d mismatch at loss=%d", i, loss)
		}
	}
}

func TestRS8MNotDecodableWithTooManyLosses(t *testing.T) {
	const n, m, symbolLen = 4, 2, 64
	codec := &RS8MCodec{}

	source := makeSourceShards(n, symbolLen, 2)
	repair, err := codec.Encode(source, n, m, symbolLen)
	require.NoError(t, err)

	gotSource := make([][]byte, n)
	gotSource[0] = source[0]
	// only 1 source + 0 repair present, need n=4 total
	err = codec.Decode(gotSource, make([][]byte, m), n, m, symbolLen)
	require.Error(t, err)
	_ = repair
}

func TestPayloadIDRoundTrip(t *testing.T) {
	id := PayloadID{SBN: 100, ESI: 3, K: 10, N: 15}
	buf := make([]byte, PayloadIDSize)
	EncodePayloadID(id, buf)
	back, err := DecodePayloadID(buf)
	require.NoError(t, err)
	require.Equal(t, id, back)
}

func TestSplitJoinPayloadFooterVsHeader(t *testing.T) {
	id := PayloadID{SBN: 1, ESI: 2, K: 10, N: 15}
	symbol := []byte("hello fec")

	for _, sch := range []packet.FECScheme{packet.FECSchemeRS8M, packet.FECSchemeLDPCStaircase} {
		wire := JoinPayload(sch, id, symbol)
		gotID, gotSymbol, err := SplitPayload(sch, wire)
		require.NoError(t, err)
		require.Equal(t, id, gotID)
		require.Equal(t, symbol, gotSymbol)
	}
}
