package fecformat

import (
	"github.com/klauspost/reedsolomon"

	"github.com/roc-streaming/roc-toolkit-sub001/pkg/status"
)

// RS8MCodec implements the Reed-Solomon-8m block code: GF(256) arithmetic
// over a block of up to 255 symbols total (N source + M repair). Grounded
// on github.com/klauspost/reedsolomon, the pure-Go erasure coder the pack
// references (xtaci/kcp-go's FEC layer names it directly as its backing
// implementation) rather than a hand-rolled Vandermonde-matrix codec.
type RS8MCodec struct{}

// maxRS8MBlockLength is the GF(256)-imposed ceiling on N+M for this
// scheme.
const maxRS8MBlockLength = 255

// Encode implements BlockCodec.
func (RS8MCodec) Encode(source [][]byte, n, m, symbolLen int) ([][]byte, error) {
	if n+m > maxRS8MBlockLength {
		return nil, status.Newf(status.BadConfig, "rs8m: block length %d exceeds 255", n+m)
	}

	enc, err := reedsolomon.New(n, m)
	if err != nil {
		return nil, status.Wrap(status.BadConfig, err)
	}

	shards := make([][]byte, n+m)
	for i := 0; i < n; i++ {
		shards[i] = padTo(source[i], symbolLen)
	}
	for i := n; i < n+m; i++ {
		shards[i] = make([]byte, symbolLen)
	}

	if err := enc.Encode(shards); err != nil {
		return nil, status.Wrap(status.BadBuffer, err)
	}

	return shards[n:], nil
}

// Decode implements BlockCodec.
func (RS8MCodec) Decode(source [][]byte, repair [][]byte, n, m, symbolLen int) error {
	if n+m > maxRS8MBlockLength {
		return status.Newf(status.BadConfig, "rs8m: block length %d exceeds 255", n+m)
	}

	enc, err := reedsolomon.New(n, m)
	if err != nil {
		return status.Wrap(status.BadConfig, err)
	}

	shards := make([][]byte, n+m)
	present := 0
	for i := 0; i < n; i++ {
		if source[i] != nil {
			shards[i] = padTo(source[i], symbolLen)
			present++
		}
	}
	for i := 0; i < m; i++ {
		if repair[i] != nil {
			shards[n+i] = padTo(repair[i], symbolLen)
			present++
		}
	}

	if present < n {
		return status.New(status.Again)
	}

	if err := enc.Reconstruct(shards); err != nil {
		return status.Wrap(status.BadBuffer, err)
	}

	for i := 0; i < n; i++ {
		if source[i] == nil {
			source[i] = shards[i]
		}
	}
	return nil
}

func padTo(b []byte, n int) []byte {
	if len(b) == n {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
