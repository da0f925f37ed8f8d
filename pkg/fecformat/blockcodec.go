package fecformat

import "github.com/roc-streaming/roc-toolkit-sub001/pkg/packet"

// BlockCodec produces repair symbols from a complete set of source symbols
// and reconstructs missing source symbols from whatever mix of source and
// repair symbols is available, for one FEC block.
//
// All symbols in a block (source and repair) are handled at symbolLen
// bytes: RS8MCodec zero-pads shorter symbols to symbolLen, and
// reconstructed source symbols come back at symbolLen. No original length
// travels with a symbol, so a reconstructed symbol keeps its padding.
type BlockCodec interface {
	// Encode computes m repair symbols from n source symbols, all of
	// length symbolLen.
	Encode(source [][]byte, n, m, symbolLen int) (repair [][]byte, err error)

	// Decode reconstructs any nil entries of source (length n) in place,
	// using whatever non-nil source and repair symbols are present
	// (repair has length m; a nil entry means "not received"). Returns an
	// error if fewer than n total symbols are present.
	Decode(source [][]byte, repair [][]byte, n, m, symbolLen int) error
}

// Registry resolves a packet.FECScheme to its BlockCodec.
type Registry map[packet.FECScheme]BlockCodec

// NewRegistry builds the default registry: Reed-Solomon-8m and a
// staircase-style codec for LDPC-Staircase (see ldpc.go for the Open
// Question decision on how the latter is implemented).
func NewRegistry() Registry {
	return Registry{
		packet.FECSchemeRS8M:          &RS8MCodec{},
		packet.FECSchemeLDPCStaircase: &LDPCStaircaseCodec{},
	}
}

// Lookup returns the codec for scheme, or nil if unsupported.
func (r Registry) Lookup(scheme packet.FECScheme) BlockCodec {
	return r[scheme]
}
